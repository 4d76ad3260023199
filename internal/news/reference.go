package news

import (
	"fmt"

	"finance-brief/internal/jsonfile"
)

// Feed is one configured RSS source.
type Feed struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// Weights lists the keywords that raise an item's relevance score.
type Weights struct {
	High   []string `json:"high"`
	Medium []string `json:"medium"`
	Low    []string `json:"low"`
}

// Reference is the feeds reference document.
type Reference struct {
	Feeds           map[string]Feed `json:"feeds"`
	KeywordWeights  Weights         `json:"keyword_weights"`
	MaxItemsPerFeed int             `json:"max_items_per_feed"`
	MaxTotalItems   int             `json:"max_total_items"`
}

// LoadReference reads the feeds reference file and applies defaults.
func LoadReference(path string) (Reference, error) {
	var ref Reference
	found, err := jsonfile.Read(path, &ref)
	if err != nil {
		return Reference{}, err
	}
	if !found {
		return Reference{}, fmt.Errorf("feeds reference %s not found", path)
	}
	if ref.MaxItemsPerFeed <= 0 {
		ref.MaxItemsPerFeed = 10
	}
	if ref.MaxTotalItems <= 0 {
		ref.MaxTotalItems = 30
	}
	return ref, nil
}
