package market

import (
	"fmt"
	"sort"

	"finance-brief/internal/jsonfile"
)

type forexFile struct {
	Primary map[string]struct {
		Name string `json:"name"`
	} `json:"primary"`
}

type universeFile struct {
	Stocks map[string]struct {
		Name   string `json:"name"`
		Sector string `json:"sector"`
	} `json:"stocks"`
}

// LoadForexPairs reads the "primary" pairs of a forex reference file, sorted by symbol.
func LoadForexPairs(path string) ([]Instrument, error) {
	var doc forexFile
	found, err := jsonfile.Read(path, &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("forex reference %s not found", path)
	}
	out := make([]Instrument, 0, len(doc.Primary))
	for symbol, info := range doc.Primary {
		out = append(out, Instrument{Symbol: symbol, Name: info.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// LoadUniverse reads the stock universe reference file, sorted by symbol.
func LoadUniverse(path string) ([]Instrument, error) {
	var doc universeFile
	found, err := jsonfile.Read(path, &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("stock universe %s not found", path)
	}
	out := make([]Instrument, 0, len(doc.Stocks))
	for symbol, info := range doc.Stocks {
		out = append(out, Instrument{Symbol: symbol, Name: info.Name, Sector: info.Sector})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// Sectors maps symbol to sector for the universe.
func Sectors(universe []Instrument) map[string]string {
	out := make(map[string]string, len(universe))
	for _, inst := range universe {
		out[inst.Symbol] = inst.Sector
	}
	return out
}
