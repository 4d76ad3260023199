package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"finance-brief/internal/alerts"
)

// TriggerRecord is one row of the alert trigger audit trail.
type TriggerRecord struct {
	ID               int64
	AlertID          int
	Kind             string
	Symbol           string
	TriggerPrice     *decimal.Decimal
	TriggerChangePct *decimal.Decimal
	Headlines        []string
	TriggeredAt      time.Time
	Detail           json.RawMessage
	CreatedAt        time.Time
}

// triggerFromAlert flattens a triggered alert into an audit row.
func triggerFromAlert(a alerts.Alert) (TriggerRecord, error) {
	detail, err := json.Marshal(a)
	if err != nil {
		return TriggerRecord{}, err
	}
	rec := TriggerRecord{
		AlertID:          a.ID,
		Kind:             string(a.Kind),
		Symbol:           a.Symbol,
		TriggerPrice:     a.TriggerPrice,
		TriggerChangePct: a.TriggerChangePct,
		Headlines:        a.MatchedHeadlines,
		Detail:           detail,
	}
	if a.TriggerTime != nil {
		rec.TriggeredAt = a.TriggerTime.UTC()
	} else {
		rec.TriggeredAt = time.Now().UTC()
	}
	if rec.Headlines == nil {
		rec.Headlines = []string{}
	}
	return rec, nil
}

func decimalString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
