package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topic is the Kafka topic account events are published on.
const Topic = "account_events"

// AccountEvent is the payload published to external consumers after a
// mutation has been applied to the in-memory registry.
type AccountEvent struct {
	Type           string          `json:"type"`
	AccountID      string          `json:"account_id,omitempty"`
	CounterpartyID string          `json:"counterparty_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"reference,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
