package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// MetadataVersion is the current schema version written into new entries.
const MetadataVersion = 1

// Metadata is the structured side-data attached to a ledger entry.
// It is versioned and schema-checked by type rather than a free-form
// map, so the ledger's invariants stay checkable at compile time.
type Metadata struct {
	Version        int    `json:"version"`
	EventID        uint   `json:"event_id,omitempty"`
	TicketID       uint   `json:"ticket_id,omitempty"`
	TipID          uint   `json:"tip_id,omitempty"`
	CounterpartyID uint   `json:"counterparty_id,omitempty"`
	Anonymous      bool   `json:"anonymous,omitempty"`
	Note           string `json:"note,omitempty"`
}

// Value implements the driver.Valuer interface
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("metadata: unsupported scan type")
	}
	return json.Unmarshal(bytes, m)
}
