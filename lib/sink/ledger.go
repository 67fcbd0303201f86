package sink

import (
	"fmt"
)

// Ledger is an append-only log of failed identifiers. Entries are never
// deduplicated or removed; a later run decides what to do with them.
type Ledger struct {
	table *Table
}

func OpenLedger(path string, header []string) (*Ledger, error) {
	table, err := OpenTable(path, header)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{table: table}, nil
}

// Record appends one failure entry and flushes it immediately, so the entry
// survives even if the process dies on the very next fetch.
func (l *Ledger) Record(fields ...string) error {
	return l.table.Append(fields)
}

func (l *Ledger) Close() error {
	return l.table.Close()
}
