package models

// All lists the persisted entities in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Market{},
		&Bet{},
		&LedgerEntry{},
	}
}
