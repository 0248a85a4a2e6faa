package models

// Tables lists every model backed by a table, in creation order.
func Tables() []interface{} {
	return []interface{}{
		(*Subscription)(nil),
		(*CreditLedgerEntry)(nil),
		(*Moodboard)(nil),
		(*MoodboardAsset)(nil),
		(*Batch)(nil),
		(*Job)(nil),
		(*Output)(nil),
		(*Event)(nil),
	}
}
