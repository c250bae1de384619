package models

import "github.com/google/uuid"

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Company{},
		&CompanyMetrics{},
		&CompanyFinancial{},
		&HistoricalPrice{},
		&CompanyReport{},
		&Watchlist{},
		&WatchlistItem{},
		&SavedReport{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
