/**
 * @description
 * Historical price database model.
 * Maps to the 'historical_prices' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoricalPrice is one daily OHLCV bar for a company
type HistoricalPrice struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_historical_prices_company_date" json:"companyId"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_historical_prices_company_date" json:"date"`
	Open      float64   `gorm:"type:decimal(18,4)" json:"open"`
	High      float64   `gorm:"type:decimal(18,4)" json:"high"`
	Low       float64   `gorm:"type:decimal(18,4)" json:"low"`
	Close     float64   `gorm:"type:decimal(18,4)" json:"close"`
	Volume    int64     `json:"volume"`
}

// TableName overrides the table name used by HistoricalPrice to `historical_prices`
func (HistoricalPrice) TableName() string {
	return "historical_prices"
}

func (p *HistoricalPrice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
