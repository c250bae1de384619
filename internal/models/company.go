/**
 * @description
 * Company, metrics snapshot and annual financials models.
 * Maps to the 'companies', 'company_metrics' and 'company_financials' tables.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 *
 * @notes
 * - The ticker is the stable external identifier. Provider symbols are derived from it.
 * - CompanyMetrics is a daily time series keyed by (company_id, as_of_date).
 */

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Sector string

const (
	SectorHealthcare         Sector = "HEALTHCARE"
	SectorTechnology         Sector = "TECHNOLOGY"
	SectorConsumerGoods      Sector = "CONSUMER_GOODS"
	SectorFinancials         Sector = "FINANCIALS"
	SectorEnergy             Sector = "ENERGY"
	SectorTelecommunications Sector = "TELECOMMUNICATIONS"
	SectorMaterials          Sector = "MATERIALS"
	SectorIndustrials        Sector = "INDUSTRIALS"
	SectorRealEstate         Sector = "REAL_ESTATE"
	SectorOther              Sector = "OTHER"
)

// Valid reports whether s is a known sector
func (s Sector) Valid() bool {
	switch s {
	case SectorHealthcare, SectorTechnology, SectorConsumerGoods, SectorFinancials, SectorEnergy,
		SectorTelecommunications, SectorMaterials, SectorIndustrials, SectorRealEstate, SectorOther:
		return true
	}
	return false
}

// Company represents a listed company tracked by the terminal
type Company struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Ticker             string    `gorm:"size:16;uniqueIndex;not null" json:"ticker"`
	Name               string    `gorm:"not null" json:"name"`
	Sector             Sector    `gorm:"size:32;index;default:OTHER" json:"sector"`
	Industry           string    `json:"industry"`
	Description        string    `gorm:"type:text" json:"description"`
	Website            string    `json:"website"`
	LogoURL            string    `gorm:"column:logo_url" json:"logoUrl"`
	LastPrice          float64   `gorm:"type:decimal(18,4)" json:"lastPrice"`
	PriceChange        float64   `gorm:"type:decimal(18,4)" json:"priceChange"`
	PriceChangePercent float64   `gorm:"type:decimal(10,4)" json:"priceChangePercent"`
	Volume             int64     `json:"volume"`
	MarketCap          float64   `gorm:"type:decimal(24,2);index" json:"marketCap"`
	IsActive           bool      `gorm:"not null;index" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Latest metrics snapshot, attached by the read paths.
	Metrics          *CompanyMetrics    `gorm:"-" json:"metrics,omitempty"`
	HistoricalPrices []HistoricalPrice  `gorm:"foreignKey:CompanyID" json:"historicalPrices,omitempty"`
	Financials       []CompanyFinancial `gorm:"foreignKey:CompanyID" json:"financials,omitempty"`
	Reports          []CompanyReport    `gorm:"foreignKey:CompanyID" json:"reports,omitempty"`
}

// TableName overrides the table name used by Company to `companies`
func (Company) TableName() string {
	return "companies"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	c.Ticker = NormalizeTicker(c.Ticker)
	return nil
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// CompanyMetrics is one day's snapshot of financial ratios for a company.
// Percent-valued ratios (ROE, ROA, dividend yield, margins) are stored as percentages.
type CompanyMetrics struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_company_metrics_company_day" json:"companyId"`
	AsOfDate  time.Time `gorm:"not null;uniqueIndex:idx_company_metrics_company_day" json:"asOfDate"`

	PERatio         *float64 `gorm:"column:pe_ratio" json:"peRatio"`
	PBRatio         *float64 `gorm:"column:pb_ratio" json:"pbRatio"`
	PSRatio         *float64 `gorm:"column:ps_ratio" json:"psRatio"`
	ROE             *float64 `gorm:"column:roe" json:"roe"`
	ROA             *float64 `gorm:"column:roa" json:"roa"`
	CurrentRatio    *float64 `gorm:"column:current_ratio" json:"currentRatio"`
	QuickRatio      *float64 `gorm:"column:quick_ratio" json:"quickRatio"`
	DebtToEquity    *float64 `gorm:"column:debt_to_equity" json:"debtToEquity"`
	DividendYield   *float64 `gorm:"column:dividend_yield" json:"dividendYield"`
	GrossMargin     *float64 `gorm:"column:gross_margin" json:"grossMargin"`
	OperatingMargin *float64 `gorm:"column:operating_margin" json:"operatingMargin"`
	NetMargin       *float64 `gorm:"column:net_margin" json:"netMargin"`

	Source    string    `gorm:"size:16" json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name used by CompanyMetrics to `company_metrics`
func (CompanyMetrics) TableName() string {
	return "company_metrics"
}

func (m *CompanyMetrics) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// SetColumns returns the ratio columns that carry a value, for partial upserts.
func (m *CompanyMetrics) SetColumns() []string {
	fields := []struct {
		col string
		v   *float64
	}{
		{"pe_ratio", m.PERatio},
		{"pb_ratio", m.PBRatio},
		{"ps_ratio", m.PSRatio},
		{"roe", m.ROE},
		{"roa", m.ROA},
		{"current_ratio", m.CurrentRatio},
		{"quick_ratio", m.QuickRatio},
		{"debt_to_equity", m.DebtToEquity},
		{"dividend_yield", m.DividendYield},
		{"gross_margin", m.GrossMargin},
		{"operating_margin", m.OperatingMargin},
		{"net_margin", m.NetMargin},
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.v != nil {
			cols = append(cols, f.col)
		}
	}
	return cols
}

// CompanyFinancial holds headline statement figures for one fiscal year.
type CompanyFinancial struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_company_financials_company_year" json:"companyId"`
	FiscalYear int       `gorm:"not null;uniqueIndex:idx_company_financials_company_year" json:"fiscalYear"`

	Revenue          *float64 `json:"revenue"`
	NetIncome        *float64 `json:"netIncome"`
	TotalAssets      *float64 `json:"totalAssets"`
	TotalLiabilities *float64 `json:"totalLiabilities"`
	TotalEquity      *float64 `json:"totalEquity"`

	Source    string    `gorm:"size:16" json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name used by CompanyFinancial to `company_financials`
func (CompanyFinancial) TableName() string {
	return "company_financials"
}

func (f *CompanyFinancial) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

// SetColumns returns the figure columns that carry a value.
func (f *CompanyFinancial) SetColumns() []string {
	var cols []string
	if f.Revenue != nil {
		cols = append(cols, "revenue")
	}
	if f.NetIncome != nil {
		cols = append(cols, "net_income")
	}
	if f.TotalAssets != nil {
		cols = append(cols, "total_assets")
	}
	if f.TotalLiabilities != nil {
		cols = append(cols, "total_liabilities")
	}
	if f.TotalEquity != nil {
		cols = append(cols, "total_equity")
	}
	return cols
}
