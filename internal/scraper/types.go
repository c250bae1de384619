package scraper

import (
	"context"
	"time"

	"github.com/bluewhale-terminal/backend/internal/models"
)

// Source names where a Result came from
type Source string

const (
	SourceScraper  Source = "scraper"
	SourceFallback Source = "fallback"
)

// Financials are headline statement figures. Unmatched fields stay nil.
// FiscalYear is zero when the source does not say which year the figures cover.
type Financials struct {
	FiscalYear       int      `json:"fiscalYear,omitempty"`
	Revenue          *float64 `json:"revenue,omitempty"`
	NetIncome        *float64 `json:"netIncome,omitempty"`
	TotalAssets      *float64 `json:"totalAssets,omitempty"`
	TotalLiabilities *float64 `json:"totalLiabilities,omitempty"`
	TotalEquity      *float64 `json:"totalEquity,omitempty"`
}

// Empty reports whether no figure was found
func (f *Financials) Empty() bool {
	return f == nil || (f.Revenue == nil && f.NetIncome == nil && f.TotalAssets == nil &&
		f.TotalLiabilities == nil && f.TotalEquity == nil)
}

// Metrics are ratio figures. Unmatched fields stay nil.
type Metrics struct {
	PERatio      *float64 `json:"peRatio,omitempty"`
	PBRatio      *float64 `json:"pbRatio,omitempty"`
	ROE          *float64 `json:"roe,omitempty"`
	ROA          *float64 `json:"roa,omitempty"`
	DebtToEquity *float64 `json:"debtToEquity,omitempty"`
}

// Empty reports whether no ratio was found
func (m *Metrics) Empty() bool {
	return m == nil || (m.PERatio == nil && m.PBRatio == nil && m.ROE == nil && m.ROA == nil && m.DebtToEquity == nil)
}

// Profile is descriptive company data from the financial-data API
type Profile struct {
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	Website     string `json:"website"`
	LogoURL     string `json:"logoUrl"`
}

// NewsItem is a headline found on an investor-relations page
type NewsItem struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
	Link  string    `json:"link"`
}

// ReportLink is a PDF report discovered on an investor-relations page
type ReportLink struct {
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Type       models.ReportType `json:"type"`
	FiscalYear int               `json:"fiscalYear"`
}

// Result is what one scrape (or fallback lookup) produced for a ticker
type Result struct {
	Ticker     string       `json:"ticker"`
	Source     Source       `json:"source"`
	Profile    *Profile     `json:"profile,omitempty"`
	Financials *Financials  `json:"financials,omitempty"`
	Metrics    *Metrics     `json:"metrics,omitempty"`
	News       []NewsItem   `json:"news,omitempty"`
	Reports    []ReportLink `json:"reports,omitempty"`
	FetchedAt  time.Time    `json:"fetchedAt"`
}

// FallbackSource supplies company data when the investor-relations page is
// missing or unusable.
type FallbackSource interface {
	Fallback(ctx context.Context, ticker string) (*Result, error)
}

func ptr(v float64) *float64 {
	return &v
}
