package fmp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned by every call when FMP_API_KEY is not configured.
var ErrMissingAPIKey = errors.New("FMP_API_KEY not configured")

// SchemaError reports a payload that decoded but did not match the expected shape.
type SchemaError struct {
	Endpoint string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("fmp %s: unexpected payload: %v", e.Endpoint, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Quote is a live quote. Nil fields were not returned by the API.
type Quote struct {
	Symbol            string   `json:"symbol" validate:"required"`
	Price             *float64 `json:"price" validate:"omitempty,gte=0"`
	Change            *float64 `json:"change"`
	ChangesPercentage *float64 `json:"changesPercentage"`
	MarketCap         *float64 `json:"marketCap" validate:"omitempty,gte=0"`
	Volume            *float64 `json:"volume" validate:"omitempty,gte=0"`
}

// KeyMetrics is the latest annual key-metrics record. Ratios such as ROE are fractions.
type KeyMetrics struct {
	Symbol            string   `json:"symbol" validate:"required"`
	Date              string   `json:"date"`
	PERatio           *float64 `json:"peRatio"`
	PBRatio           *float64 `json:"pbRatio"`
	PriceToSalesRatio *float64 `json:"priceToSalesRatio"`
	ROE               *float64 `json:"roe"`
	ROA               *float64 `json:"roa"`
	CurrentRatio      *float64 `json:"currentRatio"`
	DebtToEquity      *float64 `json:"debtToEquity"`
	DividendYield     *float64 `json:"dividendYield"`
	TotalAssets       *float64 `json:"totalAssets"`
	TotalLiabilities  *float64 `json:"totalLiabilities"`
	TotalEquity       *float64 `json:"totalEquity"`
}

// HistoricalBar is one daily bar from historical-price-full
type HistoricalBar struct {
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Open   float64 `json:"open" validate:"gte=0"`
	High   float64 `json:"high" validate:"gte=0"`
	Low    float64 `json:"low" validate:"gte=0"`
	Close  float64 `json:"close" validate:"gte=0"`
	Volume float64 `json:"volume" validate:"gte=0"`
}

type historicalResponse struct {
	Symbol     string          `json:"symbol"`
	Historical []HistoricalBar `json:"historical" validate:"dive"`
}

// UnmarshalJSON also accepts the bare "[]" the API sends for symbols without history.
func (h *historicalResponse) UnmarshalJSON(b []byte) error {
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		if len(items) > 0 {
			return errors.New("expected an object, got a non-empty array")
		}
		return nil
	}
	type plain historicalResponse
	return json.Unmarshal(b, (*plain)(h))
}

// Profile is the company profile record
type Profile struct {
	Symbol      string   `json:"symbol" validate:"required"`
	CompanyName string   `json:"companyName"`
	Price       *float64 `json:"price"`
	MktCap      *float64 `json:"mktCap"`
	Sector      string   `json:"sector"`
	Industry    string   `json:"industry"`
	Description string   `json:"description"`
	Website     string   `json:"website"`
	Image       string   `json:"image"`
}

// IncomeStatement is the latest annual income statement
type IncomeStatement struct {
	Symbol       string   `json:"symbol" validate:"required"`
	Date         string   `json:"date"`
	CalendarYear string   `json:"calendarYear" validate:"omitempty,numeric,len=4"`
	Revenue      *float64 `json:"revenue"`
	NetIncome    *float64 `json:"netIncome"`
}

// Ratios is the latest financial-ratios record. Margins are fractions.
type Ratios struct {
	Symbol                string   `json:"symbol" validate:"required"`
	Date                  string   `json:"date"`
	QuickRatio            *float64 `json:"quickRatio"`
	GrossProfitMargin     *float64 `json:"grossProfitMargin"`
	OperatingProfitMargin *float64 `json:"operatingProfitMargin"`
	NetProfitMargin       *float64 `json:"netProfitMargin"`
}
