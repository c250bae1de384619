/**
 * @description
 * Client for the public Yahoo Finance v8 chart endpoint.
 * Secondary source for quotes and daily history when the primary API returns nothing.
 *
 * @dependencies
 * - backend/internal/httpclient: paced GETs
 *
 * @notes
 * - No key is required. Yahoo rejects requests without a browser user agent,
 *   which the fetch wrapper supplies.
 */

package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/httpclient"
)

const (
	DefaultBaseURL  = "https://query1.finance.yahoo.com"
	requestInterval = 500 * time.Millisecond
)

// Quote is the latest regular-market snapshot. Nil fields were not reported.
type Quote struct {
	Symbol        string
	Price         *float64
	Change        *float64
	ChangePercent *float64
	Volume        *float64
}

// Bar is one daily OHLCV row
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
		PreviousClose      *float64 `json:"previousClose"`
		RegularMarketVol   *float64 `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Client fetches chart data
type Client struct {
	baseURL string
	suffix  string
	http    *httpclient.Client
}

// NewClient builds a client from configuration
func NewClient(cfg *config.Config) *Client {
	return New(cfg.Market.YahooBaseURL, cfg.Market.ExchangeSuffix, httpclient.New(
		httpclient.WithTimeout(cfg.Market.RequestTimeout),
		httpclient.WithDelay(requestInterval),
	))
}

// New builds a client with explicit dependencies
func New(baseURL, suffix string, http *httpclient.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), suffix: suffix, http: http}
}

func (c *Client) symbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if c.suffix == "" || strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + c.suffix
}

func (c *Client) chart(ctx context.Context, ticker, rng string) (*chartResult, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", rng)

	var resp chartResponse
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(c.symbol(ticker)), q.Encode())
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("yahoo chart: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart: %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	return &resp.Chart.Result[0], nil
}

// GetQuote returns the latest quote, or nil when Yahoo has no data for the ticker.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	res, err := c.chart(ctx, ticker, "1d")
	if err != nil || res == nil {
		return nil, err
	}
	meta := res.Meta
	if meta.RegularMarketPrice == nil {
		return nil, nil
	}

	q := &Quote{Symbol: meta.Symbol, Price: meta.RegularMarketPrice, Volume: meta.RegularMarketVol}

	prev := meta.ChartPreviousClose
	if prev == nil {
		prev = meta.PreviousClose
	}
	if prev != nil && *prev > 0 {
		change := *meta.RegularMarketPrice - *prev
		pct := change / *prev * 100
		q.Change = &change
		q.ChangePercent = &pct
	}
	return q, nil
}

// GetHistory returns up to a year of daily bars, most recent first.
// Rows with a missing close are skipped.
func (c *Client) GetHistory(ctx context.Context, ticker string) ([]Bar, error) {
	res, err := c.chart(ctx, ticker, "1y")
	if err != nil || res == nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	ind := res.Indicators.Quote[0]

	bars := make([]Bar, 0, len(res.Timestamp))
	for i := len(res.Timestamp) - 1; i >= 0; i-- {
		closePx := at(ind.Close, i)
		if closePx == nil {
			continue
		}
		ts := time.Unix(res.Timestamp[i], 0).UTC()
		bar := Bar{
			Date:  time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Close: *closePx,
			Open:  valueOr(at(ind.Open, i), *closePx),
			High:  valueOr(at(ind.High, i), *closePx),
			Low:   valueOr(at(ind.Low, i), *closePx),
		}
		if v := at(ind.Volume, i); v != nil {
			bar.Volume = int64(*v)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
