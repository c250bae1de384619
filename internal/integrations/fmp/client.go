/**
 * @description
 * HTTP client for the Financial Modeling Prep v3 API.
 * Supplies quotes, key metrics, ratios, daily history, profiles and income statements
 * for JSE tickers (exchange-suffixed), and the scraper's API fallback.
 *
 * @dependencies
 * - backend/internal/httpclient: paced GETs
 * - github.com/go-playground/validator/v10: payload shape checks
 *
 * @notes
 * - An empty array from the API means "no data" and is returned as nil, nil.
 * - The API key travels in the query string, so errors are redacted before they leave this package.
 */

package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/httpclient"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultBaseURL = "https://financialmodelingprep.com/api/v3"
	// Free and starter plans allow roughly 300 calls per minute.
	requestInterval = 200 * time.Millisecond
)

// Client talks to the FMP REST API
type Client struct {
	baseURL  string
	apiKey   string
	suffix   string
	http     *httpclient.Client
	validate *validator.Validate
}

// NewClient builds a client from configuration
func NewClient(cfg *config.Config) *Client {
	return New(cfg.Market.FMPBaseURL, cfg.Market.FMPAPIKey, cfg.Market.ExchangeSuffix,
		httpclient.New(
			httpclient.WithTimeout(cfg.Market.RequestTimeout),
			httpclient.WithDelay(requestInterval),
			httpclient.WithoutRequestLog(),
		))
}

// New builds a client with explicit dependencies
func New(baseURL, apiKey, suffix string, http *httpclient.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		suffix:   suffix,
		http:     http,
		validate: validator.New(),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Symbol maps a JSE ticker to the provider symbol ("APN" -> "APN.JO").
func (c *Client) Symbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if c.suffix == "" || strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + c.suffix
}

// GetQuote fetches the live quote for a ticker
func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	var quotes []Quote
	if err := c.get(ctx, "quote", "/quote/"+c.Symbol(ticker), nil, &quotes); err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	if err := c.check("quote", &quotes[0]); err != nil {
		return nil, err
	}
	return &quotes[0], nil
}

// GetKeyMetrics fetches the latest annual key metrics
func (c *Client) GetKeyMetrics(ctx context.Context, ticker string) (*KeyMetrics, error) {
	q := url.Values{}
	q.Set("period", "annual")
	q.Set("limit", "1")

	var metrics []KeyMetrics
	if err := c.get(ctx, "key-metrics", "/key-metrics/"+c.Symbol(ticker), q, &metrics); err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, nil
	}
	if err := c.check("key-metrics", &metrics[0]); err != nil {
		return nil, err
	}
	return &metrics[0], nil
}

// GetHistoricalPrices fetches daily bars, most recent first
func (c *Client) GetHistoricalPrices(ctx context.Context, ticker string) ([]HistoricalBar, error) {
	var resp historicalResponse
	if err := c.get(ctx, "historical-price-full", "/historical-price-full/"+c.Symbol(ticker), nil, &resp); err != nil {
		return nil, err
	}
	if err := c.check("historical-price-full", &resp); err != nil {
		return nil, err
	}
	return resp.Historical, nil
}

// GetProfile fetches the company profile
func (c *Client) GetProfile(ctx context.Context, ticker string) (*Profile, error) {
	var profiles []Profile
	if err := c.get(ctx, "profile", "/profile/"+c.Symbol(ticker), nil, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	if err := c.check("profile", &profiles[0]); err != nil {
		return nil, err
	}
	return &profiles[0], nil
}

// GetIncomeStatement fetches the latest annual income statement
func (c *Client) GetIncomeStatement(ctx context.Context, ticker string) (*IncomeStatement, error) {
	q := url.Values{}
	q.Set("period", "annual")
	q.Set("limit", "1")

	var statements []IncomeStatement
	if err := c.get(ctx, "income-statement", "/income-statement/"+c.Symbol(ticker), q, &statements); err != nil {
		return nil, err
	}
	if len(statements) == 0 {
		return nil, nil
	}
	if err := c.check("income-statement", &statements[0]); err != nil {
		return nil, err
	}
	return &statements[0], nil
}

// GetRatios fetches the latest financial ratios
func (c *Client) GetRatios(ctx context.Context, ticker string) (*Ratios, error) {
	q := url.Values{}
	q.Set("limit", "1")

	var ratios []Ratios
	if err := c.get(ctx, "ratios", "/ratios/"+c.Symbol(ticker), q, &ratios); err != nil {
		return nil, err
	}
	if len(ratios) == 0 {
		return nil, nil
	}
	if err := c.check("ratios", &ratios[0]); err != nil {
		return nil, err
	}
	return &ratios[0], nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, out interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("apikey", c.apiKey)

	body, err := c.http.Get(ctx, c.baseURL+path+"?"+q.Encode())
	if err != nil {
		return c.redact(endpoint, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		// FMP reports plan and key problems as {"Error Message": "..."} with a 200.
		var apiErr struct {
			Message string `json:"Error Message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("fmp %s: %s", endpoint, apiErr.Message)
		}
		return &SchemaError{Endpoint: endpoint, Err: err}
	}
	return nil
}

func (c *Client) check(endpoint string, v interface{}) error {
	if err := c.validate.Struct(v); err != nil {
		return &SchemaError{Endpoint: endpoint, Err: err}
	}
	return nil
}

// redactedError hides the API key from messages while keeping the cause inspectable.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

var apiKeyParam = regexp.MustCompile(`(?i)(apikey=)[^&\s"]*`)

// minEchoedKeyLen keeps short keys from masking unrelated words in response bodies.
const minEchoedKeyLen = 8

func (c *Client) redact(endpoint string, err error) error {
	msg := apiKeyParam.ReplaceAllString(err.Error(), "${1}REDACTED")
	if len(c.apiKey) >= minEchoedKeyLen {
		msg = strings.ReplaceAll(msg, c.apiKey, "REDACTED")
	}
	return &redactedError{msg: fmt.Sprintf("fmp %s: %s", endpoint, msg), err: err}
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var statusErr *httpclient.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == 404
}
