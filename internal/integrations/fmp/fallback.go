package fmp

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/scraper"
	"golang.org/x/sync/errgroup"
)

// Fallback builds a best-effort scrape result from the API when the
// investor-relations page is missing or unusable. Each sub-request degrades
// independently; only a missing key fails the whole lookup.
func (c *Client) Fallback(ctx context.Context, ticker string) (*scraper.Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	var (
		profile *Profile
		metrics *KeyMetrics
		income  *IncomeStatement
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.GetProfile(gctx, ticker)
		if err != nil {
			logger.Warn("[FMP] profile for %s failed: %v", ticker, err)
			return nil
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		m, err := c.GetKeyMetrics(gctx, ticker)
		if err != nil {
			logger.Warn("[FMP] key metrics for %s failed: %v", ticker, err)
			return nil
		}
		metrics = m
		return nil
	})
	g.Go(func() error {
		s, err := c.GetIncomeStatement(gctx, ticker)
		if err != nil {
			logger.Warn("[FMP] income statement for %s failed: %v", ticker, err)
			return nil
		}
		income = s
		return nil
	})
	_ = g.Wait()

	res := &scraper.Result{
		Ticker:    ticker,
		Source:    scraper.SourceFallback,
		FetchedAt: time.Now().UTC(),
	}

	if profile != nil {
		res.Profile = &scraper.Profile{
			Name:        profile.CompanyName,
			Sector:      profile.Sector,
			Industry:    profile.Industry,
			Description: profile.Description,
			Website:     profile.Website,
			LogoURL:     profile.Image,
		}
	}

	if metrics != nil {
		m := &scraper.Metrics{
			PERatio:      metrics.PERatio,
			PBRatio:      metrics.PBRatio,
			ROE:          percent(metrics.ROE),
			ROA:          percent(metrics.ROA),
			DebtToEquity: metrics.DebtToEquity,
		}
		if !m.Empty() {
			res.Metrics = m
		}
	}

	fin := &scraper.Financials{}
	if income != nil {
		fin.Revenue = income.Revenue
		fin.NetIncome = income.NetIncome
		if year, err := strconv.Atoi(income.CalendarYear); err == nil {
			fin.FiscalYear = year
		}
	}
	if metrics != nil {
		fin.TotalAssets = metrics.TotalAssets
		fin.TotalLiabilities = metrics.TotalLiabilities
		fin.TotalEquity = metrics.TotalEquity
	}
	if !fin.Empty() {
		res.Financials = fin
	}

	return res, nil
}

// percent converts an API fraction (0.152) to the stored percent form (15.2).
func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}
