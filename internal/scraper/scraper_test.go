package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	err   error
	calls []string
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.pages[url]), nil
}

type fakeFallback struct {
	calls []string
	err   error
}

func (f *fakeFallback) Fallback(_ context.Context, ticker string) (*Result, error) {
	f.calls = append(f.calls, ticker)
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Ticker: ticker, Source: SourceFallback}, nil
}

const irPage = `<html><body>
<section id="highlights">
  <div class="metric">P/E Ratio <span>8.5x</span></div>
  <div class="metric">Price to Book <span>1.9</span></div>
  <div class="metric">Return on Equity <span>15.2%</span></div>
  <div class="metric">Debt to Equity <span>0.45</span></div>
</section>
<table class="financials">
  <tr><th>Item</th><th>FY2024</th></tr>
  <tr><td>Revenue</td><td>R 41.2bn</td></tr>
  <tr><td>Net income</td><td>R 3.4bn</td></tr>
  <tr><td>Total assets</td><td>R 120.5bn</td></tr>
</table>
<article class="news-item">
  <h3>Interim results announced</h3>
  <time datetime="2024-09-02">2 September 2024</time>
  <a href="/news/interim-2024">Read more</a>
</article>
<div class="announcement"><span class="title">Dividend declaration</span></div>
<a href="/docs/annual-report-2024.pdf">Integrated Annual Report 2024</a>
<a href="https://cdn.example.com/interim-financial-statements.pdf">Interim financial statements</a>
<a href="/docs/brochure.pdf">Company brochure</a>
</body></html>`

func newTestScraper(fetcher *fakeFetcher, fallback *fakeFallback) *Scraper {
	s := New(fetcher, fallback, map[string]string{"APN": "https://ir.example.com/investors"})
	s.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestScrapeOneWithoutURLUsesFallbackOnly(t *testing.T) {
	fetcher := &fakeFetcher{}
	fallback := &fakeFallback{}
	s := newTestScraper(fetcher, fallback)

	for _, ticker := range []string{"MTN", "vod", "XYZ"} {
		res, err := s.ScrapeOne(context.Background(), ticker)
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, res.Source)
	}

	assert.Empty(t, fetcher.calls, "no HTML fetch may be attempted")
	assert.Equal(t, []string{"MTN", "VOD", "XYZ"}, fallback.calls)
}

func TestScrapeOneFetchErrorFallsBack(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection reset")}
	fallback := &fakeFallback{}
	s := newTestScraper(fetcher, fallback)

	res, err := s.ScrapeOne(context.Background(), "APN")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, fetcher.calls, 1)
	assert.Equal(t, []string{"APN"}, fallback.calls)
}

func TestScrapeOneFallbackErrorSurfaces(t *testing.T) {
	fallback := &fakeFallback{err: errors.New("FMP_API_KEY not configured")}
	s := newTestScraper(&fakeFetcher{}, fallback)

	_, err := s.ScrapeOne(context.Background(), "MTN")
	assert.Error(t, err)
}

func TestScrapeOneExtractsPage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{"https://ir.example.com/investors": irPage}}
	fallback := &fakeFallback{}
	s := newTestScraper(fetcher, fallback)

	res, err := s.ScrapeOne(context.Background(), "apn")
	require.NoError(t, err)
	assert.Empty(t, fallback.calls)
	assert.Equal(t, SourceScraper, res.Source)
	assert.Equal(t, "APN", res.Ticker)

	require.NotNil(t, res.Metrics)
	require.NotNil(t, res.Metrics.PERatio)
	assert.InDelta(t, 8.5, *res.Metrics.PERatio, 1e-9)
	require.NotNil(t, res.Metrics.PBRatio)
	assert.InDelta(t, 1.9, *res.Metrics.PBRatio, 1e-9)
	require.NotNil(t, res.Metrics.ROE)
	assert.InDelta(t, 15.2, *res.Metrics.ROE, 1e-9)
	require.NotNil(t, res.Metrics.DebtToEquity)
	assert.InDelta(t, 0.45, *res.Metrics.DebtToEquity, 1e-9)

	require.NotNil(t, res.Financials)
	require.NotNil(t, res.Financials.Revenue)
	assert.InDelta(t, 41.2e9, *res.Financials.Revenue, 1)
	require.NotNil(t, res.Financials.NetIncome)
	assert.InDelta(t, 3.4e9, *res.Financials.NetIncome, 1)
	require.NotNil(t, res.Financials.TotalAssets)
	assert.InDelta(t, 120.5e9, *res.Financials.TotalAssets, 1)
	assert.Nil(t, res.Financials.TotalLiabilities, "unmatched fields stay absent")
	assert.Nil(t, res.Financials.TotalEquity)

	require.Len(t, res.News, 2)
	assert.Equal(t, "Interim results announced", res.News[0].Title)
	assert.Equal(t, "https://ir.example.com/news/interim-2024", res.News[0].Link)
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), res.News[0].Date)
	assert.Equal(t, "Dividend declaration", res.News[1].Title)
	assert.Equal(t, "#", res.News[1].Link)
	assert.Equal(t, s.now(), res.News[1].Date)

	require.Len(t, res.Reports, 2)
	assert.Equal(t, "https://ir.example.com/docs/annual-report-2024.pdf", res.Reports[0].URL)
	assert.Equal(t, models.ReportAnnual, res.Reports[0].Type)
	assert.Equal(t, 2024, res.Reports[0].FiscalYear)
	assert.Equal(t, "https://cdn.example.com/interim-financial-statements.pdf", res.Reports[1].URL)
	assert.Equal(t, models.ReportInterim, res.Reports[1].Type)
	assert.Equal(t, 2025, res.Reports[1].FiscalYear)
}

func TestParseEmptyPageLeavesEverythingAbsent(t *testing.T) {
	s := newTestScraper(&fakeFetcher{}, &fakeFallback{})

	res, err := s.Parse("APN", "https://ir.example.com/investors", []byte("<html><body><p>Nothing here</p></body></html>"))
	require.NoError(t, err)
	assert.Nil(t, res.Financials)
	assert.Nil(t, res.Metrics)
	assert.Empty(t, res.News)
	assert.Empty(t, res.Reports)
}

func TestMetricsOutsidePlausibleRangeAreDropped(t *testing.T) {
	s := newTestScraper(&fakeFetcher{}, &fakeFallback{})
	page := `<div>P/E ratio 4500</div><div>Debt to equity 12</div><div>ROA 3.1%</div>`

	res, err := s.Parse("APN", "https://ir.example.com/", []byte(page))
	require.NoError(t, err)
	require.NotNil(t, res.Metrics)
	assert.Nil(t, res.Metrics.PERatio)
	assert.Nil(t, res.Metrics.DebtToEquity)
	require.NotNil(t, res.Metrics.ROA)
	assert.InDelta(t, 3.1, *res.Metrics.ROA, 1e-9)
}

func TestNewsIsCappedAtFive(t *testing.T) {
	s := newTestScraper(&fakeFetcher{}, &fakeFallback{})
	page := ""
	for i := 0; i < 8; i++ {
		page += `<article><h2>Headline</h2></article>`
	}

	res, err := s.Parse("APN", "https://ir.example.com/", []byte(page))
	require.NoError(t, err)
	assert.Len(t, res.News, maxNewsItems)
}
