/**
 * @description
 * Investor-relations page scraper for JSE-listed companies.
 * Fetches a company's IR landing page and pulls financial figures, ratios, news and
 * report links out of the DOM by keyword matching. Falls back to the financial-data API
 * when no page is configured or the page cannot be fetched or parsed.
 *
 * @dependencies
 * - github.com/PuerkitoBio/goquery: DOM traversal
 * - backend/internal/httpclient: paced page fetches
 *
 * @notes
 * - Extraction is best effort. A value that is not matched stays absent, never zero.
 * - Later matches in document order overwrite earlier ones, so the innermost element wins.
 */

package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bluewhale-terminal/backend/internal/httpclient"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/models"
)

const maxNewsItems = 5

var (
	yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	newsDateLayouts = []string{
		time.RFC3339,
		"2006-01-02",
		"2 January 2006",
		"02 January 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"02 Jan 2006",
		"Jan 2, 2006",
		"02/01/2006",
	}
)

// Scraper extracts company data from investor-relations pages
type Scraper struct {
	fetcher  httpclient.Fetcher
	fallback FallbackSource
	urls     map[string]string
	now      func() time.Time
}

// New creates a Scraper over the given ticker to page URL table.
func New(fetcher httpclient.Fetcher, fallback FallbackSource, urls map[string]string) *Scraper {
	return &Scraper{
		fetcher:  fetcher,
		fallback: fallback,
		urls:     urls,
		now:      time.Now,
	}
}

// URLFor returns the configured IR page for a ticker
func (s *Scraper) URLFor(ticker string) (string, bool) {
	u, ok := s.urls[models.NormalizeTicker(ticker)]
	return u, ok
}

// ScrapeOne scrapes a single ticker, falling back to the API when the page route is unusable.
func (s *Scraper) ScrapeOne(ctx context.Context, ticker string) (*Result, error) {
	ticker = models.NormalizeTicker(ticker)

	pageURL, ok := s.urls[ticker]
	if !ok {
		logger.Info("No IR URL configured for %s, falling back to API", ticker)
		return s.fallback.Fallback(ctx, ticker)
	}

	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		logger.Warn("Scraping %s failed: %v; falling back to API", ticker, err)
		return s.fallback.Fallback(ctx, ticker)
	}

	res, err := s.Parse(ticker, pageURL, body)
	if err != nil {
		logger.Warn("Parsing %s failed: %v; falling back to API", ticker, err)
		return s.fallback.Fallback(ctx, ticker)
	}

	logger.Info("✅ Scraped %s", ticker)
	return res, nil
}

// Parse runs every extractor over an already fetched page.
func (s *Scraper) Parse(ticker, pageURL string, body []byte) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("parse %s: %v", ticker, r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ticker, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}

	now := s.now()
	res = &Result{
		Ticker:    ticker,
		Source:    SourceScraper,
		News:      extractNews(doc, base, now),
		Reports:   extractReports(doc, base, now),
		FetchedAt: now,
	}
	if f := extractFinancials(doc); !f.Empty() {
		res.Financials = f
	}
	if m := extractMetrics(doc); !m.Empty() {
		res.Metrics = m
	}
	return res, nil
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// rowValue reads the first number from the cells after the label cell,
// or from the whole row when it has a single cell.
func rowValue(row *goquery.Selection) (float64, bool) {
	cells := row.Find("td, th")
	if cells.Length() < 2 {
		return ExtractNumber(row.Text())
	}
	var (
		v  float64
		ok bool
	)
	cells.Slice(1, cells.Length()).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		v, ok = ExtractNumber(cell.Text())
		return !ok
	})
	return v, ok
}

func extractFinancials(doc *goquery.Document) *Financials {
	f := &Financials{}
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		text := strings.ToLower(row.Text())
		v, ok := rowValue(row)
		if !ok || v == 0 {
			return
		}
		if containsAny(text, "revenue", "turnover") {
			f.Revenue = ptr(v)
		}
		if containsAny(text, "net income", "profit") {
			f.NetIncome = ptr(v)
		}
		if containsAny(text, "total assets") {
			f.TotalAssets = ptr(v)
		}
		if containsAny(text, "total liabilities") {
			f.TotalLiabilities = ptr(v)
		}
		if containsAny(text, "total equity", "shareholders equity", "shareholders' equity") {
			f.TotalEquity = ptr(v)
		}
	})
	return f
}

func extractMetrics(doc *goquery.Document) *Metrics {
	m := &Metrics{}
	doc.Find("div, section, table").Each(func(_ int, el *goquery.Selection) {
		text := strings.ToLower(el.Text())
		v, ok := ExtractNumber(text)
		if !ok || v == 0 {
			return
		}
		if containsAny(text, "p/e ratio", "pe ratio") && v > 0 && v < 1000 {
			m.PERatio = ptr(v)
		}
		if containsAny(text, "price to book", "p/b ratio") && v > 0 && v < 100 {
			m.PBRatio = ptr(v)
		}
		if containsAny(text, "roe", "return on equity") && v > -100 && v < 100 {
			m.ROE = ptr(v)
		}
		if containsAny(text, "roa", "return on assets") && v > -100 && v < 100 {
			m.ROA = ptr(v)
		}
		if containsAny(text, "debt to equity", "d/e ratio") && v >= 0 && v < 10 {
			m.DebtToEquity = ptr(v)
		}
	})
	return m
}

func extractNews(doc *goquery.Document, base *url.URL, now time.Time) []NewsItem {
	var news []NewsItem
	doc.Find("article, .news-item, .announcement").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		title := strings.TrimSpace(el.Find("h2, h3, .title").First().Text())
		if title == "" {
			return true
		}

		item := NewsItem{Title: title, Date: now, Link: "#"}

		dateEl := el.Find(".date, time").First()
		if attr, ok := dateEl.Attr("datetime"); ok {
			if d, ok := parseNewsDate(attr); ok {
				item.Date = d
			}
		} else if d, ok := parseNewsDate(dateEl.Text()); ok {
			item.Date = d
		}

		if href, ok := el.Find("a").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			item.Link = resolve(base, href)
		}

		news = append(news, item)
		return len(news) < maxNewsItems
	})
	return news
}

func parseNewsDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range newsDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func extractReports(doc *goquery.Document, base *url.URL, now time.Time) []ReportLink {
	var reports []ReportLink
	seen := make(map[string]bool)
	doc.Find(`a[href$=".pdf"]`).Each(func(_ int, a *goquery.Selection) {
		title := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		lower := strings.ToLower(title)
		if href == "" || !containsAny(lower, "annual", "interim", "financial") {
			return
		}

		full := resolve(base, href)
		if seen[full] {
			return
		}
		seen[full] = true

		reportType := models.ReportInterim
		if strings.Contains(lower, "annual") {
			reportType = models.ReportAnnual
		}

		year := now.Year()
		if y := yearPattern.FindString(title); y != "" {
			year, _ = strconv.Atoi(y)
		}

		reports = append(reports, ReportLink{
			Title:      title,
			URL:        full,
			Type:       reportType,
			FiscalYear: year,
		})
	})
	return reports
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
