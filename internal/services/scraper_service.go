/**
 * @description
 * Runs the investor-relations scraper for stored companies and persists what it finds:
 * the ratio snapshot, annual financials and newly discovered report links.
 *
 * @dependencies
 * - backend/internal/scraper
 * - gorm.io/gorm
 *
 * @notes
 * - Bulk runs are sequential. Page pacing lives in the scraper's fetch wrapper.
 * - Reports are de-duplicated on (company, file URL).
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/bluewhale-terminal/backend/internal/scraper"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PageScraper scrapes one ticker
type PageScraper interface {
	ScrapeOne(ctx context.Context, ticker string) (*scraper.Result, error)
}

// ScrapeSummary is what one persisted scrape produced
type ScrapeSummary struct {
	Ticker     string          `json:"ticker"`
	Source     scraper.Source  `json:"source"`
	NewReports int             `json:"newReports"`
	Result     *scraper.Result `json:"result"`
}

type ScraperService struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Scraper PageScraper
}

func NewScraperService(db *gorm.DB, rdb *redis.Client, s PageScraper) *ScraperService {
	return &ScraperService{DB: db, Redis: rdb, Scraper: s}
}

// ScrapeCompany scrapes one stored company and saves the result.
func (s *ScraperService) ScrapeCompany(ctx context.Context, ticker string) (*ScrapeSummary, error) {
	ticker = models.NormalizeTicker(ticker)

	var company models.Company
	if err := s.DB.WithContext(ctx).Where("ticker = ?", ticker).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	res, err := s.Scraper.ScrapeOne(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", ticker, err)
	}

	added, err := s.Save(ctx, &company, res)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", ticker, err)
	}

	logger.Info("[Scraper] %s scraped via %s, %d new reports", ticker, res.Source, added)
	return &ScrapeSummary{Ticker: ticker, Source: res.Source, NewReports: added, Result: res}, nil
}

// ScrapeAll scrapes every company, like SyncAll. A failing ticker is counted, never fatal.
func (s *ScraperService) ScrapeAll(ctx context.Context) BulkResult {
	var tickers []string
	if err := s.DB.WithContext(ctx).Model(&models.Company{}).
		Order("ticker ASC").Pluck("ticker", &tickers).Error; err != nil {
		logger.Error("[Scraper] listing companies failed: %v", err)
		return BulkResult{}
	}

	logger.Info("[Scraper] starting scrape of %d companies", len(tickers))
	res := BulkResult{Total: len(tickers)}
	for i, ticker := range tickers {
		if ctx.Err() != nil {
			res.Failed += len(tickers) - i
			logger.Warn("[Scraper] run cancelled, %d tickers skipped", len(tickers)-i)
			break
		}
		if _, err := s.ScrapeCompany(ctx, ticker); err != nil {
			logger.Error("[Scraper] %s failed: %v", ticker, err)
			res.Failed++
			continue
		}
		res.Success++
	}

	logger.Info("[Scraper] scrape complete: %d/%d successful", res.Success, res.Total)
	return res
}

// Save persists a scrape result for company and returns how many reports were new.
func (s *ScraperService) Save(ctx context.Context, company *models.Company, res *scraper.Result) (int, error) {
	if res == nil {
		return 0, nil
	}
	defer invalidateCompanyCache(context.WithoutCancel(ctx), s.Redis, company.Ticker)

	if err := s.saveProfile(ctx, company, res.Profile); err != nil {
		return 0, err
	}

	if !res.Metrics.Empty() {
		m := &models.CompanyMetrics{
			CompanyID:    company.ID,
			AsOfDate:     asOfDay(res.FetchedAt),
			PERatio:      res.Metrics.PERatio,
			PBRatio:      res.Metrics.PBRatio,
			ROE:          res.Metrics.ROE,
			ROA:          res.Metrics.ROA,
			DebtToEquity: res.Metrics.DebtToEquity,
			Source:       string(res.Source),
		}
		if err := upsertMetrics(ctx, s.DB, m); err != nil {
			return 0, fmt.Errorf("store metrics: %w", err)
		}
	}

	if !res.Financials.Empty() {
		year := res.Financials.FiscalYear
		if year == 0 {
			year = res.FetchedAt.Year()
		}
		f := &models.CompanyFinancial{
			CompanyID:        company.ID,
			FiscalYear:       year,
			Revenue:          res.Financials.Revenue,
			NetIncome:        res.Financials.NetIncome,
			TotalAssets:      res.Financials.TotalAssets,
			TotalLiabilities: res.Financials.TotalLiabilities,
			TotalEquity:      res.Financials.TotalEquity,
			Source:           string(res.Source),
		}
		if err := upsertFinancial(ctx, s.DB, f); err != nil {
			return 0, fmt.Errorf("store financials: %w", err)
		}
	}

	return s.saveReports(ctx, company, res)
}

// saveProfile fills descriptive fields the company does not have yet.
func (s *ScraperService) saveProfile(ctx context.Context, company *models.Company, p *scraper.Profile) error {
	if p == nil {
		return nil
	}
	updates := map[string]interface{}{}
	fill := func(col, current, value string) {
		if current == "" && value != "" {
			updates[col] = value
		}
	}
	fill("industry", company.Industry, p.Industry)
	fill("description", company.Description, p.Description)
	fill("website", company.Website, p.Website)
	fill("logo_url", company.LogoURL, p.LogoURL)
	if len(updates) == 0 {
		return nil
	}
	if err := s.DB.WithContext(ctx).Model(&models.Company{}).Where("id = ?", company.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

func (s *ScraperService) saveReports(ctx context.Context, company *models.Company, res *scraper.Result) (int, error) {
	added := 0
	for _, link := range res.Reports {
		var existing int64
		if err := s.DB.WithContext(ctx).Model(&models.CompanyReport{}).
			Where("company_id = ? AND file_url = ?", company.ID, link.URL).
			Count(&existing).Error; err != nil {
			return added, fmt.Errorf("check report: %w", err)
		}
		if existing > 0 {
			continue
		}

		report := models.CompanyReport{
			CompanyID:   company.ID,
			Title:       link.Title,
			ReportType:  link.Type,
			FiscalYear:  link.FiscalYear,
			PublishDate: res.FetchedAt,
			FileURL:     link.URL,
			FileName:    fileName(link.URL),
		}
		if err := s.DB.WithContext(ctx).Create(&report).Error; err != nil {
			return added, fmt.Errorf("store report: %w", err)
		}
		added++
	}
	return added, nil
}

func fileName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
