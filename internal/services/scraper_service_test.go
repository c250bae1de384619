package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluewhale-terminal/backend/internal/db/dbtest"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/bluewhale-terminal/backend/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePageScraper struct {
	results map[string]*scraper.Result
	calls   []string
}

func (f *fakePageScraper) ScrapeOne(_ context.Context, ticker string) (*scraper.Result, error) {
	f.calls = append(f.calls, ticker)
	res, ok := f.results[ticker]
	if !ok {
		return nil, errors.New("FMP_API_KEY not configured")
	}
	return res, nil
}

func f64(v float64) *float64 { return &v }

var scrapedAt = time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)

func apnScrape() *scraper.Result {
	return &scraper.Result{
		Ticker: "APN",
		Source: scraper.SourceScraper,
		Metrics: &scraper.Metrics{
			PERatio: f64(8.5),
			ROE:     f64(15.2),
		},
		Financials: &scraper.Financials{
			Revenue:     f64(41.2e9),
			TotalAssets: f64(120.5e9),
		},
		Reports: []scraper.ReportLink{
			{Title: "Integrated Annual Report 2024", URL: "https://ir.example.com/docs/annual-report-2024.pdf", Type: models.ReportAnnual, FiscalYear: 2024},
			{Title: "Interim results", URL: "https://cdn.example.com/interim.pdf", Type: models.ReportInterim, FiscalYear: 2025},
		},
		FetchedAt: scrapedAt,
	}
}

func TestScrapeCompanySavesEverything(t *testing.T) {
	gdb := dbtest.Open(t)
	apn := seedCompany(t, gdb, models.Company{Ticker: "APN", Name: "Aspen Pharmacare", IsActive: true})
	svc := NewScraperService(gdb, nil, &fakePageScraper{results: map[string]*scraper.Result{"APN": apnScrape()}})

	summary, err := svc.ScrapeCompany(context.Background(), "apn")
	require.NoError(t, err)
	assert.Equal(t, scraper.SourceScraper, summary.Source)
	assert.Equal(t, 2, summary.NewReports)

	metrics, err := latestMetrics(context.Background(), gdb, apn.ID)
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.Equal(t, 8.5, *metrics.PERatio)
	assert.Equal(t, "scraper", metrics.Source)

	var fin models.CompanyFinancial
	require.NoError(t, gdb.Where("company_id = ?", apn.ID).First(&fin).Error)
	assert.Equal(t, 2025, fin.FiscalYear, "undated figures are filed under the scrape year")
	assert.Equal(t, 41.2e9, *fin.Revenue)
	assert.Nil(t, fin.NetIncome)

	var reports []models.CompanyReport
	require.NoError(t, gdb.Where("company_id = ?", apn.ID).Order("fiscal_year ASC").Find(&reports).Error)
	require.Len(t, reports, 2)
	assert.Equal(t, "annual-report-2024.pdf", reports[0].FileName)
}

func TestScrapeCompanyDeduplicatesReports(t *testing.T) {
	gdb := dbtest.Open(t)
	apn := seedCompany(t, gdb, models.Company{Ticker: "APN", Name: "Aspen Pharmacare", IsActive: true})
	svc := NewScraperService(gdb, nil, &fakePageScraper{results: map[string]*scraper.Result{"APN": apnScrape()}})

	_, err := svc.ScrapeCompany(context.Background(), "APN")
	require.NoError(t, err)
	second, err := svc.ScrapeCompany(context.Background(), "APN")
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewReports)

	var count int64
	gdb.Model(&models.CompanyReport{}).Where("company_id = ?", apn.ID).Count(&count)
	assert.Equal(t, int64(2), count)

	var finRows int64
	gdb.Model(&models.CompanyFinancial{}).Where("company_id = ?", apn.ID).Count(&finRows)
	assert.Equal(t, int64(1), finRows)
}

func TestScrapeCompanyFillsBlankProfileFields(t *testing.T) {
	gdb := dbtest.Open(t)
	mtn := seedCompany(t, gdb, models.Company{Ticker: "MTN", Name: "MTN Group", Website: "https://www.mtn.com", IsActive: true})
	res := &scraper.Result{
		Ticker: "MTN",
		Source: scraper.SourceFallback,
		Profile: &scraper.Profile{
			Name:        "MTN Group Ltd",
			Industry:    "Telecom Services",
			Website:     "https://mtn.example",
			Description: "Pan-African mobile operator",
		},
		FetchedAt: scrapedAt,
	}
	svc := NewScraperService(gdb, nil, &fakePageScraper{results: map[string]*scraper.Result{"MTN": res}})

	_, err := svc.ScrapeCompany(context.Background(), "MTN")
	require.NoError(t, err)

	var stored models.Company
	require.NoError(t, gdb.First(&stored, "id = ?", mtn.ID).Error)
	assert.Equal(t, "Telecom Services", stored.Industry)
	assert.Equal(t, "Pan-African mobile operator", stored.Description)
	assert.Equal(t, "https://www.mtn.com", stored.Website, "stored values win")
	assert.Equal(t, "MTN Group", stored.Name)
}

func TestScrapeCompanyUnknownTicker(t *testing.T) {
	gdb := dbtest.Open(t)
	fake := &fakePageScraper{}
	svc := NewScraperService(gdb, nil, fake)

	_, err := svc.ScrapeCompany(context.Background(), "XYZ")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
	assert.Empty(t, fake.calls)
}

func TestScrapeAllCountsFailures(t *testing.T) {
	gdb := dbtest.Open(t)
	seedCompany(t, gdb, models.Company{Ticker: "APN", Name: "Aspen Pharmacare", IsActive: true})
	seedCompany(t, gdb, models.Company{Ticker: "MTN", Name: "MTN Group", IsActive: true})
	seedCompany(t, gdb, models.Company{Ticker: "OLD", Name: "Delisted Ltd", IsActive: false})

	fake := &fakePageScraper{results: map[string]*scraper.Result{"APN": apnScrape()}}
	svc := NewScraperService(gdb, nil, fake)

	res := svc.ScrapeAll(context.Background())
	assert.Equal(t, BulkResult{Success: 1, Failed: 2, Total: 3}, res)
	assert.Equal(t, []string{"APN", "MTN", "OLD"}, fake.calls, "inactive companies are scraped too")
}
