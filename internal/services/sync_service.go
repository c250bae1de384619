/**
 * @description
 * Sync orchestrator. Refreshes quote, ratio snapshot and daily history for each
 * company from the financial-data API, with Yahoo as the secondary quote and history source.
 *
 * @dependencies
 * - backend/internal/integrations/fmp: primary market data
 * - backend/internal/integrations/yahoo: secondary quotes and history
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9: detail cache invalidation
 *
 * @notes
 * - A per-ticker failure is a structured result, never an error. Steps already applied stay applied.
 * - Quote fields the provider leaves out keep their stored values.
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluewhale-terminal/backend/internal/integrations/fmp"
	"github.com/bluewhale-terminal/backend/internal/integrations/yahoo"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	historyDays      = 365
	DefaultSyncDelay = time.Second
)

// MarketData is the primary provider used by sync
type MarketData interface {
	Configured() bool
	GetQuote(ctx context.Context, ticker string) (*fmp.Quote, error)
	GetKeyMetrics(ctx context.Context, ticker string) (*fmp.KeyMetrics, error)
	GetRatios(ctx context.Context, ticker string) (*fmp.Ratios, error)
	GetHistoricalPrices(ctx context.Context, ticker string) ([]fmp.HistoricalBar, error)
}

// SecondaryMarketData supplies quotes and history when the primary returns nothing
type SecondaryMarketData interface {
	GetQuote(ctx context.Context, ticker string) (*yahoo.Quote, error)
	GetHistory(ctx context.Context, ticker string) ([]yahoo.Bar, error)
}

// SyncResult is the outcome of syncing one ticker
type SyncResult struct {
	Ticker  string `json:"ticker"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BulkResult counts the outcomes of a bulk run. Success + Failed == Total.
type BulkResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

type SyncService struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Market    MarketData
	Secondary SecondaryMarketData
	Publisher PricePublisher
	Delay     time.Duration

	now func() time.Time
}

func NewSyncService(db *gorm.DB, rdb *redis.Client, market MarketData, secondary SecondaryMarketData, delay time.Duration) *SyncService {
	s := &SyncService{
		DB:        db,
		Redis:     rdb,
		Market:    market,
		Secondary: secondary,
		Delay:     delay,
		now:       time.Now,
	}
	if rdb != nil {
		s.Publisher = RedisPricePublisher{Redis: rdb}
	}
	return s
}

// quote is a provider-neutral quote. Nil means the provider did not supply the field.
type quote struct {
	price, change, changePct, marketCap, volume *float64
	source                                      string
}

func (q *quote) empty() bool {
	return q == nil || (q.price == nil && q.change == nil && q.changePct == nil && q.marketCap == nil && q.volume == nil)
}

// SyncOne refreshes one company. Errors are reported in the result.
func (s *SyncService) SyncOne(ctx context.Context, ticker string) SyncResult {
	ticker = models.NormalizeTicker(ticker)
	result := SyncResult{Ticker: ticker}

	var company models.Company
	if err := s.DB.WithContext(ctx).Where("ticker = ?", ticker).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("[Sync] %s not found", ticker)
			result.Message = "Company not found"
			return result
		}
		result.Message = err.Error()
		return result
	}

	wrote := false
	defer func() {
		if wrote {
			invalidateCompanyCache(context.WithoutCancel(ctx), s.Redis, ticker)
		}
	}()

	if err := s.syncQuote(ctx, &company, &wrote); err != nil {
		return s.fail(result, err)
	}
	if err := s.syncMetrics(ctx, &company, &wrote); err != nil {
		return s.fail(result, err)
	}
	if err := s.syncHistory(ctx, &company, &wrote); err != nil {
		return s.fail(result, err)
	}

	logger.Info("[Sync] %s synced", ticker)
	result.Success = true
	result.Message = ticker + " synced"
	return result
}

func (s *SyncService) fail(result SyncResult, err error) SyncResult {
	logger.Error("[Sync] %s failed: %v", result.Ticker, err)
	result.Message = err.Error()
	return result
}

// SyncAll syncs every company in ticker order, pausing Delay between tickers.
func (s *SyncService) SyncAll(ctx context.Context) BulkResult {
	var tickers []string
	if err := s.DB.WithContext(ctx).Model(&models.Company{}).Order("ticker ASC").Pluck("ticker", &tickers).Error; err != nil {
		logger.Error("[Sync] listing companies failed: %v", err)
		return BulkResult{}
	}

	logger.Info("[Sync] starting bulk sync of %d companies", len(tickers))
	res := BulkResult{Total: len(tickers)}
	for i, ticker := range tickers {
		if i > 0 && !sleepCtx(ctx, s.Delay) {
			res.Failed += len(tickers) - i
			logger.Warn("[Sync] bulk sync cancelled, %d tickers skipped", len(tickers)-i)
			break
		}
		if r := s.SyncOne(ctx, ticker); r.Success {
			res.Success++
		} else {
			res.Failed++
		}
	}

	logger.Info("[Sync] bulk sync complete: %d/%d successful", res.Success, res.Total)
	return res
}

func (s *SyncService) syncQuote(ctx context.Context, company *models.Company, wrote *bool) error {
	q, err := s.fetchQuote(ctx, company.Ticker)
	if err != nil {
		return err
	}
	if q.empty() {
		return nil
	}
	logger.Debug("[Sync] %s quote from %s", company.Ticker, q.source)

	updates := map[string]interface{}{}
	if q.price != nil {
		updates["last_price"] = *q.price
		company.LastPrice = *q.price
	}
	if q.change != nil {
		updates["price_change"] = *q.change
		company.PriceChange = *q.change
	}
	if q.changePct != nil {
		updates["price_change_percent"] = *q.changePct
		company.PriceChangePercent = *q.changePct
	}
	if q.marketCap != nil {
		updates["market_cap"] = *q.marketCap
		company.MarketCap = *q.marketCap
	}
	if q.volume != nil {
		updates["volume"] = int64(*q.volume)
		company.Volume = int64(*q.volume)
	}

	if err := s.DB.WithContext(ctx).Model(&models.Company{}).Where("id = ?", company.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	*wrote = true

	if s.Publisher != nil {
		update := PriceUpdate{
			Ticker:             company.Ticker,
			LastPrice:          company.LastPrice,
			PriceChange:        company.PriceChange,
			PriceChangePercent: company.PriceChangePercent,
			Volume:             company.Volume,
			MarketCap:          company.MarketCap,
			UpdatedAt:          s.now().UTC(),
		}
		if err := s.Publisher.PublishPrice(ctx, update); err != nil {
			logger.Warn("[Sync] publishing %s price failed: %v", company.Ticker, err)
		}
	}
	return nil
}

// fetchQuote asks the primary provider first and Yahoo when it has nothing.
// A primary error is returned only when the secondary cannot cover for it.
func (s *SyncService) fetchQuote(ctx context.Context, ticker string) (*quote, error) {
	var primaryErr error
	if s.Market != nil && s.Market.Configured() {
		fq, err := s.Market.GetQuote(ctx, ticker)
		if err != nil {
			primaryErr = err
		} else if q := fromFMPQuote(fq); !q.empty() {
			return q, nil
		}
	}

	if s.Secondary != nil {
		yq, err := s.Secondary.GetQuote(ctx, ticker)
		if err != nil {
			logger.Warn("[Sync] secondary quote for %s failed: %v", ticker, err)
		} else if q := fromYahooQuote(yq); !q.empty() {
			return q, nil
		}
	}

	if primaryErr != nil {
		return nil, fmt.Errorf("quote: %w", primaryErr)
	}
	return nil, nil
}

func fromFMPQuote(fq *fmp.Quote) *quote {
	if fq == nil {
		return nil
	}
	return &quote{
		price:     positive(fq.Price),
		change:    fq.Change,
		changePct: fq.ChangesPercentage,
		marketCap: positive(fq.MarketCap),
		volume:    positive(fq.Volume),
		source:    "fmp",
	}
}

func fromYahooQuote(yq *yahoo.Quote) *quote {
	if yq == nil {
		return nil
	}
	return &quote{
		price:     positive(yq.Price),
		change:    yq.Change,
		changePct: yq.ChangePercent,
		volume:    positive(yq.Volume),
		source:    "yahoo",
	}
}

func (s *SyncService) syncMetrics(ctx context.Context, company *models.Company, wrote *bool) error {
	if s.Market == nil || !s.Market.Configured() {
		return nil
	}

	km, err := s.Market.GetKeyMetrics(ctx, company.Ticker)
	if err != nil {
		return fmt.Errorf("key metrics: %w", err)
	}

	ratios, err := s.Market.GetRatios(ctx, company.Ticker)
	if err != nil {
		logger.Warn("[Sync] ratios for %s failed: %v", company.Ticker, err)
		ratios = nil
	}

	if km == nil && ratios == nil {
		return nil
	}

	m := &models.CompanyMetrics{
		CompanyID: company.ID,
		AsOfDate:  asOfDay(s.now()),
		Source:    "sync",
	}
	if km != nil {
		m.PERatio = km.PERatio
		m.PBRatio = km.PBRatio
		m.PSRatio = km.PriceToSalesRatio
		m.ROE = percent(km.ROE)
		m.ROA = percent(km.ROA)
		m.CurrentRatio = km.CurrentRatio
		m.DebtToEquity = km.DebtToEquity
		m.DividendYield = percent(km.DividendYield)
	}
	if ratios != nil {
		m.QuickRatio = ratios.QuickRatio
		m.GrossMargin = percent(ratios.GrossProfitMargin)
		m.OperatingMargin = percent(ratios.OperatingProfitMargin)
		m.NetMargin = percent(ratios.NetProfitMargin)
	}

	if len(m.SetColumns()) == 0 {
		return nil
	}
	if err := upsertMetrics(ctx, s.DB, m); err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}
	*wrote = true
	return nil
}

func (s *SyncService) syncHistory(ctx context.Context, company *models.Company, wrote *bool) error {
	rows, err := s.fetchHistory(ctx, company)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := replaceHistory(ctx, s.DB, company.ID, rows); err != nil {
		return err
	}
	*wrote = true
	return nil
}

func (s *SyncService) fetchHistory(ctx context.Context, company *models.Company) ([]models.HistoricalPrice, error) {
	var primaryErr error
	if s.Market != nil && s.Market.Configured() {
		bars, err := s.Market.GetHistoricalPrices(ctx, company.Ticker)
		if err != nil {
			primaryErr = err
		} else if len(bars) > 0 {
			return historyFromFMP(company, bars), nil
		}
	}

	if s.Secondary != nil {
		bars, err := s.Secondary.GetHistory(ctx, company.Ticker)
		if err != nil {
			logger.Warn("[Sync] secondary history for %s failed: %v", company.Ticker, err)
		} else if len(bars) > 0 {
			return historyFromYahoo(company, bars), nil
		}
	}

	if primaryErr != nil {
		return nil, fmt.Errorf("historical prices: %w", primaryErr)
	}
	return nil, nil
}

// historyFromFMP keeps the most recent historyDays bars. Input is newest first.
func historyFromFMP(company *models.Company, bars []fmp.HistoricalBar) []models.HistoricalPrice {
	rows := make([]models.HistoricalPrice, 0, min(len(bars), historyDays))
	seen := make(map[time.Time]bool, cap(rows))
	for _, bar := range bars {
		if len(rows) == historyDays {
			break
		}
		day, err := time.Parse("2006-01-02", bar.Date)
		if err != nil || seen[day] {
			continue
		}
		seen[day] = true
		rows = append(rows, models.HistoricalPrice{
			CompanyID: company.ID,
			Date:      day,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    int64(bar.Volume),
		})
	}
	return rows
}

func historyFromYahoo(company *models.Company, bars []yahoo.Bar) []models.HistoricalPrice {
	rows := make([]models.HistoricalPrice, 0, min(len(bars), historyDays))
	seen := make(map[time.Time]bool, cap(rows))
	for _, bar := range bars {
		if len(rows) == historyDays {
			break
		}
		if seen[bar.Date] {
			continue
		}
		seen[bar.Date] = true
		rows = append(rows, models.HistoricalPrice{
			CompanyID: company.ID,
			Date:      bar.Date,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		})
	}
	return rows
}

// positive drops non-positive values, which providers use for "unknown".
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// percent converts a provider fraction to the stored percent form.
func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}

// sleepCtx waits d, returning false if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
