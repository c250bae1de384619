/**
 * @description
 * Read side for companies: screener, search and detail lookups.
 * Detail reads by ticker are cached in Redis and invalidated by every sync write.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/redis/go-redis/v9
 *
 * @notes
 * - P/E and dividend filters run against each company's latest metrics snapshot in SQL,
 *   so pagination totals stay correct.
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	CompanyCacheTTL    = 5 * time.Minute
	companyCachePrefix = "bluewhale:company:"

	DefaultPageLimit = 50
	MaxPageLimit     = 100
	searchLimit      = 10
	detailPriceLimit = 365
	detailYearLimit  = 5
	detailReportMax  = 10
)

// ErrCompanyNotFound is returned by the lookups when no company matches.
var ErrCompanyNotFound = errors.New("company not found")

// latestMetricsJoin attaches each company's most recent metrics snapshot as "lm".
const latestMetricsJoin = `LEFT JOIN company_metrics lm ON lm.company_id = companies.id
	AND lm.as_of_date = (SELECT MAX(m2.as_of_date) FROM company_metrics m2 WHERE m2.company_id = companies.id)`

var screenerSortColumns = map[string]string{
	"marketCap":          "companies.market_cap",
	"lastPrice":          "companies.last_price",
	"priceChangePercent": "companies.price_change_percent",
	"volume":             "companies.volume",
	"name":               "companies.name",
	"ticker":             "companies.ticker",
	"peRatio":            "lm.pe_ratio",
	"dividendYield":      "lm.dividend_yield",
}

// ScreenerParams filters and orders the company list. Nil bounds are not applied.
type ScreenerParams struct {
	Sector           models.Sector
	IsActive         *bool
	MinMarketCap     *float64
	MaxMarketCap     *float64
	MinPE            *float64
	MaxPE            *float64
	MinDividendYield *float64
	MaxDividendYield *float64
	Search           string
	SortBy           string
	SortOrder        string
	Page             int
	Limit            int
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ScreenerResult is one page of screened companies
type ScreenerResult struct {
	Companies  []models.Company `json:"companies"`
	Pagination Pagination       `json:"pagination"`
}

type CompanyService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewCompanyService(db *gorm.DB, rdb *redis.Client) *CompanyService {
	return &CompanyService{DB: db, Redis: rdb}
}

// IsSortable reports whether sortBy names a screener sort key
func IsSortable(sortBy string) bool {
	_, ok := screenerSortColumns[sortBy]
	return ok
}

// Screen returns one page of companies matching params, each with its latest metrics.
func (s *CompanyService) Screen(ctx context.Context, params ScreenerParams) (*ScreenerResult, error) {
	page, limit := normalizePage(params.Page, params.Limit, DefaultPageLimit)

	query := s.DB.WithContext(ctx).Model(&models.Company{}).Joins(latestMetricsJoin)

	if params.Sector != "" {
		query = query.Where("companies.sector = ?", params.Sector)
	}
	if params.IsActive != nil {
		query = query.Where("companies.is_active = ?", *params.IsActive)
	}
	if params.MinMarketCap != nil {
		query = query.Where("companies.market_cap >= ?", *params.MinMarketCap)
	}
	if params.MaxMarketCap != nil {
		query = query.Where("companies.market_cap <= ?", *params.MaxMarketCap)
	}
	if params.MinPE != nil {
		query = query.Where("lm.pe_ratio >= ?", *params.MinPE)
	}
	if params.MaxPE != nil {
		query = query.Where("lm.pe_ratio <= ?", *params.MaxPE)
	}
	if params.MinDividendYield != nil {
		query = query.Where("lm.dividend_yield >= ?", *params.MinDividendYield)
	}
	if params.MaxDividendYield != nil {
		query = query.Where("lm.dividend_yield <= ?", *params.MaxDividendYield)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(companies.name) LIKE ? OR LOWER(companies.ticker) LIKE ?", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count companies: %w", err)
	}

	column, ok := screenerSortColumns[params.SortBy]
	if !ok {
		column = screenerSortColumns["marketCap"]
	}
	direction := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		direction = "ASC"
	}

	var companies []models.Company
	err := query.Select("companies.*").
		Order(fmt.Sprintf("%s %s, companies.ticker ASC", column, direction)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&companies).Error
	if err != nil {
		return nil, fmt.Errorf("screen companies: %w", err)
	}

	if err := s.attachLatestMetrics(ctx, companies); err != nil {
		return nil, err
	}

	return &ScreenerResult{
		Companies: companies,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// Search matches name or ticker, case-insensitively, active companies only.
func (s *CompanyService) Search(ctx context.Context, q string) ([]models.Company, error) {
	q = strings.TrimSpace(q)
	companies := []models.Company{}
	if q == "" {
		return companies, nil
	}

	like := "%" + strings.ToLower(q) + "%"
	err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(ticker) LIKE ?", like, like).
		Order("market_cap DESC").
		Limit(searchLimit).
		Find(&companies).Error
	return companies, err
}

// GetByTicker returns the company detail, served from Redis when cached.
func (s *CompanyService) GetByTicker(ctx context.Context, ticker string) (*models.Company, error) {
	ticker = models.NormalizeTicker(ticker)
	key := companyCachePrefix + ticker

	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var company models.Company
			if err := json.Unmarshal([]byte(val), &company); err == nil {
				return &company, nil
			}
		}
	}

	var company models.Company
	if err := s.DB.WithContext(ctx).Where("ticker = ?", ticker).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	if err := s.loadDetail(ctx, &company); err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(company); err == nil {
			if err := s.Redis.Set(ctx, key, payload, CompanyCacheTTL).Err(); err != nil {
				logger.Warn("[Companies] cache write for %s failed: %v", ticker, err)
			}
		}
	}
	return &company, nil
}

// GetByID returns the company detail
func (s *CompanyService) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := s.DB.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	if err := s.loadDetail(ctx, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (s *CompanyService) loadDetail(ctx context.Context, company *models.Company) error {
	tx := s.DB.WithContext(ctx)

	metrics, err := latestMetrics(ctx, s.DB, company.ID)
	if err != nil {
		return err
	}
	company.Metrics = metrics

	if err := tx.Where("company_id = ?", company.ID).Order("date DESC").Limit(detailPriceLimit).
		Find(&company.HistoricalPrices).Error; err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if err := tx.Where("company_id = ?", company.ID).Order("fiscal_year DESC").Limit(detailYearLimit).
		Find(&company.Financials).Error; err != nil {
		return fmt.Errorf("load financials: %w", err)
	}
	if err := tx.Where("company_id = ?", company.ID).Order("publish_date DESC").Limit(detailReportMax).
		Find(&company.Reports).Error; err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	return nil
}

func (s *CompanyService) attachLatestMetrics(ctx context.Context, companies []models.Company) error {
	if len(companies) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(companies))
	for i := range companies {
		ids[i] = companies[i].ID
	}

	var rows []models.CompanyMetrics
	if err := s.DB.WithContext(ctx).Where("company_id IN ?", ids).Order("as_of_date DESC").Find(&rows).Error; err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}

	latest := make(map[uuid.UUID]*models.CompanyMetrics, len(companies))
	for i := range rows {
		if _, seen := latest[rows[i].CompanyID]; !seen {
			latest[rows[i].CompanyID] = &rows[i]
		}
	}
	for i := range companies {
		companies[i].Metrics = latest[companies[i].ID]
	}
	return nil
}

func latestMetrics(ctx context.Context, gdb *gorm.DB, companyID uuid.UUID) (*models.CompanyMetrics, error) {
	var rows []models.CompanyMetrics
	if err := gdb.WithContext(ctx).Where("company_id = ?", companyID).Order("as_of_date DESC").Limit(1).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// invalidateCompanyCache drops the cached detail for ticker. Failures are logged only.
func invalidateCompanyCache(ctx context.Context, rdb *redis.Client, ticker string) {
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, companyCachePrefix+models.NormalizeTicker(ticker)).Err(); err != nil {
		logger.Warn("[Companies] cache invalidation for %s failed: %v", ticker, err)
	}
}

func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
