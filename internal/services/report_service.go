package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/db"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const DefaultReportLimit = 20

var (
	ErrReportNotFound     = errors.New("report not found")
	ErrReportAlreadySaved = errors.New("report already saved")
)

// ReportFilter narrows the report listing. Zero values are not applied.
type ReportFilter struct {
	CompanyID  *uuid.UUID
	ReportType models.ReportType
	FiscalYear int
	Search     string
	Page       int
	Limit      int
}

// ReportPage is one page of reports
type ReportPage struct {
	Reports    []models.CompanyReport `json:"reports"`
	Pagination Pagination             `json:"pagination"`
}

// CreateReportInput is a manually registered report
type CreateReportInput struct {
	CompanyID   uuid.UUID
	Title       string
	ReportType  models.ReportType
	FiscalYear  int
	PublishDate time.Time
	FileURL     string
	FileName    string
	FileSize    int64
	Summary     string
	KeyPoints   []string
}

type ReportService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewReportService(db *gorm.DB, rdb *redis.Client) *ReportService {
	return &ReportService{DB: db, Redis: rdb}
}

// List returns reports newest first, each with its company
func (s *ReportService) List(ctx context.Context, f ReportFilter) (*ReportPage, error) {
	page, limit := normalizePage(f.Page, f.Limit, DefaultReportLimit)

	query := s.DB.WithContext(ctx).Model(&models.CompanyReport{})
	if f.CompanyID != nil {
		query = query.Where("company_id = ?", *f.CompanyID)
	}
	if f.ReportType != "" {
		query = query.Where("report_type = ?", f.ReportType)
	}
	if f.FiscalYear != 0 {
		query = query.Where("fiscal_year = ?", f.FiscalYear)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	reports := []models.CompanyReport{}
	if err := query.Preload("Company").
		Order("publish_date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	return &ReportPage{
		Reports: reports,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// Get returns one report with its company
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*models.CompanyReport, error) {
	var report models.CompanyReport
	if err := s.DB.WithContext(ctx).Preload("Company").First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

// Create registers a report for an existing company
func (s *ReportService) Create(ctx context.Context, in CreateReportInput) (*models.CompanyReport, error) {
	var company models.Company
	if err := s.DB.WithContext(ctx).First(&company, "id = ?", in.CompanyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	report := &models.CompanyReport{
		CompanyID:   company.ID,
		Title:       in.Title,
		ReportType:  in.ReportType,
		FiscalYear:  in.FiscalYear,
		PublishDate: in.PublishDate,
		FileURL:     in.FileURL,
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		Summary:     in.Summary,
		KeyPoints:   models.StringList(in.KeyPoints),
	}
	if err := s.DB.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	invalidateCompanyCache(ctx, s.Redis, company.Ticker)
	report.Company = &company
	return report, nil
}

// Save bookmarks a report for a user
func (s *ReportService) Save(ctx context.Context, userID, reportID uuid.UUID, notes string) (*models.SavedReport, error) {
	if _, err := s.Get(ctx, reportID); err != nil {
		return nil, err
	}

	saved := &models.SavedReport{UserID: userID, ReportID: reportID, Notes: notes}
	if err := s.DB.WithContext(ctx).Create(saved).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrReportAlreadySaved
		}
		return nil, err
	}
	return saved, nil
}

// ListSaved returns the user's saved reports, most recently saved first
func (s *ReportService) ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedReport, error) {
	saved := []models.SavedReport{}
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Report").
		Preload("Report.Company").
		Order("created_at DESC").
		Find(&saved).Error
	return saved, err
}

// Unsave removes a bookmark by report id. Removing a missing bookmark is not an error.
func (s *ReportService) Unsave(ctx context.Context, userID, reportID uuid.UUID) error {
	return s.DB.WithContext(ctx).
		Where("user_id = ? AND report_id = ?", userID, reportID).
		Delete(&models.SavedReport{}).Error
}
