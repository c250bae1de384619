package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bluewhale-terminal/backend/internal/db"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const historyBatchSize = 100

// asOfDay truncates t to its UTC calendar day, the metrics snapshot key.
func asOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// upsertMetrics writes the non-nil ratios of m into the (company, day) snapshot.
// Columns m leaves nil keep whatever another writer stored for that day.
func upsertMetrics(ctx context.Context, gdb *gorm.DB, m *models.CompanyMetrics) error {
	cols := m.SetColumns()
	if len(cols) == 0 {
		return nil
	}
	cols = append(cols, "source", "updated_at")

	return db.WithRetry(ctx, func() error {
		return gdb.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "as_of_date"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).Create(m).Error
	})
}

// upsertFinancial writes the non-nil figures of f into the (company, fiscal year) row.
func upsertFinancial(ctx context.Context, gdb *gorm.DB, f *models.CompanyFinancial) error {
	cols := f.SetColumns()
	if len(cols) == 0 {
		return nil
	}
	cols = append(cols, "source", "updated_at")

	return db.WithRetry(ctx, func() error {
		return gdb.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "fiscal_year"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).Create(f).Error
	})
}

// replaceHistory swaps the company's stored bars for rows in one transaction.
func replaceHistory(ctx context.Context, gdb *gorm.DB, companyID uuid.UUID, rows []models.HistoricalPrice) error {
	return db.WithRetry(ctx, func() error {
		return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("company_id = ?", companyID).Delete(&models.HistoricalPrice{}).Error; err != nil {
				return fmt.Errorf("delete history: %w", err)
			}
			if len(rows) == 0 {
				return nil
			}
			if err := tx.CreateInBatches(rows, historyBatchSize).Error; err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
			return nil
		})
	})
}
