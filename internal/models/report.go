package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportType string

const (
	ReportAnnual    ReportType = "ANNUAL"
	ReportInterim   ReportType = "INTERIM"
	ReportQuarterly ReportType = "QUARTERLY"
	ReportSENS      ReportType = "SENS"
	ReportOther     ReportType = "OTHER"
)

// Valid reports whether t is a known report type
func (t ReportType) Valid() bool {
	switch t {
	case ReportAnnual, ReportInterim, ReportQuarterly, ReportSENS, ReportOther:
		return true
	}
	return false
}

// StringList stores a list of strings as a JSON text column
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion failed for StringList")
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// CompanyReport is a published company document (annual report, results, SENS)
type CompanyReport struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"companyId"`
	Company     *Company   `json:"company,omitempty"`
	Title       string     `gorm:"not null" json:"title"`
	ReportType  ReportType `gorm:"size:16;index;not null" json:"reportType"`
	FiscalYear  int        `gorm:"index" json:"fiscalYear"`
	PublishDate time.Time  `gorm:"index" json:"publishDate"`
	FileURL     string     `gorm:"column:file_url" json:"fileUrl"`
	FileName    string     `json:"fileName"`
	FileSize    int64      `json:"fileSize"`
	Summary     string     `gorm:"type:text" json:"summary"`
	KeyPoints   StringList `gorm:"type:text" json:"keyPoints"`
	Sentiment   string     `gorm:"size:16" json:"sentiment"`
	AIProcessed bool       `gorm:"column:ai_processed" json:"aiProcessed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name used by CompanyReport to `company_reports`
func (CompanyReport) TableName() string {
	return "company_reports"
}

func (r *CompanyReport) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// SavedReport is a report bookmarked by a user
type SavedReport struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_saved_reports_user_report" json:"userId"`
	ReportID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_saved_reports_user_report" json:"reportId"`
	Report    *CompanyReport `json:"report,omitempty"`
	Notes     string         `gorm:"type:text" json:"notes"`
	CreatedAt time.Time      `json:"savedAt"`
}

// TableName overrides the table name used by SavedReport to `saved_reports`
func (SavedReport) TableName() string {
	return "saved_reports"
}

func (s *SavedReport) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
