/**
 * @description
 * User and watchlist database models.
 * Maps to the 'users', 'watchlists' and 'watchlist_items' tables in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a registered user in the system
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Role         Role       `gorm:"size:16;default:USER" json:"role"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName overrides the table name used by User to `users`
func (User) TableName() string {
	return "users"
}

// BeforeCreate ensures UUID is generated if not present
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	ensureID(&u.ID)
	return
}

// DefaultWatchlistName is created for every new user
const DefaultWatchlistName = "My Watchlist"

// Watchlist is a named, user-owned collection of companies
type Watchlist struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"userId"`
	Name      string          `gorm:"not null" json:"name"`
	IsDefault bool            `gorm:"not null" json:"isDefault"`
	Items     []WatchlistItem `gorm:"foreignKey:WatchlistID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name used by Watchlist to `watchlists`
func (Watchlist) TableName() string {
	return "watchlists"
}

func (w *Watchlist) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WatchlistItem is a company on a watchlist with optional target price and notes
type WatchlistItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WatchlistID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watchlist_items_watchlist_company" json:"watchlistId"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_watchlist_items_watchlist_company" json:"companyId"`
	Company     *Company  `json:"company,omitempty"`
	TargetPrice *float64  `gorm:"type:decimal(18,4)" json:"targetPrice"`
	Notes       string    `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name used by WatchlistItem to `watchlist_items`
func (WatchlistItem) TableName() string {
	return "watchlist_items"
}

func (i *WatchlistItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
