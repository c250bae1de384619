/**
 * @description
 * Watchlist Service for user company lists.
 * Every user has a default list, created on demand; items carry an optional
 * target price and notes.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package services

import (
	"context"
	"errors"

	"github.com/bluewhale-terminal/backend/internal/db"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrWatchlistNotFound     = errors.New("watchlist not found")
	ErrWatchlistItemNotFound = errors.New("watchlist item not found")
	ErrAlreadyInWatchlist    = errors.New("company already in watchlist")
)

// AddItemInput describes a company to put on a watchlist. A nil WatchlistID means the default list.
type AddItemInput struct {
	CompanyID   uuid.UUID
	WatchlistID *uuid.UUID
	TargetPrice *float64
	Notes       string
}

// UpdateItemInput changes the fields that are non-nil
type UpdateItemInput struct {
	TargetPrice *float64
	Notes       *string
}

// WatchlistService handles watchlist operations
type WatchlistService struct {
	db *gorm.DB
}

// NewWatchlistService creates a new WatchlistService
func NewWatchlistService(db *gorm.DB) *WatchlistService {
	return &WatchlistService{db: db}
}

// List returns the user's watchlists with their items and companies
func (s *WatchlistService) List(ctx context.Context, userID uuid.UUID) ([]models.Watchlist, error) {
	lists := []models.Watchlist{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at DESC") }).
		Preload("Items.Company").
		Order("is_default DESC, created_at ASC").
		Find(&lists).Error
	return lists, err
}

// GetDefault returns the user's default watchlist, creating it when missing.
func (s *WatchlistService) GetDefault(ctx context.Context, userID uuid.UUID) (*models.Watchlist, error) {
	list, err := s.ensureDefault(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at DESC") }).
		Preload("Items.Company").
		First(list, "id = ?", list.ID).Error
	return list, err
}

func (s *WatchlistService) ensureDefault(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Watchlist, error) {
	var list models.Watchlist
	err := tx.WithContext(ctx).
		Where(models.Watchlist{UserID: userID, IsDefault: true}).
		Attrs(models.Watchlist{Name: models.DefaultWatchlistName}).
		FirstOrCreate(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// AddItem puts a company on a watchlist
func (s *WatchlistService) AddItem(ctx context.Context, userID uuid.UUID, in AddItemInput) (*models.WatchlistItem, error) {
	var list *models.Watchlist
	if in.WatchlistID != nil {
		var owned models.Watchlist
		if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", *in.WatchlistID, userID).First(&owned).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrWatchlistNotFound
			}
			return nil, err
		}
		list = &owned
	} else {
		var err error
		if list, err = s.ensureDefault(ctx, s.db, userID); err != nil {
			return nil, err
		}
	}

	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", in.CompanyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	item := &models.WatchlistItem{
		WatchlistID: list.ID,
		CompanyID:   company.ID,
		TargetPrice: in.TargetPrice,
		Notes:       in.Notes,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyInWatchlist
		}
		logger.Error("WatchlistService: Failed to add item: %v", err)
		return nil, err
	}
	item.Company = &company
	return item, nil
}

// UpdateItem changes target price and/or notes of an item the user owns
func (s *WatchlistService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, in UpdateItemInput) (*models.WatchlistItem, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.TargetPrice != nil {
		updates["target_price"] = *in.TargetPrice
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return s.ownedItem(ctx, userID, itemID)
}

// RemoveItem deletes an item the user owns
func (s *WatchlistService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(item).Error
}

func (s *WatchlistService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.WatchlistItem, error) {
	var item models.WatchlistItem
	err := s.db.WithContext(ctx).
		Joins("JOIN watchlists ON watchlists.id = watchlist_items.watchlist_id").
		Where("watchlist_items.id = ? AND watchlists.user_id = ?", itemID, userID).
		Preload("Company").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWatchlistItemNotFound
		}
		return nil, err
	}
	return &item, nil
}
