package services

import (
	"context"
	"testing"

	"github.com/bluewhale-terminal/backend/internal/db/dbtest"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, gdb *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func TestWatchlistItemRoundTrip(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := NewWatchlistService(gdb)
	ctx := context.Background()

	user := seedUser(t, gdb, "thandi@example.com")
	sbk := seedCompany(t, gdb, models.Company{Ticker: "SBK", Name: "Standard Bank", Sector: models.SectorFinancials, IsActive: true})

	target := 210.25
	added, err := svc.AddItem(ctx, user.ID, AddItemInput{CompanyID: sbk.ID, TargetPrice: &target, Notes: "buy below 200"})
	require.NoError(t, err)

	list, err := svc.GetDefault(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWatchlistName, list.Name)
	require.Len(t, list.Items, 1)

	item := list.Items[0]
	assert.Equal(t, added.ID, item.ID)
	require.NotNil(t, item.TargetPrice)
	assert.Equal(t, 210.25, *item.TargetPrice)
	assert.Equal(t, "buy below 200", item.Notes)
	require.NotNil(t, item.Company)
	assert.Equal(t, "SBK", item.Company.Ticker)
}

func TestWatchlistDuplicateCompany(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := NewWatchlistService(gdb)
	ctx := context.Background()

	user := seedUser(t, gdb, "a@example.com")
	fsr := seedCompany(t, gdb, models.Company{Ticker: "FSR", Name: "FirstRand", IsActive: true})

	_, err := svc.AddItem(ctx, user.ID, AddItemInput{CompanyID: fsr.ID})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, AddItemInput{CompanyID: fsr.ID})
	assert.ErrorIs(t, err, ErrAlreadyInWatchlist)
}

func TestWatchlistDefaultIsCreatedOnce(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := NewWatchlistService(gdb)
	ctx := context.Background()
	user := seedUser(t, gdb, "b@example.com")

	first, err := svc.GetDefault(ctx, user.ID)
	require.NoError(t, err)
	second, err := svc.GetDefault(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	lists, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func TestWatchlistItemOwnership(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := NewWatchlistService(gdb)
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner@example.com")
	other := seedUser(t, gdb, "other@example.com")
	mtn := seedCompany(t, gdb, models.Company{Ticker: "MTN", Name: "MTN Group", IsActive: true})

	item, err := svc.AddItem(ctx, owner.ID, AddItemInput{CompanyID: mtn.ID})
	require.NoError(t, err)

	notes := "hijack"
	_, err = svc.UpdateItem(ctx, other.ID, item.ID, UpdateItemInput{Notes: &notes})
	assert.ErrorIs(t, err, ErrWatchlistItemNotFound)
	assert.ErrorIs(t, svc.RemoveItem(ctx, other.ID, item.ID), ErrWatchlistItemNotFound)

	price := 99.5
	updated, err := svc.UpdateItem(ctx, owner.ID, item.ID, UpdateItemInput{TargetPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 99.5, *updated.TargetPrice)
	assert.Equal(t, "", updated.Notes)

	require.NoError(t, svc.RemoveItem(ctx, owner.ID, item.ID))
	assert.ErrorIs(t, svc.RemoveItem(ctx, owner.ID, item.ID), ErrWatchlistItemNotFound)
}

func TestWatchlistAddItemUnknownTargets(t *testing.T) {
	gdb := dbtest.Open(t)
	svc := NewWatchlistService(gdb)
	ctx := context.Background()
	user := seedUser(t, gdb, "c@example.com")

	_, err := svc.AddItem(ctx, user.ID, AddItemInput{CompanyID: uuid.New()})
	assert.ErrorIs(t, err, ErrCompanyNotFound)

	missing := uuid.New()
	_, err = svc.AddItem(ctx, user.ID, AddItemInput{CompanyID: uuid.New(), WatchlistID: &missing})
	assert.ErrorIs(t, err, ErrWatchlistNotFound)
}
