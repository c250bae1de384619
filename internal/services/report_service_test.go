package services

import (
	"context"
	"testing"
	"time"

	"github.com/bluewhale-terminal/backend/internal/db/dbtest"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportListFiltersAndOrder(t *testing.T) {
	gdb := dbtest.Open(t)
	_, rdb := newRedis(t)
	svc := NewReportService(gdb, rdb)
	ctx := context.Background()

	npn := seedCompany(t, gdb, models.Company{Ticker: "NPN", Name: "Naspers", IsActive: true})
	sbk := seedCompany(t, gdb, models.Company{Ticker: "SBK", Name: "Standard Bank", IsActive: true})

	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }
	for _, in := range []CreateReportInput{
		{CompanyID: npn.ID, Title: "Naspers Annual Report 2024", ReportType: models.ReportAnnual, FiscalYear: 2024, PublishDate: day(20)},
		{CompanyID: npn.ID, Title: "Naspers Interim Results", ReportType: models.ReportInterim, FiscalYear: 2024, PublishDate: day(10)},
		{CompanyID: sbk.ID, Title: "Standard Bank Annual Report", ReportType: models.ReportAnnual, FiscalYear: 2023, PublishDate: day(1)},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all.Reports, 3)
	assert.Equal(t, "Naspers Annual Report 2024", all.Reports[0].Title)
	assert.Equal(t, int64(3), all.Pagination.Total)
	require.NotNil(t, all.Reports[0].Company)
	assert.Equal(t, "NPN", all.Reports[0].Company.Ticker)

	annual, err := svc.List(ctx, ReportFilter{ReportType: models.ReportAnnual})
	require.NoError(t, err)
	assert.Len(t, annual.Reports, 2)

	byCompany, err := svc.List(ctx, ReportFilter{CompanyID: &npn.ID, FiscalYear: 2024, Search: "interim"})
	require.NoError(t, err)
	require.Len(t, byCompany.Reports, 1)
	assert.Equal(t, models.ReportInterim, byCompany.Reports[0].ReportType)

	paged, err := svc.List(ctx, ReportFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Reports, 1)
	assert.Equal(t, 2, paged.Pagination.TotalPages)
}

func TestReportCreateInvalidatesCompanyCache(t *testing.T) {
	gdb := dbtest.Open(t)
	mr, rdb := newRedis(t)
	svc := NewReportService(gdb, rdb)
	ctx := context.Background()

	npn := seedCompany(t, gdb, models.Company{Ticker: "NPN", Name: "Naspers", IsActive: true})
	require.NoError(t, mr.Set(companyCachePrefix+"NPN", "{}"))

	report, err := svc.Create(ctx, CreateReportInput{CompanyID: npn.ID, Title: "SENS", ReportType: models.ReportSENS, KeyPoints: []string{"dividend declared"}})
	require.NoError(t, err)
	assert.False(t, mr.Exists(companyCachePrefix+"NPN"))

	got, err := svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"dividend declared"}, got.KeyPoints)

	_, err = svc.Create(ctx, CreateReportInput{CompanyID: uuid.New(), Title: "orphan"})
	assert.ErrorIs(t, err, ErrCompanyNotFound)
	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestSavedReports(t *testing.T) {
	gdb := dbtest.Open(t)
	_, rdb := newRedis(t)
	svc := NewReportService(gdb, rdb)
	ctx := context.Background()

	user := seedUser(t, gdb, "reader@example.com")
	npn := seedCompany(t, gdb, models.Company{Ticker: "NPN", Name: "Naspers", IsActive: true})
	report, err := svc.Create(ctx, CreateReportInput{CompanyID: npn.ID, Title: "Annual", ReportType: models.ReportAnnual})
	require.NoError(t, err)

	_, err = svc.Save(ctx, user.ID, report.ID, "read section 4")
	require.NoError(t, err)
	_, err = svc.Save(ctx, user.ID, report.ID, "again")
	assert.ErrorIs(t, err, ErrReportAlreadySaved)
	_, err = svc.Save(ctx, user.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrReportNotFound)

	saved, err := svc.ListSaved(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "read section 4", saved[0].Notes)
	require.NotNil(t, saved[0].Report)
	require.NotNil(t, saved[0].Report.Company)
	assert.Equal(t, "NPN", saved[0].Report.Company.Ticker)

	require.NoError(t, svc.Unsave(ctx, user.ID, report.ID))
	require.NoError(t, svc.Unsave(ctx, user.ID, report.ID))
	saved, err = svc.ListSaved(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, saved)
}
