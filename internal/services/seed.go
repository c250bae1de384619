package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluewhale-terminal/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCompany is one starting row of the company universe plus its opening ratios.
type SeedCompany struct {
	models.Company
	PERatio, PBRatio, DividendYield, ROE, GrossMargin, DebtToEquity float64
}

// JSEUniverse is the tracked set of JSE listings with indicative prices.
var JSEUniverse = []SeedCompany{
	{seedRow("APN", "Aspen Pharmacare Holdings", models.SectorHealthcare, "Pharmaceuticals", "Global pharmaceutical company focused on branded and generic medicines.", "https://www.aspenpharma.com", 71e9, 156.50, 2.30, 1.49, 1250000), 8.5, 1.2, 3.5, 15.2, 34.5, 0.45},
	{seedRow("NPN", "Naspers Limited", models.SectorTechnology, "Internet & Technology", "Global consumer internet group and technology investor.", "https://www.naspers.com", 1200e9, 2845.00, -15.50, -0.54, 890000), 22.3, 3.8, 0.0, 18.5, 45.2, 0.32},
	{seedRow("SHP", "Shoprite Holdings", models.SectorConsumerGoods, "Food & Drug Retailers", "Africa's largest food retailer.", "https://www.shoprite.co.za", 98e9, 189.25, 4.75, 2.58, 2100000), 12.4, 2.1, 4.2, 22.1, 19.8, 0.28},
	{seedRow("CPI", "Capitec Bank Holdings", models.SectorFinancials, "Banking", "Retail bank offering simplified banking solutions.", "https://www.capitecbank.co.za", 320e9, 1756.00, 12.00, 0.69, 450000), 9.8, 1.9, 2.8, 25.3, 68.4, 0.15},
	{seedRow("SOL", "Sasol Limited", models.SectorEnergy, "Oil & Gas", "Integrated energy and chemical company.", "https://www.sasol.com", 145e9, 231.50, -3.20, -1.36, 3200000), 7.2, 0.9, 5.1, 12.4, 28.3, 0.67},
	{seedRow("MTN", "MTN Group Limited", models.SectorTelecommunications, "Mobile Telecommunications", "Leading telecommunications group in Africa and Middle East.", "https://www.mtn.com", 178e9, 89.75, 1.25, 1.41, 5600000), 11.5, 1.6, 6.2, 19.8, 52.1, 0.51},
	{seedRow("AGL", "Anglo American Platinum", models.SectorMaterials, "Precious Metals & Mining", "World's leading primary producer of platinum.", "https://www.angloamericanplatinum.com", 285e9, 1089.00, 18.50, 1.73, 780000), 6.8, 1.4, 7.8, 21.2, 42.5, 0.19},
	{seedRow("NPH", "Northam Platinum Holdings", models.SectorMaterials, "Precious Metals & Mining", "Integrated platinum group metals producer.", "https://www.northam.co.za", 67e9, 156.80, -2.10, -1.32, 1450000), 5.9, 1.1, 4.5, 18.6, 38.9, 0.23},
	{seedRow("BHP", "BHP Group Limited", models.SectorMaterials, "Diversified Mining", "Global resources company producing commodities.", "https://www.bhp.com", 890e9, 342.50, 5.30, 1.57, 2340000), 14.2, 2.3, 5.6, 24.7, 51.2, 0.42},
	{seedRow("GFI", "Gold Fields Limited", models.SectorMaterials, "Gold Mining", "Global gold producer with operations in South Africa, Ghana, Australia, and Peru.", "https://www.goldfields.com", 112e9, 145.60, 3.40, 2.39, 3450000), 8.9, 1.5, 3.2, 16.9, 45.8, 0.34},
	{seedRow("SBK", "Standard Bank Group", models.SectorFinancials, "Banking", "Africa's largest bank by assets.", "https://www.standardbank.com", 234e9, 145.30, 0.80, 0.55, 4200000), 7.6, 1.3, 6.5, 17.2, 62.3, 0.89},
	{seedRow("FSR", "FirstRand Limited", models.SectorFinancials, "Banking", "Financial services group with retail, commercial, and investment banking.", "https://www.firstrand.co.za", 289e9, 51.20, 0.45, 0.89, 8900000), 8.1, 1.7, 5.8, 20.4, 58.7, 0.76},
	{seedRow("VOD", "Vodacom Group Limited", models.SectorTelecommunications, "Mobile Telecommunications", "Leading African mobile communications company.", "https://www.vodacom.com", 156e9, 84.50, -1.20, -1.40, 3100000), 10.3, 2.0, 7.1, 23.5, 49.8, 0.44},
	{seedRow("TBS", "Tiger Brands Limited", models.SectorConsumerGoods, "Food Products", "Manufacturer and marketer of food, home and personal care brands.", "https://www.tigerbrands.com", 23e9, 147.25, 2.15, 1.48, 650000), 9.4, 1.6, 4.8, 14.3, 26.9, 0.38},
	{seedRow("AMS", "Anglo American plc", models.SectorMaterials, "Diversified Mining", "Global mining company with focus on diamonds, copper, platinum, and iron ore.", "https://www.angloamerican.com", 456e9, 345.80, 7.20, 2.13, 1890000), 11.8, 2.2, 4.9, 19.6, 47.3, 0.35},
}

func seedRow(ticker, name string, sector models.Sector, industry, description, website string, marketCap, price, change, changePct float64, volume int64) models.Company {
	return models.Company{
		Ticker:             ticker,
		Name:               name,
		Sector:             sector,
		Industry:           industry,
		Description:        description,
		Website:            website,
		MarketCap:          marketCap,
		LastPrice:          price,
		PriceChange:        change,
		PriceChangePercent: changePct,
		Volume:             volume,
		IsActive:           true,
	}
}

// Seed inserts missing companies and refreshes the descriptive columns of existing ones.
// Prices on existing rows are left to sync. Each company also gets a "seed" metrics
// snapshot for today, which never overwrites ratios a provider already wrote today.
func Seed(ctx context.Context, gdb *gorm.DB, universe []SeedCompany, now time.Time) (int, error) {
	day := asOfDay(now)
	seeded := 0
	for _, row := range universe {
		company := row.Company
		err := gdb.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "sector", "industry", "description", "website", "is_active", "updated_at"}),
		}).Create(&company).Error
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", row.Ticker, err)
		}

		var stored models.Company
		if err := gdb.WithContext(ctx).Where("ticker = ?", models.NormalizeTicker(row.Ticker)).First(&stored).Error; err != nil {
			return seeded, fmt.Errorf("reload %s: %w", row.Ticker, err)
		}

		var existing int64
		if err := gdb.WithContext(ctx).Model(&models.CompanyMetrics{}).
			Where("company_id = ? AND as_of_date = ?", stored.ID, day).
			Count(&existing).Error; err != nil {
			return seeded, err
		}
		if existing == 0 {
			metrics := &models.CompanyMetrics{
				CompanyID:     stored.ID,
				AsOfDate:      day,
				PERatio:       &row.PERatio,
				PBRatio:       &row.PBRatio,
				DividendYield: &row.DividendYield,
				ROE:           &row.ROE,
				GrossMargin:   &row.GrossMargin,
				DebtToEquity:  &row.DebtToEquity,
				Source:        "seed",
			}
			if err := gdb.WithContext(ctx).Create(metrics).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return seeded, fmt.Errorf("seed metrics %s: %w", row.Ticker, err)
			}
		}
		seeded++
	}
	return seeded, nil
}
