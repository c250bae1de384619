package scraper

// InvestorRelationsURLs maps JSE tickers to their investor-relations landing pages.
var InvestorRelationsURLs = map[string]string{
	"NPN": "https://www.naspers.com/investors",
	"APN": "https://www.aspenpharma.com/investors",
	"CPI": "https://www.capitecbank.co.za/investors",
	"FSR": "https://www.firstrand.co.za/investors",
	"SBK": "https://www.standardbank.com/sbg/standard-bank-group/investor-relations",
	"NED": "https://www.nedbank.co.za/content/nedbank/desktop/gt/en/investorrelations.html",
	"ABG": "https://www.absa.africa/absaafrica/investor-relations/",
	"GFI": "https://www.goldfields.com/investors.php",
	"AGL": "https://www.anglogoldashanti.com/investors/",
	"SOL": "https://www.sasol.com/investor-centre",
	"BTI": "https://www.bat.com/group/sites/UK__9D9KCY.nsf/vwPagesWebLive/DOAWWGJV",
	"SHP": "https://www.shoprite.co.za/pages/investor-relations.html",
	"PIK": "https://www.picknpay.co.za/investor-relations",
	"WHL": "https://www.woolworthsholdings.co.za/investors/",
	"MRP": "https://www.mrpricegroup.com/investor-centre",
}
