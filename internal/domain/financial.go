package domain

// FinancialBundle is the structured data fetched for one ticker. Any
// section may be empty.
type FinancialBundle struct {
	Ticker          string
	Profile         CompanyProfile
	IncomeStatement []IncomeStatement
	BalanceSheet    []BalanceSheet
	CashFlow        []CashFlow
	KeyMetrics      []KeyMetrics
	Quote           *Quote
	News            []StockNews
}

type CompanyProfile struct {
	CompanyName string `json:"companyName"`
	Symbol      string `json:"symbol"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Exchange    string `json:"exchangeShortName"`
}

// Numeric fields are pointers so an absent value renders as N/A rather
// than zero.
type IncomeStatement struct {
	Date            string   `json:"date"`
	Revenue         *float64 `json:"revenue"`
	GrossProfit     *float64 `json:"grossProfit"`
	OperatingIncome *float64 `json:"operatingIncome"`
	NetIncome       *float64 `json:"netIncome"`
	EPS             *float64 `json:"eps"`
}

type BalanceSheet struct {
	Date                    string   `json:"date"`
	TotalAssets             *float64 `json:"totalAssets"`
	TotalLiabilities        *float64 `json:"totalLiabilities"`
	TotalStockholdersEquity *float64 `json:"totalStockholdersEquity"`
}

type CashFlow struct {
	Date               string   `json:"date"`
	OperatingCashFlow  *float64 `json:"operatingCashFlow"`
	CapitalExpenditure *float64 `json:"capitalExpenditure"`
	FreeCashFlow       *float64 `json:"freeCashFlow"`
}

type KeyMetrics struct {
	Date         string   `json:"date"`
	ROE          *float64 `json:"roe"`
	ROA          *float64 `json:"roa"`
	DebtToEquity *float64 `json:"debtToEquity"`
	CurrentRatio *float64 `json:"currentRatio"`
}

type Quote struct {
	Price             *float64 `json:"price"`
	Change            *float64 `json:"change"`
	ChangesPercentage *float64 `json:"changesPercentage"`
	MarketCap         *float64 `json:"marketCap"`
	Volume            *float64 `json:"volume"`
}

type StockNews struct {
	Title         string `json:"title"`
	PublishedDate string `json:"publishedDate"`
	Site          string `json:"site"`
	Text          string `json:"text"`
	URL           string `json:"url"`
}
