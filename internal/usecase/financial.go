package usecase

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ragbench/internal/domain"
)

const notAvailable = "N/A"

var numbers = message.NewPrinter(language.English)

// RenderFinancialSummary lays out a financial bundle as plain text. The
// output depends only on the bundle. Absent values print as N/A and empty
// sections are left out.
func RenderFinancialSummary(b *domain.FinancialBundle) string {
	var s strings.Builder
	p := b.Profile

	name := p.CompanyName
	if name == "" {
		name = b.Ticker
	}
	s.WriteString("Company: " + name + "\n")
	s.WriteString("Symbol: " + b.Ticker + "\n")
	s.WriteString("Sector: " + p.Sector + "\n")
	s.WriteString("Industry: " + p.Industry + "\n\n")
	s.WriteString("Description: " + p.Description + "\n\n")

	if q := b.Quote; q != nil {
		s.WriteString("Current Stock Information:\n")
		s.WriteString("Price: " + dollars(q.Price, false) + "\n")
		s.WriteString("Change: " + plain(q.Change) + " (" + plain(q.ChangesPercentage) + "%)\n")
		s.WriteString("Market Cap: " + dollars(q.MarketCap, true) + "\n")
		s.WriteString("Volume: " + grouped(q.Volume) + "\n\n")
	}

	if len(b.IncomeStatement) > 0 {
		s.WriteString("Income Statement Data:\n")
		for i, st := range firstN(b.IncomeStatement, 2) {
			year(&s, i, st.Date)
			s.WriteString("  Revenue: " + dollars(st.Revenue, true) + "\n")
			s.WriteString("  Gross Profit: " + dollars(st.GrossProfit, true) + "\n")
			s.WriteString("  Operating Income: " + dollars(st.OperatingIncome, true) + "\n")
			s.WriteString("  Net Income: " + dollars(st.NetIncome, true) + "\n")
			s.WriteString("  EPS: " + dollars(st.EPS, false) + "\n\n")
		}
	}

	if len(b.BalanceSheet) > 0 {
		s.WriteString("Balance Sheet Data:\n")
		for i, bs := range firstN(b.BalanceSheet, 2) {
			year(&s, i, bs.Date)
			s.WriteString("  Total Assets: " + dollars(bs.TotalAssets, true) + "\n")
			s.WriteString("  Total Liabilities: " + dollars(bs.TotalLiabilities, true) + "\n")
			s.WriteString("  Total Equity: " + dollars(bs.TotalStockholdersEquity, true) + "\n\n")
		}
	}

	if len(b.KeyMetrics) > 0 {
		s.WriteString("Key Financial Metrics:\n")
		for i, m := range firstN(b.KeyMetrics, 2) {
			year(&s, i, m.Date)
			s.WriteString("  ROE: " + plain(m.ROE) + "\n")
			s.WriteString("  ROA: " + plain(m.ROA) + "\n")
			s.WriteString("  Debt to Equity: " + plain(m.DebtToEquity) + "\n")
			s.WriteString("  Current Ratio: " + plain(m.CurrentRatio) + "\n\n")
		}
	}

	if len(b.News) > 0 {
		s.WriteString("Recent News:\n")
		for i, n := range firstN(b.News, 3) {
			s.WriteString("News " + strconv.Itoa(i+1) + ": " + orNA(n.Title) + "\n")
			s.WriteString("Date: " + orNA(n.PublishedDate) + "\n")
			s.WriteString("Source: " + orNA(n.Site) + "\n")
			s.WriteString("Summary: " + prefixRunes(orNA(n.Text), 200) + "...\n\n")
		}
	}

	return strings.TrimRight(s.String(), "\n")
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func year(s *strings.Builder, i int, date string) {
	s.WriteString("Year " + strconv.Itoa(i+1) + " (" + orNA(date) + "):\n")
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func plain(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// grouped formats v with thousands separators, keeping two decimals for
// fractional values.
func grouped(v *float64) string {
	if v == nil {
		return notAvailable
	}
	if *v == math.Trunc(*v) && math.Abs(*v) < 1e18 {
		return numbers.Sprintf("%d", int64(*v))
	}
	return numbers.Sprintf("%.2f", *v)
}

func dollars(v *float64, group bool) string {
	if v == nil {
		return notAvailable
	}
	if group {
		return "$" + grouped(v)
	}
	return "$" + plain(v)
}
