// Large Ledger File Generator
//
// This tool generates a large ledger document for performance testing and profiling.
// It creates realistic transactions with various features to stress-test the loader and
// the ledger build: inferred postings, costs, multi-currency exchanges, tags, prices and
// an automated transaction.
//
// Usage:
//
//	go run main.go > large.yaml
//	go run main.go 20000000 > large.yaml  # Specify target size in bytes
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/dinero/ast"
)

const (
	defaultTargetSize = 10 * 1024 * 1024 // 10MB
)

var (
	accounts = []string{
		"Assets:Bank:Checking",
		"Assets:Bank:Savings",
		"Assets:Brokerage:Cash",
		"Liabilities:CreditCard:Visa",
		"Liabilities:CreditCard:Amex",
		"Income:Salary",
		"Income:Bonus",
		"Income:Investments:Dividends",
		"Expenses:Food:Groceries",
		"Expenses:Food:Restaurant",
		"Expenses:Housing:Rent",
		"Expenses:Housing:Utilities",
		"Expenses:Transport:Gas",
		"Expenses:Transport:Transit",
		"Expenses:Shopping:Clothing",
		"Expenses:Shopping:Electronics",
		"Expenses:Entertainment:Movies",
		"Expenses:Healthcare:Medical",
		"Expenses:Taxes:Federal",
		"Expenses:Commissions",
		"Equity:Opening-Balances",
	}

	payees = []string{
		"Whole Foods", "Safeway", "Trader Joe's", "Costco",
		"Shell Gas", "Chevron", "BART", "Uber",
		"Landlord", "PG&E", "Comcast", "AT&T",
		"Amazon", "Target", "Best Buy", "Apple Store",
		"Netflix", "Spotify", "AMC Theaters",
		"Employer Inc", "Fidelity", "Vanguard",
	}

	narrations = []string{
		"Grocery shopping", "Fuel purchase", "Rent payment",
		"Salary deposit", "Utility bill",
		"Online purchase", "Restaurant dinner", "Coffee",
		"Monthly subscription", "Medical appointment",
		"Tax payment", "Insurance premium", "Gift",
	}

	tags = []string{
		"personal", "business", "vacation", "tax-deductible",
		"reimbursable", "investment", "savings",
	}

	currencies = []string{"USD", "EUR", "GBP", "CAD"}
	stocks     = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "AMZN", "VTI", "VXUS"}
)

func main() {
	targetSize := defaultTargetSize
	if len(os.Args) > 1 {
		if size, err := strconv.Atoi(os.Args[1]); err == nil {
			targetSize = size
		}
	}

	bar := pb.New(targetSize).SetWriter(os.Stderr).Set(pb.Bytes, true).Start()
	bytesWritten := writeHeader()
	bar.SetCurrent(int64(bytesWritten))

	startDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	currentDate := startDate

	var prices strings.Builder
	transactionCount := 0

	for bytesWritten < targetSize {
		date := ast.NewDateFromTime(currentDate).String()

		var output string
		switch rand.Intn(10) {
		case 0, 1, 2: // 30% - Simple transaction
			output = generateSimpleTransaction(date)
		case 3, 4: // 20% - Transaction with tags
			output = generateTaggedTransaction(date)
		case 5, 6: // 20% - Investment transaction with cost
			output = generateInvestmentTransaction(date)
		case 7: // 10% - Multi-currency transaction
			output = generateMultiCurrencyTransaction(date)
		case 8: // 10% - Split transaction
			output = generateSplitTransaction(date)
		case 9: // 10% - Price
			price := generatePrice(date)
			prices.WriteString(price)
			bytesWritten += len(price)
		}
		if output != "" {
			fmt.Print(output)
			bytesWritten += len(output)
			transactionCount++
		}
		bar.SetCurrent(int64(bytesWritten))

		// Advance date by 0-2 days
		currentDate = currentDate.AddDate(0, 0, rand.Intn(3))
	}

	if prices.Len() > 0 {
		fmt.Print("prices:\n" + prices.String())
	}

	bar.Finish()
	fmt.Fprintf(os.Stderr, "\nGenerated %d bytes with %d transactions\n", bytesWritten, transactionCount)
}

func writeHeader() int {
	var b strings.Builder
	b.WriteString("# Large ledger file for performance testing\n")
	fmt.Fprintf(&b, "# Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString("options:\n  - {name: policy, value: silent}\n")

	b.WriteString("commodities:\n")
	b.WriteString("  - {name: USD, aliases: [$], format: \"$1,000.00\", default: true}\n")
	b.WriteString("  - {name: EUR, aliases: [€], format: \"1.000,00 €\"}\n")

	b.WriteString("accounts:\n")
	for _, account := range accounts {
		fmt.Fprintf(&b, "  - name: %s\n", account)
	}

	b.WriteString("transactions:\n")
	b.WriteString("  - kind: automated\n    query: account =~ /^Expenses:Commissions/\n    postings:\n")
	b.WriteString("      - {account: Budget:Fees, kind: virtual, amount_expr: \"-amount\"}\n")

	fmt.Print(b.String())
	return b.Len()
}

func generateSimpleTransaction(date string) string {
	payee := payees[rand.Intn(len(payees))]
	narration := narrations[rand.Intn(len(narrations))]
	amount := randAmount(10, 500)

	// Pick two accounts; the second one is inferred.
	acc1 := accounts[rand.Intn(len(accounts))]
	acc2 := accounts[rand.Intn(len(accounts))]

	return fmt.Sprintf(`  - date: %s
    cleared: true
    payee: %q
    description: %q
    postings:
      - {account: %s, amount: %s USD}
      - {account: %s}
`, date, payee, narration, acc1, amount, acc2)
}

func generateTaggedTransaction(date string) string {
	payee := payees[rand.Intn(len(payees))]
	narration := narrations[rand.Intn(len(narrations))]
	amount := randAmount(50, 1000)

	acc1 := accounts[rand.Intn(len(accounts))]
	acc2 := accounts[rand.Intn(len(accounts))]

	return fmt.Sprintf(`  - date: %s
    payee: %q
    description: %q
    comments: [":%s:%s:", "invoice: INV-%d"]
    postings:
      - {account: %s, amount: %s USD, comments: ["note: Purchase from vendor"]}
      - {account: %s, amount: %s USD}
`, date, payee, narration, tags[rand.Intn(len(tags))], tags[rand.Intn(len(tags))], rand.Intn(10000),
		acc1, amount, acc2, amount.Neg())
}

func generateInvestmentTransaction(date string) string {
	stock := stocks[rand.Intn(len(stocks))]
	shares := rand.Intn(50) + 1
	pricePerShare := randAmount(50, 500)
	commission := decimal.RequireFromString("9.99")

	return fmt.Sprintf(`  - date: %s
    cleared: true
    description: Buy %s
    postings:
      - {account: Assets:Brokerage:%s, amount: %d %s, cost: {kind: unit, amount: %s USD}}
      - {account: Expenses:Commissions, amount: %s USD}
      - {account: Assets:Brokerage:Cash}
`, date, stock, stock, shares, stock, pricePerShare, commission)
}

func generateMultiCurrencyTransaction(date string) string {
	amount := randAmount(100, 2000)
	currency := currencies[1+rand.Intn(len(currencies)-1)]
	exchangeRate := randAmount(1, 2)

	return fmt.Sprintf(`  - date: %s
    description: Currency exchange
    postings:
      - {account: Assets:Bank:Checking, amount: -%s USD, cost: {kind: unit, amount: %s %s}}
      - {account: Assets:Bank:Savings}
`, date, amount, exchangeRate, currency)
}

func generateSplitTransaction(date string) string {
	payee := payees[rand.Intn(len(payees))]
	narration := narrations[rand.Intn(len(narrations))]

	amounts := []decimal.Decimal{
		randAmount(100, 500),
		randAmount(50, 200),
		randAmount(20, 100),
	}
	total := decimal.Sum(amounts[0], amounts[1:]...)

	return fmt.Sprintf(`  - date: %s
    cleared: true
    payee: %q
    description: %q
    postings:
      - {account: Expenses:Food:Restaurant, amount: %s USD}
      - {account: Expenses:Food:Groceries, amount: %s USD}
      - {account: Expenses:Transport:Gas, amount: %s USD}
      - {account: Assets:Bank:Checking, amount: %s USD, payee: Bank}
`, date, payee, narration, amounts[0], amounts[1], amounts[2], total.Neg())
}

func generatePrice(date string) string {
	stock := stocks[rand.Intn(len(stocks))]
	return fmt.Sprintf("  - {date: %s, commodity: %s, amount: %s USD}\n", date, stock, randAmount(50, 500))
}

// randAmount returns a random amount with two decimals.
func randAmount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(min + rand.Float64()*(max-min)).Round(2)
}
