package catalog

import "github.com/shopspring/decimal"

// DefaultPrizes is the launch wheel. Weights are 100*max(1, 500/value), with
// "Try Again" pinned at 500; they are policy and can be edited freely.
func DefaultPrizes() []Prize {
	return []Prize{
		{ID: "1", Name: "iPhone 17 Pro", Category: "electronics", Value: decimal.NewFromInt(1299), Weight: 100, Stock: Stock(5)},
		{ID: "2", Name: "$500 Cash", Category: "cash", Value: decimal.NewFromInt(500), Weight: 100, Stock: Stock(100)},
		{ID: "3", Name: "Premium Headphones", Category: "electronics", Value: decimal.NewFromInt(299), Weight: 167.22, Stock: Stock(20)},
		{ID: "4", Name: "Try Again", Category: "none", Value: decimal.Zero, Weight: 500},
		{ID: "5", Name: "PlayStation 5 Pro", Category: "gaming", Value: decimal.NewFromInt(499), Weight: 100.2, Stock: Stock(10)},
		{ID: "6", Name: "$900 Gift Card", Category: "giftcards", Value: decimal.NewFromInt(900), Weight: 100, Stock: Stock(25)},
		{ID: "7", Name: "Smart Watch", Category: "electronics", Value: decimal.NewFromInt(399), Weight: 125.31, Stock: Stock(15)},
		{ID: "8", Name: "MacBook Pro", Category: "electronics", Value: decimal.NewFromInt(1299), Weight: 100, Stock: Stock(3)},
	}
}
