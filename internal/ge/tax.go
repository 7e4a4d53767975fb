// Package ge holds the Grand Exchange rules the scoring pipeline depends on:
// the sale tax, keyword categorisation, buy limits and the exclusion list.
package ge

const (
	// TaxCap is the largest tax charged on a single sale.
	TaxCap int64 = 5_000_000
	// TaxPercent is the sale tax rate in whole percent.
	TaxPercent int64 = 2
)

// Tax returns the tax charged to the seller for a sale at price:
// floor(price * 2%), capped at TaxCap.
func Tax(price int64) int64 {
	if price <= 0 {
		return 0
	}
	tax := price * TaxPercent / 100
	if tax > TaxCap {
		return TaxCap
	}
	return tax
}

// NetMargin is sell minus buy minus the tax on sell.
func NetMargin(sell, buy int64) int64 {
	return sell - buy - Tax(sell)
}
