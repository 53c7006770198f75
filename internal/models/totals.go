package models

import "math"

// Stored precision of line inputs, in decimal places.
const (
	quantityPlaces = 3
	pricePlaces    = 2
	ratePlaces     = 2
)

// Totals are the computed amounts of a quote.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	TotalVAT float64 `json:"total_vat"`
	TotalTTC float64 `json:"total_ttc"`
}

// toCents rounds an amount half away from zero to the cent.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

// roundTo rounds v half away from zero to places decimals.
func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// LineTotalHT is quantity × unit price rounded to the cent.
func LineTotalHT(quantity, unitPrice float64) float64 {
	return fromCents(toCents(quantity * unitPrice))
}

// LineVAT is the VAT of a line: total_ht × rate / 100, rounded to the cent.
func LineVAT(totalHT, vatRate float64) float64 {
	return fromCents(toCents(totalHT * vatRate / 100))
}

// ComputeTotals fills every line's TotalHT and returns the quote totals.
// Sums are carried in cents so subtotal equals the sum of line totals and
// total TTC equals subtotal plus VAT exactly.
func ComputeTotals(articles []ArticleDevis) Totals {
	var subtotal, vat int64
	for i := range articles {
		lineHT := LineTotalHT(articles[i].Quantity, articles[i].UnitPrice)
		articles[i].TotalHT = lineHT
		subtotal += toCents(lineHT)
		vat += toCents(LineVAT(lineHT, articles[i].VATRate))
	}
	return Totals{
		Subtotal: fromCents(subtotal),
		TotalVAT: fromCents(vat),
		TotalTTC: fromCents(subtotal + vat),
	}
}

// ArticlesFromInput converts request lines to positioned quote lines. Quantity,
// unit price and VAT rate are rounded to their stored precision so totals
// computed now match the lines read back later.
func ArticlesFromInput(inputs []ArticleInput) []ArticleDevis {
	articles := make([]ArticleDevis, len(inputs))
	for i, in := range inputs {
		articles[i] = ArticleDevis{
			Position:    i + 1,
			Designation: in.Designation,
			Quantity:    roundTo(in.Quantity, quantityPlaces),
			UnitPrice:   roundTo(in.UnitPrice, pricePlaces),
			VATRate:     roundTo(in.VATRate, ratePlaces),
		}
	}
	return articles
}
