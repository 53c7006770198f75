// Package pdf renders quotes as A4 PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/solvix/solvix-devis/internal/models"
)

type rgb struct{ r, g, b int }

type style struct {
	font   string
	accent rgb
	light  rgb
}

var styles = map[string]style{
	models.TemplateClassic: {font: "Helvetica", accent: rgb{40, 40, 40}, light: rgb{235, 235, 235}},
	models.TemplateModern:  {font: "Helvetica", accent: rgb{37, 99, 235}, light: rgb{219, 234, 254}},
	models.TemplateElegant: {font: "Times", accent: rgb{120, 53, 15}, light: rgb{245, 240, 230}},
}

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

var columnWidths = []float64{86, 20, 28, 16, 30}

// Renderer draws quotes with gofpdf.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render returns the PDF bytes of d issued by company.
func (r *Renderer) Render(d *models.Devis, company *models.Profile) ([]byte, error) {
	const op = "pdf.Render"

	st, ok := styles[d.Template]
	if !ok {
		st = styles[models.TemplateClassic]
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle(d.Number, true)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	header(doc, tr, st, d, company)
	parties(doc, tr, st, d, company)
	lines(doc, tr, st, d)
	totals(doc, tr, st, d, company)
	if d.Notes != "" {
		doc.Ln(lineHeight)
		doc.SetFont(st.font, "I", 9)
		doc.MultiCell(0, 5, tr(d.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

func header(doc *gofpdf.Fpdf, tr func(string) string, st style, d *models.Devis, company *models.Profile) {
	doc.SetTextColor(st.accent.r, st.accent.g, st.accent.b)
	doc.SetFont(st.font, "B", 20)
	doc.CellFormat(100, 10, tr("DEVIS"), "", 0, "L", false, 0, "")
	doc.SetFont(st.font, "B", 12)
	doc.CellFormat(0, 10, tr(d.Number), "", 1, "R", false, 0, "")

	doc.SetTextColor(0, 0, 0)
	doc.SetFont(st.font, "", 10)
	doc.CellFormat(100, lineHeight, tr(company.CompanyName), "", 0, "L", false, 0, "")
	doc.CellFormat(0, lineHeight, tr("Date : "+d.IssueDate.Format("02/01/2006")), "", 1, "R", false, 0, "")
	doc.CellFormat(100, lineHeight, "", "", 0, "L", false, 0, "")
	doc.CellFormat(0, lineHeight, tr("Valable jusqu'au : "+d.ValidUntil.Format("02/01/2006")), "", 1, "R", false, 0, "")
	doc.Ln(4)
}

func addressLines(name, address, postalCode, city, country string) []string {
	out := []string{}
	for _, s := range []string{name, address, strings.TrimSpace(postalCode + " " + city), country} {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parties(doc *gofpdf.Fpdf, tr func(string) string, st style, d *models.Devis, company *models.Profile) {
	left := addressLines(company.CompanyName, company.Address, company.PostalCode, company.City, company.Country)
	if company.Siret != "" {
		left = append(left, "SIRET : "+company.Siret)
	}
	if company.VATNumber != "" {
		left = append(left, "TVA : "+company.VATNumber)
	}
	if company.Email != "" {
		left = append(left, company.Email)
	}

	var right []string
	if d.Client != nil {
		name := d.Client.Name
		if d.Client.Company != "" {
			name = d.Client.Company + " - " + d.Client.Name
		}
		right = addressLines(name, d.Client.Address, d.Client.PostalCode, d.Client.City, d.Client.Country)
		if d.Client.Email != "" {
			right = append(right, d.Client.Email)
		}
	}

	doc.SetFont(st.font, "B", 10)
	doc.SetFillColor(st.light.r, st.light.g, st.light.b)
	doc.CellFormat(90, lineHeight, tr("Émetteur"), "", 0, "L", true, 0, "")
	doc.CellFormat(0, lineHeight, tr("Client"), "", 1, "L", true, 0, "")
	doc.SetFont(st.font, "", 10)
	for i := 0; i < max(len(left), len(right)); i++ {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		doc.CellFormat(90, 5, tr(l), "", 0, "L", false, 0, "")
		doc.CellFormat(0, 5, tr(r), "", 1, "L", false, 0, "")
	}
	doc.Ln(lineHeight)
}

func lines(doc *gofpdf.Fpdf, tr func(string) string, st style, d *models.Devis) {
	titles := []string{"Désignation", "Qté", "P.U. HT", "TVA", "Total HT"}
	doc.SetFont(st.font, "B", 9)
	doc.SetFillColor(st.accent.r, st.accent.g, st.accent.b)
	doc.SetTextColor(255, 255, 255)
	for i, title := range titles {
		align := "R"
		if i == 0 {
			align = "L"
		}
		doc.CellFormat(columnWidths[i], 7, tr(title), "", 0, align, true, 0, "")
	}
	doc.Ln(-1)

	doc.SetTextColor(0, 0, 0)
	doc.SetFont(st.font, "", 9)
	for _, a := range d.Articles {
		doc.CellFormat(columnWidths[0], lineHeight, tr(a.Designation), "B", 0, "L", false, 0, "")
		doc.CellFormat(columnWidths[1], lineHeight, formatNumber(a.Quantity), "B", 0, "R", false, 0, "")
		doc.CellFormat(columnWidths[2], lineHeight, tr(formatMoney(a.UnitPrice, d.Currency)), "B", 0, "R", false, 0, "")
		doc.CellFormat(columnWidths[3], lineHeight, formatNumber(a.VATRate)+" %", "B", 0, "R", false, 0, "")
		doc.CellFormat(columnWidths[4], lineHeight, tr(formatMoney(a.TotalHT, d.Currency)), "B", 1, "R", false, 0, "")
	}
	doc.Ln(4)
}

func totals(doc *gofpdf.Fpdf, tr func(string) string, st style, d *models.Devis, company *models.Profile) {
	rows := [][2]string{{"Total HT", formatMoney(d.Subtotal, d.Currency)}}
	if company.VATEnabled || d.TotalVAT != 0 {
		rows = append(rows, [2]string{"TVA", formatMoney(d.TotalVAT, d.Currency)})
	} else {
		rows = append(rows, [2]string{"TVA non applicable, art. 293 B du CGI", ""})
	}
	rows = append(rows, [2]string{"Total TTC", formatMoney(d.TotalTTC, d.Currency)})

	for i, row := range rows {
		last := i == len(rows)-1
		if last {
			doc.SetFont(st.font, "B", 11)
			doc.SetFillColor(st.light.r, st.light.g, st.light.b)
		} else {
			doc.SetFont(st.font, "", 10)
		}
		doc.CellFormat(110, 7, "", "", 0, "L", false, 0, "")
		doc.CellFormat(40, 7, tr(row[0]), "", 0, "L", last, 0, "")
		doc.CellFormat(0, 7, tr(row[1]), "", 1, "R", last, 0, "")
	}
}

func formatNumber(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

// formatMoney renders 1234.5 as "1 234,50 EUR".
func formatMoney(v float64, currency string) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	out := b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}
