package printer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/eckpunchgo/internal/models"
)

// ErrNoEmployees is returned when there is nothing to print
var ErrNoEmployees = errors.New("no employees to print")

// SheetConfig holds the badge grid layout on an A4 page, in millimetres
type SheetConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultSheet fits ten credit-card sized badges per page
var DefaultSheet = SheetConfig{
	Cols:       2,
	Rows:       5,
	MarginTop:  12,
	MarginLeft: 15,
	GapX:       10,
	GapY:       4,
}

// QRContent is what a badge's QR code encodes: the bound badge id, or the
// employee code for someone not yet bound
func QRContent(e models.Employee) string {
	if b := e.Badge(); b != "" {
		return b
	}
	return e.Code
}

// GenerateBadgeSheet renders one printable badge per employee
func GenerateBadgeSheet(employees []models.Employee, cfg SheetConfig) ([]byte, error) {
	if len(employees) == 0 {
		return nil, ErrNoEmployees
	}
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		cfg = DefaultSheet
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)
	// Core fonts are cp1252; names may carry accents
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, pageHeight := pdf.GetPageSize()

	availW := pageWidth - cfg.MarginLeft*2
	availH := pageHeight - cfg.MarginTop*2
	labelW := (availW - float64(cfg.Cols-1)*cfg.GapX) / float64(cfg.Cols)
	labelH := (availH - float64(cfg.Rows-1)*cfg.GapY) / float64(cfg.Rows)

	perPage := cfg.Cols * cfg.Rows
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for i, emp := range employees {
		if i%perPage == 0 {
			pdf.AddPage()
		}

		idx := i % perPage
		x := cfg.MarginLeft + float64(idx%cfg.Cols)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(idx/cfg.Cols)*(labelH+cfg.GapY)

		qrPng, err := qrcode.Encode(QRContent(emp), qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode QR for %s: %w", emp.Code, err)
		}
		imgName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))

		// QR on the left, text on the right
		qrSize := labelH * 0.85
		if qrSize > labelW/2 {
			qrSize = labelW / 2
		}
		pad := (labelH - qrSize) / 2
		pdf.ImageOptions(imgName, x+pad, y+pad, qrSize, qrSize, false, imgOptions, 0, "")

		textX := x + qrSize + pad*2
		textW := labelW - qrSize - pad*3

		pdf.SetXY(textX, y+labelH/2-8)
		pdf.SetFontSize(12)
		pdf.CellFormat(textW, 6, tr(emp.FirstName), "", 2, "L", false, 0, "")
		pdf.SetFontSize(10)
		pdf.CellFormat(textW, 5, tr(emp.LastName()), "", 2, "L", false, 0, "")
		pdf.SetFontSize(8)
		pdf.CellFormat(textW, 5, emp.Code, "", 0, "L", false, 0, "")

		// Cut guide
		pdf.SetDrawColor(200, 200, 200)
		pdf.Rect(x, y, labelW, labelH, "D")
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
