package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// LabelInfo holds the data encoded into each cabinet label's QR code.
type LabelInfo struct {
	CabinetID string               `json:"id"`
	Number    string               `json:"number"`
	Type      model.CabinetType    `json:"type"`
	Width     float64              `json:"width_in"`
	Height    float64              `json:"height_in"`
	Depth     float64              `json:"depth_in"`
	Breakdown model.DepthBreakdown `json:"breakdown"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF of QR-coded labels, one per calculated
// cabinet. The QR code carries the cabinet's dimensions and depth breakdown
// as JSON. Labels are laid out on a standard label sheet format
// (Avery 5160 / 3 columns x 10 rows on US Letter).
func ExportLabels(path string, cabinets []model.Cabinet) error {
	labels := CollectLabelInfos(cabinets)
	if len(labels) == 0 {
		return fmt.Errorf("no calculated cabinets to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.Number, err)
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, info LabelInfo) error {
	// Draw light border for cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := "qr_" + info.CabinetID
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	// QR code on the right side of the label
	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	number := truncate(info.Number, textW, pdf.GetStringWidth)
	pdf.CellFormat(textW, 4.5, number, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	dims := fmt.Sprintf("%s x %s x %s in", inches(info.Width), inches(info.Height), inches(info.Depth))
	pdf.CellFormat(textW, 3.5, dims, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	drawer := fmt.Sprintf("%s | drawer %s", info.Type, inches(info.Breakdown.DrawerDepth))
	pdf.CellFormat(textW, 3, drawer, "", 1, "L", false, 0, "")

	if !info.Breakdown.DepthValidated {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "Check depth", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// CollectLabelInfos extracts label information for every calculated
// cabinet, in the given order.
func CollectLabelInfos(cabinets []model.Cabinet) []LabelInfo {
	var labels []LabelInfo
	for _, c := range cabinets {
		if !c.Calculated() {
			continue
		}
		labels = append(labels, LabelInfo{
			CabinetID: c.ID,
			Number:    c.CabinetNumber,
			Type:      c.Type,
			Width:     c.WidthInches,
			Height:    c.HeightInches,
			Depth:     c.DepthInches,
			Breakdown: c.Breakdown,
		})
	}
	return labels
}

// truncate shortens s a rune at a time until it fits maxW with an ellipsis.
func truncate(s string, maxW float64, width func(string) float64) string {
	if width(s) <= maxW {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && width(string(runes)+"...") > maxW {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
