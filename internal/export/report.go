// Package export writes shop-floor artifacts for calculated cabinets: an
// audit report PDF, QR-coded labels, a breakdown workbook and a DXF side
// profile.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

// CabinetReport is everything the exporters need about one cabinet.
type CabinetReport struct {
	Cabinet    model.Cabinet
	Stretchers []model.Stretcher
	Audits     []model.CalculationAudit // ascending sequence
}

// LatestAudit returns the highest-sequence audit, or nil.
func (r CabinetReport) LatestAudit() *model.CalculationAudit {
	if len(r.Audits) == 0 {
		return nil
	}
	return &r.Audits[len(r.Audits)-1]
}

// termColor represents an RGB color for one depth term.
type termColor struct {
	R, G, B int
}

// depthTerm is one of the five terms a cabinet's total depth is split into,
// listed front to back.
type depthTerm struct {
	Name  string
	Layer string
	Color termColor
	Value func(model.DepthBreakdown) float64
}

var depthTerms = []depthTerm{
	{"Face frame", "FACE_FRAME", termColor{R: 121, G: 85, B: 72}, func(b model.DepthBreakdown) float64 { return b.FaceFrameDepth }},
	{"Drawer", "DRAWER", termColor{R: 76, G: 175, B: 80}, func(b model.DepthBreakdown) float64 { return b.DrawerDepth }},
	{"Clearance", "CLEARANCE", termColor{R: 255, G: 235, B: 59}, func(b model.DepthBreakdown) float64 { return b.DrawerClearance }},
	{"Back panel", "BACK_PANEL", termColor{R: 33, G: 150, B: 243}, func(b model.DepthBreakdown) float64 { return b.BackPanelThickness }},
	{"Back wall gap", "BACK_GAP", termColor{R: 244, G: 67, B: 54}, func(b model.DepthBreakdown) float64 { return b.BackWallGap }},
}

// statusColors highlights audit statuses in tables.
var statusColors = map[model.AuditStatus]termColor{
	model.AuditPassed:   {R: 220, G: 240, B: 220},
	model.AuditWarning:  {R: 255, G: 240, B: 200},
	model.AuditFailed:   {R: 255, G: 210, B: 210},
	model.AuditOverride: {R: 220, G: 225, B: 245},
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	barHeight    = 18.0
	drawAreaTop  = marginTop + headerHeight + 8.0
)

// inches formats a dimension at storage precision without trailing zeros.
// ensureDir creates the directory that will hold path.
func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

func inches(v float64) string {
	return strconv.FormatFloat(model.Round4(v), 'f', -1, 64)
}

// ExportAuditReport generates a PDF with one page per calculated cabinet
// showing its depth breakdown, stretchers and audit history, followed by a
// summary page.
func ExportAuditReport(path string, reports []CabinetReport) error {
	if len(reports) == 0 {
		return fmt.Errorf("no cabinets to report")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, r := range reports {
		pdf.AddPage()
		renderCabinetPage(pdf, r)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, reports)

	if err := ensureDir(path); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// renderCabinetPage draws a single cabinet on the current PDF page.
func renderCabinetPage(pdf *fpdf.Fpdf, r CabinetReport) {
	c := r.Cabinet
	contentWidth := pageWidth - marginLeft - marginRight

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Cabinet %s: %s (%s x %s x %s in)", c.CabinetNumber, c.Type,
		inches(c.WidthInches), inches(c.HeightInches), inches(c.DepthInches))
	pdf.CellFormat(contentWidth, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	status := "not audited"
	if a := r.LatestAudit(); a != nil {
		status = string(a.EffectiveStatus())
	}
	calculated := "never"
	if c.CalculatedAt != nil {
		calculated = c.CalculatedAt.Format(time.DateTime)
	}
	stats := fmt.Sprintf("Status: %s | Audits: %d | Stretchers: %d | Calculated: %s",
		status, len(r.Audits), len(r.Stretchers), calculated)
	pdf.CellFormat(contentWidth, 5, stats, "", 0, "L", false, 0, "")

	y := drawAreaTop
	if c.CalculationError != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(contentWidth, 7, "Calculation failed: "+c.CalculationError, "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		y += 10
	}

	if c.Calculated() {
		y = drawDepthBar(pdf, c.Breakdown, y)
		y = drawBreakdownTable(pdf, c.Breakdown, y+4)
	}
	if len(r.Stretchers) > 0 {
		y = drawStretcherTable(pdf, r.Stretchers, y+4)
	}
	drawAuditTable(pdf, r.Audits, y+4)
}

// drawDepthBar draws the depth terms front to back as one scaled bar and
// returns the y position below it.
func drawDepthBar(pdf *fpdf.Fpdf, b model.DepthBreakdown, y float64) float64 {
	if b.TotalDepth <= 0 {
		return y
	}
	drawWidth := pageWidth - marginLeft - marginRight
	scale := drawWidth / b.TotalDepth

	x := marginLeft
	for _, term := range depthTerms {
		v := term.Value(b)
		if v <= 0 {
			continue
		}
		w := v * scale
		pdf.SetFillColor(term.Color.R, term.Color.G, term.Color.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(x, y, w, barHeight, "FD")

		label := fmt.Sprintf("%s %s", term.Name, inches(v))
		pdf.SetFont("Helvetica", "", 7)
		if lw := pdf.GetStringWidth(label); lw < w-2 {
			pdf.SetXY(x+(w-lw)/2, y+barHeight/2-2)
			pdf.CellFormat(lw, 4, label, "", 0, "C", false, 0, "")
		}
		x += w
	}

	// Total depth annotation under the bar
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)
	total := fmt.Sprintf("%s in total depth", inches(b.TotalDepth))
	tw := pdf.GetStringWidth(total)
	pdf.SetXY(marginLeft+(drawWidth-tw)/2, y+barHeight+1)
	pdf.CellFormat(tw, 4, total, "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	return y + barHeight + 6
}

// drawBreakdownTable lists every snapshot field of the breakdown.
func drawBreakdownTable(pdf *fpdf.Fpdf, b model.DepthBreakdown, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Depth Breakdown", "", 0, "L", false, 0, "")
	y += 8

	pdf.SetFont("Helvetica", "", 9)
	for _, fv := range b.Snapshot() {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, fv.Field+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, inches(fv.Value), "", 0, "L", false, 0, "")
		y += 5
	}

	if b.MaxSlideLengthInches != nil {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, "max_slide_length:", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, inches(*b.MaxSlideLengthInches), "", 0, "L", false, 0, "")
		y += 5
	}
	if b.DepthValidationMessage != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(180, 90, 0)
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(200, 5, b.DepthValidationMessage, "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		y += 5
	}
	return y
}

// drawTableHeader renders a shaded header row and returns the next row's y.
func drawTableHeader(pdf *fpdf.Fpdf, headers []string, widths []float64, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	x := marginLeft
	for i, h := range headers {
		pdf.SetXY(x, y)
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", true, 0, "")
		x += widths[i]
	}
	return y + 6
}

func drawStretcherTable(pdf *fpdf.Fpdf, stretchers []model.Stretcher, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Stretchers", "", 0, "L", false, 0, "")
	y += 8

	widths := []float64{15, 35, 30, 30, 30, 30}
	y = drawTableHeader(pdf, []string{"#", "Position", "Width", "Depth", "Thickness", "Drawer"}, widths, y)

	pdf.SetFont("Helvetica", "", 8)
	for _, s := range stretchers {
		drawer := ""
		if s.DrawerPosition > 0 {
			drawer = strconv.Itoa(s.DrawerPosition)
		}
		row := []string{
			strconv.Itoa(s.StretcherNumber), string(s.Position),
			inches(s.WidthInches), inches(s.DepthInches), inches(s.ThicknessInches), drawer,
		}
		x := marginLeft
		for i, cell := range row {
			pdf.SetXY(x, y)
			pdf.CellFormat(widths[i], 5, cell, "1", 0, "C", false, 0, "")
			x += widths[i]
		}
		y += 5
		if y > pageHeight-marginBottom-20 {
			break
		}
	}
	return y
}

func drawAuditTable(pdf *fpdf.Fpdf, audits []model.CalculationAudit, y float64) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Audit History", "", 0, "L", false, 0, "")
	y += 8

	if len(audits) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(100, 5, "No audits recorded.", "", 0, "L", false, 0, "")
		return
	}

	widths := []float64{12, 40, 22, 22, 22, 40, 35, 74}
	headers := []string{"Seq", "Type", "Status", "Issues", "Max", "Field", "Created", "Override"}
	y = drawTableHeader(pdf, headers, widths, y)

	pdf.SetFont("Helvetica", "", 8)
	for _, a := range audits {
		if y > pageHeight-marginBottom-6 {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.SetXY(marginLeft, y)
			pdf.CellFormat(100, 5, "(older audits omitted)", "", 0, "L", false, 0, "")
			return
		}
		override := ""
		if a.IsOverridden {
			override = fmt.Sprintf("%s: %s", a.OverriddenBy, a.OverrideReason)
		}
		row := []string{
			strconv.Itoa(a.Sequence), string(a.AuditType), string(a.EffectiveStatus()),
			strconv.Itoa(a.DiscrepancyCount), inches(a.MaxDiscrepancyInches), a.MaxDiscrepancyField,
			a.CreatedAt.Format(time.DateTime), override,
		}
		col := statusColors[a.EffectiveStatus()]
		pdf.SetFillColor(col.R, col.G, col.B)

		x := marginLeft
		for i, cell := range row {
			pdf.SetXY(x, y)
			pdf.CellFormat(widths[i], 5, cell, "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		y += 5
	}
}

// renderSummaryPage draws the final summary page with a status count and
// one row per cabinet.
func renderSummaryPage(pdf *fpdf.Fpdf, reports []CabinetReport) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Calculation Audit Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	counts := summarize(reports)
	summaryItems := []struct {
		label string
		value string
	}{
		{"Cabinets", strconv.Itoa(len(reports))},
		{"Passed", strconv.Itoa(counts[model.AuditPassed])},
		{"Warning", strconv.Itoa(counts[model.AuditWarning])},
		{"Failed", strconv.Itoa(counts[model.AuditFailed])},
		{"Overridden", strconv.Itoa(counts[model.AuditOverride])},
		{"Not audited", strconv.Itoa(counts[""])},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}
	y += 5

	widths := []float64{35, 20, 55, 30, 30, 30, 67}
	headers := []string{"Cabinet", "Type", "W x H x D", "Total Depth", "Drawer", "Slide", "Status"}
	y = drawTableHeader(pdf, headers, widths, y)

	pdf.SetFont("Helvetica", "", 9)
	for i, r := range reports {
		if y > pageHeight-marginBottom-10 {
			break
		}
		c := r.Cabinet
		slide := "-"
		if c.Breakdown.MaxSlideLengthInches != nil {
			slide = inches(*c.Breakdown.MaxSlideLengthInches)
		}
		status := "not audited"
		if a := r.LatestAudit(); a != nil {
			status = string(a.EffectiveStatus())
		}
		if c.CalculationError != "" {
			status = "error"
		}
		row := []string{
			c.CabinetNumber, string(c.Type),
			fmt.Sprintf("%s x %s x %s", inches(c.WidthInches), inches(c.HeightInches), inches(c.DepthInches)),
			inches(c.Breakdown.TotalDepth), inches(c.Breakdown.DrawerDepth), slide, status,
		}

		// Alternate row background
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		x := marginLeft
		for j, cell := range row {
			pdf.SetXY(x, y)
			pdf.CellFormat(widths[j], 6, cell, "1", 0, "C", true, 0, "")
			x += widths[j]
		}
		y += 6
	}

	// Footer
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by cabinetcalc - Cabinet Depth Calculator", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// summarize counts cabinets by the effective status of their latest audit.
// Cabinets without audits are counted under the empty status.
func summarize(reports []CabinetReport) map[model.AuditStatus]int {
	counts := make(map[model.AuditStatus]int)
	for _, r := range reports {
		if a := r.LatestAudit(); a != nil {
			counts[a.EffectiveStatus()]++
		} else {
			counts[""]++
		}
	}
	return counts
}
