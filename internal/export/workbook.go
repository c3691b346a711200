package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	breakdownSheet = "Breakdown"
	stretcherSheet = "Stretchers"
)

var breakdownHeaders = []string{
	"Cabinet", "Type", "Width", "Height", "Depth",
	"Total Depth", "Face Frame", "Drawer", "Clearance", "Back Panel", "Back Gap",
	"Internal Depth", "Box Height", "Internal Width", "Max Slide",
	"Validated", "Message", "Status",
}

var stretcherHeaders = []string{"Cabinet", "#", "Position", "Width", "Depth", "Thickness", "Drawer"}

// ExportWorkbook writes an .xlsx file with a breakdown sheet holding one
// row per cabinet and a stretcher sheet holding one row per stretcher.
func ExportWorkbook(path string, reports []CabinetReport) error {
	if len(reports) == 0 {
		return fmt.Errorf("no cabinets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), breakdownSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(stretcherSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := writeHeader(f, breakdownSheet, breakdownHeaders, bold); err != nil {
		return err
	}
	if err := writeHeader(f, stretcherSheet, stretcherHeaders, bold); err != nil {
		return err
	}

	stretcherRow := 2
	for i, r := range reports {
		c := r.Cabinet
		b := c.Breakdown
		var slide interface{}
		if b.MaxSlideLengthInches != nil {
			slide = *b.MaxSlideLengthInches
		}
		status := ""
		if a := r.LatestAudit(); a != nil {
			status = string(a.EffectiveStatus())
		}
		if c.CalculationError != "" {
			status = "error: " + c.CalculationError
		}
		row := []interface{}{
			c.CabinetNumber, string(c.Type), c.WidthInches, c.HeightInches, c.DepthInches,
			b.TotalDepth, b.FaceFrameDepth, b.DrawerDepth, b.DrawerClearance, b.BackPanelThickness, b.BackWallGap,
			b.InternalDepth, b.BoxHeight, b.InternalWidth, slide,
			b.DepthValidated, b.DepthValidationMessage, status,
		}
		if err := setRow(f, breakdownSheet, i+2, row); err != nil {
			return err
		}

		for _, s := range r.Stretchers {
			var drawer interface{}
			if s.DrawerPosition > 0 {
				drawer = s.DrawerPosition
			}
			row := []interface{}{
				c.CabinetNumber, s.StretcherNumber, string(s.Position),
				s.WidthInches, s.DepthInches, s.ThicknessInches, drawer,
			}
			if err := setRow(f, stretcherSheet, stretcherRow, row); err != nil {
				return err
			}
			stretcherRow++
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := setRow(f, sheet, 1, row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNo, err)
	}
	return nil
}
