// Package importer provides CSV and Excel import for cabinet schedules.
// It supports automatic delimiter detection, flexible column mapping,
// case-insensitive header recognition and shop-style fractional inches.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

var validate = validator.New()

// ScheduleRow is one cabinet line of a schedule.
type ScheduleRow struct {
	Number     string               `validate:"max=60"`
	Type       model.CabinetType    `validate:"oneof=base wall tall"`
	Width      float64              `validate:"gt=0,lte=120"`
	Height     float64              `validate:"gt=0,lte=120"`
	Depth      float64              `validate:"gt=0,lte=48"`
	Drawers    int                  `validate:"gte=0,lte=12"`
	Style      model.FaceFrameStyle `validate:"omitempty,oneof=frameless face_frame full_overlay inset partial_overlay"`
	TemplateID string               `validate:"max=36"`
}

// Cabinet converts the row to an unsaved cabinet.
func (r ScheduleRow) Cabinet() model.Cabinet {
	c := model.Cabinet{
		CabinetNumber:  r.Number,
		Type:           r.Type,
		FaceFrameStyle: r.Style,
		WidthInches:    model.Round4(r.Width),
		HeightInches:   model.Round4(r.Height),
		DepthInches:    model.Round4(r.Depth),
		DrawerCount:    r.Drawers,
	}
	if r.TemplateID != "" {
		id := r.TemplateID
		c.ConstructionTemplateID = &id
	}
	return c
}

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Rows     []ScheduleRow
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Number   int
	Type     int
	Width    int
	Height   int
	Depth    int
	Drawers  int
	Style    int
	Template int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"number":   {"number", "cabinet", "cabinet number", "cabinet #", "no", "#", "tag", "label", "name"},
	"type":     {"type", "cabinet type", "kind"},
	"width":    {"width", "wd"},
	"height":   {"height", "h", "ht"},
	"depth":    {"depth", "d", "dp"},
	"drawers":  {"drawers", "drawer count", "drawer_count", "drw", "drws"},
	"style":    {"style", "face frame style", "construction", "frame"},
	"template": {"template", "template id", "construction template"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the default
// positional mapping (Number, Type, Width, Height, Depth, Drawers, Style,
// Template) and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{
		Number: -1, Type: -1, Width: -1, Height: -1,
		Depth: -1, Drawers: -1, Style: -1, Template: -1,
	}
	slots := map[string]*int{
		"number":   &mapping.Number,
		"type":     &mapping.Type,
		"width":    &mapping.Width,
		"height":   &mapping.Height,
		"depth":    &mapping.Depth,
		"drawers":  &mapping.Drawers,
		"style":    &mapping.Style,
		"template": &mapping.Template,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias {
					isHeader = true
					if slot := slots[role]; *slot == -1 {
						*slot = i
					}
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{
			Number: 0, Type: 1, Width: 2, Height: 3,
			Depth: 4, Drawers: 5, Style: 6, Template: 7,
		}, false
	}
	return mapping, true
}

// ParseInches parses a shop dimension: "34.5", "34 1/2", "34-1/2", "3/4"
// with an optional trailing inch mark.
func ParseInches(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, `"`), "in")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty dimension")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	whole, frac := "", s
	if i := strings.LastIndexAny(s, " -"); i > 0 {
		whole, frac = strings.TrimSpace(s[:i]), s[i+1:]
	}
	num, den, ok := strings.Cut(frac, "/")
	if !ok {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	v := float64(n) / float64(d)
	if whole != "" {
		w, err := strconv.Atoi(whole)
		if err != nil {
			return 0, fmt.Errorf("invalid dimension %q", s)
		}
		v += float64(w)
	}
	return v, nil
}

// parseType converts a schedule type cell to a cabinet type. Empty means base.
func parseType(s string) (model.CabinetType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "base", "b", "lower":
		return model.CabinetBase, true
	case "wall", "w", "upper":
		return model.CabinetWall, true
	case "tall", "t", "pantry", "utility":
		return model.CabinetTall, true
	default:
		return "", false
	}
}

// parseStyle normalizes "Face Frame", "face-frame" and "FACE_FRAME" alike.
func parseStyle(s string) (model.FaceFrameStyle, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", true
	}
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	style := model.FaceFrameStyle(normalized)
	return style, style.Valid()
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts a schedule row using the given column mapping.
// Returns the row, any error message, and any warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, count int) (ScheduleRow, string, string) {
	var out ScheduleRow
	var warning string

	out.Number = getCell(row, mapping.Number)
	if out.Number == "" {
		out.Number = fmt.Sprintf("CAB-%d", count+1)
	}

	typ, ok := parseType(getCell(row, mapping.Type))
	if !ok {
		return ScheduleRow{}, fmt.Sprintf("%s: Unknown cabinet type '%s'", rowLabel, getCell(row, mapping.Type)), ""
	}
	out.Type = typ

	dims := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"width", mapping.Width, &out.Width},
		{"height", mapping.Height, &out.Height},
		{"depth", mapping.Depth, &out.Depth},
	}
	for _, d := range dims {
		raw := getCell(row, d.idx)
		if raw == "" {
			return ScheduleRow{}, fmt.Sprintf("%s: Missing %s value", rowLabel, d.name), ""
		}
		v, err := ParseInches(raw)
		if err != nil {
			return ScheduleRow{}, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, d.name, raw), ""
		}
		*d.dst = v
	}

	if raw := getCell(row, mapping.Drawers); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ScheduleRow{}, fmt.Sprintf("%s: Invalid drawer count '%s'", rowLabel, raw), ""
		}
		out.Drawers = n
	}

	if raw := getCell(row, mapping.Style); raw != "" {
		style, ok := parseStyle(raw)
		if ok {
			out.Style = style
		} else {
			warning = fmt.Sprintf("%s: Unknown style '%s', using the template default", rowLabel, raw)
		}
	}
	out.TemplateID = getCell(row, mapping.Template)

	if err := validate.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return ScheduleRow{}, fmt.Sprintf("%s: %s out of range (%v)", rowLabel, fe.Field(), fe.Value()), ""
		}
		return ScheduleRow{}, fmt.Sprintf("%s: %v", rowLabel, err), ""
	}
	return out, "", warning
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports a cabinet schedule from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportCSVFromReader imports a schedule from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports a schedule from the first sheet of an .xlsx file.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// ImportFile picks the CSV or Excel importer from the file extension.
func ImportFile(path string) ImportResult {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") {
		return ImportExcel(path)
	}
	return ImportCSV(path)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		missing := []string{}
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if mapping.Height == -1 {
			missing = append(missing, "Height")
		}
		if mapping.Depth == -1 {
			missing = append(missing, "Depth")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) > mapping.Width {
		// A non-numeric width means an unrecognized header row.
		if _, err := ParseInches(rows[0][mapping.Width]); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		parsed, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Rows))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Rows = append(result.Rows, parsed)
	}

	return result
}

// CabinetWriter is where imported cabinets are saved.
type CabinetWriter interface {
	SaveCabinet(ctx context.Context, c model.Cabinet) error
}

// SaveRows stores each row as a new cabinet in the given run, in schedule
// order starting at sortFrom.
func SaveRows(ctx context.Context, w CabinetWriter, runID string, rows []ScheduleRow, sortFrom int) ([]model.Cabinet, error) {
	out := make([]model.Cabinet, 0, len(rows))
	for i, r := range rows {
		c := r.Cabinet()
		c.ID = uuid.NewString()
		c.CabinetRunID = runID
		c.SortOrder = sortFrom + i
		if err := w.SaveCabinet(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to save cabinet %s: %w", c.CabinetNumber, err)
		}
		out = append(out, c)
	}
	return out, nil
}
