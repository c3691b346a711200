package importer

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/store/memory"
	"github.com/piwi3910/cabinetcalc/internal/store/storetest"
)

// ─── DetectCSVDelimiter Tests ──────────────────────────────

func TestDetectCSVDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "Cabinet,Type,Width,Height,Depth\nB1,base,24,34.5,24\nB2,base,30,34.5,24\n", ','},
		{"semicolon", "Cabinet;Type;Width;Height;Depth\nB1;base;24;34.5;24\nB2;base;30;34.5;24\n", ';'},
		{"tab", "Cabinet\tType\tWidth\tHeight\tDepth\nB1\tbase\t24\t34.5\t24\n", '\t'},
		{"pipe", "Cabinet|Type|Width|Height|Depth\nB1|base|24|34.5|24\n", '|'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCSVDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("expected %q delimiter, got %q", tt.want, got)
			}
		})
	}
}

// ─── DetectColumns Tests ───────────────────────────────────

func TestDetectColumns_StandardHeaders(t *testing.T) {
	row := []string{"Cabinet", "Type", "Width", "Height", "Depth", "Drawers", "Style", "Template"}
	mapping, isHeader := DetectColumns(row)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	want := ColumnMapping{Number: 0, Type: 1, Width: 2, Height: 3, Depth: 4, Drawers: 5, Style: 6, Template: 7}
	if mapping != want {
		t.Errorf("expected %+v, got %+v", want, mapping)
	}
}

func TestDetectColumns_AliasesAndOrder(t *testing.T) {
	row := []string{"DP", "HT", "Cabinet #", "WD", "Drawer Count"}
	mapping, isHeader := DetectColumns(row)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if mapping.Depth != 0 || mapping.Height != 1 || mapping.Number != 2 || mapping.Width != 3 || mapping.Drawers != 4 {
		t.Errorf("unexpected mapping %+v", mapping)
	}
	if mapping.Style != -1 || mapping.Type != -1 {
		t.Errorf("expected missing columns at -1, got %+v", mapping)
	}
}

func TestDetectColumns_NoHeader(t *testing.T) {
	row := []string{"B1", "base", "24", "34.5", "24"}
	mapping, isHeader := DetectColumns(row)

	if isHeader {
		t.Error("expected no header for a data row")
	}
	if mapping.Width != 2 || mapping.Depth != 4 {
		t.Errorf("expected positional mapping, got %+v", mapping)
	}
}

// ─── ParseInches Tests ─────────────────────────────────────

func TestParseInches(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"34.5", 34.5, true},
		{"34 1/2", 34.5, true},
		{"34-1/2", 34.5, true},
		{`23 7/8"`, 23.875, true},
		{"3/4", 0.75, true},
		{"24in", 24, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1/0", 0, false},
		{"x 1/2", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseInches(tt.in)
		if tt.ok && err != nil {
			t.Errorf("ParseInches(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("ParseInches(%q) expected error, got %f", tt.in, got)
			}
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseInches(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

// ─── CSV Import Tests ──────────────────────────────────────

func TestImportCSVFromReader_WithHeaders(t *testing.T) {
	csv := "Cabinet,Type,Width,Height,Depth,Drawers,Style\n" +
		"B1,base,24,34 1/2,24,3,Face Frame\n" +
		"W1,upper,30,30,12,0,frameless\n" +
		"T1,tall,18,84,24,,\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}

	b1 := result.Rows[0]
	if b1.Number != "B1" || b1.Type != model.CabinetBase || b1.Height != 34.5 || b1.Drawers != 3 {
		t.Errorf("unexpected first row %+v", b1)
	}
	if b1.Style != model.StyleFaceFrame {
		t.Errorf("expected face_frame style, got %q", b1.Style)
	}
	if result.Rows[1].Type != model.CabinetWall {
		t.Errorf("expected wall cabinet, got %q", result.Rows[1].Type)
	}
	if result.Rows[2].Style != "" || result.Rows[2].Drawers != 0 {
		t.Errorf("expected empty style and no drawers, got %+v", result.Rows[2])
	}
}

func TestImportCSVFromReader_WithoutHeaders(t *testing.T) {
	csv := "B1,base,24,34.5,24,1\nB2,b,30,34.5,24\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[1].Width != 30 {
		t.Errorf("expected width 30, got %f", result.Rows[1].Width)
	}
}

func TestImportCSVFromReader_UnrecognizedHeaderSkipped(t *testing.T) {
	csv := "Ref,Sort,Wide,High,Deep\nB1,base,24,34.5,24\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d (errors: %v)", len(result.Rows), result.Errors)
	}
}

func TestImportCSVFromReader_RowErrors(t *testing.T) {
	csv := "Cabinet,Type,Width,Height,Depth,Drawers\n" +
		"B1,base,24,34.5,24,1\n" +
		"B2,base,abc,34.5,24,0\n" +
		"B3,corner,24,34.5,24,0\n" +
		"B4,base,24,34.5,,0\n" +
		"B5,base,-24,34.5,24,0\n" +
		"B6,base,24,34.5,24,two\n" +
		"B7,base,24,34.5,96,0\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Rows) != 1 {
		t.Errorf("expected 1 valid row, got %d", len(result.Rows))
	}
	if len(result.Errors) != 6 {
		t.Fatalf("expected 6 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	if !strings.Contains(result.Errors[0], "Line 3") {
		t.Errorf("expected line number in error, got %q", result.Errors[0])
	}
	if !strings.Contains(result.Errors[len(result.Errors)-1], "Depth") {
		t.Errorf("expected depth range error, got %q", result.Errors[len(result.Errors)-1])
	}
}

func TestImportCSVFromReader_UnknownStyleWarns(t *testing.T) {
	csv := "Cabinet,Width,Height,Depth,Style\nB1,24,34.5,24,euro\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0].Style != "" {
		t.Errorf("expected empty style, got %q", result.Rows[0].Style)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Unknown style") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unknown style warning, got %v", result.Warnings)
	}
}

func TestImportCSVFromReader_MissingRequiredColumn(t *testing.T) {
	csv := "Cabinet,Width,Height\nB1,24,34.5\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Depth") {
		t.Errorf("expected missing Depth column error, got %v", result.Errors)
	}
}

func TestImportCSVFromReader_EmptyAndBlankRows(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader(""), ',')
	if len(result.Errors) == 0 {
		t.Error("expected error for empty input")
	}

	result = ImportCSVFromReader(strings.NewReader("Cabinet,Width,Height,Depth\n,,,\nB1,24,34.5,24\n"), ',')
	if len(result.Rows) != 1 {
		t.Errorf("expected blank row to be skipped, got %d rows", len(result.Rows))
	}
}

func TestImportCSVFromReader_GeneratedNumber(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("Cabinet,Width,Height,Depth\n,24,34.5,24\n"), ',')
	if len(result.Rows) != 1 || result.Rows[0].Number != "CAB-1" {
		t.Errorf("expected generated number CAB-1, got %+v", result.Rows)
	}
}

func TestImportCSV_SemicolonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.csv")
	data := "Cabinet;Type;Width;Height;Depth\nB1;base;24;34,5;24\nB2;base;30;34.5;24\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	result := ImportCSV(path)
	if len(result.Rows) != 1 {
		t.Errorf("expected 1 valid row, got %d", len(result.Rows))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected the comma decimal to be rejected, got %v", result.Errors)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "semicolon") {
		t.Errorf("expected semicolon warning, got %v", result.Warnings)
	}
}

func TestImportCSV_FileErrors(t *testing.T) {
	if result := ImportCSV("/nonexistent/schedule.csv"); len(result.Errors) == 0 {
		t.Error("expected error for nonexistent file")
	}

	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}
	if result := ImportCSV(path); len(result.Errors) == 0 {
		t.Error("expected error for empty file")
	}
}

// ─── Excel Import Tests ────────────────────────────────────

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to create cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, cellRef, cell); err != nil {
				t.Fatalf("failed to set cell value: %v", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save Excel file: %v", err)
	}
	return path
}

func TestImportExcel_WithHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"Cabinet", "Type", "Width", "Height", "Depth", "Drawers"},
		{"B1", "base", 24, 34.5, 24, 3},
		{"W1", "wall", 30, 30, 12, 0},
	})

	result := ImportFile(path)

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[0].Height != 34.5 {
		t.Errorf("expected height 34.5, got %f", result.Rows[0].Height)
	}
	if result.Rows[1].Type != model.CabinetWall {
		t.Errorf("expected wall cabinet, got %q", result.Rows[1].Type)
	}
}

func TestImportExcel_FileNotFound(t *testing.T) {
	if result := ImportExcel("/nonexistent/file.xlsx"); len(result.Errors) == 0 {
		t.Error("expected error for nonexistent file")
	}
}

// ─── Save Tests ────────────────────────────────────────────

func TestSaveRows(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	f, err := storetest.Seed(ctx, st)
	if err != nil {
		t.Fatal(err)
	}

	rows := []ScheduleRow{
		{Number: "B9", Type: model.CabinetBase, Width: 15, Height: 34.5, Depth: 24, Drawers: 4, TemplateID: "tmpl-default"},
		{Number: "B10", Type: model.CabinetBase, Width: 36, Height: 34.5, Depth: 24},
	}
	saved, err := SaveRows(ctx, st, f.Run1.ID, rows, 10)
	if err != nil {
		t.Fatalf("SaveRows error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 cabinets, got %d", len(saved))
	}

	got, err := st.LoadCabinet(ctx, saved[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SortOrder != 10 || got.DrawerCount != 4 || got.CabinetRunID != f.Run1.ID {
		t.Errorf("unexpected saved cabinet %+v", got)
	}
	if got.ConstructionTemplateID == nil || *got.ConstructionTemplateID != "tmpl-default" {
		t.Errorf("expected template reference, got %v", got.ConstructionTemplateID)
	}

	if _, err := SaveRows(ctx, st, "missing-run", rows, 1); err == nil {
		t.Error("expected error for unknown run")
	}
}
