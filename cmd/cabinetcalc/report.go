package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piwi3910/cabinetcalc/internal/export"
	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/store"
)

type reportFlags struct {
	under     []string
	pdfPath   string
	labelPath string
	xlsxPath  string
	dxfDir    string
}

func newReportCmd(a *app) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report [CABINET_ID...]",
		Short: "Write audit report, labels, breakdown workbook and side profiles",
		Long: "Write shop-floor reports for the given cabinets, or for every cabinet under\n" +
			"--under KIND:ID. At least one of --pdf, --labels, --xlsx or --dxf-dir is required.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.pdfPath == "" && f.labelPath == "" && f.xlsxPath == "" && f.dxfDir == "" {
				return errors.New("nothing to write: set --pdf, --labels, --xlsx or --dxf-dir")
			}
			ctx := cmd.Context()

			ids := append([]string(nil), args...)
			for _, u := range f.under {
				kind, id, ok := strings.Cut(u, ":")
				if !ok {
					return fmt.Errorf("invalid --under %q, want KIND:ID", u)
				}
				ref, err := parseRef(kind, id)
				if err != nil {
					return err
				}
				under, err := a.store.CabinetIDsUnder(ctx, ref)
				if err != nil {
					return err
				}
				ids = append(ids, under...)
			}
			if len(ids) == 0 {
				return errors.New("no cabinets selected")
			}

			reports, err := loadReports(ctx, a.store, ids)
			if err != nil {
				return err
			}
			return writeReports(cmd, reports, f)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&f.under, "under", nil, "include every cabinet under KIND:ID (e.g. run:1234)")
	fl.StringVar(&f.pdfPath, "pdf", "", "audit report PDF path")
	fl.StringVar(&f.labelPath, "labels", "", "QR label sheet PDF path")
	fl.StringVar(&f.xlsxPath, "xlsx", "", "breakdown workbook path")
	fl.StringVar(&f.dxfDir, "dxf-dir", "", "directory for one DXF side profile per calculated cabinet")
	return cmd
}

// loadReports reads each cabinet once, in first-seen order.
func loadReports(ctx context.Context, st store.Store, ids []string) ([]export.CabinetReport, error) {
	seen := make(map[string]bool, len(ids))
	reports := make([]export.CabinetReport, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		c, err := st.LoadCabinet(ctx, id)
		if err != nil {
			return nil, err
		}
		stretchers, err := st.LoadStretchers(ctx, id)
		if err != nil {
			return nil, err
		}
		audits, err := st.ListAudits(ctx, id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, export.CabinetReport{Cabinet: c, Stretchers: stretchers, Audits: audits})
	}
	return reports, nil
}

func writeReports(cmd *cobra.Command, reports []export.CabinetReport, f *reportFlags) error {
	out := cmd.OutOrStdout()
	if f.pdfPath != "" {
		if err := export.ExportAuditReport(f.pdfPath, reports); err != nil {
			return fmt.Errorf("failed to write audit report: %w", err)
		}
		fmt.Fprintln(out, "Wrote", f.pdfPath)
	}
	if f.labelPath != "" {
		cabinets := make([]model.Cabinet, len(reports))
		for i, r := range reports {
			cabinets[i] = r.Cabinet
		}
		if err := export.ExportLabels(f.labelPath, cabinets); err != nil {
			return fmt.Errorf("failed to write labels: %w", err)
		}
		fmt.Fprintln(out, "Wrote", f.labelPath)
	}
	if f.xlsxPath != "" {
		if err := export.ExportWorkbook(f.xlsxPath, reports); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		fmt.Fprintln(out, "Wrote", f.xlsxPath)
	}
	if f.dxfDir != "" {
		if err := os.MkdirAll(f.dxfDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		written := 0
		for _, r := range reports {
			if !r.Cabinet.Calculated() {
				continue
			}
			path := filepath.Join(f.dxfDir, profileFileName(r.Cabinet))
			if err := export.ExportSideProfile(path, r.Cabinet); err != nil {
				return err
			}
			written++
		}
		fmt.Fprintf(out, "Wrote %d side profiles to %s\n", written, f.dxfDir)
	}
	return nil
}

// profileFileName names a DXF after the cabinet number, falling back to the ID.
func profileFileName(c model.Cabinet) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, c.CabinetNumber)
	if name == "" {
		name = c.ID
	}
	return name + "-" + c.ID[:min(8, len(c.ID))] + ".dxf"
}
