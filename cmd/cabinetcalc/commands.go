package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/piwi3910/cabinetcalc/internal/engine"
	"github.com/piwi3910/cabinetcalc/internal/importer"
	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/project"
	"github.com/piwi3910/cabinetcalc/internal/service"
	"github.com/piwi3910/cabinetcalc/internal/store"
	"github.com/piwi3910/cabinetcalc/internal/store/gormstore"
)

// print writes v as indented JSON when --json is set, otherwise calls text
// with a tab-aligned writer.
func (a *app) print(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if a.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func newInitDBCmd(a *app) *cobra.Command {
	var withDefault bool
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create or migrate the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := gormstore.Migrate(a.db); err != nil {
				return err
			}
			a.log.Info().Str("driver", a.cfg.DBDriver).Msg("schema migrated")
			if !withDefault {
				return nil
			}

			ctx := cmd.Context()
			_, err := a.store.LoadDefaultTemplate(ctx)
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Default template already present")
				return nil
			}
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			t := model.NewConstructionTemplate("Shop Standard")
			t.IsDefault = true
			if err := a.store.SaveTemplate(ctx, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created default template %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDefault, "with-default-template", false, "create the shop standard template as system default if none exists")
	return cmd
}

func newImportTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-templates FILE",
		Short: "Import a construction template library (JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var n int
			err := a.store.WithinTx(cmd.Context(), func(tx store.Store) error {
				var err error
				n, err = project.ImportTemplates(cmd.Context(), args[0], tx)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d templates\n", n)
			return nil
		},
	}
}

func newExportTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export-templates FILE",
		Short: "Export every stored template to a library file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := project.ExportTemplates(cmd.Context(), args[0], a.store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d templates to %s\n", n, args[0])
			return nil
		},
	}
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List stored construction templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			templates, err := a.store.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			lib := model.NewTemplateStore()
			for _, t := range templates {
				lib.Add(t)
			}
			sort.SliceStable(lib.Templates, func(i, j int) bool { return lib.Templates[i].Name < lib.Templates[j].Name })

			return a.print(cmd, lib, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tSTYLE\tDEFAULT")
				for _, t := range lib.Templates {
					mark := ""
					if t.IsDefault {
						mark = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.DefaultStyle, mark)
				}
				if d := lib.Default(); d != nil {
					fmt.Fprintf(w, "Default template: %s\n", d.Name)
				} else {
					fmt.Fprintln(w, "No default template; run init-db --with-default-template")
				}
			})
		},
	}
}

func newImportScheduleCmd(a *app) *cobra.Command {
	var (
		runID, projectName, roomName, locationName, runName string
		strict                                              bool
	)
	cmd := &cobra.Command{
		Use:   "import-schedule FILE",
		Short: "Import cabinets from a CSV or XLSX schedule",
		Long: "Import cabinets from a CSV or XLSX schedule into an existing cabinet run (--run),\n" +
			"or into a new project, room, location and run created for the import (--project).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (runID == "") == (projectName == "") {
				return errors.New("exactly one of --run or --project is required")
			}

			result := importer.ImportFile(args[0])
			out := cmd.ErrOrStderr()
			for _, w := range result.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}
			for _, e := range result.Errors {
				fmt.Fprintln(out, "error:", e)
			}
			if len(result.Rows) == 0 {
				return errors.New("no cabinets to import")
			}
			if strict && len(result.Errors) > 0 {
				return fmt.Errorf("%d rows rejected, nothing imported", len(result.Errors))
			}

			ctx := cmd.Context()
			var saved []model.Cabinet
			err := a.store.WithinTx(ctx, func(tx store.Store) error {
				target := runID
				if target == "" {
					var err error
					target, err = createHierarchy(cmd, tx, projectName, roomName, locationName, runName)
					if err != nil {
						return err
					}
				}
				var err error
				saved, err = importer.SaveRows(ctx, tx, target, result.Rows, 1)
				return err
			})
			if err != nil {
				return err
			}

			a.log.Info().Int("cabinets", len(saved)).Int("rejected", len(result.Errors)).Msg("schedule imported")
			return a.print(cmd, saved, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNUMBER\tTYPE\tW\tH\tD\tDRAWERS")
				for _, c := range saved {
					fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%g\t%d\n", c.ID, c.CabinetNumber, c.Type,
						c.WidthInches, c.HeightInches, c.DepthInches, c.DrawerCount)
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&runID, "run", "", "existing cabinet run ID")
	f.StringVar(&projectName, "project", "", "create a new project with this name")
	f.StringVar(&roomName, "room", "Room 1", "room name for a new project")
	f.StringVar(&locationName, "location", "Wall 1", "location name for a new project")
	f.StringVar(&runName, "run-name", "Run 1", "cabinet run name for a new project")
	f.BoolVar(&strict, "strict", false, "import nothing if any row is rejected")
	return cmd
}

// createHierarchy saves a new project with one room, location and run and
// returns the run ID.
func createHierarchy(cmd *cobra.Command, tx store.Store, projectName, roomName, locationName, runName string) (string, error) {
	ctx := cmd.Context()
	p := model.Project{ID: uuid.NewString(), Name: projectName}
	r := model.Room{ID: uuid.NewString(), ProjectID: p.ID, Name: roomName}
	l := model.RoomLocation{ID: uuid.NewString(), RoomID: r.ID, Name: locationName}
	run := model.CabinetRun{ID: uuid.NewString(), RoomLocationID: l.ID, Name: runName}

	if err := tx.SaveProject(ctx, p); err != nil {
		return "", err
	}
	if err := tx.SaveRoom(ctx, r); err != nil {
		return "", err
	}
	if err := tx.SaveLocation(ctx, l); err != nil {
		return "", err
	}
	if err := tx.SaveRun(ctx, run); err != nil {
		return "", err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Created project %s run %s\n", p.ID, run.ID)
	return run.ID, nil
}

func newRecalcCabinetCmd(a *app) *cobra.Command {
	var auditType, by string
	cmd := &cobra.Command{
		Use:   "recalc-cabinet CABINET_ID",
		Short: "Recalculate one cabinet, audit it and refresh its ancestors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.RecalculateCabinet(cmd.Context(), args[0], service.Options{
				AuditType:   model.AuditType(auditType),
				TriggeredBy: by,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, res, func(w io.Writer) {
				b := res.Calculation.Breakdown
				fmt.Fprintf(w, "Cabinet\t%s\n", res.Calculation.CabinetID)
				fmt.Fprintf(w, "Template\t%s (%s)\n", res.Calculation.Standards.TemplateName, res.Calculation.Standards.Source)
				for _, fv := range b.Snapshot() {
					fmt.Fprintf(w, "%s\t%.4f\n", fv.Field, fv.Value)
				}
				fmt.Fprintf(w, "max_slide_length\t%s\n", optionalFloat(b.MaxSlideLengthInches))
				fmt.Fprintf(w, "depth_validated\t%t\n", b.DepthValidated)
				if b.DepthValidationMessage != "" {
					fmt.Fprintf(w, "warning\t%s\n", b.DepthValidationMessage)
				}
				fmt.Fprintf(w, "stretchers\t%d\n", len(res.Calculation.Stretchers))
				appended := "repeated"
				if res.AuditAppended {
					appended = "appended"
				}
				fmt.Fprintf(w, "audit\t#%d %s %s (%s)\n", res.Audit.Sequence, res.Audit.AuditType, res.Audit.AuditStatus, appended)
			})
		},
	}
	cmd.Flags().StringVar(&auditType, "type", "", "audit type for a recalculation (recalculation, template_change, material_change, dimension_change, validation)")
	cmd.Flags().StringVar(&by, "by", "", "name recorded on the audit")
	return cmd
}

func parseRef(kind, id string) (model.EntityRef, error) {
	k, err := model.ParseEntityKind(kind)
	if err != nil {
		return model.EntityRef{}, err
	}
	return model.Ref(k, id), nil
}

func newRecalcSubtreeCmd(a *app) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "recalc-subtree KIND ID",
		Short: "Recalculate every cabinet under a node and re-aggregate complexity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0], args[1])
			if err != nil {
				return err
			}
			res, err := a.svc.RecalculateSubtree(cmd.Context(), ref, service.Options{TriggeredBy: by})
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(res.Cabinets)+len(res.Failures))
			for id := range res.Cabinets {
				ids = append(ids, id)
			}
			for id := range res.Failures {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			view := subtreeView(res)
			return a.print(cmd, view, func(w io.Writer) {
				fmt.Fprintln(w, "CABINET\tTOTAL\tDRAWER\tSTATUS")
				for _, id := range ids {
					if ferr, ok := view.Failures[id]; ok {
						fmt.Fprintf(w, "%s\t-\t-\tfailed: %s\n", id, ferr)
						continue
					}
					c := res.Cabinets[id]
					fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%s\n", id, c.Calculation.Breakdown.TotalDepth,
						c.Calculation.Breakdown.DrawerDepth, c.Audit.AuditStatus)
				}
				if agg, ok := res.Aggregates[res.Root]; ok {
					fmt.Fprintf(w, "\n%s complexity\t%s (%d children)\n", res.Root, optionalFloat(agg.Score), agg.ChildCount)
				}
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "name recorded on the audits")
	return cmd
}

// subtreeJSON is the --json shape of a subtree recalculation.
type subtreeJSON struct {
	Root       model.EntityRef                  `json:"root"`
	Cabinets   map[string]service.CabinetResult `json:"cabinets"`
	Failures   map[string]string                `json:"failures"`
	Aggregates map[string]model.AggregateResult `json:"aggregates"`
	Cascaded   []model.EntityRef                `json:"cascaded"`
}

func subtreeView(res service.SubtreeResult) subtreeJSON {
	v := subtreeJSON{
		Root:       res.Root,
		Cabinets:   res.Cabinets,
		Failures:   make(map[string]string, len(res.Failures)),
		Aggregates: make(map[string]model.AggregateResult, len(res.Aggregates)),
		Cascaded:   res.Cascaded,
	}
	for id, err := range res.Failures {
		v.Failures[id] = err.Error()
	}
	for ref, agg := range res.Aggregates {
		v.Aggregates[ref.String()] = agg
	}
	return v
}

func newResolveCmd(a *app) *cobra.Command {
	var compare bool
	var templates []string
	cmd := &cobra.Command{
		Use:   "resolve CABINET_ID",
		Short: "Show the construction standards a cabinet resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !compare && len(templates) == 0 {
				std, err := a.svc.ResolveStandards(ctx, args[0])
				if err != nil {
					return err
				}
				return a.print(cmd, std, func(w io.Writer) {
					fmt.Fprintf(w, "Template\t%s (%s)\n", std.TemplateName, std.TemplateID)
					fmt.Fprintf(w, "Source\t%s\n", std.Source)
					fmt.Fprintf(w, "Default style\t%s\n", std.DefaultStyle)
					for _, fv := range std.Snapshot() {
						fmt.Fprintf(w, "%s\t%.4f\n", fv.Field, fv.Value)
					}
				})
			}

			results, err := a.svc.CompareTemplates(ctx, args[0], templates)
			if err != nil {
				return err
			}
			return a.print(cmd, comparisonView(results), func(w io.Writer) {
				fmt.Fprintln(w, "SCENARIO\tDRAWER\tBACK GAP\tVALIDATED\tSTRETCHERS")
				for _, r := range results {
					if r.Err != nil {
						fmt.Fprintf(w, "%s\t-\t-\t-\terror: %v\n", r.Scenario.Name, r.Err)
						continue
					}
					fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%t\t%d\n", r.Scenario.Name, r.DrawerDepth, r.BackWallGap, r.DepthValidated, r.Stretchers)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&compare, "compare", false, "compare the cabinet under every stored template")
	cmd.Flags().StringSliceVar(&templates, "template", nil, "compare against these template IDs only")
	return cmd
}

// comparisonJSON is the --json shape of one comparison scenario.
type comparisonJSON struct {
	Scenario       string  `json:"scenario"`
	TemplateID     string  `json:"template_id"`
	Error          string  `json:"error,omitempty"`
	DrawerDepth    float64 `json:"drawer_depth"`
	BackWallGap    float64 `json:"back_wall_gap"`
	DepthValidated bool    `json:"depth_validated"`
	Stretchers     int     `json:"stretchers"`
}

func comparisonView(results []engine.ComparisonResult) []comparisonJSON {
	out := make([]comparisonJSON, 0, len(results))
	for _, r := range results {
		v := comparisonJSON{
			Scenario:       r.Scenario.Name,
			TemplateID:     r.Scenario.Standards.TemplateID,
			DrawerDepth:    r.DrawerDepth,
			BackWallGap:    r.BackWallGap,
			DepthValidated: r.DepthValidated,
			Stretchers:     r.Stretchers,
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		out = append(out, v)
	}
	return out
}

func newAuditsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audits CABINET_ID",
		Short: "List a cabinet's calculation audits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audits, err := a.svc.ListAudits(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, audits, func(w io.Writer) {
				fmt.Fprintln(w, "SEQ\tID\tTYPE\tSTATUS\tISSUES\tMAX\tFIELD\tBY")
				for _, au := range audits {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.4f\t%s\t%s\n", au.Sequence, au.ID, au.AuditType,
						au.EffectiveStatus(), au.DiscrepancyCount, au.MaxDiscrepancyInches, au.MaxDiscrepancyField, au.TriggeredBy)
				}
			})
		},
	}
}

func newOverrideCmd(a *app) *cobra.Command {
	var by, reason string
	cmd := &cobra.Command{
		Use:   "override AUDIT_ID",
		Short: "Accept a warning or failed audit with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if by == "" {
				by = a.cfg.TriggeredBy
			}
			au, err := a.svc.OverrideAudit(cmd.Context(), args[0], by, strings.TrimSpace(reason))
			if err != nil {
				return err
			}
			return a.print(cmd, au, func(w io.Writer) {
				fmt.Fprintf(w, "Audit %s overridden by %s\n", au.ID, au.OverriddenBy)
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "reviewer name")
	cmd.Flags().StringVar(&reason, "reason", "", "why the discrepancy is acceptable")
	return cmd
}

func newReviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "List projects with unresolved warning or failed audits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.svc.ProjectsNeedingReview(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No projects need review")
					return
				}
				fmt.Fprintln(w, "PROJECT\tNAME\tOPEN\tFAILED\tWARNING")
				for _, it := range items {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", it.ProjectID, it.ProjectName, it.OpenAudits, it.FailedAudits, it.WarningAudits)
				}
			})
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup FILE",
		Short: "Write the engine config and template library to one backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := a.store.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			if err := project.ExportAllData(args[0], a.cfg, templates); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up config and %d templates to %s\n", len(templates), args[0])
			return nil
		},
	}
}
