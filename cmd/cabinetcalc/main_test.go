package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cabinetcalc/internal/model"
)

type cli struct {
	t    *testing.T
	dir  string
	base []string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	return &cli{
		t:   t,
		dir: dir,
		base: []string{
			"--config", filepath.Join(dir, "config.json"),
			"--env-file", filepath.Join(dir, "missing.env"),
			"--dsn", filepath.Join(dir, "cabinetcalc.db"),
			"--log-level", "error",
		},
	}
}

func (c *cli) exec(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), append(args, c.base...), &out, &errOut)
	return out.String(), err
}

func (c *cli) mustExec(args ...string) string {
	c.t.Helper()
	out, err := c.exec(args...)
	require.NoError(c.t, err, "cabinetcalc %v", args)
	return out
}

func (c *cli) writeFile(name, data string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(data), 0644))
	return path
}

const schedule = "Cabinet,Type,Width,Height,Depth,Drawers\n" +
	"B1,base,24,34 1/2,24,3\n" +
	"B2,base,18,34.5,24,0\n" +
	"W1,wall,30,30,12,0\n"

func TestWorkflow(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.mustExec("init-db", "--with-default-template"), "Created default template")
	assert.Contains(t, c.mustExec("init-db", "--with-default-template"), "already present")

	var cabinets []model.Cabinet
	out := c.mustExec("import-schedule", c.writeFile("kitchen.csv", schedule), "--project", "Smith Kitchen", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &cabinets))
	require.Len(t, cabinets, 3)
	runID := cabinets[0].CabinetRunID
	b1 := cabinets[0].ID
	assert.Equal(t, "B1", cabinets[0].CabinetNumber)
	assert.Equal(t, 34.5, cabinets[0].HeightInches)

	var subtree subtreeJSON
	out = c.mustExec("recalc-subtree", "run", runID, "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &subtree))
	assert.Len(t, subtree.Cabinets, 3)
	assert.Empty(t, subtree.Failures)
	assert.Equal(t, 24.0, subtree.Cabinets[b1].Calculation.Breakdown.TotalDepth)
	assert.Len(t, subtree.Cabinets[b1].Calculation.Stretchers, 5)

	assert.Contains(t, c.mustExec("audits", b1), "initial_calculation")
	assert.Contains(t, c.mustExec("recalc-cabinet", b1, "--by", "tester"), "recalculation")
	assert.Contains(t, c.mustExec("resolve", b1), "Shop Standard")
	assert.Contains(t, c.mustExec("resolve", b1, "--compare"), "Shop Standard")
	c.mustExec("review")

	reports := filepath.Join(c.dir, "reports")
	c.mustExec("report", "--under", "run:"+runID,
		"--pdf", filepath.Join(reports, "audit.pdf"),
		"--labels", filepath.Join(reports, "labels.pdf"),
		"--xlsx", filepath.Join(reports, "breakdown.xlsx"),
		"--dxf-dir", filepath.Join(reports, "dxf"))
	for _, name := range []string{"audit.pdf", "labels.pdf", "breakdown.xlsx"} {
		assert.FileExists(t, filepath.Join(reports, name))
	}
	profiles, err := os.ReadDir(filepath.Join(reports, "dxf"))
	require.NoError(t, err)
	assert.Len(t, profiles, 3)

	library := filepath.Join(c.dir, "templates.json")
	assert.Contains(t, c.mustExec("export-templates", library), "Exported 1 templates")
	assert.Contains(t, c.mustExec("import-templates", library), "Imported 1 templates")
	assert.Contains(t, c.mustExec("templates"), "Default template: Shop Standard")

	backup := filepath.Join(c.dir, "backup.json")
	c.mustExec("backup", backup)
	assert.FileExists(t, backup)
}

func TestOverrideFlow(t *testing.T) {
	c := newCLI(t)
	c.mustExec("init-db", "--with-default-template")

	var cabinets []model.Cabinet
	out := c.mustExec("import-schedule", c.writeFile("s.csv", schedule), "--project", "P", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &cabinets))
	b1 := cabinets[0].ID
	c.mustExec("recalc-cabinet", b1)

	var audits []model.CalculationAudit
	require.NoError(t, json.Unmarshal([]byte(c.mustExec("audits", b1, "--json")), &audits))
	require.Len(t, audits, 1)

	_, err := c.exec("override", audits[0].ID, "--by", "lead")
	assert.ErrorIs(t, err, model.ErrOverrideReasonRequired)

	assert.Contains(t, c.mustExec("override", audits[0].ID, "--by", "lead", "--reason", "checked on site"), "overridden by lead")

	_, err = c.exec("override", audits[0].ID, "--by", "lead", "--reason", "again")
	assert.ErrorIs(t, err, model.ErrAuditAlreadyOverridden)
}

func TestTemplatesCmd(t *testing.T) {
	c := newCLI(t)
	c.mustExec("init-db")
	assert.Contains(t, c.mustExec("templates"), "No default template")

	c.mustExec("init-db", "--with-default-template")
	var lib model.TemplateStore
	require.NoError(t, json.Unmarshal([]byte(c.mustExec("templates", "--json")), &lib))
	require.Len(t, lib.Templates, 1)
	d := lib.Default()
	require.NotNil(t, d)
	assert.Equal(t, "Shop Standard", d.Name)
}

func TestCommandErrors(t *testing.T) {
	c := newCLI(t)
	c.mustExec("init-db")

	_, err := c.exec("import-schedule", c.writeFile("s.csv", schedule))
	assert.ErrorContains(t, err, "--run or --project")

	_, err = c.exec("import-schedule", c.writeFile("bad.csv", "Cabinet,Width,Height,Depth\nB1,x,1,1\n"), "--project", "P")
	assert.ErrorContains(t, err, "no cabinets")

	_, err = c.exec("import-schedule", c.writeFile("s.csv", schedule), "--run", "missing-run")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = c.exec("report", "some-id")
	assert.ErrorContains(t, err, "nothing to write")

	_, err = c.exec("report", "--under", "run", "--pdf", filepath.Join(c.dir, "x.pdf"))
	assert.ErrorContains(t, err, "KIND:ID")

	_, err = c.exec("recalc-subtree", "shelf_unit", "x")
	assert.ErrorContains(t, err, "unknown entity kind")

	_, err = c.exec("recalc-cabinet", "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = c.exec("review", "--db-driver", "oracle")
	assert.ErrorContains(t, err, "invalid config")
}

func TestProfileFileName(t *testing.T) {
	assert.Equal(t, "B_1-abcdef12.dxf", profileFileName(model.Cabinet{ID: "abcdef1234", CabinetNumber: "B/1"}))
	assert.Equal(t, "ab-ab.dxf", profileFileName(model.Cabinet{ID: "ab"}))
}
