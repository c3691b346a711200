package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/store/memory"
)

func TestSaveAndLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.json")

	store := model.NewTemplateStore()
	tmpl := model.NewConstructionTemplate("Shop Standard")
	tmpl.IsDefault = true
	store.Add(tmpl)

	if err := SaveTemplates(path, store); err != nil {
		t.Fatalf("SaveTemplates error: %v", err)
	}

	loaded, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("LoadTemplates error: %v", err)
	}

	if len(loaded.Templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(loaded.Templates))
	}
	if loaded.Templates[0].Name != "Shop Standard" {
		t.Errorf("expected 'Shop Standard', got %q", loaded.Templates[0].Name)
	}
	if len(loaded.Templates[0].Styles) != len(model.AllStyles) {
		t.Errorf("expected %d styles, got %d", len(model.AllStyles), len(loaded.Templates[0].Styles))
	}
}

func TestLoadTemplatesMissingFile(t *testing.T) {
	store, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.Templates) != 0 {
		t.Errorf("expected empty library, got %d", len(store.Templates))
	}
}

func TestLoadTemplatesDedupesByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	data := `{"templates":[{"id":"a","name":"First"},{"id":"a","name":"Second"},{"name":"No ID"}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("LoadTemplates error: %v", err)
	}
	if len(store.Templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(store.Templates))
	}
	if got := store.FindByID("a"); got == nil || got.Name != "Second" {
		t.Errorf("expected last entry for id a to win, got %+v", got)
	}
	if store.FindByName("No ID").ID == "" {
		t.Error("expected a generated ID")
	}
}

func TestImportAndExportTemplates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "library.json")

	library := model.NewTemplateStore()
	def := model.NewConstructionTemplate("Shop Standard")
	def.IsDefault = true
	library.Add(def)
	library.Add(model.NewConstructionTemplate("Inset Kitchen"))
	if err := SaveTemplates(src, library); err != nil {
		t.Fatal(err)
	}

	st := memory.New()
	n, err := ImportTemplates(ctx, src, st)
	if err != nil {
		t.Fatalf("ImportTemplates error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}
	got, err := st.LoadDefaultTemplate(ctx)
	if err != nil {
		t.Fatalf("expected a default template: %v", err)
	}
	if got.ID != def.ID {
		t.Errorf("expected default %s, got %s", def.ID, got.ID)
	}

	out := filepath.Join(dir, "export", "templates.json")
	n, err = ExportTemplates(ctx, out, st)
	if err != nil {
		t.Fatalf("ExportTemplates error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 exported, got %d", n)
	}
	reread, err := LoadTemplates(out)
	if err != nil {
		t.Fatal(err)
	}
	if reread.FindByName("Inset Kitchen") == nil {
		t.Error("exported library is missing a template")
	}
}

func TestImportTemplatesRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.json")

	library := model.NewTemplateStore()
	bad := model.NewConstructionTemplate("Broken")
	bad.StretcherMinDepth = 5
	bad.StretcherMaxDepth = 3
	library.Add(model.NewConstructionTemplate("Good"))
	library.Add(bad)
	if err := SaveTemplates(path, library); err != nil {
		t.Fatal(err)
	}

	st := memory.New()
	if _, err := ImportTemplates(ctx, path, st); err == nil {
		t.Fatal("expected validation error")
	}
	all, err := st.ListTemplates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("expected nothing saved, got %d", len(all))
	}
}
