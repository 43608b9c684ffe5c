package template

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ezdnac/ezdnac/pkg/util"
)

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	doc := mustParse(t, liveTemplate)

	b, err := Write(dir, doc)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if b.ContentsPath != filepath.Join(dir, "access-switch", "access-switch_contents.txt") {
		t.Errorf("ContentsPath = %q", b.ContentsPath)
	}
	if b.ParamsPath != filepath.Join(dir, "access-switch", "access-switch_params.json") {
		t.Errorf("ParamsPath = %q", b.ParamsPath)
	}

	body, _ := os.ReadFile(b.ContentsPath)
	if string(body) != doc.Content() {
		t.Errorf("contents file = %q", body)
	}
	params, _ := os.ReadFile(b.ParamsPath)
	if strings.Contains(string(params), FieldContent) {
		t.Error("params file must not contain the template body")
	}

	bundles, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(bundles) != 1 || bundles[0].Name != "access-switch" {
		t.Fatalf("bundles = %+v", bundles)
	}
	loaded, content, err := bundles[0].Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if content != doc.Content() {
		t.Errorf("content = %q", content)
	}
	if d := Compare(doc, loaded, content); d.Changed() {
		t.Errorf("written bundle differs from source:\n%s", d.Summary())
	}
	if _, ok := loaded[FieldContent]; ok {
		t.Error("loaded params should not carry content")
	}
}

func TestWrite_Overwrites(t *testing.T) {
	dir := t.TempDir()
	doc := mustParse(t, liveTemplate)
	if _, err := Write(dir, doc); err != nil {
		t.Fatal(err)
	}
	doc[FieldContent] = "short"
	b, err := Write(dir, doc)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := os.ReadFile(b.ContentsPath)
	if string(body) != "short" {
		t.Errorf("contents not overwritten: %q", body)
	}
}

func TestWrite_RejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := Write(t.TempDir(), Document{"name": name})
		if !errors.Is(err, util.ErrValidationFailed) {
			t.Errorf("Write(name=%q) err = %v, want validation error", name, err)
		}
	}
}

func TestLoadDir_SkipsHiddenAndFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, mustParse(t, liveTemplate)); err != nil {
		t.Fatal(err)
	}
	os.MkdirAll(filepath.Join(dir, ".git"), 0755)
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0644)

	bundles, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(bundles) != 1 {
		t.Errorf("expected 1 bundle, got %d", len(bundles))
	}
}

func TestLoadDir_IncompleteFolders(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "edge"), 0755)
	os.WriteFile(filepath.Join(dir, "edge", "edge_contents.txt"), []byte("x"), 0644)
	os.MkdirAll(filepath.Join(dir, "core"), 0755)
	os.WriteFile(filepath.Join(dir, "core", "core_params.json"), []byte(`{}`), 0644)

	_, err := LoadDir(dir)
	if !errors.Is(err, util.ErrValidationFailed) {
		t.Fatalf("err = %v, want validation error", err)
	}
	for _, want := range []string{"edge: no *_params.json", "core: no *_contents.txt"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("missing directory should fail")
	}
}

func TestBundleLoad_RequiresNames(t *testing.T) {
	dir := t.TempDir()
	b := Bundle{
		Name:         "x",
		ContentsPath: filepath.Join(dir, "x_contents.txt"),
		ParamsPath:   filepath.Join(dir, "x_params.json"),
	}
	os.WriteFile(b.ContentsPath, []byte(""), 0644)
	os.WriteFile(b.ParamsPath, []byte(`{"name": "x"}`), 0644)

	_, _, err := b.Load()
	if !errors.Is(err, util.ErrValidationFailed) || !strings.Contains(err.Error(), "projectName") {
		t.Errorf("err = %v, want missing projectName", err)
	}
}
