package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// File name suffixes inside a template folder
const (
	ContentsSuffix = "_contents.txt"
	ParamsSuffix   = "_params.json"
)

// Bundle is one template folder on disk:
//
//	<dir>/<name>/<name>_contents.txt
//	<dir>/<name>/<name>_params.json
type Bundle struct {
	Name         string // folder name
	Dir          string
	ContentsPath string
	ParamsPath   string
}

// Write stores doc under dir as a bundle named after the template. The
// template body goes to the contents file, every other field to the params
// file. Existing files are overwritten.
func Write(dir string, doc Document) (Bundle, error) {
	name := doc.Name()
	if err := validName(name); err != nil {
		return Bundle{}, err
	}

	folder := filepath.Join(dir, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return Bundle{}, fmt.Errorf("creating template folder: %w", err)
	}

	b := Bundle{
		Name:         name,
		Dir:          folder,
		ContentsPath: filepath.Join(folder, name+ContentsSuffix),
		ParamsPath:   filepath.Join(folder, name+ParamsSuffix),
	}

	if err := os.WriteFile(b.ContentsPath, []byte(doc.Content()), 0644); err != nil {
		return Bundle{}, fmt.Errorf("writing %s: %w", b.ContentsPath, err)
	}

	params := doc.Clone()
	delete(params, FieldContent)
	data, err := params.Marshal()
	if err != nil {
		return Bundle{}, fmt.Errorf("encoding params for %s: %w", name, err)
	}
	if err := os.WriteFile(b.ParamsPath, data, 0644); err != nil {
		return Bundle{}, fmt.Errorf("writing %s: %w", b.ParamsPath, err)
	}

	util.WithTemplate(name).Debugf("Wrote %s", folder)
	return b, nil
}

func validName(name string) error {
	switch {
	case name == "":
		return util.NewValidationError("template has no name")
	case name == "." || name == "..", strings.ContainsAny(name, `/\`):
		return util.NewValidationError(fmt.Sprintf("template name %q cannot be used as a folder name", name))
	}
	return nil
}

// LoadDir finds the template bundles in dir. Hidden entries and plain files
// are ignored. Every folder must hold a params file and a contents file;
// incomplete folders are reported together in one validation error.
func LoadDir(dir string) ([]Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading template directory: %w", err)
	}

	var bundles []Bundle
	var v util.ValidationBuilder
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.IsDir() {
			continue
		}
		b, err := findBundle(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if b.ParamsPath == "" {
			v.AddErrorf("%s: no *%s file", b.Name, ParamsSuffix)
		}
		if b.ContentsPath == "" {
			v.AddErrorf("%s: no *%s file", b.Name, ContentsSuffix)
		}
		bundles = append(bundles, b)
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	return bundles, nil
}

func findBundle(folder string) (Bundle, error) {
	b := Bundle{Name: filepath.Base(folder), Dir: folder}
	files, err := os.ReadDir(folder)
	if err != nil {
		return b, fmt.Errorf("reading %s: %w", folder, err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		switch name := f.Name(); {
		case b.ParamsPath == "" && strings.HasSuffix(name, ParamsSuffix):
			b.ParamsPath = filepath.Join(folder, name)
		case b.ContentsPath == "" && strings.HasSuffix(name, ContentsSuffix):
			b.ContentsPath = filepath.Join(folder, name)
		}
	}
	return b, nil
}

// Load reads the bundle's params document and template body. The params
// file must name the template and its project.
func (b Bundle) Load() (Document, string, error) {
	content, err := os.ReadFile(b.ContentsPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", b.ContentsPath, err)
	}
	data, err := os.ReadFile(b.ParamsPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", b.ParamsPath, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", b.ParamsPath, err)
	}

	var v util.ValidationBuilder
	v.Add(doc.Name() != "", fmt.Sprintf("%s: %q is required", b.ParamsPath, FieldName))
	v.Add(doc.ProjectName() != "", fmt.Sprintf("%s: %q is required", b.ParamsPath, FieldProjectName))
	if err := v.Build(); err != nil {
		return nil, "", err
	}
	return doc, string(content), nil
}
