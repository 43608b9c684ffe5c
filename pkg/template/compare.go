package template

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ParamDiffKind classifies a parameter difference
type ParamDiffKind string

const (
	ParamChanged ParamDiffKind = "changed" // present on both sides, a key differs
	ParamAdded   ParamDiffKind = "added"   // only in the local file
	ParamRemoved ParamDiffKind = "removed" // only on the controller
)

// ParamDiff is one difference between a live and a local parameter
type ParamDiff struct {
	Parameter string        `json:"parameter"`
	Kind      ParamDiffKind `json:"kind"`
	Key       string        `json:"key,omitempty"`
	Live      interface{}   `json:"live,omitempty"`
	File      interface{}   `json:"file,omitempty"`
}

func (p ParamDiff) String() string {
	switch p.Kind {
	case ParamAdded:
		return fmt.Sprintf("parameter %s only exists in the local file", p.Parameter)
	case ParamRemoved:
		return fmt.Sprintf("parameter %s only exists on the controller", p.Parameter)
	}
	return fmt.Sprintf("parameter %s differs in %s, live value: %v file value: %v",
		p.Parameter, p.Key, display(p.Live), display(p.File))
}

func display(v interface{}) string {
	if v == nil {
		return "<unset>"
	}
	return fmt.Sprint(v)
}

// Diff is the result of comparing a live template with a local bundle
type Diff struct {
	Template       string      `json:"template"`
	ContentChanged bool        `json:"content_changed"`
	ContentDiff    string      `json:"content_diff,omitempty"`
	Params         []ParamDiff `json:"params,omitempty"`
}

// Changed reports whether pushing the local bundle would modify the
// template.
func (d *Diff) Changed() bool {
	return d.ContentChanged || len(d.Params) > 0
}

// Compare checks a local document and body against the live template.
// Parameters are matched by name; ids are ignored since they are assigned
// by the controller.
func Compare(live, local Document, localContent string) *Diff {
	d := &Diff{Template: local.Name()}

	liveContent := live.Content()
	if liveContent != localContent {
		d.ContentChanged = true
		d.ContentDiff = unifiedDiff(liveContent, localContent, d.Template)
	}

	liveParams := indexParams(live.Params())
	seen := make(map[string]bool)
	for _, fp := range local.Params() {
		name, _ := fp[FieldParamName].(string)
		seen[name] = true
		lp, ok := liveParams[name]
		if !ok {
			d.Params = append(d.Params, ParamDiff{Parameter: name, Kind: ParamAdded})
			continue
		}
		d.Params = append(d.Params, compareParam(name, lp, fp)...)
	}
	for _, lp := range live.Params() {
		name, _ := lp[FieldParamName].(string)
		if !seen[name] {
			d.Params = append(d.Params, ParamDiff{Parameter: name, Kind: ParamRemoved})
		}
	}
	return d
}

func indexParams(params []map[string]interface{}) map[string]map[string]interface{} {
	idx := make(map[string]map[string]interface{}, len(params))
	for _, p := range params {
		name, _ := p[FieldParamName].(string)
		if _, dup := idx[name]; !dup {
			idx[name] = p
		}
	}
	return idx
}

func compareParam(name string, live, file map[string]interface{}) []ParamDiff {
	keys := make(map[string]struct{}, len(live)+len(file))
	for k := range live {
		keys[k] = struct{}{}
	}
	for k := range file {
		keys[k] = struct{}{}
	}
	delete(keys, FieldID)
	delete(keys, FieldSelection) // never pushed

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var diffs []ParamDiff
	for _, k := range sorted {
		lv, fv := live[k], file[k]
		if !reflect.DeepEqual(stripIDs(lv), stripIDs(fv)) {
			diffs = append(diffs, ParamDiff{Parameter: name, Kind: ParamChanged, Key: k, Live: lv, File: fv})
		}
	}
	return diffs
}

// stripIDs removes controller-assigned ids from nested objects, such as
// the range and selection entries of a parameter.
func stripIDs(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			if k == FieldID {
				continue
			}
			m[k] = stripIDs(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = stripIDs(val)
		}
		return s
	}
	return v
}

func unifiedDiff(live, local, name string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(live),
		B:        difflib.SplitLines(local),
		FromFile: "controller/" + name,
		ToFile:   "local/" + name,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return text
}

// Summary renders the differences one per line.
func (d *Diff) Summary() string {
	var sb strings.Builder
	if d.ContentChanged {
		sb.WriteString("template content differs\n")
	}
	for _, p := range d.Params {
		sb.WriteString(p.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
