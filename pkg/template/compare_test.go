package template

import (
	"strings"
	"testing"
)

func localCopy(t *testing.T) (Document, string) {
	t.Helper()
	doc := mustParse(t, liveTemplate)
	content := doc.Content()
	delete(doc, FieldContent)
	return doc, content
}

func TestCompare_Identical(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, content := localCopy(t)

	d := Compare(live, local, content)
	if d.Changed() {
		t.Errorf("identical template reported as changed:\n%s", d.Summary())
	}
}

func TestCompare_IgnoresIDs(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, content := localCopy(t)
	for i, p := range local.Params() {
		p[FieldID] = "other-controller-id"
		if i == 1 {
			p["range"].([]interface{})[0].(map[string]interface{})[FieldID] = "r-99"
		}
	}

	if d := Compare(live, local, content); d.Changed() {
		t.Errorf("id-only differences must be ignored:\n%s", d.Summary())
	}
}

func TestCompare_ContentChanged(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, _ := localCopy(t)

	d := Compare(live, local, "hostname $hostname\nvlan 20\n")
	if !d.ContentChanged || !d.Changed() {
		t.Fatal("content change not detected")
	}
	for _, want := range []string{"--- controller/access-switch", "+++ local/access-switch", "-vlan $vlan", "+vlan 20"} {
		if !strings.Contains(d.ContentDiff, want) {
			t.Errorf("unified diff missing %q:\n%s", want, d.ContentDiff)
		}
	}
}

func TestCompare_ParamDifferencesAccumulate(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, content := localCopy(t)
	params := local.Params()
	params[0]["required"] = false
	params[1]["dataType"] = "STRING"

	d := Compare(live, local, content)
	if d.ContentChanged {
		t.Error("content should be unchanged")
	}
	if len(d.Params) != 2 {
		t.Fatalf("expected a difference for each parameter, got %d: %+v", len(d.Params), d.Params)
	}
	got := map[string]string{}
	for _, p := range d.Params {
		got[p.Parameter] = p.Key
		if p.Kind != ParamChanged {
			t.Errorf("kind = %s", p.Kind)
		}
	}
	if got["hostname"] != "required" || got["vlan"] != "dataType" {
		t.Errorf("unexpected differences: %v", got)
	}
	if !strings.Contains(d.Summary(), "live value: true file value: false") {
		t.Errorf("summary = %q", d.Summary())
	}
}

func TestCompare_AddedAndRemovedParams(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, content := localCopy(t)
	local[FieldParams] = []interface{}{
		local.Params()[0],
		map[string]interface{}{"parameterName": "domain", "dataType": "STRING"},
	}

	d := Compare(live, local, content)
	kinds := map[string]ParamDiffKind{}
	for _, p := range d.Params {
		kinds[p.Parameter] = p.Kind
	}
	if kinds["domain"] != ParamAdded {
		t.Errorf("domain kind = %q, want added", kinds["domain"])
	}
	if kinds["vlan"] != ParamRemoved {
		t.Errorf("vlan kind = %q, want removed", kinds["vlan"])
	}
}

func TestCompare_KeyMissingOnOneSide(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, content := localCopy(t)
	delete(local.Params()[0], "order")

	d := Compare(live, local, content)
	if len(d.Params) != 1 || d.Params[0].Key != "order" || d.Params[0].File != nil {
		t.Fatalf("expected one diff on order, got %+v", d.Params)
	}
	if !strings.Contains(d.Params[0].String(), "<unset>") {
		t.Errorf("String() = %q", d.Params[0].String())
	}
}

func TestCompare_KeyOnlyInFile(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, content := localCopy(t)
	local.Params()[0]["description"] = "management hostname"

	d := Compare(live, local, content)
	if len(d.Params) != 1 || d.Params[0].Key != "description" || d.Params[0].Live != nil {
		t.Fatalf("expected one diff on description, got %+v", d.Params)
	}
}

func TestCompare_IgnoresSelection(t *testing.T) {
	live := mustParse(t, liveTemplate)
	local, content := localCopy(t)
	for _, p := range live.Params() {
		delete(p, FieldSelection)
	}

	if d := Compare(live, local, content); d.Changed() {
		t.Errorf("selections are not pushed and must not count: %+v", d.Params)
	}
}
