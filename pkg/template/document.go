// Package template handles configuration templates as the controller's
// template programmer stores them: a JSON document plus the template body.
// It reads and writes the on-disk layout used by pull/push and compares
// local bundles against live templates.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names used by the template programmer API
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldProjectName = "projectName"
	FieldProjectID   = "projectId"
	FieldContent     = "templateContent"
	FieldParams      = "templateParams"
	FieldParamName   = "parameterName"
	FieldSelection   = "selection"
)

// Document is a template as returned by the controller. It is kept as a
// generic object so that fields this tool does not know about survive a
// pull/push round trip.
type Document map[string]interface{}

// ParseDocument decodes a template document. Numbers are kept as
// json.Number so they are written back exactly as received.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding template document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decoding template document: not a JSON object")
	}
	return doc, nil
}

func (d Document) str(key string) string {
	s, _ := d[key].(string)
	return s
}

// ID returns the template id.
func (d Document) ID() string { return d.str(FieldID) }

// Name returns the template name.
func (d Document) Name() string { return d.str(FieldName) }

// ProjectName returns the name of the project the template belongs to.
func (d Document) ProjectName() string { return d.str(FieldProjectName) }

// Content returns the template body.
func (d Document) Content() string { return d.str(FieldContent) }

// Params returns the template parameters. Entries that are not objects are
// skipped.
func (d Document) Params() []map[string]interface{} {
	raw, _ := d[FieldParams].([]interface{})
	params := make([]map[string]interface{}, 0, len(raw))
	for _, p := range raw {
		if m, ok := p.(map[string]interface{}); ok {
			params = append(params, m)
		}
	}
	return params
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return cloneValue(map[string]interface{}(d)).(map[string]interface{})
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case Document:
		return cloneValue(map[string]interface{}(t))
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// Marshal encodes the document with a 4-space indent and without HTML
// escaping, matching the layout of the params files.
func (d Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(map[string]interface{}(d)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
