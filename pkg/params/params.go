// Package params loads template variable values from a YAML or JSON file.
package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// Load reads a mapping of template variable names to values. JSON files
// are accepted as YAML. An empty file yields an empty map.
func Load(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a params document.
func Parse(data []byte) (map[string]interface{}, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing params: %w", err)
	}
	out := make(map[string]interface{})
	if len(node.Content) == 0 {
		return out, nil
	}

	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, util.NewValidationError("params must be a mapping of variable names to values")
	}
	var v util.ValidationBuilder
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Tag != "!!str" {
			v.AddErrorf("line %d: variable name %q is not a string", key.Line, key.Value)
			continue
		}
		var value interface{}
		if err := val.Decode(&value); err != nil {
			v.AddErrorf("line %d: %s: %v", val.Line, key.Value, err)
			continue
		}
		out[key.Value] = value
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	return out, nil
}
