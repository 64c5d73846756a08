// Package checklist evaluates tool proposals against the design checklist:
// pattern-based policy checks that either block a proposal (issues) or
// annotate it (warnings).
package checklist

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

const builtinName = "design-checklist"

// LoadBuiltin parses the embedded design checklist.
func LoadBuiltin() (RuleSet, error) {
	data, err := BuiltinSource()
	if err != nil {
		return RuleSet{}, err
	}
	return parse(data)
}

// BuiltinSource returns the embedded checklist document verbatim, for
// serving through the resource surface.
func BuiltinSource() ([]byte, error) {
	data, err := builtinFS.ReadFile("builtin/" + builtinName + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: builtin %q", ErrChecklistNotFound, builtinName)
	}
	return data, nil
}

// LoadFile parses a checklist document from disk, for deployments that
// override the builtin rules.
func LoadFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RuleSet{}, fmt.Errorf("%w: %s", ErrChecklistNotFound, path)
		}
		return RuleSet{}, fmt.Errorf("reading checklist %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("%w: %v", ErrChecklistParse, err)
	}
	return rs, nil
}
