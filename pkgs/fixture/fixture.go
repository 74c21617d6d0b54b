// Package fixture implements the `test` subcommand's expected-status
// fixture loader and runner: a YAML/JSON
// list of test cases, each an inline input document plus a map of rule
// name to expected Status, validated against a JSON Schema before it is
// ever handed to the evaluator.
package fixture

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guardlang/guard/pkgs/ast"
	"github.com/guardlang/guard/pkgs/eval"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/record"
	"github.com/guardlang/guard/pkgs/status"
	"github.com/guardlang/guard/pkgs/value"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// schemaDoc is the JSON Schema every fixture file must satisfy before
// it is parsed into Spec values: a list of objects, each requiring
// "input" and "expectations.rules", so a malformed fixture reports a
// precise error instead of a panic deep in the runner.
const schemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["input", "expectations"],
    "properties": {
      "name": {},
      "input": {},
      "expectations": {
        "type": "object",
        "required": ["rules"],
        "properties": {
          "rules": {
            "type": "object",
            "additionalProperties": { "type": "string", "enum": ["PASS", "FAIL", "SKIP"] }
          }
        }
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fixture.json", strings.NewReader(schemaDoc)); err != nil {
		return nil, err
	}
	sch, err := compiler.Compile("fixture.json")
	if err != nil {
		return nil, err
	}
	compiledSchema = sch
	return sch, nil
}

// rawSpec mirrors one fixture list element, keeping Input as a raw
// yaml.Node so it can be converted to a path-aware value.Value without
// round-tripping through a lossy generic Go representation first.
type rawSpec struct {
	Name         yaml.Node `yaml:"name"`
	Input        yaml.Node `yaml:"input"`
	Expectations struct {
		Rules map[string]string `yaml:"rules"`
	} `yaml:"expectations"`
}

// Spec is one parsed, ready-to-run test case.
type Spec struct {
	Name         string
	Input        value.Value
	Expectations map[string]status.Status
}

// File is a fully parsed and validated fixture file.
type File struct {
	Specs []Spec
}

// Load reads and validates a fixture file's raw bytes. YAML and JSON
// are both accepted, since JSON is a subset of the YAML grammar the
// underlying decoder supports — one decoder serves both surface
// syntaxes.
func Load(path string, data []byte) (*File, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, guarderrors.Wrap(guarderrors.ErrParse, "invalid fixture file "+path, err)
	}
	normalized := normalizeForSchema(generic)

	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("fixture: compiling schema: %w", err)
	}
	if err := sch.Validate(normalized); err != nil {
		return nil, guarderrors.Wrap(guarderrors.ErrParse, "fixture file "+path+" does not match the expected shape", err)
	}

	var raws []rawSpec
	if err := yaml.Unmarshal(data, &raws); err != nil {
		return nil, guarderrors.Wrap(guarderrors.ErrParse, "invalid fixture file "+path, err)
	}

	f := &File{}
	for _, r := range raws {
		spec, err := toSpec(r)
		if err != nil {
			return nil, err
		}
		f.Specs = append(f.Specs, spec)
	}
	return f, nil
}

// normalizeForSchema round-trips the generically-decoded fixture
// through encoding/json so map keys and nested structures match the
// plain map[string]interface{}/[]interface{} shape jsonschema expects,
// since yaml.v3 decodes mappings as map[string]interface{} already but
// nested yaml.Node scalars elsewhere in the tree would not validate
// cleanly.
func normalizeForSchema(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func toSpec(r rawSpec) (Spec, error) {
	name := ""
	if r.Name.Kind != 0 {
		name = r.Name.Value
	}
	input, err := value.FromYAMLNode(&r.Input)
	if err != nil {
		return Spec{}, err
	}
	expectations := make(map[string]status.Status, len(r.Expectations.Rules))
	for rule, want := range r.Expectations.Rules {
		st, err := parseStatus(want)
		if err != nil {
			return Spec{}, err
		}
		expectations[rule] = st
	}
	return Spec{Name: name, Input: input, Expectations: expectations}, nil
}

func parseStatus(s string) (status.Status, error) {
	switch s {
	case "PASS":
		return status.Pass, nil
	case "FAIL":
		return status.Fail, nil
	case "SKIP":
		return status.Skip, nil
	default:
		return status.Skip, guarderrors.New(guarderrors.ErrParse, "unrecognized expected status "+s)
	}
}

// CaseResult is the outcome of running one Spec against one rules file.
type CaseResult struct {
	Name       string
	Mismatches []Mismatch
}

// Passed reports whether every expectation in the case was met.
func (c CaseResult) Passed() bool { return len(c.Mismatches) == 0 }

// Mismatch records one rule whose evaluated status diverged from what
// the fixture expected.
type Mismatch struct {
	Rule     string
	Expected status.Status
	Got      status.Status
}

// Run evaluates rulesFile against every Spec in f, comparing the
// evaluated status of each named rule against its expectation. A rule
// named in Expectations but absent from the evaluated file is reported
// as a mismatch against status.Skip (the zero status an absent rule
// reads as).
func Run(file string, rulesFile *ast.RulesFile, f *File) ([]CaseResult, error) {
	results := make([]CaseResult, 0, len(f.Specs))
	for i, spec := range f.Specs {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("test case #%d", i+1)
		}
		entry, err := eval.Evaluate(file, rulesFile, spec.Input)
		if err != nil {
			return nil, fmt.Errorf("fixture: evaluating %s: %w", name, err)
		}
		got := make(map[string]status.Status, len(entry.Children))
		var collect func(*record.Entry)
		collect = func(n *record.Entry) {
			if n.Type == record.TypeRule {
				if _, ok := got[n.Context]; !ok {
					got[n.Context] = n.Status
				}
			}
			for _, c := range n.Children {
				collect(c)
			}
		}
		for _, c := range entry.Children {
			collect(c)
		}

		var mismatches []Mismatch
		for rule, want := range spec.Expectations {
			gotStatus, ok := got[rule]
			if !ok {
				mismatches = append(mismatches, Mismatch{Rule: rule, Expected: want, Got: status.Skip})
				continue
			}
			if gotStatus != want {
				mismatches = append(mismatches, Mismatch{Rule: rule, Expected: want, Got: gotStatus})
			}
		}
		results = append(results, CaseResult{Name: name, Mismatches: mismatches})
	}
	return results, nil
}
