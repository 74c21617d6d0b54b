package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/guardlang/guard/pkgs/ast"
	"github.com/guardlang/guard/pkgs/eval"
	"github.com/guardlang/guard/pkgs/parser"
	"github.com/guardlang/guard/pkgs/render"
	"github.com/guardlang/guard/pkgs/report"
	"github.com/guardlang/guard/pkgs/value"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var (
		rulesFiles   []string
		dataFiles    []string
		payload      string
		inputParams  string
		showSummary  string
		outputFormat string
		structured   bool
		typeFilter   string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate one or more documents against one or more rule files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if payload != "" {
				if len(rulesFiles) != 0 || len(dataFiles) != 0 {
					return internalErrorf("--payload is mutually exclusive with --rules/--data")
				}
				p, err := parsePayload(payload)
				if err != nil {
					return internalErrorf("parsing --payload: %w", err)
				}
				rulesFiles = p.Rules
				dataFiles = p.Data
			}
			if len(rulesFiles) == 0 || len(dataFiles) == 0 {
				return internalErrorf("validate requires at least one --rules and one --data (or an equivalent --payload)")
			}

			var params value.Value
			if inputParams != "" {
				v, err := loadValueFile(inputParams)
				if err != nil {
					return internalErrorf("reading --input-parameters: %w", err)
				}
				params = v
			}

			var matcher glob.Glob
			if typeFilter != "" {
				g, err := glob.Compile(typeFilter, '.', ':')
				if err != nil {
					return internalErrorf("invalid --type-filter: %w", err)
				}
				matcher = g
			}

			env := report.NewEnvelope()
			anyFail := false

			for _, rf := range rulesFiles {
				rulesFile, err := loadRulesFile(rf)
				if err != nil {
					return internalErrorf("parsing %s: %w", rf, err)
				}
				if matcher != nil {
					rulesFile = filterRulesByType(rulesFile, matcher)
				}
				for _, df := range dataFiles {
					doc, err := loadValueFile(df)
					if err != nil {
						return internalErrorf("reading %s: %w", df, err)
					}
					if params.Kind() != 0 {
						doc = mergeParameters(doc, params)
					}

					entry, err := eval.Evaluate(rf, rulesFile, doc)
					if err != nil {
						return internalErrorf("evaluating %s against %s: %w", rf, df, err)
					}
					fr := report.Build(rf, df, entry)
					if fr.Status == "FAIL" {
						anyFail = true
					}
					fr.Rules = filterSummary(fr.Rules, showSummary)
					env.Files = append(env.Files, fr)
				}
			}

			format := render.Format(outputFormat)
			if structured && format == "" {
				format = render.JSON
			}
			if err := render.Render(os.Stdout, env, format); err != nil {
				return internalErrorf("rendering output: %w", err)
			}

			if anyFail {
				exitCode = ExitRuleFailures
			} else {
				exitCode = ExitSuccess
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&rulesFiles, "rules", nil, "rule file (repeatable)")
	cmd.Flags().StringArrayVar(&dataFiles, "data", nil, "document file to validate (repeatable)")
	cmd.Flags().StringVar(&payload, "payload", "", `JSON object {"data":[...],"rules":[...]} naming paths inline, instead of repeated --rules/--data`)
	cmd.Flags().StringVar(&inputParams, "input-parameters", "", "YAML/JSON file of parameters merged into each document")
	cmd.Flags().StringVar(&showSummary, "show-summary", "all", "one of none|pass|fail|skip|all")
	cmd.Flags().StringVar(&outputFormat, "output-format", string(render.SingleLineSummary), "single-line-summary|json|yaml|junit|sarif")
	cmd.Flags().BoolVar(&structured, "structured", false, "shorthand for --output-format json")
	cmd.Flags().StringVar(&typeFilter, "type-filter", "", "glob restricting which resource types are considered")
	return cmd
}

// filterSummary keeps only the rule results matching the --show-summary
// selection, a comma-separated subset of none|pass|fail|skip|all.
// Unrecognized selectors are ignored; "all" and "none" win over any
// other selector they are combined with.
func filterSummary(rules []report.RuleResult, show string) []report.RuleResult {
	if show == "" || show == "all" {
		return rules
	}
	want := make(map[string]bool)
	for _, sel := range strings.Split(show, ",") {
		switch strings.ToLower(strings.TrimSpace(sel)) {
		case "all":
			return rules
		case "none":
			return nil
		case "pass":
			want["PASS"] = true
		case "fail":
			want["FAIL"] = true
		case "skip":
			want["SKIP"] = true
		}
	}
	out := make([]report.RuleResult, 0, len(rules))
	for _, r := range rules {
		if want[r.Status] {
			out = append(out, r)
		}
	}
	return out
}

// filterRulesByType drops rules whose clauses are entirely TypeBlocks
// naming a resource type the --type-filter glob rejects, leaving mixed
// or type-agnostic rules untouched. A rule dropped this way is absent
// from the report entirely, the same "not considered" semantics
// rulegen applies to the types it walks.
func filterRulesByType(rulesFile *ast.RulesFile, matcher glob.Glob) *ast.RulesFile {
	filtered := &ast.RulesFile{Assignments: rulesFile.Assignments}
	for _, rule := range rulesFile.Rules {
		if ruleIsTypeExclusive(rule) && !ruleHasMatchingType(rule, matcher) {
			continue
		}
		filtered.Rules = append(filtered.Rules, rule)
	}
	return filtered
}

func ruleIsTypeExclusive(rule ast.Rule) bool {
	sawClause := false
	for _, row := range rule.Block.Conjunctions {
		for _, clause := range row {
			sawClause = true
			if _, ok := clause.(ast.TypeBlockRuleClause); !ok {
				return false
			}
		}
	}
	return sawClause
}

func ruleHasMatchingType(rule ast.Rule, matcher glob.Glob) bool {
	for _, row := range rule.Block.Conjunctions {
		for _, clause := range row {
			tb, ok := clause.(ast.TypeBlockRuleClause)
			if ok && matcher.Match(tb.Clause.TypeName) {
				return true
			}
		}
	}
	return false
}

// payloadSpec mirrors --payload's {"data":[...],"rules":[...]} shape, an
// inline alternative to repeating --rules/--data for each path.
type payloadSpec struct {
	Data  []string `json:"data"`
	Rules []string `json:"rules"`
}

func parsePayload(raw string) (payloadSpec, error) {
	var p payloadSpec
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return payloadSpec{}, err
	}
	if len(p.Rules) == 0 || len(p.Data) == 0 {
		return payloadSpec{}, internalErrorf("--payload requires non-empty \"data\" and \"rules\" arrays")
	}
	return p, nil
}

func loadRulesFile(path string) (*ast.RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parser.Parse(filepath.Base(path), string(data))
}

func loadValueFile(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, err
	}
	if strings.HasSuffix(path, ".json") {
		return value.FromJSON(data)
	}
	return value.FromYAML(data)
}

// mergeParameters overlays params' top-level keys onto doc, giving the
// document's own keys precedence: --input-parameters supplies
// defaults, it does not override an already-present value.
func mergeParameters(doc, params value.Value) value.Value {
	if !doc.IsStruct() || !params.IsStruct() {
		return doc
	}
	for _, k := range params.MapKeys() {
		key := k.Str()
		if _, exists := doc.MapGet(key); exists {
			continue
		}
		v, _ := params.MapGet(key)
		doc.MapSet(key, v)
	}
	return doc
}
