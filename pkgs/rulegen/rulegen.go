// Package rulegen implements the `rulegen` subcommand:
// given a sample document, it walks each entry under the document's
// Resources map, groups entries by their Type field, and synthesizes one
// rule per observed type naming every scalar property it finds, so a user
// has a starting skeleton to tighten rather than a blank page.
package rulegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"github.com/guardlang/guard/pkgs/value"
)

// Option configures Generate.
type Option struct {
	// TypeFilter, if non-empty, is a glob (matched with '.' and ':' as
	// path separators, mirroring AWS::Service::Resource namespacing)
	// restricting which observed resource types get a generated rule.
	TypeFilter string
}

// Rule is one synthesized rule: a type name plus the scalar property
// paths observed on at least one resource of that type, each paired
// with a representative value drawn from the sample document.
type Rule struct {
	TypeName   string
	Properties []Property
}

// Property is one observed scalar leaf under Properties, e.g.
// "Properties.Encrypted" with a sample value of true.
type Property struct {
	Path   string
	Sample value.Value
}

// Generate inspects the Resources map of the document root and
// returns one Rule per distinct resource Type observed, filtered by
// opt.TypeFilter when set.
func Generate(root value.Value, opt Option) ([]Rule, error) {
	resources, ok := root.MapGet("Resources")
	if !ok {
		return nil, guarderrors.New(guarderrors.ErrParse, "document has no top-level Resources map")
	}
	if !resources.IsStruct() {
		return nil, guarderrors.New(guarderrors.ErrParse, "Resources is not a map")
	}

	var matcher glob.Glob
	if opt.TypeFilter != "" {
		g, err := glob.Compile(opt.TypeFilter, '.', ':')
		if err != nil {
			return nil, fmt.Errorf("rulegen: invalid --type-filter: %w", err)
		}
		matcher = g
	}

	byType := map[string]map[string]value.Value{}
	var order []string

	for _, key := range resources.MapKeys() {
		entry, _ := resources.MapGet(key.Str())
		if !entry.IsStruct() {
			continue
		}
		typeVal, ok := entry.MapGet("Type")
		if !ok || !typeVal.IsString() {
			continue
		}
		typeName := typeVal.Str()
		if matcher != nil && !matcher.Match(typeName) {
			continue
		}
		props, ok := entry.MapGet("Properties")
		if !ok || !props.IsStruct() {
			props = value.NewMap(value.Root())
		}

		if _, seen := byType[typeName]; !seen {
			byType[typeName] = map[string]value.Value{}
			order = append(order, typeName)
		}
		collectScalarLeaves(props, "Properties", byType[typeName])
	}

	sort.Strings(order)
	rules := make([]Rule, 0, len(order))
	for _, typeName := range order {
		leaves := byType[typeName]
		paths := make([]string, 0, len(leaves))
		for p := range leaves {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		r := Rule{TypeName: typeName}
		for _, p := range paths {
			r.Properties = append(r.Properties, Property{Path: p, Sample: leaves[p]})
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// collectScalarLeaves walks v depth-first, recording every scalar leaf
// reached under prefix into out, keyed by its dotted path. Lists
// contribute their first element's shape (a generated rule targets the
// property, not a specific index, per the TypeBlock's implicit "every
// resource of this type" semantics).
func collectScalarLeaves(v value.Value, prefix string, out map[string]value.Value) {
	switch {
	case v.IsStruct():
		for _, k := range v.MapKeys() {
			child, _ := v.MapGet(k.Str())
			collectScalarLeaves(child, prefix+"."+k.Str(), out)
		}
	case v.IsList():
		items := v.List()
		if len(items) > 0 {
			collectScalarLeaves(items[0], prefix, out)
		}
	default:
		if _, exists := out[prefix]; !exists {
			out[prefix] = v
		}
	}
}

// Render writes rules as guard rule-language source text, one rule per
// Rule with one conjunction clause per observed property, comparing it
// to its observed sample value with ==. A user is expected to edit the
// generated comparators; Render's job is to save them from typing out
// every property path by hand.
func Render(rules []Rule) string {
	var sb strings.Builder
	for i, r := range rules {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s {\n", r.TypeName)
		for _, p := range r.Properties {
			fmt.Fprintf(&sb, "  %s == %s\n", p.Path, renderLiteral(p.Sample))
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

func renderLiteral(v value.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case v.IsBool():
		if v.Bool() {
			return "true"
		}
		return "false"
	case v.IsInt():
		return fmt.Sprintf("%d", v.Int())
	case v.IsFloat():
		return fmt.Sprintf("%g", v.Float())
	case v.IsString():
		return fmt.Sprintf("%q", v.Str())
	default:
		return fmt.Sprintf("%q", v.Kind().String())
	}
}
