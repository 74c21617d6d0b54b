package value

import (
	"strconv"
	"strings"

	guarderrors "github.com/guardlang/guard/pkgs/errors"
	"gopkg.in/yaml.v3"
)

// shortFormFunctionTags is the fixed list of recognized CloudFormation-
// style short-form function tags. Recognized tags are rewritten
// as a single-entry map keyed by the long-form function name. Under any
// other tag a mapping or sequence is decoded as if untagged, but a scalar
// keeps its raw text as a string.
var shortFormFunctionTags = map[string]string{
	"!Ref":         "Ref",
	"!Condition":   "Condition",
	"!GetAtt":      "Fn::GetAtt",
	"!Sub":         "Fn::Sub",
	"!Join":        "Fn::Join",
	"!Select":      "Fn::Select",
	"!Split":       "Fn::Split",
	"!FindInMap":   "Fn::FindInMap",
	"!GetAZs":      "Fn::GetAZs",
	"!ImportValue": "Fn::ImportValue",
	"!If":          "Fn::If",
	"!Not":         "Fn::Not",
	"!Equals":      "Fn::Equals",
	"!And":         "Fn::And",
	"!Or":          "Fn::Or",
	"!Base64":      "Fn::Base64",
	"!Cidr":        "Fn::Cidr",
	"!Transform":   "Fn::Transform",
}

// FromYAML normalizes a YAML document into a path-aware Value tree
//, preserving mapping key order and rewriting recognized short-
// form function tags.
func FromYAML(data []byte) (Value, error) {
	normalized := normalizeBareBooleans(data)

	var doc yaml.Node
	if err := yaml.Unmarshal(normalized, &doc); err != nil {
		return Value{}, guarderrors.Wrap(guarderrors.ErrParse, "invalid YAML document", err)
	}
	if doc.Kind == 0 {
		return NewNull(Root()), nil
	}
	return convertYAMLNode(&doc, Root())
}

// FromYAMLNode normalizes an already-parsed yaml.Node (e.g. one field
// plucked out of a larger document by a caller that needed its own
// top-level structure, such as the test-fixture loader) into a
// path-aware Value tree, applying the same tag rewriting as FromYAML.
func FromYAMLNode(node *yaml.Node) (Value, error) {
	if node == nil || node.Kind == 0 {
		return NewNull(Root()), nil
	}
	return convertYAMLNode(node, Root())
}

func convertYAMLNode(node *yaml.Node, path Path) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NewNull(path), nil
		}
		return convertYAMLNode(node.Content[0], path)
	case yaml.AliasNode:
		return convertYAMLNode(node.Alias, path)
	}

	if longName, ok := shortFormFunctionTags[node.Tag]; ok {
		inner, err := convertYAMLUntagged(node, path.Key(longName))
		if err != nil {
			return Value{}, err
		}
		wrapper := NewMap(path)
		wrapper.MapSet(longName, inner)
		return wrapper, nil
	}
	return convertYAMLUntagged(node, path)
}

func convertYAMLUntagged(node *yaml.Node, path Path) (Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return convertYAMLScalar(node, path)
	case yaml.SequenceNode:
		items := make([]Value, len(node.Content))
		for i, c := range node.Content {
			v, err := convertYAMLNode(c, path.Index(i))
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return NewList(items, path), nil
	case yaml.MappingNode:
		m := NewMap(path)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode || keyNode.Tag != "!!str" {
				return Value{}, guarderrors.New(guarderrors.ErrParse,
					"YAML mapping keys must be strings, got "+keyNode.Tag+" at "+path.Key(keyNode.Value).String())
			}
			v, err := convertYAMLNode(valNode, path.Key(keyNode.Value))
			if err != nil {
				return Value{}, err
			}
			m.MapSet(keyNode.Value, v)
		}
		return m, nil
	default:
		return NewNull(path), nil
	}
}

func convertYAMLScalar(node *yaml.Node, path Path) (Value, error) {
	switch node.Tag {
	case "!!null":
		return NewNull(path), nil
	case "!!bool":
		b, err := parseYAMLBool(node.Value)
		if err != nil {
			return Value{}, guarderrors.Wrap(guarderrors.ErrParse, "invalid boolean literal", err)
		}
		return NewBool(b, path), nil
	case "!!int":
		return parseYAMLInt(node.Value, path)
	case "!!float":
		f, err := strconv.ParseFloat(strings.ReplaceAll(node.Value, "_", ""), 64)
		if err != nil {
			return Value{}, guarderrors.Wrap(guarderrors.ErrParse, "invalid float literal", err)
		}
		return NewFloat(f, path), nil
	default:
		// "!!str", "!!timestamp", "!!binary", and any unrecognized tag
		// are transparent: keep the raw scalar text as a string.
		return NewString(node.Value, path), nil
	}
}

func parseYAMLBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "y":
		return true, nil
	case "false", "no", "off", "n":
		return false, nil
	default:
		return strconv.ParseBool(s)
	}
}

// parseYAMLInt keeps the value integral when it fits in an int64, and
// otherwise accepts a uint64 literal with a documented precision loss
// by widening to float64.
func parseYAMLInt(raw string, path Path) (Value, error) {
	cleaned := strings.ReplaceAll(raw, "_", "")
	if i, err := strconv.ParseInt(cleaned, 0, 64); err == nil {
		return NewInt(i, path), nil
	}
	if u, err := strconv.ParseUint(cleaned, 0, 64); err == nil {
		return NewFloat(float64(u), path), nil
	}
	return Value{}, guarderrors.New(guarderrors.ErrParse, "invalid integer literal "+raw)
}
