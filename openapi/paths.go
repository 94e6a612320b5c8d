package openapi

import (
	"regexp"
	"strings"
)

// converterTypes maps URL rule converters to parameter schema type and format.
var converterTypes = map[string][2]string{
	"string": {"string", ""},
	"path":   {"string", ""},
	"int":    {"integer", ""},
	"float":  {"number", ""},
	"uuid":   {"string", "uuid"},
}

// ruleVarRegexp matches <name>, <converter:name>, {name} and {name:pattern}.
var ruleVarRegexp = regexp.MustCompile(`<([^>]+)>|\{([^}]+)\}`)

// RuleVar is one variable segment of a URL rule.
type RuleVar struct {
	Name      string
	Converter string
	// Pattern is the raw regular expression of a {name:pattern} segment.
	Pattern string
}

// ParseRule splits a URL rule into its OpenAPI path template and the
// variables it declares, in order of appearance:
//
//	"/book/<int:bid>"      -> "/book/{bid}"
//	"/files/{name:[a-z]+}" -> "/files/{name}"
func ParseRule(rule string) (string, []RuleVar) {
	var vars []RuleVar

	tpl := ruleVarRegexp.ReplaceAllStringFunc(rule, func(match string) string {
		inner := match[1 : len(match)-1]
		var v RuleVar

		if match[0] == '<' {
			conv, name, ok := strings.Cut(inner, ":")
			if !ok {
				name, conv = conv, ""
			}
			if i := strings.IndexByte(conv, '('); i >= 0 {
				conv = conv[:i]
			}
			v = RuleVar{Name: name, Converter: conv}
		} else {
			name, pattern, _ := strings.Cut(inner, ":")
			v = RuleVar{Name: name, Pattern: pattern}
		}

		vars = append(vars, v)
		return "{" + v.Name + "}"
	})

	return tpl, vars
}

// PathParameter returns the default path parameter of a rule variable.
func (v RuleVar) PathParameter() *Parameter {
	schema := &Schema{Type: TypeString("string")}
	if info, ok := converterTypes[v.Converter]; ok {
		schema = &Schema{Type: TypeString(info[0]), Format: info[1]}
	}
	return &Parameter{Name: v.Name, In: InPath, Required: true, Schema: schema}
}

// JoinPath composes a prefix and a rule: the prefix loses its trailing
// slash, the rule its leading one, and a trailing slash on the rule is kept.
func JoinPath(prefix, rule string) string {
	switch {
	case prefix == "":
		return rule
	case rule == "":
		return prefix
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(rule, "/")
}
