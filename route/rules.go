package route

import (
	"regexp"
	"strings"

	"github.com/vitalvas/oasroute/openapi"
)

// converterPatterns are the chi regular expressions of the typed rule
// converters. "path" is served by the chi catch-all instead.
var converterPatterns = map[string]string{
	"int":   `[0-9]+`,
	"float": `[0-9]+(?:\.[0-9]+)?`,
	"uuid":  `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
}

var ruleSegmentRegexp = regexp.MustCompile(`<([^>]+)>`)

// chiPattern converts a URL rule into a chi route pattern:
//
//	"/book/<int:bid>"     -> "/book/{bid:[0-9]+}"
//	"/files/<path:name>"  -> "/files/*"
//	"/user/{id}"          -> "/user/{id}"
//
// The second result names the variable bound to the catch-all, if any.
func chiPattern(rule string) (string, string) {
	var wildcard string

	pattern := ruleSegmentRegexp.ReplaceAllStringFunc(rule, func(match string) string {
		conv, name, ok := strings.Cut(match[1:len(match)-1], ":")
		if !ok {
			return "{" + conv + "}"
		}
		if i := strings.IndexByte(conv, '('); i >= 0 {
			conv = conv[:i]
		}

		if conv == "path" {
			wildcard = name
			return "*"
		}
		if re, ok := converterPatterns[conv]; ok {
			return "{" + name + ":" + re + "}"
		}
		return "{" + name + "}"
	})

	if pattern == "" {
		pattern = "/"
	}
	return pattern, wildcard
}

// template returns the OpenAPI path template of a rule.
func template(rule string) string {
	tpl, _ := openapi.ParseRule(rule)
	if tpl == "" {
		return "/"
	}
	return tpl
}
