package model

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if alias := sf.Tag.Get("alias"); alias != "" {
			return alias
		}
		name, _ := parseJSONTag(sf.Tag.Get("json"))
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator exposes the shared validator so callers can register
// custom tags before routes are served.
func Validator() *validator.Validate {
	return validate
}

// check runs validate tags on a freshly decoded model.
func check(ptr reflect.Value, m *Model) errorList {
	if m.IsRoot() {
		return checkContainer(ptr.Elem().FieldByIndex(m.rootIndex), nil)
	}
	return checkStruct(ptr.Interface(), nil)
}

func checkContainer(v reflect.Value, loc []any) errorList {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	var out errorList
	switch v.Kind() {
	case reflect.Struct:
		if isScalar(v.Type()) {
			return nil
		}
		return checkStruct(v.Interface(), loc)
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			out = append(out, checkContainer(v.Index(i), append(loc[:len(loc):len(loc)], i))...)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			out = append(out, checkContainer(iter.Value(), append(loc[:len(loc):len(loc)], iter.Key().Interface()))...)
		}
	}
	return out
}

func checkStruct(v any, loc []any) errorList {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errorList{{Type: "value_error", Loc: loc, Msg: err.Error()}}
	}

	out := make(errorList, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		typ, msg, ctx := describe(fe)
		out = append(out, ErrorDetail{
			Type:  typ,
			Loc:   append(append([]any{}, loc...), namespaceLoc(fe.Namespace())...),
			Msg:   msg,
			Input: fe.Value(),
			Ctx:   ctx,
		})
	}
	return out
}

// namespaceLoc turns "Book.authors[0].name" into ["authors", 0, "name"].
func namespaceLoc(ns string) []any {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}

	var loc []any
	for _, p := range parts {
		for p != "" {
			open := strings.IndexByte(p, '[')
			if open < 0 {
				loc = append(loc, p)
				break
			}
			if open > 0 {
				loc = append(loc, p[:open])
			}
			end := strings.IndexByte(p[open:], ']')
			if end < 0 {
				loc = append(loc, p[open:])
				break
			}
			key := p[open+1 : open+end]
			if n, err := strconv.Atoi(key); err == nil {
				loc = append(loc, n)
			} else {
				loc = append(loc, key)
			}
			p = p[open+end+1:]
		}
	}
	return loc
}

// describe maps a validator failure to an error type, message and context.
func describe(fe validator.FieldError) (string, string, map[string]any) {
	param := fe.Param()
	var limit any = param
	if f, err := strconv.ParseFloat(param, 64); err == nil {
		limit = f
		if n, err := strconv.Atoi(param); err == nil {
			limit = n
		}
	}

	kind := fe.Kind()
	isString := kind == reflect.String
	isList := kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map

	switch fe.Tag() {
	case "required":
		return "missing", "Field required", nil
	case "gte", "min":
		switch {
		case isString:
			return "string_too_short", fmt.Sprintf("String should have at least %s characters", param), map[string]any{"min_length": limit}
		case isList:
			return "too_short", fmt.Sprintf("List should have at least %s items", param), map[string]any{"min_length": limit}
		}
		return "greater_than_equal", "Input should be greater than or equal to " + param, map[string]any{"ge": limit}
	case "lte", "max":
		switch {
		case isString:
			return "string_too_long", fmt.Sprintf("String should have at most %s characters", param), map[string]any{"max_length": limit}
		case isList:
			return "too_long", fmt.Sprintf("List should have at most %s items", param), map[string]any{"max_length": limit}
		}
		return "less_than_equal", "Input should be less than or equal to " + param, map[string]any{"le": limit}
	case "gt":
		return "greater_than", "Input should be greater than " + param, map[string]any{"gt": limit}
	case "lt":
		return "less_than", "Input should be less than " + param, map[string]any{"lt": limit}
	case "len":
		return "length", "Value should have length " + param, map[string]any{"length": limit}
	case "oneof":
		return "enum", "Input should be one of: " + param, map[string]any{"expected": param}
	case "email":
		return "value_error", "value is not a valid email address", nil
	case "url", "uri", "http_url":
		return "url_parsing", "Input should be a valid URL", nil
	case "uuid", "uuid4", "uuid_rfc4122":
		return "uuid_parsing", "Input should be a valid UUID", nil
	case "unique":
		return "unique", "List items should be unique", nil
	}

	return fe.Tag(), fmt.Sprintf("Field validation failed on the '%s' tag", fe.Tag()), nil
}
