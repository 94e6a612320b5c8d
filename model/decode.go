package model

import (
	"encoding"
	"encoding/json"
	"math"
	"mime/multipart"
	"reflect"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Decode builds a new instance of the model from raw, parsing string
// values (query strings, form values, headers) and accepting JSON or
// msgpack values only when the field type holds them exactly. It applies
// defaults and checks validate tags. On success it returns a pointer to
// the new value. Failures are reported as a single *ValidationError.
func (m *Model) Decode(raw any) (any, error) {
	ptr := reflect.New(m.Type)
	var errs errorList

	if m.IsRoot() {
		decodeValue(raw, ptr.Elem().FieldByIndex(m.rootIndex), nil, &errs)
	} else if obj, ok := raw.(map[string]any); ok {
		decodeStruct(m, obj, ptr.Elem(), nil, &errs)
	} else {
		errs.add("model_type", nil, "Input should be a valid dictionary or object to extract fields from", raw)
	}

	if len(errs) == 0 {
		errs = check(ptr, m)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Title: m.Type.Name(), Errors: errs}
	}

	return ptr.Interface(), nil
}

func decodeStruct(m *Model, obj map[string]any, v reflect.Value, loc []any, errs *errorList) {
	for _, f := range m.Fields {
		floc := append(loc[:len(loc):len(loc)], f.Key())
		fv := fieldByIndexAlloc(v, f.Index)

		val, ok := lookup(obj, f)
		if !ok {
			switch {
			case f.HasDefault:
				decodeValue(f.Default, fv, floc, errs)
			case f.Required:
				errs.add("missing", floc, "Field required", nil)
			}
			continue
		}

		decodeValue(val, fv, floc, errs)
	}
}

// lookup finds a field value by alias first, then by name.
func lookup(obj map[string]any, f Field) (any, bool) {
	if f.Alias != "" {
		if v, ok := obj[f.Alias]; ok {
			return v, true
		}
	}
	v, ok := obj[f.Name]
	return v, ok
}

func decodeValue(raw any, v reflect.Value, loc []any, errs *errorList) {
	t := v.Type()

	switch {
	case t == fileHeaderType:
		if fh, ok := raw.(*multipart.FileHeader); ok && fh != nil {
			v.Set(reflect.ValueOf(fh))
			return
		}
		errs.add("file_type", loc, "Input should be an uploaded file", nil)
		return

	case t.Kind() == reflect.Interface:
		if raw == nil {
			return
		}
		rv := reflect.ValueOf(raw)
		if !rv.Type().AssignableTo(t) {
			errs.add("value_error", loc, "Input does not implement "+t.String(), raw)
			return
		}
		v.Set(rv)
		return

	case t.Kind() == reflect.Pointer:
		if raw == nil {
			return
		}
		elem := reflect.New(t.Elem())
		before := len(*errs)
		decodeValue(raw, elem.Elem(), loc, errs)
		if len(*errs) == before {
			v.Set(elem)
		}
		return
	}

	if raw == nil {
		typ, msg := scalarError(t, false)
		errs.add(typ, loc, msg, nil)
		return
	}

	if isScalar(t) {
		decodeScalar(raw, v, loc, errs)
		return
	}

	switch t.Kind() {
	case reflect.Struct:
		sub, err := Inspect(t)
		if err != nil {
			errs.add("value_error", loc, err.Error(), raw)
			return
		}
		if sub.IsRoot() {
			decodeValue(raw, v.FieldByIndex(sub.rootIndex), loc, errs)
			return
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			errs.add("model_type", loc, "Input should be a valid dictionary or instance of "+t.Name(), raw)
			return
		}
		decodeStruct(sub, obj, v, loc, errs)

	case reflect.Slice, reflect.Array:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			errs.add("list_type", loc, "Input should be a valid list", raw)
			return
		}
		n := rv.Len()
		out := v
		if t.Kind() == reflect.Slice {
			out = reflect.MakeSlice(t, n, n)
		} else if n > t.Len() {
			errs.add("too_long", loc, "Tuple should have at most "+strconv.Itoa(t.Len())+" items", raw)
			return
		}
		for i := range n {
			decodeValue(rv.Index(i).Interface(), out.Index(i), append(loc[:len(loc):len(loc)], i), errs)
		}
		if t.Kind() == reflect.Slice {
			v.Set(out)
		}

	case reflect.Map:
		obj, ok := raw.(map[string]any)
		if !ok || t.Key().Kind() != reflect.String {
			errs.add("dict_type", loc, "Input should be a valid dictionary", raw)
			return
		}
		out := reflect.MakeMapWithSize(t, len(obj))
		for k, val := range obj {
			elem := reflect.New(t.Elem()).Elem()
			decodeValue(val, elem, append(loc[:len(loc):len(loc)], k), errs)
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), elem)
		}
		v.Set(out)

	default:
		decodeScalar(raw, v, loc, errs)
	}
}

// isScalar reports whether t is decoded as a single value rather than walked.
func isScalar(t reflect.Type) bool {
	if t == timeType || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return true
	}
	return false
}

func decodeScalar(raw any, v reflect.Value, loc []any, errs *errorList) {
	target := reflect.New(v.Type())

	var rejected *coercionError
	strict := mapstructure.DecodeHookFuncType(func(_, to reflect.Type, data any) (any, error) {
		out, ce := strictScalar(data, to)
		if ce != nil {
			rejected = ce
			return nil, ce
		}
		return out, nil
	})

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: target.Interface(),
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			strict,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err == nil {
		err = dec.Decode(raw)
	}
	if err != nil {
		if rejected != nil {
			errs.add(rejected.typ, loc, rejected.msg, raw)
			return
		}
		_, isString := raw.(string)
		typ, msg := scalarError(v.Type(), isString)
		errs.add(typ, loc, msg, raw)
		return
	}

	v.Set(target.Elem())
}

// coercionError is a scalar that cannot be represented in the field type
// without changing its value.
type coercionError struct {
	typ string
	msg string
}

func (e *coercionError) Error() string {
	return e.msg
}

func typeError(t reflect.Type, fromString bool) *coercionError {
	typ, msg := scalarError(t, fromString)
	return &coercionError{typ: typ, msg: msg}
}

var (
	errIntFromFloat = &coercionError{typ: "int_from_float", msg: "Input should be a valid integer, got a number with a fractional part"}
	errIntRange     = &coercionError{typ: "int_type", msg: "Input should be a valid integer, value out of range"}
)

// strictScalar converts data into a value of the kind of to. Strings are
// parsed with strconv; numbers are kept only when the target type holds
// them exactly. Time and text-unmarshaler targets are left to the
// following hooks.
func strictScalar(data any, to reflect.Type) (any, *coercionError) {
	if to == timeType || reflect.PointerTo(to).Implements(textUnmarshalerType) {
		return data, nil
	}

	switch to.Kind() {
	case reflect.String:
		if _, ok := data.(string); ok {
			return data, nil
		}
		return nil, typeError(to, false)
	case reflect.Slice:
		if s, ok := data.(string); ok && to.Elem().Kind() == reflect.Uint8 {
			return []byte(s), nil
		}
		return data, nil
	case reflect.Bool:
		return strictBool(data, to)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strictInt(data, to)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strictUint(data, to)
	case reflect.Float32, reflect.Float64:
		return strictFloat(data, to)
	}
	return data, nil
}

func strictBool(data any, to reflect.Type) (any, *coercionError) {
	switch d := data.(type) {
	case bool:
		return d, nil
	case string:
		b, err := strconv.ParseBool(d)
		if err != nil {
			return nil, typeError(to, true)
		}
		return b, nil
	}
	return nil, typeError(to, false)
}

func strictInt(data any, to reflect.Type) (any, *coercionError) {
	var n int64

	switch d := data.(type) {
	case string:
		v, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			return nil, typeError(to, true)
		}
		n = v
	case json.Number:
		v, err := strconv.ParseInt(d.String(), 10, 64)
		if err != nil {
			f, ferr := d.Float64()
			if ferr != nil {
				return nil, typeError(to, false)
			}
			return strictInt(f, to)
		}
		n = v
	default:
		rv := reflect.ValueOf(data)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if rv.Uint() > math.MaxInt64 {
				return nil, errIntRange
			}
			n = int64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f != math.Trunc(f) {
				return nil, errIntFromFloat
			}
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, errIntRange
			}
			n = int64(f)
		default:
			return nil, typeError(to, false)
		}
	}

	if to.OverflowInt(n) {
		return nil, errIntRange
	}
	return n, nil
}

func strictUint(data any, to reflect.Type) (any, *coercionError) {
	var u uint64

	switch d := data.(type) {
	case string:
		v, err := strconv.ParseUint(d, 10, 64)
		if err != nil {
			return nil, typeError(to, true)
		}
		u = v
	case json.Number:
		v, err := strconv.ParseUint(d.String(), 10, 64)
		if err != nil {
			f, ferr := d.Float64()
			if ferr != nil {
				return nil, typeError(to, false)
			}
			return strictUint(f, to)
		}
		u = v
	default:
		rv := reflect.ValueOf(data)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if rv.Int() < 0 {
				return nil, errIntRange
			}
			u = uint64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			u = rv.Uint()
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f != math.Trunc(f) {
				return nil, errIntFromFloat
			}
			if f < 0 || f >= math.MaxUint64 {
				return nil, errIntRange
			}
			u = uint64(f)
		default:
			return nil, typeError(to, false)
		}
	}

	if to.OverflowUint(u) {
		return nil, errIntRange
	}
	return u, nil
}

func strictFloat(data any, to reflect.Type) (any, *coercionError) {
	var f float64

	switch d := data.(type) {
	case string:
		v, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return nil, typeError(to, true)
		}
		f = v
	case json.Number:
		v, err := d.Float64()
		if err != nil {
			return nil, typeError(to, false)
		}
		f = v
	default:
		rv := reflect.ValueOf(data)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			f = float64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		default:
			return nil, typeError(to, false)
		}
	}

	if to.OverflowFloat(f) {
		return nil, typeError(to, false)
	}
	return f, nil
}

func scalarError(t reflect.Type, fromString bool) (string, string) {
	if t == timeType {
		return "datetime_parsing", "Input should be a valid datetime"
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if fromString {
			return "int_parsing", "Input should be a valid integer, unable to parse string as an integer"
		}
		return "int_type", "Input should be a valid integer"
	case reflect.Float32, reflect.Float64:
		if fromString {
			return "float_parsing", "Input should be a valid number, unable to parse string as a number"
		}
		return "float_type", "Input should be a valid number"
	case reflect.Bool:
		if fromString {
			return "bool_parsing", "Input should be a valid boolean, unable to interpret input"
		}
		return "bool_type", "Input should be a valid boolean"
	case reflect.String:
		return "string_type", "Input should be a valid string"
	case reflect.Slice, reflect.Array:
		return "list_type", "Input should be a valid list"
	case reflect.Map:
		return "dict_type", "Input should be a valid dictionary"
	case reflect.Struct:
		return "model_type", "Input should be a valid dictionary or instance of " + t.Name()
	}

	return "value_error", "Input should be a valid " + t.String()
}

// fieldByIndexAlloc walks index, allocating nil embedded struct pointers.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
