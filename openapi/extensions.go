package openapi

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// marshalExtended encodes v (a struct without custom marshalers) and
// appends the x- keys of ext to the resulting object.
func marshalExtended(v any, ext Extensions) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	keys := ext.keys()
	if len(keys) == 0 {
		return data, nil
	}

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	empty := bytes.Equal(bytes.TrimSpace(data), []byte("{}"))

	for _, k := range keys {
		val, err := json.Marshal(ext[k])
		if err != nil {
			return nil, err
		}
		name, _ := json.Marshal(k)
		if !empty {
			buf.WriteByte(',')
		}
		empty = false
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// keys returns the sorted extension keys carrying the x- prefix.
func (e Extensions) keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		if strings.HasPrefix(k, "x-") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
