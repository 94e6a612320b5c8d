package route

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// JSON encodes v as JSON and writes it with the given status code.
// If encoding fails, a 500 Internal Server Error is written instead.
func JSON(w http.ResponseWriter, code int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err := w.Write(buf.Bytes())
	return err
}

// MsgPack encodes v as MessagePack and writes it with the given status
// code. Struct fields are named after their json tags.
func MsgPack(w http.ResponseWriter, code int, v any) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/msgpack")
	w.WriteHeader(code)
	_, err := w.Write(buf.Bytes())
	return err
}

// Negotiate writes v as MessagePack when the request accepts it and as
// JSON otherwise.
func Negotiate(w http.ResponseWriter, r *http.Request, code int, v any) error {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/msgpack") || strings.Contains(accept, "application/x-msgpack") {
		return MsgPack(w, code, v)
	}
	return JSON(w, code, v)
}
