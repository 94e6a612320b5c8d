package model

import (
	"encoding/json"
	"reflect"
)

// RootModel is a model whose wire form is a single container value
// (a list or a map) instead of an object of named fields. Embed it to
// give the container its own schema name:
//
//	type BookList struct {
//	    model.RootModel[[]Book]
//	}
type RootModel[T any] struct {
	Root T
}

// MarshalJSON encodes the root value directly.
func (m RootModel[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Root)
}

// UnmarshalJSON decodes data straight into the root value.
func (m *RootModel[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Root)
}

func (RootModel[T]) rootType() reflect.Type {
	return reflect.TypeFor[T]()
}

type rooted interface {
	rootType() reflect.Type
}

// RootOf returns the container type of a custom-root model type, or nil.
func RootOf(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if r, ok := reflect.New(t).Interface().(rooted); ok {
		return r.rootType()
	}
	return nil
}
