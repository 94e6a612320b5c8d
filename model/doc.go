// Package model turns Go structs into validated input models.
//
// A model is any struct. Fields are named by their json tag, may carry an
// alternative external name in an alias tag and a default in a default tag:
//
//	type BookQuery struct {
//	    Age    int      `json:"age" validate:"gte=2,lte=4"`
//	    Author string   `json:"author" validate:"min=2,max=4"`
//	    Tags   []string `json:"tags,omitempty"`
//	    Page   int      `json:"page" default:"1"`
//	}
//
// Decode accepts the loosely typed values produced by HTTP sources (query
// strings, form fields, parsed JSON) and coerces them into the field types.
// Constraints are checked with go-playground/validator; failures are
// returned as a *ValidationError listing every problem with its location.
//
// A field is required when it has no default and is neither a pointer nor
// tagged omitempty/omitzero. Custom-root models embed RootModel.
package model
