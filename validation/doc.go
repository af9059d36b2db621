// Package validation runs go-playground/validator over decoded request
// bodies and converts failures into INVALID_INPUT errors.
//
//	type request struct {
//	    Nodes []Node `json:"nodes" validate:"required,min=1,dive"`
//	}
//	if err := validation.Validate(req); err != nil { ... }
package validation
