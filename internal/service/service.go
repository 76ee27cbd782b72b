// Package service holds the domain services exposed to controllers through
// the "service" capability map.
package service

import (
	"context"

	"github.com/keithlinneman/ikcamp-web/internal/capability"
)

// Result statuses.
const (
	StatusOK     = "0"
	StatusFailed = "-1"
)

// Result is a domain outcome. Failures are values, not errors; errors are
// reserved for the service being unable to answer at all.
type Result struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

func (r Result) Failed() bool { return r.Status == StatusFailed }

// Registrar registers (signs in) a user by name and password.
type Registrar interface {
	Register(ctx context.Context, name, password string) (Result, error)
}

// Catalog is the table of services a descriptor directory may enable.
func Catalog() *capability.Registry[any] {
	r := capability.NewRegistry[any](capability.LabelService)
	r.Register("home", newHomeFromDescriptor)
	return r
}
