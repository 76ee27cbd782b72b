// Package controller holds the route actions exposed through the
// "controller" capability map.
package controller

import (
	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/web"
)

// Catalog is the table of controllers a descriptor directory may enable.
func Catalog() *capability.Registry[web.Controller] {
	r := capability.NewRegistry[web.Controller](capability.LabelController)
	r.Register("home", newHomeFromDescriptor)
	return r
}
