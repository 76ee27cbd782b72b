// Package webassets embeds the built-in views, static files, default error
// page and capability descriptors. Each can be replaced by an on-disk
// directory through configuration.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed views static errorpage app
var embedded embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// ViewsFS holds page templates (home/*.html) and partials/*.html.
func ViewsFS() fs.FS { return sub("views") }

// StaticFS holds files served as-is.
func StaticFS() fs.FS { return sub("static") }

// ErrorPageFS holds the default error.html.
func ErrorPageFS() fs.FS { return sub("errorpage") }

// AppFS holds the service/ and controller/ descriptor directories.
func AppFS() fs.FS { return sub("app") }

const (
	ServicesDir    = "service"
	ControllersDir = "controller"
)
