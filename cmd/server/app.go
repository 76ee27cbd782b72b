package main

import (
	"io/fs"
	"os"

	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/cfg"
	"github.com/keithlinneman/ikcamp-web/internal/controller"
	"github.com/keithlinneman/ikcamp-web/internal/errorpage"
	"github.com/keithlinneman/ikcamp-web/internal/route"
	"github.com/keithlinneman/ikcamp-web/internal/service"
	"github.com/keithlinneman/ikcamp-web/internal/view"
	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/webassets"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// app is everything the request pipeline needs, loaded once at startup.
type app struct {
	services    capability.Map[any]
	controllers capability.Map[web.Controller]
	dispatcher  *route.Dispatcher
	views       *view.Renderer
	static      fs.FS
	errorPages  *errorpage.Renderer
}

// dirOr returns dir as an os.DirFS rooted at "." or the embedded fallback.
func dirOr(dir string, embedded fs.FS, embeddedDir string) (fs.FS, string) {
	if dir != "" {
		return os.DirFS(dir), "."
	}
	return embedded, embeddedDir
}

// buildApp loads capabilities, templates and routes. Any failure here is
// fatal: the server must not start with a partial capability set.
func buildApp(conf cfg.App) (*app, error) {
	engine, err := view.ParseEngine(conf.Engine)
	if err != nil {
		return nil, err
	}

	svcFS, svcDir := dirOr(conf.ServicesDir, webassets.AppFS(), webassets.ServicesDir)
	services, err := service.Catalog().Load(svcFS, svcDir)
	if err != nil {
		return nil, xerrors.Wrap(err, "load services")
	}

	ctrlFS, ctrlDir := dirOr(conf.ControllersDir, webassets.AppFS(), webassets.ControllersDir)
	controllers, err := controller.Catalog().Load(ctrlFS, ctrlDir)
	if err != nil {
		return nil, xerrors.Wrap(err, "load controllers")
	}

	d := route.New(route.Default())
	if err := d.Validate(controllers); err != nil {
		return nil, err
	}

	viewsFS, _ := dirOr(conf.ViewsDir, webassets.ViewsFS(), "")
	staticFS, _ := dirOr(conf.StaticDir, webassets.StaticFS(), "")

	pageOpts := errorpage.Options{
		Env:     conf.Env,
		Engine:  engine,
		Default: webassets.ErrorPageFS(),
	}
	if conf.ErrorPageFolder != "" {
		pageOpts.Folder = os.DirFS(conf.ErrorPageFolder)
	}

	return &app{
		services:    services,
		controllers: controllers,
		dispatcher:  d,
		// templates are re-parsed on every render while developing
		views:      view.New(viewsFS, view.WithEngine(engine), view.WithCache(conf.Env != "development")),
		static:     staticFS,
		errorPages: errorpage.New(pageOpts),
	}, nil
}
