package controller

import (
	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/service"
	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// ViewSet names a view template and the title it is rendered with.
type ViewSet struct {
	View  string `yaml:"view"`
	Title string `yaml:"title"`
}

// HomeConfig is the body of the home controller descriptor.
type HomeConfig struct {
	// Service is the name of the service capability used by register.
	Service string  `yaml:"service"`
	Index   ViewSet `yaml:"index"`
	Login   ViewSet `yaml:"login"`
	Success ViewSet `yaml:"success"`
}

func DefaultHomeConfig() HomeConfig {
	return HomeConfig{
		Service: "home",
		Index:   ViewSet{View: "home/index.html", Title: "欢迎进入iKcamp"},
		Login:   ViewSet{View: "home/login.html", Title: "请登录"},
		Success: ViewSet{View: "home/success.html", Title: "个人中心"},
	}
}

// Home serves the landing page, the login form and registration.
type Home struct {
	cfg     HomeConfig
	actions web.Actions
}

func NewHome(cfg HomeConfig) (*Home, error) {
	for name, v := range map[string]ViewSet{"index": cfg.Index, "login": cfg.Login, "success": cfg.Success} {
		if v.View == "" {
			return nil, xerrors.Newf("home controller: %s view is required", name)
		}
	}
	if cfg.Service == "" {
		return nil, xerrors.New("home controller: service is required")
	}

	h := &Home{cfg: cfg}
	h.actions = web.Actions{
		"index":    h.Index,
		"login":    h.Login,
		"register": h.Register,
	}
	return h, nil
}

func newHomeFromDescriptor(d capability.Descriptor) (web.Controller, error) {
	cfg := DefaultHomeConfig()
	if err := d.Decode(&cfg); err != nil {
		return nil, err
	}
	h, err := NewHome(cfg)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Home) Action(name string) (web.Handler, bool) { return h.actions.Action(name) }

func (h *Home) Index(c *web.Context) error {
	c.State["title"] = h.cfg.Index.Title
	return c.Render(h.cfg.Index.View, nil)
}

func (h *Home) Login(c *web.Context) error {
	c.State["title"] = h.cfg.Login.Title
	return c.Render(h.cfg.Login.View, nil)
}

// Register checks the posted name and password with the configured
// service. A failed result re-renders the login form with the result data.
func (h *Home) Register(c *web.Context) error {
	reg, err := capability.Lookup[service.Registrar](c.Services, h.cfg.Service)
	if err != nil {
		return err
	}

	res, err := reg.Register(c.Context(), c.FormValue("name"), c.FormValue("password"))
	if err != nil {
		return err
	}

	if res.Failed() {
		return c.Render(h.cfg.Login.View, res.Data)
	}
	c.State["title"] = h.cfg.Success.Title
	return c.Render(h.cfg.Success.View, res.Data)
}
