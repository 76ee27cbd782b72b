package httpserver

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/controller"
	"github.com/keithlinneman/ikcamp-web/internal/errorpage"
	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/ratelimit"
	"github.com/keithlinneman/ikcamp-web/internal/route"
	"github.com/keithlinneman/ikcamp-web/internal/service"
	"github.com/keithlinneman/ikcamp-web/internal/view"
	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/webassets"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// testRoutes extends the default routes with probes used only here.
func testRoutes() []route.Route {
	return append(route.Default(),
		route.Route{Method: http.MethodGet, Pattern: "/boom", Controller: "probe", Action: "fail"},
		route.Route{Method: http.MethodGet, Pattern: "/panic", Controller: "probe", Action: "panic"},
		route.Route{Method: http.MethodGet, Pattern: "/teapot", Controller: "probe", Action: "teapot"},
		route.Route{Method: http.MethodGet, Pattern: "/maps", Controller: "probe", Action: "maps"},
		route.Route{Method: http.MethodPost, Pattern: "/echo", Controller: "probe", Action: "echo"},
	)
}

var probeController = web.Actions{
	"fail": func(c *web.Context) error { return xerrors.New("kaput") },
	"panic": func(c *web.Context) error {
		panic("controller exploded")
	},
	"teapot": func(c *web.Context) error {
		return xerrors.WithStatusText(errors.New("short and stout"), "418")
	},
	"maps": func(c *web.Context) error {
		_, svc := c.Services.Get("home")
		_, ctrl := c.Controllers.Get("home")
		c.Body = map[string]bool{"service": svc, "controller": ctrl}
		return nil
	},
	"echo": func(c *web.Context) error {
		c.Body = c.Form
		return nil
	},
}

// fullStack wires the embedded assets the way main does.
func fullStack(t *testing.T, mutate func(*Options)) http.Handler {
	t.Helper()

	services, err := service.Catalog().Load(webassets.AppFS(), webassets.ServicesDir)
	if err != nil {
		t.Fatalf("load services: %v", err)
	}
	loaded, err := controller.Catalog().Load(webassets.AppFS(), webassets.ControllersDir)
	if err != nil {
		t.Fatalf("load controllers: %v", err)
	}
	home, _ := loaded.Get("home")
	controllers := capability.NewMap(capability.LabelController, map[string]web.Controller{
		"home":  home,
		"probe": probeController,
	})

	d := route.New(testRoutes())
	if err := d.Validate(controllers); err != nil {
		t.Fatalf("routes: %v", err)
	}

	opts := &Options{
		Logger:      log.Nop(),
		Services:    services,
		Controllers: controllers,
		Views:       view.New(webassets.ViewsFS()),
		StaticFS:    webassets.StaticFS(),
		ErrorPages: errorpage.New(errorpage.Options{
			Env:     "development",
			Default: webassets.ErrorPageFS(),
		}),
		Dispatcher:   d,
		MaxBodyBytes: 1 << 20,
		UseRecoverMW: true,
	}
	if mutate != nil {
		mutate(opts)
	}
	return NewHandler(opts)
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func wantPage(t *testing.T, rec *httptest.ResponseRecorder, status int, contains ...string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body=%q", rec.Code, status, rec.Body.String())
	}
	for _, s := range contains {
		if !strings.Contains(rec.Body.String(), s) {
			t.Fatalf("body missing %q: %q", s, rec.Body.String())
		}
	}
}

func TestIntegration_Landing(t *testing.T) {
	h := fullStack(t, nil)
	rec := do(t, h, http.MethodGet, "/", "", "")

	wantPage(t, rec, http.StatusOK, "欢迎进入iKcamp")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}
}

func TestIntegration_LoginForm(t *testing.T) {
	h := fullStack(t, nil)
	wantPage(t, do(t, h, http.MethodGet, "/user", "", ""), http.StatusOK, "请登录", `action="/user/register"`)
}

func TestIntegration_RegisterSuccess(t *testing.T) {
	h := fullStack(t, nil)
	form := url.Values{"name": {"ikcamp"}, "password": {"123456"}}.Encode()
	rec := do(t, h, http.MethodPost, "/user/register", "application/x-www-form-urlencoded", form)
	wantPage(t, rec, http.StatusOK, "个人中心", "欢迎进入个人中心")
}

func TestIntegration_RegisterSuccessJSON(t *testing.T) {
	h := fullStack(t, nil)
	rec := do(t, h, http.MethodPost, "/user/register", "application/json", `{"name":"ikcamp","password":"123456"}`)
	wantPage(t, rec, http.StatusOK, "个人中心")
}

func TestIntegration_RegisterFailureRendersLogin(t *testing.T) {
	h := fullStack(t, nil)
	form := url.Values{"name": {"ikcamp"}, "password": {"wrong"}}.Encode()
	rec := do(t, h, http.MethodPost, "/user/register", "application/x-www-form-urlencoded", form)

	// a failed result is a normal page, not an error page
	wantPage(t, rec, http.StatusOK, "登录失败", "请输入正确的账号信息", `action="/user/register"`)
}

func TestIntegration_StatuslessErrorIs500(t *testing.T) {
	h := fullStack(t, nil)
	rec := do(t, h, http.MethodGet, "/boom", "", "")
	wantPage(t, rec, http.StatusInternalServerError, "<h1>500</h1>", "kaput")
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("error page Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}

func TestIntegration_ProductionHidesStack(t *testing.T) {
	dev := fullStack(t, nil)
	prod := fullStack(t, func(o *Options) {
		o.ErrorPages = errorpage.New(errorpage.Options{Env: "production", Default: webassets.ErrorPageFS()})
	})

	if body := do(t, dev, http.MethodGet, "/boom", "", "").Body.String(); !strings.Contains(body, "<pre>") {
		t.Fatalf("development error page should include the stack: %q", body)
	}
	if body := do(t, prod, http.MethodGet, "/boom", "", "").Body.String(); strings.Contains(body, "<pre>") {
		t.Fatalf("production error page leaked the stack: %q", body)
	}
}

func TestIntegration_StatusFromError(t *testing.T) {
	h := fullStack(t, nil)
	wantPage(t, do(t, h, http.MethodGet, "/teapot", "", ""), http.StatusTeapot, "<h1>418</h1>", "short and stout")
}

func TestIntegration_PanicBecomes500Page(t *testing.T) {
	h := fullStack(t, nil)
	wantPage(t, do(t, h, http.MethodGet, "/panic", "", ""), http.StatusInternalServerError, "<h1>500</h1>")
}

func TestIntegration_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := fullStack(t, nil)
	wantPage(t, do(t, h, http.MethodGet, "/no/such/page", "", ""), http.StatusNotFound, "<h1>404</h1>")
	wantPage(t, do(t, h, http.MethodDelete, "/", "", ""), http.StatusMethodNotAllowed, "<h1>405</h1>")
}

func TestIntegration_BothMapsInjected(t *testing.T) {
	h := fullStack(t, nil)
	rec := do(t, h, http.MethodGet, "/maps", "", "")
	wantPage(t, rec, http.StatusOK, `"controller":true`, `"service":true`)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
}

func TestIntegration_JSONRoundTrip(t *testing.T) {
	h := fullStack(t, nil)
	rec := do(t, h, http.MethodPost, "/echo", "application/json", `{"name":"x","tags":["a","b"],"n":3}`)
	wantPage(t, rec, http.StatusOK, `"name":"x"`, `"tags":["a","b"]`, `"n":3`)
}

func TestIntegration_MalformedJSONIs400(t *testing.T) {
	h := fullStack(t, nil)
	wantPage(t, do(t, h, http.MethodPost, "/echo", "application/json", `{"name":`), http.StatusBadRequest, "<h1>400</h1>")
}

func TestIntegration_BodyTooLarge(t *testing.T) {
	h := fullStack(t, func(o *Options) { o.MaxBodyBytes = 16 })
	form := url.Values{"name": {strings.Repeat("x", 64)}}.Encode()
	wantPage(t, do(t, h, http.MethodPost, "/echo", "application/x-www-form-urlencoded", form), http.StatusRequestEntityTooLarge)
}

func TestIntegration_StaticFiles(t *testing.T) {
	h := fullStack(t, nil)
	rec := do(t, h, http.MethodGet, "/css/main.css", "", "")
	wantPage(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("content type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=86400" {
		t.Fatalf("cache control = %q", cc)
	}

	wantPage(t, do(t, h, http.MethodGet, "/robots.txt", "", ""), http.StatusOK, "User-agent")
	wantPage(t, do(t, h, http.MethodGet, "/css/../../embed.go", "", ""), http.StatusNotFound)
}

func TestIntegration_RenderFailureIsTerminal(t *testing.T) {
	renderFailures := 0
	h := fullStack(t, func(o *Options) {
		o.ErrorPages = errorpage.New(errorpage.Options{Default: webassets.ViewsFS(), DefaultFile: "missing.html"})
		o.OnRenderFailure = func() { renderFailures++ }
	})

	rec := do(t, h, http.MethodGet, "/nowhere", "", "")
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != web.RenderFailedBody {
		t.Fatalf("got %d %q, want 500 %q", rec.Code, rec.Body.String(), web.RenderFailedBody)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if renderFailures != 1 {
		t.Fatalf("OnRenderFailure calls = %d, want 1", renderFailures)
	}
}

func TestIntegration_RateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	limiter := ratelimit.New(ctx, ratelimit.WithRate(0.001, 1))

	h := fullStack(t, func(o *Options) { o.RateLimit = limiter.Stage() })

	wantPage(t, do(t, h, http.MethodGet, "/", "", ""), http.StatusOK)
	rec := do(t, h, http.MethodGet, "/", "", "")
	wantPage(t, rec, http.StatusTooManyRequests, "<h1>429</h1>")
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestIntegration_Hooks(t *testing.T) {
	type failure struct {
		status int
		route  string
	}
	var failures []failure
	var completed []string
	h := fullStack(t, func(o *Options) {
		o.OnFailure = func(c *web.Context, status int, err error) {
			failures = append(failures, failure{status, c.Route})
		}
		o.OnComplete = func(c *web.Context, elapsed time.Duration) {
			completed = append(completed, c.Route)
		}
	})

	do(t, h, http.MethodGet, "/", "", "")
	do(t, h, http.MethodGet, "/boom", "", "")
	do(t, h, http.MethodGet, "/css/main.css", "", "")

	if len(failures) != 1 || failures[0] != (failure{500, "/boom"}) {
		t.Fatalf("failures = %+v", failures)
	}
	want := []string{"/", "/boom", "static"}
	if strings.Join(completed, ",") != strings.Join(want, ",") {
		t.Fatalf("completed routes = %v, want %v", completed, want)
	}
}

func TestIntegration_Compress(t *testing.T) {
	h := fullStack(t, func(o *Options) { o.Compress = true })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q", rec.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	body, _ := io.ReadAll(zr)
	if !strings.Contains(string(body), "欢迎进入iKcamp") {
		t.Fatalf("decompressed body = %q", body)
	}
}
