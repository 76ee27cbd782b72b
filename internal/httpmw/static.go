package httpmw

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/keithlinneman/ikcamp-web/internal/pathutil"
	"github.com/keithlinneman/ikcamp-web/internal/web"
)

// RouteStatic is the route label of requests answered with a static file.
const RouteStatic = "static"

type StaticOptions struct {
	FS fs.FS

	// Cache policies applied by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=86400"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *StaticOptions) setDefaults() {
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

// Static serves GET and HEAD requests that name an existing file in
// opts.FS and passes everything else on. Served files are written
// straight to the client.
func Static(opts StaticOptions) web.Stage {
	opts.setDefaults()
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		r := c.Request
		if opts.FS == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			return next(c)
		}
		name, ok := staticFile(opts.FS, r.URL.Path)
		if !ok {
			return next(c)
		}

		c.Route = RouteStatic
		if cc := cacheControlFor(name, &opts); cc != "" {
			c.Header().Set("Cache-Control", cc)
		}
		http.ServeFileFS(c.Writer, r, opts.FS, name)
		c.Status = c.Writer.Status()
		return nil
	})
}

// staticFile maps a URL path to a regular file in fsys. Ambiguous paths
// and directories never match.
func staticFile(fsys fs.FS, urlPath string) (string, bool) {
	// ServeFileFS redirects */index.html; views own those paths
	name, ok := pathutil.FileName(urlPath)
	if !ok {
		return "", false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return name, true
}

func cacheControlFor(name string, o *StaticOptions) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return o.HTMLCacheControl
	case ".css", ".js", ".mjs",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf", ".eot",
		".map":
		return o.AssetCacheControl
	default:
		return o.OtherCacheControl
	}
}
