package httpmw

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

type BodyParserOptions struct {
	// MaxMemory bounds the in-memory part of multipart forms.
	// Default: 8 MiB.
	MaxMemory int64
}

// BodyParser decodes JSON, urlencoded and multipart request bodies into
// c.Form. Malformed bodies fail with 400, bodies over the MaxBody limit
// with 413. Other content types are left unread.
func BodyParser(opts BodyParserOptions) web.Stage {
	if opts.MaxMemory <= 0 {
		opts.MaxMemory = 8 << 20
	}
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		r := c.Request
		if r.Body == nil || r.Body == http.NoBody || !hasBody(r.Method) {
			return next(c)
		}

		ct := r.Header.Get("Content-Type")
		if ct == "" {
			return next(c)
		}
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return xerrors.WithStatus(xerrors.Wrap(err, "parse content type"), http.StatusUnsupportedMediaType)
		}

		var form map[string]any
		switch mt {
		case "application/json":
			form, err = parseJSON(r.Body)
		case "application/x-www-form-urlencoded":
			if err = r.ParseForm(); err == nil {
				form = flatten(r.PostForm)
			}
		case "multipart/form-data":
			if err = r.ParseMultipartForm(opts.MaxMemory); err == nil {
				form = flatten(r.MultipartForm.Value)
			}
		default:
			return next(c)
		}
		if err != nil {
			return bodyError(err)
		}

		c.Form = form
		return next(c)
	})
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func parseJSON(body io.Reader) (map[string]any, error) {
	var out map[string]any
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// flatten keeps single values as strings and repeated ones as []string.
func flatten(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		switch len(vals) {
		case 0:
		case 1:
			out[k] = vals[0]
		default:
			out[k] = append([]string(nil), vals...)
		}
	}
	return out
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return xerrors.WithStatus(xerrors.Wrapf(err, "request body over %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
	}
	return xerrors.WithStatus(xerrors.Wrap(err, "malformed request body"), http.StatusBadRequest)
}
