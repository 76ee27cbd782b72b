package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// RenderFailedBody is the fixed response used when an error escapes every
// stage, most importantly when the error page itself failed to render.
const RenderFailedBody = "render failed"

// Pipeline adapts a composed Handler to net/http.
type Pipeline struct {
	handler Handler

	// Setup runs on every fresh Context before the handler, for fields that
	// are shared by all requests.
	Setup func(c *Context)

	// OnComplete is called after the response has been flushed.
	OnComplete func(c *Context, elapsed time.Duration)
}

func NewPipeline(h Handler) *Pipeline {
	return &Pipeline{handler: h}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	c := NewContext(w, r)
	if p.Setup != nil {
		p.Setup(c)
	}

	if err := p.handler(c); err != nil {
		c.Log().Error(c.Context(), err, "unhandled pipeline failure",
			"kind", xerrors.KindOf(err).String(),
		)
		c.fail()
	}
	if err := c.flush(); err != nil {
		c.Log().Warn(c.Context(), "response write failed", "err", err)
	}

	if p.OnComplete != nil {
		p.OnComplete(c, time.Since(start))
	}
}

func (c *Context) fail() {
	if c.Writer.Written() {
		return
	}
	h := c.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	c.Status = http.StatusInternalServerError
	c.Body = RenderFailedBody
}

// flush writes Status, headers and Body unless a stage already streamed
// the response.
func (c *Context) flush() error {
	if c.Writer.Written() {
		return nil
	}

	status := c.Status
	body := c.Body
	if body == nil && status == 0 {
		status = http.StatusNotFound
	}
	if status == 0 {
		status = http.StatusOK
	}
	if body == nil && status >= http.StatusBadRequest {
		body = http.StatusText(status)
	}
	c.Status = status

	h := c.Header()
	var r io.Reader
	switch b := body.(type) {
	case nil:
		c.Writer.WriteHeader(status)
		return nil
	case string:
		if h.Get("Content-Type") == "" {
			if strings.HasPrefix(strings.TrimSpace(b), "<") {
				h.Set("Content-Type", "text/html; charset=utf-8")
			} else {
				h.Set("Content-Type", "text/plain; charset=utf-8")
			}
		}
		h.Set("Content-Length", strconv.Itoa(len(b)))
		r = strings.NewReader(b)
	case []byte:
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "application/octet-stream")
		}
		h.Set("Content-Length", strconv.Itoa(len(b)))
		r = bytes.NewReader(b)
	case io.Reader:
		if cl, ok := b.(io.Closer); ok {
			defer cl.Close()
		}
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "application/octet-stream")
		}
		r = b
	default:
		// structured bodies are normally encoded by the normalize stage
		raw, err := json.Marshal(b)
		if err != nil {
			c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
			c.Status = http.StatusInternalServerError
			c.Writer.WriteHeader(c.Status)
			_, _ = io.WriteString(c.Writer, RenderFailedBody)
			return xerrors.Wrap(err, "encode body")
		}
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "application/json; charset=utf-8")
		}
		h.Set("Content-Length", strconv.Itoa(len(raw)))
		r = bytes.NewReader(raw)
	}

	c.Writer.WriteHeader(status)
	if _, err := io.Copy(c.Writer, r); err != nil {
		return xerrors.Wrap(err, "write body")
	}
	return nil
}
