package httpmw

import (
	"encoding/json"
	"io"

	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Normalize encodes structured response bodies as JSON once the inner
// stages succeed. Strings, byte slices and readers are left alone.
func Normalize() web.Stage {
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		if err := next(c); err != nil {
			return err
		}

		switch c.Body.(type) {
		case nil, string, []byte, io.Reader:
			return nil
		}

		raw, err := json.Marshal(c.Body)
		if err != nil {
			return xerrors.Wrapf(err, "encode %T response", c.Body)
		}
		c.Body = raw
		if c.Header().Get("Content-Type") == "" {
			c.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		return nil
	})
}
