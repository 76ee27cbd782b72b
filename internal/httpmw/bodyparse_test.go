package httpmw

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

func parseBody(t *testing.T, r *http.Request) (*web.Context, error) {
	t.Helper()
	c := web.NewContext(httptest.NewRecorder(), r)
	err := web.Compose(ok, BodyParser(BodyParserOptions{}))(c)
	return c, err
}

func TestBodyParser_URLEncoded(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader("name=ikcamp&password=123456&tag=a&tag=b"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c, err := parseBody(t, r)
	if err != nil {
		t.Fatal(err)
	}
	if c.FormValue("name") != "ikcamp" || c.FormValue("password") != "123456" {
		t.Fatalf("Form = %v", c.Form)
	}
	if tags, _ := c.Form["tag"].([]string); len(tags) != 2 {
		t.Fatalf("repeated field = %v", c.Form["tag"])
	}
}

func TestBodyParser_JSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ikcamp","age":3}`))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	c, err := parseBody(t, r)
	if err != nil {
		t.Fatal(err)
	}
	if c.FormValue("name") != "ikcamp" || c.FormValue("age") != "3" {
		t.Fatalf("Form = %v", c.Form)
	}
}

func TestBodyParser_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "ikcamp")
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	c, err := parseBody(t, r)
	if err != nil {
		t.Fatal(err)
	}
	if c.FormValue("name") != "ikcamp" {
		t.Fatalf("Form = %v", c.Form)
	}
}

func TestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		body string
		want int
		wrap bool
	}{
		{"malformed json", "application/json", `{"name":`, 400, false},
		{"json array", "application/json", `[1,2]`, 400, false},
		{"bad content type", "text/plain; ===", "x", 415, false},
		{"too large", "application/json", `{"name":"` + strings.Repeat("x", 64) + `"}`, 413, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.ct)
			rec := httptest.NewRecorder()
			if tt.wrap {
				r.Body = http.MaxBytesReader(rec, r.Body, 16)
			}
			c := web.NewContext(rec, r)
			err := web.Compose(ok, BodyParser(BodyParserOptions{}))(c)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := xerrors.StatusOf(err); got != tt.want {
				t.Fatalf("status = %d, want %d (%v)", got, tt.want, err)
			}
		})
	}
}

func TestBodyParser_Skips(t *testing.T) {
	tests := []struct {
		name   string
		method string
		ct     string
	}{
		{"get", http.MethodGet, "application/json"},
		{"no content type", http.MethodPost, ""},
		{"unknown type", http.MethodPost, "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/", strings.NewReader(`{"a":1}`))
			if tt.ct != "" {
				r.Header.Set("Content-Type", tt.ct)
			}
			c, err := parseBody(t, r)
			if err != nil {
				t.Fatal(err)
			}
			if c.Form != nil {
				t.Fatalf("Form = %v, want nil", c.Form)
			}
		})
	}
}

func TestBodyParser_EmptyJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	r.Header.Set("Content-Type", "application/json")
	c, err := parseBody(t, r)
	if err != nil {
		t.Fatal(err)
	}
	if c.Form == nil || len(c.Form) != 0 {
		t.Fatalf("Form = %v, want empty map", c.Form)
	}
}
