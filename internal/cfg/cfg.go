package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/view"
)

// EnvPrefix is prepended to flag names to form environment variable names.
const EnvPrefix = "IKCAMP_"

type App struct {
	Env             string
	Engine          string
	ErrorPageFolder string

	LogJSON         bool
	LogLevel        string
	StacktraceLevel string
	LogCategory     string
	ProjectName     string
	LogDir          string
	ServerIP        string

	HTTPPort     int
	AdminPort    int
	TrustedHops  int
	MaxBodyBytes int64
	RateLimit    float64
	RateBurst    int

	// Empty directories fall back to the embedded assets.
	ViewsDir       string
	StaticDir      string
	ServicesDir    string
	ControllersDir string

	EnablePprof     bool
	EnableTracing   bool
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
	OTLPEndpoint    string
	TraceSample     float64

	EnvFile string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.Env, "env", "development", "runtime environment name, exposed to error pages")
	fs.StringVar(&c.Engine, "engine", "html", "template engine for views and error pages: html|text")
	fs.StringVar(&c.ErrorPageFolder, "error-page-folder", "", "directory with 400/404/500/other.html (default: built-in error.html)")

	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.LogCategory, "log-category", "web", "category attached to every log record")
	fs.StringVar(&c.ProjectName, "project-name", "ikcamp-web", "project name attached to every log record and used as the log file name")
	fs.StringVar(&c.LogDir, "log-dir", "", "also append logs to <log-dir>/<project-name>.log")
	fs.StringVar(&c.ServerIP, "server-ip", "", "server address attached to log records (default: first non-loopback IPv4)")

	fs.IntVar(&c.HTTPPort, "http-port", 3000, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.IntVar(&c.TrustedHops, "trusted-hops", 0, "number of reverse proxies whose X-Forwarded-For entries are trusted")
	fs.Int64Var(&c.MaxBodyBytes, "max-body-bytes", 1<<20, "maximum request body size, 0 disables the limit")
	fs.Float64Var(&c.RateLimit, "rate-limit", 10, "requests per second per client, 0 disables rate limiting")
	fs.IntVar(&c.RateBurst, "rate-burst", 30, "rate limit burst size per client")

	fs.StringVar(&c.ViewsDir, "views-dir", "", "views directory (default: built-in views)")
	fs.StringVar(&c.StaticDir, "static-dir", "", "static files directory (default: built-in static files)")
	fs.StringVar(&c.ServicesDir, "services-dir", "", "service descriptor directory (default: built-in descriptors)")
	fs.StringVar(&c.ControllersDir, "controllers-dir", "", "controller descriptor directory (default: built-in descriptors)")

	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.StringVar(&c.EnvFile, "env-file", ".env", "dotenv file loaded before reading environment variables")
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is only
// an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}

// IsSet reports whether flag name was passed explicitly on the command line.
func IsSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// DetectServerIP returns the first non-loopback IPv4 address of the host,
// or 127.0.0.1 when there is none.
func DetectServerIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if v4 := ipn.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "127.0.0.1"
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if strings.TrimSpace(c.Env) == "" {
		errs = append(errs, fmt.Errorf("ENV must not be empty"))
	}
	if _, err := view.ParseEngine(c.Engine); err != nil {
		errs = append(errs, fmt.Errorf("invalid ENGINE: %w", err))
	}

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}
	if c.TrustedHops < 0 {
		errs = append(errs, fmt.Errorf("invalid TRUSTED_HOPS %d (must be >= 0)", c.TrustedHops))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_BODY_BYTES %d (must be >= 0)", c.MaxBodyBytes))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid RATE_LIMIT %.3f (must be >= 0)", c.RateLimit))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("invalid RATE_BURST %d (must be >= 1 when rate limiting)", c.RateBurst))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	// Optional directories must exist when given
	for name, dir := range map[string]string{
		"ERROR_PAGE_FOLDER": c.ErrorPageFolder,
		"VIEWS_DIR":         c.ViewsDir,
		"STATIC_DIR":        c.StaticDir,
		"SERVICES_DIR":      c.ServicesDir,
		"CONTROLLERS_DIR":   c.ControllersDir,
	} {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("%s %q is not a readable directory", name, dir))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope (URL and scheme)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
