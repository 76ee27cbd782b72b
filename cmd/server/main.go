package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/keithlinneman/ikcamp-web/internal/cfg"
	"github.com/keithlinneman/ikcamp-web/internal/errorpage"
	"github.com/keithlinneman/ikcamp-web/internal/health"
	"github.com/keithlinneman/ikcamp-web/internal/httpmw"
	"github.com/keithlinneman/ikcamp-web/internal/httpserver"
	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/metrics"
	"github.com/keithlinneman/ikcamp-web/internal/opshttp"
	"github.com/keithlinneman/ikcamp-web/internal/otelx"
	"github.com/keithlinneman/ikcamp-web/internal/prof"
	"github.com/keithlinneman/ikcamp-web/internal/ratelimit"
	"github.com/keithlinneman/ikcamp-web/internal/service"
	v "github.com/keithlinneman/ikcamp-web/internal/version"
	"github.com/keithlinneman/ikcamp-web/internal/web"
)

func main() {
	// Get build/version info
	vi := v.Get()

	var conf cfg.App
	var showVersion, hashPassword bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.BoolVar(&hashPassword, "hash-password", false, "Read a password from stdin, print its bcrypt hash for a service descriptor and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		os.Exit(0)
	}

	if hashPassword {
		if err := printPasswordHash(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "hash-password:", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// .env first, so FillFromEnv sees its values; an explicit -env-file must exist
	if err := cfg.LoadEnvFile(envFilePath(conf.EnvFile), cfg.IsSet(flag.CommandLine, "env-file")); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Fill in config from environment variables with prefix IKCAMP_ and validate
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	if err := run(conf, vi); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// envFilePath lets IKCAMP_ENV_FILE pick the dotenv file when -env-file is
// not on the command line.
func envFilePath(flagValue string) string {
	if cfg.IsSet(flag.CommandLine, "env-file") {
		return flagValue
	}
	if p, ok := os.LookupEnv(cfg.EnvPrefix + "ENV_FILE"); ok {
		return p
	}
	return flagValue
}

func printPasswordHash(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	hash, err := service.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

func run(conf cfg.App, vi v.Info) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	stackLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		return err
	}
	serverIP := conf.ServerIP
	if serverIP == "" {
		serverIP = cfg.DetectServerIP()
	}
	lg, err := log.New(log.Options{
		App:             vi.AppName,
		Version:         vi.Version,
		Env:             conf.Env,
		Category:        conf.LogCategory,
		Project:         conf.ProjectName,
		ServerIP:        serverIP,
		Level:           lvl,
		StacktraceLevel: &stackLvl,
		JsonFormat:      conf.LogJSON,
		Dir:             conf.LogDir,
	})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"env", conf.Env,
		"engine", conf.Engine,
		"error_page_folder", conf.ErrorPageFolder,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"trusted_hops", conf.TrustedHops,
		"rate_limit", conf.RateLimit,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"trace_sample", conf.TraceSample,
	)

	// Setup metrics / admin listener
	m := metrics.New()
	m.SetBuildInfoFromVersion("server", vi)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       vi.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags:          prof.Tags("server", conf.Env, vi),
		OnActive:      m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Setup otel for tracing; the collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:     conf.EnableTracing,
		Endpoint:    conf.OTLPEndpoint,
		Insecure:    true,
		Sample:      conf.TraceSample,
		Service:     vi.AppName,
		Component:   "server",
		Version:     vi.Version,
		Environment: conf.Env,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}

	// capabilities, views and routes; failures abort startup
	a, err := buildApp(conf)
	if err != nil {
		L.Error(ctx, err, "failed to load application")
		return err
	}
	m.SetCapabilities("service", a.services.Len())
	m.SetCapabilities("controller", a.controllers.Len())
	L.Info(ctx, "capabilities loaded",
		"services", a.services.Names(),
		"controllers", a.controllers.Names(),
	)

	var rateStage web.Stage
	var limiter *ratelimit.Limiter
	if conf.RateLimit > 0 {
		limiter = ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimit, conf.RateBurst),
			ratelimit.WithOnDenied(func(ip string) {
				m.IncRateLimitDenied()
			}),
			// only log the first time an ip is denied each time it is cleaned from the bucket
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "rate limit triggered", "ip", ip)
			}),
		)
		rateStage = limiter.Stage()
	}

	// setup toggle for server shutdown
	var gate health.ShutdownGate
	readiness := health.All(
		gate.Probe(),
		health.Loaded("controllers", a.controllers.Len),
	)

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		Services:     a.services,
		Controllers:  a.controllers,
		Views:        a.views,
		StaticFS:     a.static,
		ErrorPages:   a.errorPages,
		Dispatcher:   a.dispatcher,
		RateLimit:    rateStage,
		MaxBodyBytes: conf.MaxBodyBytes,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		Compress:     true,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		OnFailure: func(c *web.Context, status int, err error) {
			m.IncFailure(string(errorpage.KeyFor(status)))
		},
		OnRenderFailure: m.IncRenderFailure,
		OnComplete: func(c *web.Context, elapsed time.Duration) {
			m.Observe(c, elapsed)
			if limiter != nil {
				m.SetRateLimitClients(limiter.Len())
			}
		},
		InflightMW: m.Inflight,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener port")
		return err
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener: metrics, health checks, pprof. Only reachable from
	// private networks, forwarded requests are rejected.
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		BuildInfo:    vi,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		return err
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()
	stop()

	L.Info(context.Background(), "shutdown signal received")
	gate.Set("draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "app http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
	return nil
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
