// Command acedemo runs the log pipeline and the component module loader end
// to end: concurrent producers log through a registered host logger, then
// the requested components are resolved through the loader.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/abyssdigger/acebridge/acelog"
	"github.com/abyssdigger/acebridge/acelog/sinks"
	"github.com/abyssdigger/acebridge/dynmod"
	"github.com/abyssdigger/acebridge/metrics"
)

const (
	SINK_ZAP    = "zap"
	SINK_LOGRUS = "logrus"
	SINK_WRITER = "writer"

	POLICY_DROP  = "drop"
	POLICY_DRAIN = "drain"
)

type demoConfig struct {
	producers   int
	messages    int
	level       string
	sink        string
	policy      string
	components  []string
	native      bool
	libdir      string
	metricsAddr string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	cfg := demoConfig{}
	cmd := &cobra.Command{
		Use:          "acedemo",
		Short:        "Exercise the async host log pipeline and the component module loader",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), out, cfg)
		},
	}
	cmd.SetOut(out)
	f := cmd.Flags()
	f.IntVarP(&cfg.producers, "producers", "p", 3, "number of concurrent log producers")
	f.IntVarP(&cfg.messages, "messages", "n", 5, "messages logged by each producer")
	f.StringVarP(&cfg.level, "level", "l", "DEBUG", "minimal level delivered to the host logger")
	f.StringVar(&cfg.sink, "sink", SINK_ZAP, "host and fallback sinks, comma separated: zap, logrus, writer")
	f.StringVar(&cfg.policy, "policy", POLICY_DROP, "queued messages on shutdown: drop or drain")
	f.StringSliceVarP(&cfg.components, "components", "c", []string{"Checkbox", "Gauge", "QRCode", "Button"}, "components to resolve")
	f.BoolVar(&cfg.native, "native", false, "load component libraries with the dynamic linker")
	f.StringVar(&cfg.libdir, "libdir", "", "directory of component libraries")
	f.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address until interrupted")
	return cmd
}

func run(ctx context.Context, out io.Writer, cfg demoConfig) error {
	if cfg.producers < 1 || cfg.messages < 0 {
		return fmt.Errorf("invalid producers=%d messages=%d", cfg.producers, cfg.messages)
	}
	level, err := parseLevel(cfg.level)
	if err != nil {
		return err
	}
	policy, err := parsePolicy(cfg.policy)
	if err != nil {
		return err
	}
	sink, flush, err := newSink(cfg.sink, out)
	if err != nil {
		return err
	}
	defer flush()

	collector := metrics.NewCollector("")
	pipeline := acelog.New(
		acelog.WithMinLevel(level),
		acelog.WithFallback(sink),
		acelog.WithShutdownPolicy(policy),
		acelog.WithMetrics(collector.Log),
	)
	if err := pipeline.RegisterLogger(hostFor(sink)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.producers {
		g.Go(func() error {
			client := pipeline.NewClient(acelog.DOMAIN_JS_APP)
			for j := range cfg.messages {
				if err := gctx.Err(); err != nil {
					return err
				}
				client.Warnf("hello %d from producer %d", j, i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		pipeline.UnregisterLogger()
		return err
	}

	opener, err := openerFor(cfg)
	if err != nil {
		pipeline.UnregisterLogger()
		return err
	}
	loader := dynmod.NewLoader(
		dynmod.WithOpener(opener),
		dynmod.WithLibraryDir(cfg.libdir),
		dynmod.WithDiagnostics(acelog.SinkFunc(func(level acelog.Level, tag, msg string) {
			pipeline.LogText(tag, level, msg)
		})),
		dynmod.WithMetrics(collector.Module),
	)
	framework := pipeline.NewClient(acelog.DOMAIN_FRAMEWORK)
	for _, name := range cfg.components {
		if m := loader.GetDynamicModule(name); m != nil {
			framework.Infof("component %s ready (%T)", m.Component(), m)
		} else {
			framework.Warnf("component %s unavailable", name)
		}
	}
	framework.Infof("loaded modules: %s", strings.Join(loader.Loaded(), ","))
	closeErr := loader.Close()
	pipeline.UnregisterLogger()

	if cfg.metricsAddr != "" {
		if err := serveMetrics(ctx, cfg.metricsAddr, collector, sink); err != nil {
			return errors.Join(closeErr, err)
		}
	}
	return closeErr
}

// hostFor exposes a sink as a host logger with all five levels.
func hostFor(sink acelog.Sink) *acelog.HostFuncs {
	deliver := func(level acelog.Level) acelog.DeliverFunc {
		return func(tag, msg string) error {
			sink.Write(level, tag, msg)
			return nil
		}
	}
	return &acelog.HostFuncs{
		DebugFn: deliver(acelog.LVL_DEBUG),
		InfoFn:  deliver(acelog.LVL_INFO),
		WarnFn:  deliver(acelog.LVL_WARN),
		ErrorFn: deliver(acelog.LVL_ERROR),
		FatalFn: deliver(acelog.LVL_FATAL),
	}
}

// newSink builds the named sinks (comma separated) on out, fanning out to
// all of them when more than one is named. flush must be called before exit.
func newSink(names string, out io.Writer) (acelog.Sink, func(), error) {
	var built []acelog.Sink
	var flushes []func()
	for _, name := range strings.Split(names, ",") {
		sink, flush, err := newNamedSink(strings.TrimSpace(name), out)
		if err != nil {
			return nil, nil, err
		}
		built = append(built, sink)
		flushes = append(flushes, flush)
	}
	flushAll := func() {
		for _, flush := range flushes {
			flush()
		}
	}
	if len(built) == 1 {
		return built[0], flushAll, nil
	}
	return acelog.NewMultiSink(built...), flushAll, nil
}

func newNamedSink(name string, out io.Writer) (sink acelog.Sink, flush func(), err error) {
	switch name {
	case SINK_ZAP:
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(out),
			zapcore.DebugLevel,
		)
		zs := sinks.NewZapSink(zap.New(core))
		return zs, func() { _ = zs.Sync() }, nil
	case SINK_LOGRUS:
		logger := logrus.New()
		logger.SetOutput(out)
		logger.SetLevel(logrus.DebugLevel)
		return sinks.NewLogrusSink(logger), func() {}, nil
	case SINK_WRITER:
		ws := acelog.NewWriterSink(out).
			SetLevelPrefix(acelog.LevelFullNames, " ").
			SetTimeFormat(time.TimeOnly, " ")
		return ws, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown sink %q", name)
}

func parseLevel(s string) (acelog.Level, error) {
	for level := acelog.LVL_DEBUG; level <= acelog.LVL_FATAL; level++ {
		if strings.EqualFold(s, level.String()) {
			return level, nil
		}
	}
	return acelog.LVL_UNKNOWN, fmt.Errorf("unknown level %q", s)
}

func parsePolicy(s string) (acelog.ShutdownPolicy, error) {
	switch s {
	case POLICY_DROP:
		return acelog.DROP_PENDING, nil
	case POLICY_DRAIN:
		return acelog.DRAIN_PENDING, nil
	}
	return acelog.DROP_PENDING, fmt.Errorf("unknown shutdown policy %q", s)
}

// openerFor returns the dynamic linker opener or an in-process opener with a
// few demo components bundled.
func openerFor(cfg demoConfig) (dynmod.Opener, error) {
	if cfg.native {
		return nativeOpener()
	}
	component := func(name string) dynmod.Factory {
		return func() dynmod.Module { return &dynmod.ComponentModule{Name: name} }
	}
	return dynmod.NewStaticOpener().
		Register(dynmod.LibraryName("checkbox"), map[string]dynmod.Factory{
			"Checkbox":      component("Checkbox"),
			"CheckboxGroup": component("CheckboxGroup"),
		}).
		Register(dynmod.LibraryName("gauge"), map[string]dynmod.Factory{"Gauge": component("Gauge")}).
		Register(dynmod.LibraryName("qrcode"), map[string]dynmod.Factory{"QRCode": component("QRCode")}), nil
}

// serveMetrics serves the collector registry until ctx is done.
func serveMetrics(ctx context.Context, addr string, collector *metrics.Collector, sink acelog.Sink) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sink.Write(acelog.LVL_INFO, "acedemo", "serving metrics on "+addr+"/metrics")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
