package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LdDl/traffiq-go/internal/config"
	"github.com/LdDl/traffiq-go/internal/metrics"
	"github.com/LdDl/traffiq-go/pipeline"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

var (
	configPath  = flag.String("config", "", "Path to YAML configuration file")
	envFile     = flag.String("env", "", "Path to .env file. Default is .env in working directory if it exists")
	inPath      = flag.String("in", "-", "Input JSON lines with detections, '-' for stdin")
	outPath     = flag.String("out", "-", "Output JSON lines with annotations, '-' for stdout")
	metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. ':9100'. Overrides metrics_addr")
)

func main() {
	flag.Parse()

	envFiles := []string{}
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	logger := newLogger(os.Stderr, zerolog.InfoLevel)
	cfg, err := config.Load(*configPath, envFiles...)
	if err != nil {
		logger.Fatal().Err(err).Msg("can't load configuration")
	}
	logger = logger.Level(cfg.Level())
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("processing failed")
	}
	logger.Info().Msg("done")
}

// newLogger creates human-readable logger writing to w
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	pipelineConfig, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := metrics.NewMetrics(reg, cfg.ProcTimeBuckets)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("can't shutdown metrics server")
			}
		}()
	}

	processor, err := pipeline.NewProcessor(pipelineConfig, pipeline.WithLogger(logger), pipeline.WithObserver(observer))
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(*inPath)
	if err != nil {
		return err
	}
	defer closeIn()
	out, closeOut, err := openOutput(*outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	logger.Info().
		Strs("vehicles", pipelineConfig.VehicleClasses).
		Str("unit", pipelineConfig.Speed.Unit).
		Float64("frame_rate", pipelineConfig.Speed.FrameRate).
		Float64("pixels_per_unit", pipelineConfig.Speed.PixelsPerUnit).
		Str("matching", pipelineConfig.Tracker.Algorithm.String()).
		Str("policy", string(pipelineConfig.Policy.Kind)).
		Msg("processing started")
	lines := newJSONLines(in, out, cfg.Speed.Decimals, logger)
	return processor.Run(ctx, lines, lines)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "can't open input '%s'", path)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "can't create output '%s'", path)
	}
	return f, func() { f.Close() }, nil
}
