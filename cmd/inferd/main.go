package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/engine"
	"inferd/internal/httpapi"
	"inferd/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("inferd: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "OpenAI-style completion API over a local inference engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		corsOrigins string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configPath)
			if err != nil {
				return err
			}
			return runServe(cfg, splitCSV(corsOrigins))
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address, e.g. :8000 (defaults INFERD_ADDR or :8000)")
	f.String("model", "", "Model identifier or path (defaults MODEL_NAME)")
	f.Float64("gpu-memory-utilization", 0, "Fraction of GPU memory the engine may claim (defaults GPU_MEMORY_UTILIZATION or 0.85)")
	f.String("quantization", "", "Quantization method, e.g. awq or gptq (defaults QUANTIZATION)")
	f.String("api-key", "", "Bearer secret for /v1 routes; empty disables auth (defaults LLM_API_KEY)")
	f.Int("context-len", 0, "Engine context window in tokens (0 = runtime default)")
	f.Int("threads", 0, "Engine worker threads (0 = runtime default)")
	f.Int("max-queue-depth", 0, "Max requests waiting for the engine (0 = default 32)")
	f.Int("max-wait-seconds", 0, "Max seconds a request waits for an engine slot (0 = default 30)")
	f.StringVar(&configPath, "config", "", "Optional config file (.yaml, .json or .toml)")
	f.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; empty disables CORS")
	return cmd
}

// resolveConfig merges the three configuration layers: file, then
// environment, then explicitly-set flags. Environment and flags are read
// once here; the result is immutable for the process lifetime.
func resolveConfig(cmd *cobra.Command, configPath string) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)

	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr, _ = f.GetString("addr")
	}
	if f.Changed("model") {
		cfg.Model, _ = f.GetString("model")
	}
	if f.Changed("gpu-memory-utilization") {
		cfg.GPUMemoryUtilization, _ = f.GetFloat64("gpu-memory-utilization")
	}
	if f.Changed("quantization") {
		cfg.Quantization, _ = f.GetString("quantization")
	}
	if f.Changed("api-key") {
		cfg.APIKey, _ = f.GetString("api-key")
	}
	if f.Changed("context-len") {
		cfg.ContextLen, _ = f.GetInt("context-len")
	}
	if f.Changed("threads") {
		cfg.Threads, _ = f.GetInt("threads")
	}
	if f.Changed("max-queue-depth") {
		cfg.MaxQueueDepth, _ = f.GetInt("max-queue-depth")
	}
	if f.Changed("max-wait-seconds") {
		cfg.MaxWaitSeconds, _ = f.GetInt("max-wait-seconds")
	}
	return config.ApplyDefaults(cfg), nil
}

func runServe(cfg config.Config, corsOrigins []string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	httpapi.SetLogger(logger)

	handle := engine.NewHandle(engine.Config{
		Model:                cfg.Model,
		GPUMemoryUtilization: cfg.GPUMemoryUtilization,
		Quantization:         cfg.Quantization,
		ContextLen:           cfg.ContextLen,
		Threads:              cfg.Threads,
	})
	defer handle.Close()

	svc := service.New(handle, service.Config{
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSeconds) * time.Second,
	})

	if len(corsOrigins) > 0 {
		httpapi.SetCORSOptions(true, corsOrigins,
			[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
			[]string{"Authorization", "Content-Type"})
	}

	// Base context canceled on shutdown so in-flight generations stop too.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(svc, cfg.APIKey)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("model", cfg.Model).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
