package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trvd/internal/config"
	"trvd/internal/daemon"
	"trvd/internal/httpapi"
	"trvd/internal/pipeline"
	"trvd/internal/registry"
	"trvd/internal/slot"
	"trvd/internal/tool"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		configPath     string
		addr           string
		logLevel       string
		threads        int
		executeTimeout int
		corsOrigins    string
	)

	root := &cobra.Command{
		Use:           "trvd",
		Short:         "Single-slot translate-reason-verify pipeline daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr, logLevel, threads, executeTimeout, corsOrigins)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("TRVD_CONFIG", "trvd.yaml"), "Path to config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&addr, "addr", os.Getenv("TRVD_ADDR"), "HTTP listen address, overrides config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("TRVD_LOG_LEVEL", ""), "Log level: debug|info|warn|error")
	root.Flags().IntVar(&threads, "threads", 0, "Inference threads (0 = runtime default)")
	root.Flags().IntVar(&executeTimeout, "execute-timeout", 0, "Max seconds for one /execute request (0 disables)")
	root.Flags().StringVar(&corsOrigins, "cors-origins", os.Getenv("TRVD_CORS_ORIGINS"), "Comma-separated allowed CORS origins (empty disables CORS)")

	sanity := &cobra.Command{
		Use:   "sanity",
		Short: "Check engine build and artifact presence, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, _, err := buildStack(configPath, logLevel, threads)
			if err != nil {
				return err
			}
			defer mgr.Close()
			return json.NewEncoder(os.Stdout).Encode(mgr.SanityCheck())
		},
	}
	root.AddCommand(sanity)

	if err := root.Execute(); err != nil {
		logger := newLogger("error")
		logger.Fatal().Err(err).Msg("trvd exited")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// buildStack loads config and constructs the slot manager and controller.
func buildStack(configPath, logLevel string, threads int) (config.Config, *slot.Manager, *pipeline.Controller, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	cfg.Finalize()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log := newLogger(cfg.LogLevel)

	arts, err := registry.Build(cfg.Roles)
	if err != nil {
		return cfg, nil, nil, err
	}
	if err := registry.Validate(arts); err != nil {
		return cfg, nil, nil, err
	}

	mgr := slot.New(slot.ManagerConfig{
		Artifacts:       arts,
		Engine:          slot.NewLlamaEngine(),
		BudgetMB:        cfg.Slot.BudgetMB,
		MaxWait:         time.Duration(cfg.Slot.MaxWaitSeconds) * time.Second,
		GenerateTimeout: time.Duration(cfg.Slot.GenerateTimeoutSeconds) * time.Second,
		ReclaimTimeout:  time.Duration(cfg.Slot.ReclaimTimeoutSeconds) * time.Second,
		Threads:         threads,
		Logger:          log,
	})

	tools := tool.NewRegistry()
	if err := tools.Register(tool.Calculator{}); err != nil {
		mgr.Close()
		return cfg, nil, nil, err
	}
	if err := tools.Register(tool.NewLookup(nil)); err != nil {
		mgr.Close()
		return cfg, nil, nil, err
	}

	ctrl := pipeline.New(pipeline.ControllerConfig{
		Generator: mgr,
		Tools:     tools,
		Pipeline:  cfg.Pipeline,
		Logger:    log,
	})
	return cfg, mgr, ctrl, nil
}

func runServe(configPath, addr, logLevel string, threads, executeTimeout int, corsOrigins string) error {
	cfg, mgr, ctrl, err := buildStack(configPath, logLevel, threads)
	if err != nil {
		return err
	}
	defer mgr.Close()
	log := newLogger(cfg.LogLevel)

	if addr == "" {
		addr = cfg.Addr
	}

	httpapi.SetLogger(log)
	httpapi.SetExecuteTimeoutSeconds(int64(executeTimeout))
	if corsOrigins != "" {
		httpapi.SetCORSOptions(true,
			splitCSV(corsOrigins),
			[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
			[]string{"Content-Type", "X-Log-Level"},
		)
	}

	baseCtx, stopBase := context.WithCancel(context.Background())
	defer stopBase()
	httpapi.SetBaseContext(baseCtx)

	svc := daemon.New(mgr, ctrl)
	srv := &http.Server{Addr: addr, Handler: httpapi.NewMux(svc)}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Int("roles", len(mgr.Artifacts())).Msg("trvd listening")
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
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	stopBase()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
