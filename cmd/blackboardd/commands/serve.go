package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campusafe/blackboard/internal/config"
	"github.com/campusafe/blackboard/internal/engine"
	"github.com/campusafe/blackboard/internal/httpapi"
	"github.com/campusafe/blackboard/internal/printer"
	"github.com/campusafe/blackboard/pkg/alert"
	"github.com/campusafe/blackboard/pkg/sources"
)

var (
	redisAddr  string
	listenAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the blackboard engine",
	Long: `serve starts the engine: the graph store, the seven knowledge sources,
the priority controller, and the caseboard/alert fan-out streams. It runs
until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the alert-history cache (memory-only if omitted)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8090", "address the case-snapshot HTTP API listens on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigOrDefaults()
	if err != nil {
		return printer.Error("Invalid configuration",
			err.Error(),
			[]string{"Check the YAML file passed to --config for typos or out-of-range values."})
	}

	alertStore := buildAlertStore()

	deps := sources.Deps{
		AI:        sources.NoopAI{},
		FactCheck: sources.NoopFactCheck{},
		Forensics: sources.ForensicsDeps{VideoSearch: sources.NoopVideoSearch{}},
	}

	e := engine.New(cfg, deps, alertStore)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	api := httpapi.New(e.Store)
	httpServer := &http.Server{Addr: listenAddr, Handler: api}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			printer.Warning("case-snapshot API stopped: %v\n", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	printer.Success("engine started (max_triggers_per_case=%d, worker_concurrency=%d, api=%s)\n",
		*cfg.MaxTriggersPerCase, *cfg.WorkerConcurrency, listenAddr)
	e.Run(ctx)
	printer.Info("engine stopped\n")
	return nil
}

func loadConfigOrDefaults() (*config.EngineConfig, error) {
	if configPath == "" {
		cfg := &config.EngineConfig{}
		return cfg, cfg.ApplyDefaultsAndValidate()
	}
	return config.Load(configPath)
}

func buildAlertStore() alert.Store {
	if redisAddr == "" {
		return alert.NewMemoryStore(200)
	}
	client := alert.NewRedisClient(redisAddr)
	return alert.NewRedisStore(client, "blackboardd", 200)
}
