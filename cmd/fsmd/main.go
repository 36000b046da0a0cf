// fsmd runs the demo pick-and-place cell controller: a recoverable state
// machine exposed over HTTP under /fsm.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/fsmkit/pkg/checkpoint"
	"github.com/dmitrymomot/fsmkit/pkg/config"
	"github.com/dmitrymomot/fsmkit/pkg/fsm"
	"github.com/dmitrymomot/fsmkit/pkg/fsmhttp"
	"github.com/dmitrymomot/fsmkit/pkg/httpserver"
	"github.com/dmitrymomot/fsmkit/pkg/logger"
	redisconn "github.com/dmitrymomot/fsmkit/pkg/redis"
)

//go:embed machine.yaml
var defaultDefinition []byte

type appConfig struct {
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	DefinitionFile string        `env:"FSM_DEFINITION_FILE"`
	HistorySize    int           `env:"FSM_HISTORY_SIZE" envDefault:"1000"`
	Recovery       bool          `env:"FSM_RECOVERY" envDefault:"true"`
	CheckpointFile string        `env:"FSM_CHECKPOINT_FILE"`
	RedisURL       string        `env:"FSM_REDIS_URL"`
	StepDelay      time.Duration `env:"CELL_STEP_DELAY" envDefault:"3s"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)
	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	log := logger.New(
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithService("fsmd"),
	)
	logger.SetAsDefault(log)

	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("failed to set up checkpoint store", logger.Error(err))
		os.Exit(1)
	}

	def, err := loadDefinition(cfg)
	if err != nil {
		log.Error("failed to load machine definition", logger.Error(err))
		os.Exit(1)
	}

	c := &cell{stepDelay: cfg.StepDelay, log: log}

	opts := def.Options()
	opts = append(opts,
		fsm.WithHistorySize(cfg.HistorySize),
		fsm.WithRecovery(cfg.Recovery),
		fsm.WithLogger(log),
	)
	if store != nil {
		opts = append(opts, fsm.WithCheckpoint(store))
	}
	opts = append(opts, c.hookOptions()...)

	m, err := fsm.New(opts...)
	if err != nil {
		log.Error("failed to build machine", logger.Error(err))
		os.Exit(1)
	}
	defer m.Close()

	if _, err := m.Start(ctx); err != nil {
		log.Error("failed to start machine", logger.Error(err))
		os.Exit(1)
	}
	log.Info("machine started", slog.String("state", string(m.Current())))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Mount("/fsm", fsmhttp.Router(m, fsmhttp.WithLogger(log)))
	r.Post("/simulate_failure", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		c.simulateFailure.Store(body.Enabled)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]bool{"simulate_failure": body.Enabled})
	})

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func loadDefinition(cfg appConfig) (fsm.Definition, error) {
	if cfg.DefinitionFile != "" {
		return fsm.LoadDefinition(cfg.DefinitionFile)
	}
	return fsm.ParseDefinition(bytes.NewReader(defaultDefinition))
}

// buildStore picks the checkpoint backend: redis when configured, a local
// file otherwise, or none at all.
func buildStore(ctx context.Context, cfg appConfig) (checkpoint.Store, error) {
	if cfg.RedisURL != "" {
		client, err := redisconn.Connect(ctx, redisconn.Config{
			ConnectionURL:  cfg.RedisURL,
			RetryAttempts:  3,
			RetryInterval:  2 * time.Second,
			ConnectTimeout: 10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return checkpoint.NewRedis(client), nil
	}
	if cfg.CheckpointFile != "" {
		return checkpoint.NewFile(cfg.CheckpointFile), nil
	}
	return nil, nil
}
