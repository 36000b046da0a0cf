package fsmhttp

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// Renderer turns graph data into a rendered diagram image. Rendering is an
// external collaborator's job; the router only plumbs bytes through.
type Renderer interface {
	Render(ctx context.Context, data fsm.GraphData) ([]byte, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, data fsm.GraphData) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, data fsm.GraphData) ([]byte, error) {
	return f(ctx, data)
}

// Option configures the router.
type Option func(*config)

type config struct {
	triggers            map[fsm.Trigger]struct{} // nil means every declared trigger
	renderer            Renderer
	logger              *slog.Logger
	defaultHistoryLimit int
	maxHistoryLimit     int
}

func defaultRouterConfig() *config {
	return &config{
		logger:              slog.New(slog.DiscardHandler),
		defaultHistoryLimit: 10,
		maxHistoryLimit:     fsm.DefaultHistorySize,
	}
}

// WithTriggers restricts the externally invocable triggers to an explicit
// allow-list. Without this option every trigger declared in the graph is
// mounted (recovery triggers excepted).
func WithTriggers(triggers ...fsm.Trigger) Option {
	return func(c *config) {
		if c.triggers == nil {
			c.triggers = make(map[fsm.Trigger]struct{}, len(triggers))
		}
		for _, t := range triggers {
			c.triggers[t] = struct{}{}
		}
	}
}

// WithRenderer enables GET /diagram.svg using the given renderer.
func WithRenderer(r Renderer) Option {
	return func(c *config) {
		c.renderer = r
	}
}

// WithLogger supplies a structured logger for handler-side failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHistoryLimits overrides the default and maximum values of the history
// endpoint's ?last=N parameter.
func WithHistoryLimits(def, max int) Option {
	return func(c *config) {
		if def > 0 {
			c.defaultHistoryLimit = def
		}
		if max > 0 {
			c.maxHistoryLimit = max
		}
	}
}
