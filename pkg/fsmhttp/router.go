package fsmhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// service binds one machine to the HTTP surface. It performs no business
// logic; every handler is a pass-through to the engine's public contract.
type service struct {
	m   *fsm.Machine
	cfg *config
}

// Router mounts the machine's HTTP surface:
//
//	GET  /state        current and last recorded state
//	GET  /history      recent history entries (?last=N)
//	GET  /graph        static graph description (states + edges)
//	GET  /diagram.mmd  Mermaid source for the graph
//	GET  /diagram.svg  rendered diagram (requires WithRenderer)
//	GET  /watch        SSE stream of transition results
//	POST /{trigger}    invoke a trigger
//
// The set of externally invocable triggers may be restricted with
// WithTriggers; everything declared in the graph is invocable by default.
func Router(m *fsm.Machine, opts ...Option) chi.Router {
	cfg := defaultRouterConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := &service{m: m, cfg: cfg}

	r := chi.NewRouter()
	r.Get("/state", s.handleState)
	r.Get("/history", s.handleHistory)
	r.Get("/graph", s.handleGraph)
	r.Get("/diagram.mmd", s.handleDiagramMermaid)
	r.Get("/diagram.svg", s.handleDiagramSVG)
	r.Get("/watch", s.handleWatch)
	r.Post("/{trigger}", s.handleTrigger)
	return r
}

type stateResponse struct {
	State     fsm.State  `json:"state"`
	LastState *fsm.State `json:"last_state"`
}

func (s *service) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{State: s.m.Current()}
	if last := s.m.LastState(); last != "" {
		resp.LastState = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyEntry struct {
	State      fsm.State `json:"state"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS *int64    `json:"duration_ms"`
}

type historyResponse struct {
	History []historyEntry `json:"history"`
}

func (s *service) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := s.cfg.defaultHistoryLimit
	if raw := r.URL.Query().Get("last"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid last parameter %q", raw))
			return
		}
		n = parsed
	}
	if n > s.cfg.maxHistoryLimit {
		n = s.cfg.maxHistoryLimit
	}

	entries := s.m.History(n)
	resp := historyResponse{History: make([]historyEntry, 0, len(entries))}
	for _, e := range entries {
		he := historyEntry{State: e.State, Timestamp: e.EnteredAt}
		if e.Duration != nil {
			ms := e.Duration.Milliseconds()
			he.DurationMS = &ms
		}
		resp.History = append(resp.History, he)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *service) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.m.Graph().Data())
}

func (s *service) handleDiagramMermaid(w http.ResponseWriter, r *http.Request) {
	src := Mermaid(s.m.Graph().Data(), s.m.Current())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(src))
}

func (s *service) handleDiagramSVG(w http.ResponseWriter, r *http.Request) {
	if s.cfg.renderer == nil {
		writeError(w, http.StatusNotImplemented, "no_renderer", "no diagram renderer configured")
		return
	}
	img, err := s.cfg.renderer.Render(r.Context(), s.m.Graph().Data())
	if err != nil {
		s.cfg.logger.ErrorContext(r.Context(), "diagram rendering failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "render_failed", "failed to render diagram")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *service) handleWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	sub := s.m.Watch(r.Context())
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case res, open := <-sub.Events():
			if !open {
				return
			}
			data, err := json.Marshal(res)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *service) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := fsm.Trigger(chi.URLParam(r, "trigger"))
	if !s.allowed(name) {
		writeError(w, http.StatusNotFound, "unknown_trigger", fmt.Sprintf("trigger %q is not available", name))
		return
	}

	res, err := s.m.Trigger(r.Context(), name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case fsm.IsHookFailureError(err):
		// The machine already moved to fault; report the forced transition
		// with the failure attached so the caller sees both.
		writeJSON(w, http.StatusOK, triggerFaultResponse{
			Result: res,
			Error:  errorDetail{Code: "hook_failure", Message: err.Error()},
		})
	case fsm.IsUnknownTriggerError(err):
		writeError(w, http.StatusNotFound, "unknown_trigger", err.Error())
	case fsm.IsInvalidTransitionError(err):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, fsm.ErrMachineClosed):
		writeError(w, http.StatusServiceUnavailable, "machine_closed", err.Error())
	default:
		s.cfg.logger.ErrorContext(r.Context(), "trigger invocation failed",
			slog.String("trigger", string(name)), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal_error", "trigger invocation failed")
	}
}

// allowed reports whether the trigger may be invoked over HTTP. Recovery
// triggers are internal to Start and never mounted.
func (s *service) allowed(name fsm.Trigger) bool {
	if strings.HasPrefix(string(name), fsm.RecoveryPrefix) {
		return false
	}
	if s.cfg.triggers != nil {
		_, ok := s.cfg.triggers[name]
		return ok
	}
	return s.m.Graph().HasTrigger(name)
}

type triggerFaultResponse struct {
	Result fsm.Result  `json:"result"`
	Error  errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}
