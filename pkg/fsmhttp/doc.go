// Package fsmhttp exposes an fsm.Machine over HTTP.
//
// The router is a thin adapter: it translates the engine's operations into
// addressable endpoints and performs no business logic of its own.
//
//	r := chi.NewRouter()
//	r.Mount("/fsm", fsmhttp.Router(machine,
//	    fsmhttp.WithTriggers("start", "finished_picking", "to_fault", "reset"),
//	    fsmhttp.WithLogger(log),
//	))
//
// Runtime engine errors map onto HTTP statuses: unknown triggers are 404,
// transitions invalid in the current state are 409, and hook failures return
// 200 describing the forced transition into fault (the caller observes the
// fault state on the next GET /state either way).
//
// GET /watch streams transition results as server-sent events; GET
// /diagram.mmd emits Mermaid source so any external renderer can draw the
// graph, and GET /diagram.svg serves a rendered image when a Renderer is
// injected.
package fsmhttp
