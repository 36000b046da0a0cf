// Package httpserver provides a lightweight wrapper around net/http that adds
// graceful shutdown, configurable server timeouts, health-check handlers, and
// structured logging via slog.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal is
// received, then shuts the server down using http.Server.Shutdown with a
// configurable deadline. Construction goes through New or NewFromConfig with
// Option helpers:
//
//	srv := httpserver.New(
//	    httpserver.WithAddr(":8080"),
//	    httpserver.WithLogger(log),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server failed", logger.Error(err))
//	}
//
// Errors are wrapped with the ErrStart and ErrShutdown sentinels for
// inspection with errors.Is.
package httpserver
