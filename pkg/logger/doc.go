// Package logger builds configured slog.Logger instances for fsmkit
// services.
//
// It wraps the standard library's log/slog with a functional options API:
// output format (JSON or text), level, destination, and static attributes
// attached to every record.
//
//	log := logger.New(
//	    logger.WithDevelopment("cell-controller"),
//	    logger.WithAttr(logger.Component("fsm")),
//	)
//	log.Info("machine started", slog.String("state", "ready"))
//
// Attribute helpers (Error, Errors, Component, Machine) keep key names
// consistent across packages.
package logger
