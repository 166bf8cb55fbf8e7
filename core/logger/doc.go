// Package logger provides structured logging helpers built on log/slog.
//
// New builds a logger for an environment, and the attribute helpers give log
// keys a consistent shape across the relay, the ingress adapters and the
// daemon.
//
//	log := logger.New(
//		logger.WithProduction("relayd"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("relay created",
//		logger.RelayKey("order:42"),
//		logger.Expected(3),
//	)
//
// Helpers such as Error and RelayKey return an empty slog.Attr for nil or
// empty input, which slog omits, so callers never need nil checks:
//
//	log.Warn("publish rejected", logger.Error(err))
package logger
