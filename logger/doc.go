// Package logger wraps zerolog with the field names and output formats
// used across flowrun.
//
// Loggers are immutable: WithComponent, WithRun, WithFields and
// WithContext return a derived logger. WithContext also copies the trace
// and span ids of the active OpenTelemetry span, so log lines can be
// joined with traces.
//
//	logging:
//	  level: debug
//	  format: json     # json | console
//	  output: stderr
//
//	log := logger.New(&cfg.Logging, "flowrun").WithComponent("coordinator")
//	log.Info("run started", logger.Fields(logger.FieldRunID, id))
package logger
