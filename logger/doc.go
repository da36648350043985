// Package logger wraps zerolog with the conventions used across the
// transcription service: a process-wide logger configured once at startup,
// component-scoped children, and a fixed vocabulary of field keys so that
// session and job identifiers line up across log lines.
//
//	logging:
//	  level: "info"
//	  format: "console"
//
//	log := logger.Get("poller")
//	log.Info("job completed", logger.Fields(logger.FieldJobID, id))
package logger
