// Package logger provides the structured logging interface used across osintgram.
//
// It wraps zerolog. Console output is coloured and written to stderr, or the
// logger writes JSON lines to a file when logging.file is configured.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("target", "someone")
//	log.WarnWithFields("throttled", map[string]interface{}{"collected": 40})
//
// NewTestLogger and NewNopLogger are provided for tests.
package logger
