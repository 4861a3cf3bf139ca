package logging

import "go.uber.org/zap"

var logger = zap.NewNop()

// Init installs the process-wide logger. Called once from main before any
// subsystem starts; tests that exercise handlers can install a zaptest logger.
func Init(l *zap.Logger) {
	logger = l
}

func L() *zap.Logger {
	return logger
}
