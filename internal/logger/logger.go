package logger

import "go.uber.org/zap"

// Log is the package-level logger. It is a no-op until Initialize is
// called from main.
var Log = zap.NewNop()

// Initialize builds the production logger at the given level
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = zl
	return nil
}
