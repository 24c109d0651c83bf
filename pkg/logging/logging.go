// Package logging builds the zap loggers shared by every binary.
package logging

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// New returns a JSON production logger, or a console logger when format is
// "console". level is any zap level name ("debug", "info", ...).
func New(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, eris.Wrapf(err, "parse log level %q", level)
	}
	cfg.Level = lvl

	log, err := cfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "build logger")
	}
	return log, nil
}

// Must is New for main packages; it also installs the logger as zap's global.
func Must(level, format string) *zap.Logger {
	log, err := New(level, format)
	if err != nil {
		log = zap.NewExample()
		log.Error("falling back to example logger", zap.Error(err))
	}
	zap.ReplaceGlobals(log)
	return log
}
