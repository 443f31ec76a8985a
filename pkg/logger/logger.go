// Package logger builds the structured loggers the rest of the module
// threads through its Config structs, mirroring the reference ignite
// package's logger.New(service) entrypoint.
package logger

import (
	"go.uber.org/zap"
)

// New builds a production-configured *zap.SugaredLogger tagged with
// service, the name of the calling component ("engine", "fbxdump", ...).
func New(service string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return base.Sugar().Named(service), nil
}

// Nop returns a logger that discards everything, for callers that want
// the library's logging hooks without any output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
