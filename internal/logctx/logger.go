// Package logctx builds the shared zap logger threaded through the
// pool and scheduler packages, grounded on
// froz-husain-PairDB/storage-node's use of zap throughout its
// internal/service and internal/util/workerpool packages.
package logctx

import "go.uber.org/zap"

// New returns a production zap.Logger, or zap.NewNop() if production
// logger construction somehow fails — this package is ambient
// infrastructure, not something callers should have to handle errors
// for.
func New() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
