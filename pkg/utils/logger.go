package utils

import "go.uber.org/zap"

// NewLogger returns the service logger. Debug mode selects zap's development
// config (console encoder, debug level); otherwise the JSON production
// config is used.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
