package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a development logger in dev mode and a JSON production logger otherwise
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zc.Build()
	}
	return zap.NewProduction()
}
