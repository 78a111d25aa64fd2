package daemon

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger: JSON production output, or the
// console development encoder when json is off.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zc.Level = level
	zc.InitialFields = map[string]interface{}{
		"service": "pocketmoney",
	}
	return zc.Build()
}
