package concurrency

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newDefaultLogger returns the logger used when no WithLogger option is given.
// Only errors reach stderr, which in practice means recovered panics.
func newDefaultLogger() *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zapcore.ErrorLevel,
	)
	return zap.New(core, zap.AddCaller()).Named("lightpool")
}
