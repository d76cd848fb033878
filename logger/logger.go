package logger

import (
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// New builds the service logger. Production uses JSON with ISO8601 timestamps,
// anything else the colored development console. When sink is non-nil every
// entry is also written to it as JSON (the CloudWatch Logs writer in practice).
func New(env string, sink io.Writer) (*zap.Logger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if sink == nil {
		return config.Build()
	}
	return tee(config, os.Stdout, sink), nil
}

// tee writes to stdout in the configured encoding and to sink as JSON.
func tee(config zap.Config, stdout, sink io.Writer) *zap.Logger {
	level := zap.NewAtomicLevelAt(config.Level.Level())

	stdoutEncoder := zapcore.NewConsoleEncoder(config.EncoderConfig)
	if config.Encoding == "json" {
		stdoutEncoder = zapcore.NewJSONEncoder(config.EncoderConfig)
	}
	stdoutCore := zapcore.NewCore(stdoutEncoder, zapcore.AddSync(stdout), level)

	// The sink always gets JSON, colored levels would leak escape codes into it.
	sinkEncoderConfig := config.EncoderConfig
	sinkEncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	sinkCore := zapcore.NewCore(zapcore.NewJSONEncoder(sinkEncoderConfig), zapcore.AddSync(sink), level)

	return zap.New(zapcore.NewTee(stdoutCore, sinkCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// ForRequest returns log annotated with the request ID set by middleware.RequestID.
func ForRequest(c *gin.Context, log *zap.Logger) *zap.Logger {
	if id := RequestID(c); id != "" {
		return log.With(zap.String(RequestIDKey, id))
	}
	return log
}

// RequestID extracts the request ID from the gin context, empty when unset.
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(RequestIDKey)
}
