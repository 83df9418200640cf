package client

import (
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// retryLogger adapts zerolog.Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger zerolog.Logger
}

func (a retryLogger) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error().Fields(kvsToMap(keysAndValues)).Msg(msg)
}

func (a retryLogger) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info().Fields(kvsToMap(keysAndValues)).Msg(msg)
}

func (a retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(kvsToMap(keysAndValues)).Msg(msg)
}

func (a retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn().Fields(kvsToMap(keysAndValues)).Msg(msg)
}

func kvsToMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			m[key] = keysAndValues[i+1]
		}
	}
	return m
}

var _ retryablehttp.LeveledLogger = retryLogger{}
