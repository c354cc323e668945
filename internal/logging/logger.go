package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

// NewLogger builds a JSON production logger at the given level.
func NewLogger(level string) (*Logger, error) {
	return build(zap.NewProductionConfig(), level)
}

// NewConsoleLogger builds a human readable logger for the command line.
// Output goes to stderr so it never mixes with command output.
func NewConsoleLogger(level string) (*Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	return build(config, level)
}

func build(config zap.Config, level string) (*Logger, error) {
	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// WithOperation tags every entry with a fresh operation id so the lines of
// one command can be told apart.
func (l *Logger) WithOperation(name string) *zap.Logger {
	return l.With(
		zap.String("op", name),
		zap.String("op_id", uuid.NewString()),
	)
}
