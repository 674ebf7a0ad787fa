package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

// RunLog writes every message (request and response bodies included) to the
// run's log file and the informational ones to the console.
type RunLog struct {
	Logger *zap.Logger
	Path   string
	file   *os.File
}

func Open(path string, console io.Writer) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	if console == nil {
		console = os.Stdout
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.CallerKey = ""
	encoderCfg.ConsoleSeparator = " | "

	fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(file), zapcore.DebugLevel)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(console), zapcore.InfoLevel)

	return &RunLog{
		Logger: zap.New(zapcore.NewTee(fileCore, consoleCore)),
		Path:   path,
		file:   file,
	}, nil
}

func (l *RunLog) Close() error {
	_ = l.Logger.Sync()
	return l.file.Close()
}
