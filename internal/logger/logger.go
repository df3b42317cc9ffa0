// Package logger builds the zap loggers used by the client and the per-session
// JSON log file kept next to them.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger configured for development or production at the
// given level ("debug", "info", "warn", "error"; empty means info).
func New(development bool, level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		// stdout belongs to the terminal view.
		cfg.OutputPaths = []string{"stderr"}
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Session tees every entry of a base logger into <dir>/<session-id>.log as
// JSON lines.
type Session struct {
	*zap.Logger
	file      *os.File
	logDir    string
	sessionID string
}

// NewSession opens the session log in the platform log directory.
func NewSession(base *zap.Logger, sessionID string) (*Session, error) {
	logDir, err := getLogDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get log directory: %w", err)
	}
	return NewSessionIn(base, logDir, sessionID)
}

// NewSessionIn opens the session log inside logDir, creating it if needed.
func NewSessionIn(base *zap.Logger, logDir, sessionID string) (*Session, error) {
	if base == nil {
		base = zap.NewNop()
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("%s.log", sessionID))
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.DebugLevel)

	tee := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))

	return &Session{
		Logger:    tee.With(zap.String("session_id", sessionID)),
		file:      file,
		logDir:    logDir,
		sessionID: sessionID,
	}, nil
}

func getLogDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	var logDir string
	switch runtime.GOOS {
	case "windows":
		logDir = filepath.Join(homeDir, "AppData", "Local", "impressa", "logs")
	case "darwin":
		logDir = filepath.Join(homeDir, "Library", "Logs", "impressa")
	default:
		logDir = filepath.Join(homeDir, ".local", "share", "impressa", "logs")
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			logDir = filepath.Join(xdgData, "impressa", "logs")
		}
	}

	return logDir, nil
}

// Close flushes pending entries and closes the file.
func (s *Session) Close() error {
	_ = s.Logger.Sync()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func (s *Session) Path() string {
	if s.file != nil {
		return s.file.Name()
	}
	return ""
}

func (s *Session) Dir() string {
	return s.logDir
}

func (s *Session) ID() string {
	return s.sessionID
}
