package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const DefaultFileMaxSize = 10 // MB

type Config struct {
	AppName     string `yaml:"app_name"`
	Level       string `yaml:"level"`
	TrackLine   bool   `yaml:"track_line"`
	EnableFile  bool   `yaml:"enable_file"`
	FileName    string `yaml:"file_name"`
	FileMaxSize int    `yaml:"file_max_size"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAge      int    `yaml:"max_age"`
	EnableJson  bool   `yaml:"enable_json"`
	// DisableConsole drops the stderr sink. File output is unaffected.
	DisableConsole bool `yaml:"disable_console"`
}

func DefaultConfig() Config {
	return Config{
		AppName:     "navsystem",
		Level:       "info",
		TrackLine:   true,
		FileMaxSize: DefaultFileMaxSize,
		MaxBackups:  3,
		MaxAge:      7,
	}
}

func ParseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %v", level)
	}
}

// New builds a zap logger writing to stderr and, when enabled, to a size
// rotated file.
func New(config *Config) (*zap.Logger, error) {
	if config == nil {
		c := DefaultConfig()
		config = &c
	}
	level, err := ParseLogLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if config.EnableJson {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var cores []zapcore.Core
	if !config.DisableConsole {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}
	if config.EnableFile {
		fileName := config.FileName
		if fileName == "" {
			fileName = config.AppName + ".log"
		}
		maxSize := config.FileMaxSize
		if maxSize <= 0 {
			maxSize = DefaultFileMaxSize
		}
		w := &lumberjack.Logger{
			Filename:   fileName,
			MaxSize:    maxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), level))
	}

	var opts []zap.Option
	if config.TrackLine {
		opts = append(opts, zap.AddCaller())
	}
	l := zap.New(zapcore.NewTee(cores...), opts...)
	if config.AppName != "" {
		l = l.Named(config.AppName)
	}
	return l, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
