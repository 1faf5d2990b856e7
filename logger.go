package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger      *zap.SugaredLogger
	AtomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() {
	ApplyLogLevel()
	logger, err := buildLogger(StringEnv("LOG_ENCODING", "console"))
	if err != nil {
		panic(fmt.Errorf("failed to initialize logger: %w", err))
	}
	Logger = logger.Named("spike").Sugar()
}

// ApplyLogLevel re-reads LOG_LEVEL, so values coming from a .env file loaded
// after init still take effect.
func ApplyLogLevel() {
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "INFO"
	}
	atomicLevel, err := zap.ParseAtomicLevel(logLevel)
	if err == nil {
		AtomicLevel.SetLevel(atomicLevel.Level())
	} else {
		log.Printf("failed to parse log level, fallback to INFO: %v", err)
	}
}

func buildLogger(encoding string) (*zap.Logger, error) {
	if encoding != "console" && encoding != "json" {
		log.Printf("unknown log encoding %q, fallback to console", encoding)
		encoding = "console"
	}
	config := zap.Config{
		Level:       AtomicLevel,
		Development: false,
		// timing samples are logged per operation, keep the first ones of every second
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "M",
			LevelKey:       "L",
			TimeKey:        "T",
			NameKey:        "N",
			CallerKey:      zapcore.OmitKey,
			FunctionKey:    zapcore.OmitKey,
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return config.Build()
}
