package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	BaseDir        string
	Engine         string
	BatchSizes     []int
	Samples        int
	Iterations     int
	Warmup         int
	UseTransaction bool
	KeepFiles      bool
	ClearCaches    bool
	ResultsDb      string
	Pushgateway    string
	PushJob        string

	TursoOrgName   string
	TursoGroupName string
	TursoApiToken  string
	TursoAuthToken string
}

// LoadEnv reads an optional .env file. Variables already set in the process
// environment win over the file.
func LoadEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, filename := range filenames {
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(filename); err != nil {
			return fmt.Errorf("failed to load env file %v: %w", filename, err)
		}
		Logger.Debugf("loaded env file %v", filename)
	}
	return nil
}

func ConfigFromEnv() Config {
	return Config{
		BaseDir:        StringEnv("SPIKE_BASE_DIR", filepath.Join(os.TempDir(), "sqlite-spike")),
		Engine:         StringEnv("SPIKE_ENGINE", "sqlite3"),
		BatchSizes:     IntsEnv("SPIKE_BATCH_SIZES", []int{100, 1000, 10000}),
		Samples:        IntEnv("SPIKE_SAMPLES", 25),
		Iterations:     IntEnv("SPIKE_ITERATIONS", 100),
		Warmup:         IntEnv("SPIKE_WARMUP", 0),
		UseTransaction: BoolEnv("SPIKE_USE_TRANSACTION", true),
		KeepFiles:      BoolEnv("SPIKE_KEEP_FILES", false),
		ClearCaches:    BoolEnv("SPIKE_CLEAR_CACHES", false),
		ResultsDb:      StringEnv("SPIKE_RESULTS_DB", ""),
		Pushgateway:    StringEnv("SPIKE_PUSHGATEWAY", ""),
		PushJob:        StringEnv("SPIKE_PUSH_JOB", "sqlite-spike"),
		TursoOrgName:   StringEnv("TURSO_ORG_NAME", ""),
		TursoGroupName: StringEnv("TURSO_GROUP_NAME", "sqlite-spike"),
		TursoApiToken:  StringEnv("TURSO_API_TOKEN", ""),
		TursoAuthToken: StringEnv("TURSO_AUTH_TOKEN", ""),
	}
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("%w: base dir must be set", ErrInvalidConfig)
	}
	if _, err := EngineByName(c.Engine); err != nil {
		return err
	}
	if len(c.BatchSizes) == 0 {
		return fmt.Errorf("%w: at least one batch size required", ErrInvalidConfig)
	}
	for _, size := range c.BatchSizes {
		if size < 0 {
			return fmt.Errorf("%w: negative batch size %v", ErrInvalidConfig, size)
		}
	}
	if c.Samples < 0 {
		return fmt.Errorf("%w: negative samples %v", ErrInvalidConfig, c.Samples)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: negative iterations %v", ErrInvalidConfig, c.Iterations)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("%w: negative warmup %v", ErrInvalidConfig, c.Warmup)
	}
	return nil
}

func StringEnv(key string, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func IntEnv(key string, def int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func BoolEnv(key string, def bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

// IntsEnv parses a comma separated list, e.g. "100,1000,10000".
func IntsEnv(key string, def []int) []int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := ParseInts(value)
	if err != nil {
		return def
	}
	return parsed
}

func ParseInts(value string) ([]int, error) {
	parsed := make([]int, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(part, "_", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: bad integer %q", ErrInvalidConfig, part)
		}
		parsed = append(parsed, n)
	}
	return parsed, nil
}
