// Package config handles engine and CLI configuration
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"findsimilar/types"
	"findsimilar/utils"
)

// Backend names accepted for image decoding
const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// Config holds the settings shared by the scanner and the CLI
type Config struct {
	CachePath        string
	Threshold        int
	Algorithm        types.Algorithm
	Backend          string
	Workers          int
	ProgressInterval time.Duration
	Extensions       []string // empty means every format a loader supports
	LogFile          string
	Debug            bool
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		CachePath:        utils.GetDefaultCachePath(),
		Threshold:        5,
		Algorithm:        types.AlgorithmDifference,
		Backend:          BackendNative,
		Workers:          runtime.NumCPU(),
		ProgressInterval: 500 * time.Millisecond,
	}
}

// Load applies environment overrides on top of the defaults
func Load() *Config {
	def := Default()
	cfg := &Config{
		CachePath:        getEnv("FINDSIMILAR_CACHE", def.CachePath),
		Threshold:        getEnvInt("FINDSIMILAR_THRESHOLD", def.Threshold),
		Algorithm:        def.Algorithm,
		Backend:          strings.ToLower(getEnv("FINDSIMILAR_BACKEND", def.Backend)),
		Workers:          getEnvInt("FINDSIMILAR_WORKERS", def.Workers),
		ProgressInterval: getEnvDuration("FINDSIMILAR_PROGRESS_INTERVAL", def.ProgressInterval),
		Extensions:       getEnvList("FINDSIMILAR_EXTENSIONS", nil),
		LogFile:          getEnv("FINDSIMILAR_LOGFILE", ""),
		Debug:            getEnvBool("FINDSIMILAR_DEBUG", false),
	}
	if v := os.Getenv("FINDSIMILAR_ALGORITHM"); v != "" {
		if alg, err := types.ParseAlgorithm(v); err == nil {
			cfg.Algorithm = alg
		}
	}
	return cfg
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > types.FingerprintBits {
		return fmt.Errorf("threshold %d out of range [0, %d]", c.Threshold, types.FingerprintBits)
	}
	if _, err := types.ParseAlgorithm(string(c.Algorithm)); err != nil {
		return err
	}
	switch c.Backend {
	case BackendNative, BackendOpenCV:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendNative, BackendOpenCV)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive, got %v", c.ProgressInterval)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
