// Package config loads the beats tool configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Data directory and record format
	DataDir string
	Codec   string // pickle, bson or json

	// Windowing
	WindowOffset  int
	WindowLength  int
	NegativeRatio float64
	Seed          int64

	// Output
	PlotDir string

	// Running averager
	AvgSpan int

	// Audio sample rate of the source tracks in Hz, used to rebuild beat grids
	SampleRate float64

	LogLevel string
}

// LoadEnv reads .env style files into the environment without overriding
// variables that are already set. With no arguments it reads ./.env.
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		DataDir: envStr("BEATS_DATA_DIR", "data"),
		Codec:   envStr("BEATS_CODEC", "pickle"),

		WindowOffset:  envInt("BEATS_WINDOW_OFFSET", 0),
		WindowLength:  envInt("BEATS_WINDOW_LENGTH", 1),
		NegativeRatio: envFloat("BEATS_NEGATIVE_RATIO", 1),
		Seed:          int64(envInt("BEATS_SEED", 1)),

		PlotDir: envStr("BEATS_PLOT_DIR", "plots"),
		AvgSpan: envInt("BEATS_AVG_SPAN", 100),

		SampleRate: envFloat("BEATS_SAMPLE_RATE", 48000),
		LogLevel:   envStr("BEATS_LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
