package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultArchivePath keeps the historical .h5 name; the file is an
// archive.Store document, not HDF5.
const (
	DefaultArchivePath = "data/hdf5/property_insights.h5"
	DefaultShapePath   = "data/shp/properties.shp"
)

type Config struct {
	AppEnv          string
	LogLevel        string
	ArchivePath     string
	ShapePath       string
	HTTPAddr        string
	MetricsTextfile string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	CacheTTL        time.Duration
	BuildRPS        float64
	BuildWorkers    int64
	MaxBodyBytes    int64
}

// Load reads the environment, seeded from .env.local and .env when present.
// Variables already set in the environment win over file values.
func Load() Config {
	_ = godotenv.Load(".env.local", ".env")

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		LogLevel:        env("LOG_LEVEL", "warn"),
		ArchivePath:     env("INSIGHTS_FILE", DefaultArchivePath),
		ShapePath:       env("INSIGHTS_SHP_FILE", DefaultShapePath),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsTextfile: env("METRICS_TEXTFILE", ""),
		RedisAddr:       env("REDIS_ADDR", ""),
		RedisPass:       env("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		BuildRPS:        atof("BUILD_RPS", 2),
		BuildWorkers:    int64(atoi("BUILD_WORKERS", 1)),
		MaxBodyBytes:    int64(atoi("MAX_BODY_BYTES", 64<<20)),
	}
	if c.BuildWorkers < 1 {
		c.BuildWorkers = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
