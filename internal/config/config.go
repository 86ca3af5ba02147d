package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultZones = "Zone 1,Zone 2,Zone 3,Zone 4,Zone 5"

type Config struct {
	ListenAddr string
	DBPath     string

	PhotoPath        string
	PhotoAutoSave    bool
	PhotoMaxEdge     int
	PhotoMaxPixels   int
	PhotoJPEGQuality int

	GeoBackend      string
	GPSDAddr        string
	GeoStaticLat    float64
	GeoStaticLng    float64
	GeoStaticAcc    float64
	GeoTimeout      time.Duration
	GeoMaxAge       time.Duration
	GeoHighAccuracy bool

	Location       *time.Location
	Zones          []string
	ShareRecipient string
	ShareRegion    string

	LogLevel string
	LogFile  string
	TestMode bool
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var p parser
	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/prodair.db"),

		PhotoPath:        getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		PhotoAutoSave:    p.bool("PHOTO_AUTOSAVE", true),
		PhotoMaxEdge:     p.int("PHOTO_MAX_EDGE", 1920),
		PhotoMaxPixels:   p.int("PHOTO_MAX_PIXELS", 50_000_000),
		PhotoJPEGQuality: p.int("PHOTO_JPEG_QUALITY", 85),

		GeoBackend:      getEnv("GEO_BACKEND", "gpsd"),
		GPSDAddr:        getEnv("GPSD_ADDR", "localhost:2947"),
		GeoStaticLat:    p.float("GEO_STATIC_LAT", 0),
		GeoStaticLng:    p.float("GEO_STATIC_LNG", 0),
		GeoStaticAcc:    p.float("GEO_STATIC_ACCURACY", 0),
		GeoTimeout:      p.millis("GEO_TIMEOUT_MS", 10000),
		GeoMaxAge:       p.millis("GEO_MAX_AGE_MS", 60000),
		GeoHighAccuracy: p.bool("GEO_HIGH_ACCURACY", true),

		Zones:          splitList(getEnv("ZONES", defaultZones)),
		ShareRecipient: getEnv("SHARE_RECIPIENT", ""),
		ShareRegion:    getEnv("SHARE_REGION", "MA"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		TestMode: os.Getenv("PRODAIR_TEST_MODE") == "1",
	}
	if p.err != nil {
		return nil, p.err
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if len(cfg.Zones) == 0 {
		return nil, fmt.Errorf("ZONES must list at least one zone")
	}
	if cfg.PhotoMaxPixels < 1 {
		return nil, fmt.Errorf("PHOTO_MAX_PIXELS must be positive, got %d", cfg.PhotoMaxPixels)
	}
	if cfg.PhotoJPEGQuality < 1 || cfg.PhotoJPEGQuality > 100 {
		return nil, fmt.Errorf("PHOTO_JPEG_QUALITY must be between 1 and 100, got %d", cfg.PhotoJPEGQuality)
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
}

func (p *parser) int(key string, def int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val, err)
		return def
	}
	return b
}

func (p *parser) millis(key string, def int) time.Duration {
	return time.Duration(p.int(key, def)) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
