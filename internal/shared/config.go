package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Matching    MatchingConfig    `toml:"matching"`
	Export      ExportConfig      `toml:"export"`
	RateLimit   RateLimitConfig   `toml:"rate_limit"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify   SpotifyConfig   `toml:"spotify"`
	Navidrome NavidromeConfig `toml:"navidrome"`
}

// SpotifyConfig contains Spotify API credentials.
//
// With only a client id and secret the client-credentials flow is used, which cannot read a user's saved tracks.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
}

// HasUserToken reports whether a user-scoped token is configured.
func (s SpotifyConfig) HasUserToken() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// NavidromeConfig contains the Subsonic endpoint and login of the destination server.
type NavidromeConfig struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// MatchingConfig toggles cascade strategies and tunes the fuzzy stage.
type MatchingConfig struct {
	EnableISRC     bool    `toml:"enable_isrc"`
	EnableStrict   bool    `toml:"enable_strict"`
	EnableFuzzy    bool    `toml:"enable_fuzzy"`
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
	TieMargin      float64 `toml:"tie_margin"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	BatchSize     int  `toml:"batch_size"`
	SkipUnmatched bool `toml:"skip_unmatched"`
}

// RateLimitConfig bounds outbound API traffic.
type RateLimitConfig struct {
	SpotifyMaxRequests int     `toml:"spotify_max_requests"`
	SpotifyWindowMS    int     `toml:"spotify_window_ms"`
	NavidromeRPS       float64 `toml:"navidrome_rps"`
}

// SpotifyWindow returns the sliding window as a [time.Duration].
func (r RateLimitConfig) SpotifyWindow() time.Duration {
	return time.Duration(r.SpotifyWindowMS) * time.Millisecond
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Validate checks ranges that would otherwise surface as confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: matching.fuzzy_threshold must be within [0,1], got %v", ErrInvalidConfig, c.Matching.FuzzyThreshold)
	}
	if c.Matching.TieMargin < 0 || c.Matching.TieMargin >= 1 {
		return fmt.Errorf("%w: matching.tie_margin must be within [0,1), got %v", ErrInvalidConfig, c.Matching.TieMargin)
	}
	if c.Export.BatchSize <= 0 {
		return fmt.Errorf("%w: export.batch_size must be positive", ErrInvalidConfig)
	}
	if c.RateLimit.SpotifyMaxRequests <= 0 || c.RateLimit.SpotifyWindowMS <= 0 {
		return fmt.Errorf("%w: rate_limit spotify window must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config back to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv loads envFile (when present) and overlays NDX_* variables onto config.
//
// Secrets such as the Navidrome password usually live here rather than in config.toml.
func ApplyEnv(config *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file: %w", err)
			}
		}
	}

	strs := map[string]*string{
		"NDX_SPOTIFY_CLIENT_ID":     &config.Credentials.Spotify.ClientID,
		"NDX_SPOTIFY_CLIENT_SECRET": &config.Credentials.Spotify.ClientSecret,
		"NDX_SPOTIFY_ACCESS_TOKEN":  &config.Credentials.Spotify.AccessToken,
		"NDX_SPOTIFY_REFRESH_TOKEN": &config.Credentials.Spotify.RefreshToken,
		"NDX_NAVIDROME_URL":         &config.Credentials.Navidrome.URL,
		"NDX_NAVIDROME_USERNAME":    &config.Credentials.Navidrome.Username,
		"NDX_NAVIDROME_PASSWORD":    &config.Credentials.Navidrome.Password,
		"NDX_DATABASE_PATH":         &config.Database.Path,
		"NDX_LOG_LEVEL":             &config.Log.Level,
	}
	for key, target := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}

	if v, ok := os.LookupEnv("NDX_FUZZY_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: NDX_FUZZY_THRESHOLD: %v", ErrInvalidConfig, err)
		}
		config.Matching.FuzzyThreshold = f
	}

	return config.Validate()
}
