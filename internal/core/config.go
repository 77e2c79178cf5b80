package core

import (
	"time"
)

type Config struct {
	Server   ServerConfig
	Spotify  SpotifyConfig
	YouTube  YouTubeConfig
	Resolver ResolverConfig
	Playlist PlaylistConfig
	LLM      LLMConfig
	Flood    FloodConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type YouTubeConfig struct {
	APIKey string
}

type ResolverConfig struct {
	// BaseURL is the public base URL share links are issued under.
	BaseURL string
	// CacheTTL bounds how long assembled resolutions are served from cache.
	CacheTTL time.Duration
	// CacheSize is the maximum number of cached resolutions.
	CacheSize int
	// AdapterTimeout bounds each individual fan-out call.
	AdapterTimeout time.Duration
	// OverallTimeout bounds a whole resolution.
	OverallTimeout time.Duration
	// MaxConcurrent bounds the fan-out parallelism.
	MaxConcurrent int
	// UserCountry is the market reported in responses.
	UserCountry string
}

type PlaylistConfig struct {
	DatabasePath string
	MaxTracks    int
	TTLDays      int
}

type LLMConfig struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Threshold     float64
	MaxCandidates int
}

type FloodConfig struct {
	LimitPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         10000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Resolver: ResolverConfig{
			BaseURL:        "https://unitune.art",
			CacheTTL:       24 * time.Hour,
			CacheSize:      4096,
			AdapterTimeout: 10 * time.Second,
			OverallTimeout: 25 * time.Second,
			MaxConcurrent:  5,
			UserCountry:    "US",
		},
		Playlist: PlaylistConfig{
			DatabasePath: "./unitune_playlists.db",
			MaxTracks:    500,
			TTLDays:      180,
		},
		LLM: LLMConfig{
			Provider:      "none",
			Threshold:     0.65,
			MaxCandidates: 3,
		},
		Flood: FloodConfig{
			LimitPerMinute: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
