// Package main provides the UniTune server entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"unitune/internal/cache"
	"unitune/internal/core"
	"unitune/internal/flood"
	httpserver "unitune/internal/http"
	"unitune/internal/llm"
	"unitune/internal/spotify"
	"unitune/internal/store"
	"unitune/pkg/platforms"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "unitune",
	Short: "UniTune - self-hosted music link resolution service",
	Long: `UniTune resolves a music link from any supported platform into the
equivalent links on every other platform, plus a compact share URL.
Supported platforms: Spotify, Apple Music, YouTube, Deezer, TIDAL, Amazon Music.`,
	RunE: runUniTune,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("base-url", "", "public base URL for share links")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("youtube-api-key", "", "YouTube Data API key")
	rootCmd.PersistentFlags().String("llm-provider", "none", "LLM provider (openai, anthropic, ollama, none)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")
	rootCmd.PersistentFlags().String("llm-api-key", "", "LLM API key")
	rootCmd.PersistentFlags().Int("server-port", 10000, "HTTP server port")
	rootCmd.PersistentFlags().String("playlist-db", "", "playlist database path")
	rootCmd.PersistentFlags().Int("rate-limit", 30, "requests per client per minute (0 disables)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("UNITUNE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	if v := viper.GetString("base-url"); v != "" {
		cfg.Resolver.BaseURL = strings.TrimRight(v, "/")
	}
	if v := viper.GetDuration("cache-ttl"); v > 0 {
		cfg.Resolver.CacheTTL = v
	}
	if v := viper.GetInt("cache-size"); v > 0 {
		cfg.Resolver.CacheSize = v
	}
	if v := viper.GetDuration("adapter-timeout"); v > 0 {
		cfg.Resolver.AdapterTimeout = v
	}
	if v := viper.GetDuration("overall-timeout"); v > 0 {
		cfg.Resolver.OverallTimeout = v
	}
	if v := viper.GetInt("max-concurrent"); v > 0 {
		cfg.Resolver.MaxConcurrent = v
	}
	if v := viper.GetString("user-country"); v != "" {
		cfg.Resolver.UserCountry = v
	}

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.YouTube.APIKey = viper.GetString("youtube-api-key")

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	if v := viper.GetFloat64("llm-threshold"); v > 0 {
		cfg.LLM.Threshold = v
	}

	if v := viper.GetString("server-host"); v != "" {
		cfg.Server.Host = v
	}
	if v := viper.GetInt("server-port"); v > 0 {
		cfg.Server.Port = v
	}

	if v := viper.GetString("playlist-db"); v != "" {
		cfg.Playlist.DatabasePath = v
	}
	if v := viper.GetInt("playlist-max-tracks"); v > 0 {
		cfg.Playlist.MaxTracks = v
	}
	if v := viper.GetInt("playlist-ttl-days"); v > 0 {
		cfg.Playlist.TTLDays = v
	}

	cfg.Flood.LimitPerMinute = viper.GetInt("rate-limit")

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

const noneProvider = "none"

func runUniTune(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting UniTune",
		zap.String("base_url", config.Resolver.BaseURL),
		zap.String("llm_provider", config.LLM.Provider))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var ranker core.MatchRanker
	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		provider, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
		if err != nil {
			return fmt.Errorf("failed to create LLM provider: %w", err)
		}
		ranker = provider
	}

	adapters := []platforms.Adapter{
		platforms.NewTidalAdapter(),
		platforms.NewDeezerAdapter(),
		platforms.NewAppleMusicAdapter(),
		platforms.NewYouTubeAdapter(config.YouTube.APIKey),
		platforms.NewAmazonMusicAdapter(),
	}

	var cover core.CoverSource
	if config.Spotify.ClientID != "" {
		spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"), ranker)
		if err := spotifyClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to authenticate with Spotify: %w", err)
		}
		adapters = append(adapters, spotifyClient)
		cover = spotifyClient
	} else {
		logger.Warn("Spotify credentials not configured, running without Spotify extraction and cover art")
	}

	resultCache := cache.New(config.Resolver.CacheSize, config.Resolver.CacheTTL)

	registry := platforms.NewRegistry(adapters...)

	engine := core.NewEngine(
		&config.Resolver,
		registry,
		resultCache,
		cover,
		logger.Named("engine"),
	)

	playlists, err := store.NewPlaylistStore(
		config.Playlist.DatabasePath,
		config.Playlist.MaxTracks,
		config.Playlist.TTLDays,
		logger.Named("store"),
	)
	if err != nil {
		return fmt.Errorf("failed to open playlist store: %w", err)
	}
	defer playlists.Close()

	var gate *flood.Floodgate
	if config.Flood.LimitPerMinute > 0 {
		gate = flood.New(config.Flood.LimitPerMinute)
		defer gate.Stop()
	}

	httpServer := httpserver.NewServer(config, engine, playlists, gate, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				logger.Debug("Cache status", zap.Int("entries", resultCache.Len()))
			}
		}
	})

	logger.Info("UniTune started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)),
		zap.Strings("platforms", platformNames(registry)))

	if err := g.Wait(); err != nil {
		logger.Error("UniTune stopped with error", zap.Error(err))
		return err
	}

	logger.Info("UniTune stopped gracefully")
	return nil
}

func platformNames(registry *platforms.Registry) []string {
	var names []string
	for _, p := range registry.Platforms() {
		names = append(names, string(p))
	}
	return names
}

func validateConfig() error {
	if config.Resolver.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}

	if config.Spotify.ClientID != "" && config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required when a client ID is set")
	}

	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		if config.LLM.APIKey == "" && config.LLM.Provider != "ollama" {
			return fmt.Errorf("LLM API key is required for provider: %s", config.LLM.Provider)
		}
	}

	return nil
}
