// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sonify CLI, which submits PDFs to
// the SonifyReads conversion service for delivery as audio by email.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sonifyreads/internal/secrets"
	"github.com/pdiddy/sonifyreads/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the sonify CLI.
var rootCmd = &cobra.Command{
	Use:   "sonify",
	Short: "Turn PDFs into audio delivered by email",
	Long: `sonify uploads a PDF together with your email address to the SonifyReads
conversion service. The service extracts the text, narrates it, and emails
you the resulting MP3.

The service location is read from api_url in sonify.yaml, from the
SONIFY_API_URL environment variable, or from a .env file in the working
directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sonify.yaml or ~/.config/sonify/sonify.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the conversion service")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetDefault("timeout", types.DefaultTimeout)
	viper.SetDefault("user_agent", types.DefaultUserAgent+" ("+version+")")
	viper.SetDefault("max_file_size", types.MaxFileSize)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.dir", defaultHistoryDir())
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sonify")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "sonify"))
		}
	}

	viper.SetEnvPrefix("SONIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupLogger installs the default slog logger on stderr. --verbose forces
// debug level; otherwise log_level applies.
func setupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		level = slog.LevelWarn
	}
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadClientConfig assembles the client configuration from viper and the
// loaded secrets.
func loadClientConfig() types.ClientConfig {
	return types.ClientConfig{
		Upload: types.UploadConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("timeout"),
				UserAgent: viper.GetString("user_agent"),
			},
			APIURL:      viper.GetString("api_url"),
			APIToken:    loadedSecrets.Get(secrets.KeyAPIToken, viper.GetString("api_token")),
			MaxFileSize: viper.GetInt64("max_file_size"),
		}.WithDefaults(),
		History: types.HistoryConfig{
			Enabled: viper.GetBool("history.enabled"),
			Dir:     viper.GetString("history.dir"),
		},
	}
}

func defaultHistoryDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sonify")
	}
	return ".sonify"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
