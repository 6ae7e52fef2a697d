package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vedthemaster/lexsy-frontend/config"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
	"github.com/vedthemaster/lexsy-frontend/service"
)

var (
	cfgFile string
	baseURL string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "lexsy-cli",
	Short: "Fill legal document templates from the terminal",
	Long: `lexsy-cli uploads a .docx template to the placeholder backend, walks you
through the placeholder conversation and downloads the completed document.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		initUI(noColor)

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.Init(&logger.Config{Level: level, Format: "text", Output: os.Stderr})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&baseURL, "api", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if err := service.SetUnidocLicense(cfg.Unidoc.LicenseKey); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
