package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-remittance/config"
)

var rootCmd = &cobra.Command{
	Use:   "remittance",
	Short: "Remittance microservice",
	Long:  "A remittance microservice for card-funded EUR to GNF transfers, provider webhooks and payment lifecycle jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Log.Level, err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "", "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.Log.Format)
	}
	logrus.SetOutput(os.Stdout)
	return nil
}
