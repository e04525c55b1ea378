package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Onboard — onboarding and workspace provisioning API",
	Long:  "Onboard is the backend that takes an authenticated identity-provider user through first-time setup: it resolves the local user record, provisions their workspace with collaborators and an optional subscription in one atomic save, and gates the application behind verified-email and completed-onboarding checks.",
}

func init() {
	// Local development reads secrets from a .env file; absence is fine.
	cobra.OnInitialize(func() { _ = godotenv.Load() })
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/onboard.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
