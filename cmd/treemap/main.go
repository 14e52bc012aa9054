// Command treemap is a terminal client for the tree inventory API.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/futaoo/INTERVAL/internal/client"
	"github.com/futaoo/INTERVAL/internal/trees"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	baseURL string
	printer = message.NewPrinter(language.English)
)

var rootCmd = &cobra.Command{
	Use:   "treemap",
	Short: "Query tree statistics and render styled tree layers",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if baseURL != "" {
			return nil
		}
		baseURL = client.LoadFromEnv().BaseURL
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "api", "", "API base URL (default: env API_BASE_URL or http://localhost:3001)")
	rootCmd.AddCommand(statsCmd, filterCmd, stylesCmd, renderCmd)
}

func newClient() (*client.Client, error) {
	cfg := client.LoadFromEnv()
	cfg.BaseURL = baseURL
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return client.New(cfg), nil
}

func readFilter(path string) (trees.FilterRequest, error) {
	var req trees.FilterRequest
	b, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read filter: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("parse filter %s: %w", path, err)
	}
	return req, nil
}

func main() {
	_ = godotenv.Load(".env.local")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
