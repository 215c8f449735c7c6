package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "newsdbctl",
	Short: "NewsDB CLI for threading, cache inspection and benchmarking",
	Long: `newsdbctl talks to a running newsdb server to manage group
subscriptions, trigger syncs and benchmark thread building. The thread
and inspect commands work on local data and need no server.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	hostFlag string
	keyFlag  string
)

func init() {
	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "http://localhost:8080", "newsdb server base URL")
	rootCmd.PersistentFlags().StringVar(&keyFlag, "key", "", "API key (or NEWSDB_API_KEY)")
}

// Helper function to get environment variable with fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func apiHost() string {
	return strings.TrimRight(getEnvOrDefault("NEWSDB_HOST", hostFlag), "/")
}

func apiKey() string {
	if keyFlag != "" {
		return keyFlag
	}
	return os.Getenv("NEWSDB_API_KEY")
}

// apiJSON performs one request against the server and decodes the JSON
// response into out (when out is non-nil). Non-2xx responses come back
// as errors carrying the body.
func apiJSON(method, path string, body io.Reader, out any) error {
	req, err := http.NewRequest(method, apiHost()+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if k := apiKey(); k != "" {
		req.Header.Set("X-API-Key", k)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
