// Package cmd contains all CLI commands for glados-admin.
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// options holds the global flags shared by every subcommand
type options struct {
	url    string
	token  string
	output string
}

func (o *options) client() *Client {
	return NewClient(o.url, o.token)
}

func (o *options) jsonOutput() bool {
	return o.output == "json"
}

// Client wraps HTTP client for registry API calls
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new registry API client. token may be empty when the
// server does not require one.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Request makes an HTTP request to the registry API
func (c *Client) Request(method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// printJSON formats and prints JSON output
func printJSON(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var formatted bytes.Buffer
	if err := json.Indent(&formatted, data, "", "  "); err != nil {
		// If it's not valid JSON, just print as-is
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, formatted.String())
	return err
}

// printTable prints data in a simple table format
func printTable(w io.Writer, headers []string, rows [][]string) {
	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, 0, len(cells))
		for i, cell := range cells {
			if i < len(widths) {
				parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(headers)
	separators := make([]string, len(headers))
	for i := range headers {
		separators[i] = strings.Repeat("-", widths[i])
	}
	line(separators)
	for _, row := range rows {
		line(row)
	}
}

// decode unmarshals an API response into v
func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// NewRootCmd builds the glados-admin command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "glados-admin",
		Short: "CLI tool for managing the GLaDOS registry",
		Long: `glados-admin is a command-line tool for managing the GLaDOS registry
through its JSON API.

It provides commands for managing:
  - Servers: Register, list, update and unregister servers, and check liveness
  - Portal configs: Create, list, update and delete shared portal configs
  - Portals: Create, list, update and delete portals

Examples:
  # Register a server
  glados-admin server register --name lobby --ip 10.0.0.5 --port 25565

  # Check every server
  glados-admin server status

  # Bind portal 7 to a config
  glados-admin portal create --index 7 --config <config-id> --color 255,0,0

Environment Variables:
  GLADOS_URL        Base URL of the registry API (default: http://localhost:8080)
  GLADOS_API_TOKEN  Bearer token for mutating requests`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.url, "url", "u", getEnvOrDefault("GLADOS_URL", "http://localhost:8080"), "Registry API base URL")
	rootCmd.PersistentFlags().StringVarP(&opts.token, "token", "t", os.Getenv("GLADOS_API_TOKEN"), "API token for mutating requests")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format: table, json")

	rootCmd.AddCommand(newServerCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newPortalCmd(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
