// Package api provides HTTP API handlers for the GLaDOS registry.
package api

// Version is the build version reported by the /status endpoint. It is set by
// the server binary at startup.
var Version = "dev"

// APIVersion represents the current API version supported by this server.
// Clients use it to detect which endpoints are available; URLs carry no
// version prefix.
const (
	// APIVersion1 is the original API version.
	APIVersion1 = 1

	// CurrentAPIVersion is the highest API version supported by this server.
	CurrentAPIVersion = APIVersion1
)

// APICapabilities describes the features available at each API version.
var APICapabilities = map[int][]string{
	APIVersion1: {
		"servers",
		"server-status",
		"bulk-status", // GET /api/server/status
		"portal-configs",
		"portals",
	},
}

// StatusResponse is the response from the /status endpoint.
type StatusResponse struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	Version      string   `json:"version"`
	Store        string   `json:"store"`
	APIVersion   int      `json:"api_version"`
	Capabilities []string `json:"capabilities,omitempty"`
}
