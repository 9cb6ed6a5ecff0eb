package cmd

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

// Server represents a server response
type Server struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// Verdict represents a liveness check response
type Verdict struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	LatencyMS int64  `json:"latency_ms"`
	CheckedAt string `json:"checked_at"`
}

func newServerCmd(opts *options) *cobra.Command {
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Manage servers",
		Long:  `Commands for registering servers and checking their liveness.`,
	}

	serverCmd.AddCommand(
		newServerListCmd(opts),
		newServerGetCmd(opts),
		newServerRegisterCmd(opts),
		newServerUpdateCmd(opts),
		newServerDeleteCmd(opts),
		newServerStatusCmd(opts),
	)
	return serverCmd
}

func newServerListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all servers",
		Long:  `List all registered servers in registration order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().Request(http.MethodGet, "/api/server", nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}

			var servers []Server
			if err := decode(data, &servers); err != nil {
				return err
			}

			if len(servers) == 0 {
				fmt.Fprintln(out, "No servers found.")
				return nil
			}

			headers := []string{"ID", "NAME", "IP", "PORT"}
			rows := make([][]string, len(servers))
			for i, s := range servers {
				rows[i] = []string{s.ID, s.Name, s.IP, strconv.Itoa(s.Port)}
			}
			printTable(out, headers, rows)
			return nil
		},
	}
}

func newServerGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [server-id]",
		Short: "Get a specific server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().Request(http.MethodGet, "/api/server/"+args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func newServerRegisterCmd(opts *options) *cobra.Command {
	var (
		id   string
		name string
		ip   string
		port int
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new server",
		Long: `Register a new server with the registry.

The IP must be an IPv4 or IPv6 literal and the port must be between 1 and
65535. Each (ip, port) pair can only be registered once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip == "" {
				return fmt.Errorf("--ip is required")
			}
			if port == 0 {
				return fmt.Errorf("--port is required")
			}

			reqBody := map[string]any{
				"name": name,
				"ip":   ip,
				"port": port,
			}
			if id != "" {
				reqBody["id"] = id
			}

			data, err := opts.client().Request(http.MethodPost, "/api/server", reqBody)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}

			var server Server
			if err := decode(data, &server); err != nil {
				return err
			}
			fmt.Fprintf(out, "Server '%s' registered successfully.\n", server.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Server ID (UUID, generated when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&ip, "ip", "", "IP address (required)")
	cmd.Flags().IntVar(&port, "port", 0, "TCP port (required)")
	return cmd
}

func newServerUpdateCmd(opts *options) *cobra.Command {
	var (
		name string
		ip   string
		port int
	)

	cmd := &cobra.Command{
		Use:   "update [server-id]",
		Short: "Update a server",
		Long:  `Update an existing server. Fields not given on the command line keep their current value.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverID := args[0]

			// First get the existing server
			client := opts.client()
			data, err := client.Request(http.MethodGet, "/api/server/"+serverID, nil)
			if err != nil {
				return err
			}

			var existing Server
			if err := decode(data, &existing); err != nil {
				return err
			}

			if cmd.Flags().Changed("name") {
				existing.Name = name
			}
			if cmd.Flags().Changed("ip") {
				existing.IP = ip
			}
			if cmd.Flags().Changed("port") {
				existing.Port = port
			}

			data, err = client.Request(http.MethodPut, "/api/server/"+serverID, existing)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}
			fmt.Fprintf(out, "Server '%s' updated successfully.\n", serverID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&ip, "ip", "", "New IP address")
	cmd.Flags().IntVar(&port, "port", 0, "New TCP port")
	return cmd
}

func newServerDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [server-id]",
		Aliases: []string{"unregister"},
		Short:   "Unregister a server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.client().Request(http.MethodDelete, "/api/server/"+args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server '%s' unregistered successfully.\n", args[0])
			return nil
		},
	}
}

func newServerStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status [server-id]",
		Short: "Check server liveness",
		Long: `Probe one server, or every registered server when no ID is given.

A server is online when a TCP connection succeeds, offline when it is
refused or the host is unreachable, and unknown when no answer arrives
before the configured timeout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/server/status"
			if len(args) == 1 {
				path += "/" + args[0]
			}

			data, err := opts.client().Request(http.MethodGet, path, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}

			var verdicts []Verdict
			if len(args) == 1 {
				var v Verdict
				if err := decode(data, &v); err != nil {
					return err
				}
				verdicts = append(verdicts, v)
			} else if err := decode(data, &verdicts); err != nil {
				return err
			}

			if len(verdicts) == 0 {
				fmt.Fprintln(out, "No servers found.")
				return nil
			}

			headers := []string{"ID", "STATUS", "LATENCY", "REASON"}
			rows := make([][]string, len(verdicts))
			for i, v := range verdicts {
				rows[i] = []string{v.ID, v.Status, fmt.Sprintf("%dms", v.LatencyMS), v.Reason}
			}
			printTable(out, headers, rows)
			return nil
		},
	}
}
