package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// PortalConfig represents a portal config response
type PortalConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Destination string `json:"destination"`
	Enabled     bool   `json:"enabled"`
}

func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage portal configs",
		Long:  `Commands for managing the shared configs that portals are bound to.`,
	}

	configCmd.AddCommand(
		newConfigListCmd(opts),
		newConfigGetCmd(opts),
		newConfigCreateCmd(opts),
		newConfigUpdateCmd(opts),
		newConfigDeleteCmd(opts),
	)
	return configCmd
}

func newConfigListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all portal configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().Request(http.MethodGet, "/api/portal/config", nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}

			var configs []PortalConfig
			if err := decode(data, &configs); err != nil {
				return err
			}

			if len(configs) == 0 {
				fmt.Fprintln(out, "No portal configs found.")
				return nil
			}

			headers := []string{"ID", "NAME", "DESTINATION", "ENABLED"}
			rows := make([][]string, len(configs))
			for i, c := range configs {
				enabled := "yes"
				if !c.Enabled {
					enabled = "no"
				}
				rows[i] = []string{c.ID, c.Name, c.Destination, enabled}
			}
			printTable(out, headers, rows)
			return nil
		},
	}
}

func newConfigGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [config-id]",
		Short: "Get a specific portal config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().Request(http.MethodGet, "/api/portal/config/"+args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func newConfigCreateCmd(opts *options) *cobra.Command {
	var cfg PortalConfig

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new portal config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Name == "" {
				return fmt.Errorf("--name is required")
			}

			data, err := opts.client().Request(http.MethodPost, "/api/portal/config", cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}

			var created PortalConfig
			if err := decode(data, &created); err != nil {
				return err
			}
			fmt.Fprintf(out, "Portal config '%s' created successfully.\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.ID, "id", "", "Config ID (UUID, generated when omitted)")
	cmd.Flags().StringVar(&cfg.Name, "name", "", "Config name (required)")
	cmd.Flags().StringVar(&cfg.Description, "description", "", "Free-form description")
	cmd.Flags().StringVar(&cfg.Destination, "destination", "", "Destination the portal leads to")
	cmd.Flags().BoolVar(&cfg.Enabled, "enabled", true, "Whether portals using this config are active")
	return cmd
}

func newConfigUpdateCmd(opts *options) *cobra.Command {
	var update PortalConfig

	cmd := &cobra.Command{
		Use:   "update [config-id]",
		Short: "Update a portal config",
		Long:  `Update an existing portal config. Fields not given on the command line keep their current value.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID := args[0]

			client := opts.client()
			data, err := client.Request(http.MethodGet, "/api/portal/config/"+configID, nil)
			if err != nil {
				return err
			}

			var existing PortalConfig
			if err := decode(data, &existing); err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				existing.Name = update.Name
			}
			if flags.Changed("description") {
				existing.Description = update.Description
			}
			if flags.Changed("destination") {
				existing.Destination = update.Destination
			}
			if flags.Changed("enabled") {
				existing.Enabled = update.Enabled
			}

			data, err = client.Request(http.MethodPut, "/api/portal/config/"+configID, existing)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}
			fmt.Fprintf(out, "Portal config '%s' updated successfully.\n", configID)
			return nil
		},
	}

	cmd.Flags().StringVar(&update.Name, "name", "", "New name")
	cmd.Flags().StringVar(&update.Description, "description", "", "New description")
	cmd.Flags().StringVar(&update.Destination, "destination", "", "New destination")
	cmd.Flags().BoolVar(&update.Enabled, "enabled", true, "Enable or disable the config")
	return cmd
}

func newConfigDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [config-id]",
		Short: "Delete a portal config",
		Long: `Delete a portal config.

A config that is still referenced by a portal cannot be deleted; delete or
rebind those portals first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.client().Request(http.MethodDelete, "/api/portal/config/"+args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Portal config '%s' deleted successfully.\n", args[0])
			return nil
		},
	}
}
