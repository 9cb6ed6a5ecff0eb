package cmd

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Portal represents a portal response
type Portal struct {
	Index           int64  `json:"index"`
	FrameBlockID    int    `json:"frameBlockId"`
	LightWithItemID int    `json:"lightWithItemId"`
	ColorB          int    `json:"color_b"`
	ColorG          int    `json:"color_g"`
	ColorR          int    `json:"color_r"`
	ConfigID        string `json:"configId"`
}

// parseColor parses an "R,G,B" triple
func parseColor(s string) (r, g, b int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("color must be R,G,B, got %q", s)
	}
	var rgb [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return 0, 0, 0, fmt.Errorf("color component %q must be between 0 and 255", p)
		}
		rgb[i] = v
	}
	return rgb[0], rgb[1], rgb[2], nil
}

func newPortalCmd(opts *options) *cobra.Command {
	portalCmd := &cobra.Command{
		Use:   "portal",
		Short: "Manage portals",
		Long:  `Commands for managing portals. Every portal is bound to a portal config.`,
	}

	portalCmd.AddCommand(
		newPortalListCmd(opts),
		newPortalGetCmd(opts),
		newPortalCreateCmd(opts),
		newPortalUpdateCmd(opts),
		newPortalDeleteCmd(opts),
	)
	return portalCmd
}

func newPortalListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all portals",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().Request(http.MethodGet, "/api/portal", nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}

			var portals []Portal
			if err := decode(data, &portals); err != nil {
				return err
			}

			if len(portals) == 0 {
				fmt.Fprintln(out, "No portals found.")
				return nil
			}

			headers := []string{"INDEX", "FRAME", "LIGHT", "COLOR", "CONFIG"}
			rows := make([][]string, len(portals))
			for i, p := range portals {
				rows[i] = []string{
					strconv.FormatInt(p.Index, 10),
					strconv.Itoa(p.FrameBlockID),
					strconv.Itoa(p.LightWithItemID),
					fmt.Sprintf("%d,%d,%d", p.ColorR, p.ColorG, p.ColorB),
					p.ConfigID,
				}
			}
			printTable(out, headers, rows)
			return nil
		},
	}
}

func newPortalGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [index]",
		Short: "Get a specific portal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client().Request(http.MethodGet, "/api/portal/"+args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

// portalFlags are shared by create and update
type portalFlags struct {
	index    int64
	frame    int
	light    int
	color    string
	configID string
}

func (f *portalFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.frame, "frame-block", 0, "Frame block ID")
	cmd.Flags().IntVar(&f.light, "light-item", 0, "Item ID that lights the portal")
	cmd.Flags().StringVar(&f.color, "color", "0,0,0", "Portal color as R,G,B")
	cmd.Flags().StringVar(&f.configID, "config", "", "Portal config ID")
}

// apply copies every flag the user set onto p
func (f *portalFlags) apply(cmd *cobra.Command, p *Portal) error {
	flags := cmd.Flags()
	if flags.Changed("frame-block") {
		p.FrameBlockID = f.frame
	}
	if flags.Changed("light-item") {
		p.LightWithItemID = f.light
	}
	if flags.Changed("color") {
		r, g, b, err := parseColor(f.color)
		if err != nil {
			return err
		}
		p.ColorR, p.ColorG, p.ColorB = r, g, b
	}
	if flags.Changed("config") {
		p.ConfigID = f.configID
	}
	return nil
}

func newPortalCreateCmd(opts *options) *cobra.Command {
	var f portalFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new portal",
		Long: `Create a new portal at a unique index, bound to an existing portal config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("index") {
				return fmt.Errorf("--index is required")
			}
			if f.configID == "" {
				return fmt.Errorf("--config is required")
			}

			portal := Portal{Index: f.index}
			if err := f.apply(cmd, &portal); err != nil {
				return err
			}

			data, err := opts.client().Request(http.MethodPost, "/api/portal", portal)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}
			fmt.Fprintf(out, "Portal %d created successfully.\n", f.index)
			return nil
		},
	}

	cmd.Flags().Int64Var(&f.index, "index", 0, "Portal index (required)")
	f.register(cmd)
	return cmd
}

func newPortalUpdateCmd(opts *options) *cobra.Command {
	var f portalFlags

	cmd := &cobra.Command{
		Use:   "update [index]",
		Short: "Update a portal",
		Long:  `Update an existing portal. Fields not given on the command line keep their current value.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := args[0]

			client := opts.client()
			data, err := client.Request(http.MethodGet, "/api/portal/"+index, nil)
			if err != nil {
				return err
			}

			var existing Portal
			if err := decode(data, &existing); err != nil {
				return err
			}
			if err := f.apply(cmd, &existing); err != nil {
				return err
			}

			data, err = client.Request(http.MethodPut, "/api/portal/"+index, existing)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput() {
				return printJSON(out, data)
			}
			fmt.Fprintf(out, "Portal %s updated successfully.\n", index)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func newPortalDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [index]",
		Short: "Delete a portal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.client().Request(http.MethodDelete, "/api/portal/"+args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Portal %s deleted successfully.\n", args[0])
			return nil
		},
	}
}
