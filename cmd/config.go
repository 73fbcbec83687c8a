package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shopfront/shopctl/pkg/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Profile and config management",
	Long:  "List, select and edit the profiles stored in the config file",
}

type profileRow struct {
	Name     string `json:"name" yaml:"name"`
	Current  bool   `json:"current" yaml:"current"`
	Server   string `json:"server" yaml:"server"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	LoggedIn bool   `json:"logged_in" yaml:"logged_in"`
}

var configProfilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"ls"},
	Short:   "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([]profileRow, 0, len(names))
		for _, name := range names {
			p := cfg.Profiles[name]
			rows = append(rows, profileRow{
				Name:     name,
				Current:  name == cfg.CurrentProfile,
				Server:   cfg.ServerURL(name),
				Username: p.Username,
				LoggedIn: p.AccessToken != "",
			})
		}

		format, _ := outputFormat(cmd)
		return output.Print(format, rows, func() {
			if len(rows) == 0 {
				output.Info("No profiles found. Run 'shopctl auth login' to create one.")
				return
			}

			table := output.NewTable([]string{"", "Profile", "Server", "User", "Session"})
			for _, r := range rows {
				marker := ""
				if r.Current {
					marker = "*"
				}
				status := "logged out"
				if r.LoggedIn {
					status = "active"
				}
				table.AddRow([]string{marker, r.Name, r.Server, r.Username, status})
			}
			table.Render()
		})
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use [profile]",
	Short: "Switch the current profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.UseProfile(args[0]); err != nil {
			return err
		}

		output.Success("Current profile is now '%s'", args[0])
		return nil
	},
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server [url]",
	Short: "Pin the selected profile to a backend URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := profileName(cmd)
		if err := cfg.SetServerURL(profile, args[0]); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		output.Success("Profile '%s' now uses %s", profile, args[0])
		return nil
	},
}

var configRemoveCmd = &cobra.Command{
	Use:     "remove [profile]",
	Aliases: []string{"rm"},
	Short:   "Delete a profile and its stored session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveProfile(args[0]); err != nil {
			return err
		}

		output.Success("Profile '%s' removed", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configProfilesCmd)
	configCmd.AddCommand(configUseCmd)
	configCmd.AddCommand(configSetServerCmd)
	configCmd.AddCommand(configRemoveCmd)
}
