package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopfront/shopctl/internal/client"
	"github.com/shopfront/shopctl/pkg/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Your account",
	Long:  "Show and edit the signed-in user's account",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := client.NewProfileClient(newAPIClient(cmd)).Get(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}

		format, _ := outputFormat(cmd)
		return output.Print(format, p, func() {
			output.Field("ID", p.ID)
			output.Field("Username", p.Username)
			output.Field("Email", p.Email)
		})
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile",
	Long:  "Change username, email or password. Fields that are not given keep their current values.",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles := client.NewProfileClient(newAPIClient(cmd))

		current, err := profiles.Get(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}

		update := client.ProfileUpdate{Username: current.Username, Email: current.Email}
		if cmd.Flags().Changed("username") {
			update.Username, _ = cmd.Flags().GetString("username")
		}
		if cmd.Flags().Changed("email") {
			update.Email, _ = cmd.Flags().GetString("email")
		}
		update.Password, _ = cmd.Flags().GetString("password")
		update.ConfirmPassword, _ = cmd.Flags().GetString("confirm-password")

		if err := profiles.Update(cmd.Context(), current.ID, update); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}

		output.Success("Profile updated")
		if update.Username != current.Username {
			output.Warn("Username changed; log in again if requests start failing")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)

	profileUpdateCmd.Flags().StringP("username", "u", "", "New username")
	profileUpdateCmd.Flags().StringP("email", "e", "", "New email address")
	profileUpdateCmd.Flags().StringP("password", "p", "", "New password")
	profileUpdateCmd.Flags().String("confirm-password", "", "Repeat the new password")
}
