package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopfront/shopctl/internal/client"
	"github.com/shopfront/shopctl/internal/session"
	"github.com/shopfront/shopctl/pkg/output"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Sign in, sign up and manage the stored session",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the storefront",
	Long:  "Authenticate with email and password and save the session to the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if email == "" {
			return fmt.Errorf("email is required")
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		profile := profileName(cmd)
		if server, _ := cmd.Flags().GetString("server"); server != "" {
			if err := cfg.SetServerURL(profile, server); err != nil {
				return fmt.Errorf("failed to save server URL: %w", err)
			}
		}

		auth := client.NewAuthClient(newAPIClient(cmd))
		sess, err := auth.Login(cmd.Context(), client.Credentials{Email: email, Password: password})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := cfg.UseProfile(profile); err != nil {
			return fmt.Errorf("failed to select profile: %w", err)
		}

		output.Success("Successfully logged in as %s", sess.User.Username)
		output.Info("Profile '%s' saved to %s", profile, cfg.Path())
		return nil
	},
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create a new user account. With --admin an administrator account is
created instead, which requires being logged in as an administrator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		confirm, _ := cmd.Flags().GetString("confirm-password")
		admin, _ := cmd.Flags().GetBool("admin")

		form := client.RegistrationForm{
			Username:        username,
			Email:           email,
			Password:        password,
			ConfirmPassword: confirm,
		}

		auth := client.NewAuthClient(newAPIClient(cmd))
		register := auth.Register
		if admin {
			register = auth.RegisterAdmin
		}
		if err := register(cmd.Context(), form); err != nil {
			var vErr *client.ValidationError
			if errors.As(err, &vErr) {
				return err
			}
			return fmt.Errorf("registration failed: %w", err)
		}

		if admin {
			output.Success("Administrator %s registered", username)
		} else {
			output.Success("User %s registered", username)
		}
		output.Info("Run 'shopctl auth login --email %s' to sign in", email)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out",
	Long:  "End the session on the server and remove the stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := client.NewAuthClient(newAPIClient(cmd))
		if err := auth.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}

		output.Success("Successfully logged out from profile '%s'", profileName(cmd))
		return nil
	},
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token now",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := client.NewAuthClient(newAPIClient(cmd))
		if err := auth.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}

		output.Success("Session refreshed for profile '%s'", profileName(cmd))
		return nil
	},
}

type whoami struct {
	Profile   string       `json:"profile" yaml:"profile"`
	Server    string       `json:"server" yaml:"server"`
	Username  string       `json:"username" yaml:"username"`
	Role      session.Role `json:"role,omitempty" yaml:"role,omitempty"`
	Subject   string       `json:"subject,omitempty" yaml:"subject,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool         `json:"expired" yaml:"expired"`
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display current user information",
	Long: `Show the user stored in the profile. The access token is decoded
locally to report its expiry; nothing is sent to the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := profileName(cmd)
		sess, ok, err := cfg.SessionStore(profile).Load()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("not logged in, please run 'shopctl auth login'")
		}

		info := whoami{
			Profile:  profile,
			Server:   serverURL(cmd),
			Username: sess.User.Username,
			Role:     sess.User.Role,
		}
		if tok, err := session.InspectToken(sess.AccessToken); err == nil {
			info.Subject = tok.Subject
			if !tok.ExpiresAt.IsZero() {
				info.ExpiresAt = &tok.ExpiresAt
			}
			info.Expired = tok.Expired(time.Now())
		}

		format, _ := outputFormat(cmd)
		return output.Print(format, info, func() {
			output.Field("Profile", info.Profile)
			output.Field("Server", info.Server)
			output.Field("Username", info.Username)
			if info.Role != "" {
				output.Field("Role", info.Role)
			}
			if info.Subject != "" && info.Subject != info.Username {
				output.Field("Subject", info.Subject)
			}
			switch {
			case info.ExpiresAt == nil:
				output.Field("Token expiry", "unknown")
			case info.Expired:
				output.Field("Token expiry", info.ExpiresAt.Local().Format(time.RFC1123)+" (expired, will refresh on next request)")
			default:
				output.Field("Token expiry", info.ExpiresAt.Local().Format(time.RFC1123))
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authWhoamiCmd)

	authLoginCmd.Flags().StringP("email", "e", "", "Email address")
	authLoginCmd.Flags().StringP("password", "p", "", "Password")
	authLoginCmd.MarkFlagRequired("email")
	authLoginCmd.MarkFlagRequired("password")

	authRegisterCmd.Flags().StringP("username", "u", "", "Username")
	authRegisterCmd.Flags().StringP("email", "e", "", "Email address")
	authRegisterCmd.Flags().StringP("password", "p", "", "Password")
	authRegisterCmd.Flags().String("confirm-password", "", "Repeat the password")
	authRegisterCmd.Flags().Bool("admin", false, "Register an administrator (requires an admin session)")
	authRegisterCmd.MarkFlagRequired("username")
	authRegisterCmd.MarkFlagRequired("email")
	authRegisterCmd.MarkFlagRequired("password")
	authRegisterCmd.MarkFlagRequired("confirm-password")
}
