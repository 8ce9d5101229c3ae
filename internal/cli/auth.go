package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/dashcraft/internal/remote"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Manage your account on the dashcraft server.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from the server",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your display name or avatar",
	Long: `Update the profile other collaborators see next to your comments.

Examples:
  dashcraft auth profile --name "Ann Lee"
  dashcraft auth profile --avatar https://example.com/ann.png`,
	RunE: runProfile,
}

var (
	profileName   string
	profileAvatar string
)

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(whoamiCmd)
	authCmd.AddCommand(profileCmd)

	loginCmd.Flags().String("email", "", "Login using magic link for this email")
	loginCmd.Flags().String("token", "", "Verify magic link token")

	profileCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileCmd.Flags().StringVar(&profileAvatar, "avatar", "", "Avatar URL")
}

func runLogin(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	email, _ := cmd.Flags().GetString("email")
	token, _ := cmd.Flags().GetString("token")

	if token != "" {
		fmt.Printf("🔄 Verifying magic link token...\n")
		if err := client.VerifyMagicLink(ctx, token); err != nil {
			return err
		}
		fmt.Println("✅ Logged in successfully!")
		return nil
	}

	if email != "" {
		fmt.Printf("🔄 Requesting magic link for %s...\n", email)
		resp, err := client.RequestMagicLink(ctx, email)
		if err != nil {
			return err
		}
		fmt.Println("📬 Magic link requested! Check your email (or server logs in dev).")
		if resp.Token != "" {
			fmt.Printf("🔑 Development Token: %s\n", resp.Token)
		}

		inputToken := prompt("Enter Magic Link Token: ")
		if inputToken == "" {
			fmt.Println("❌ Token required.")
			return nil
		}

		fmt.Printf("🔄 Verifying magic link...\n")
		if err := client.VerifyMagicLink(ctx, inputToken); err != nil {
			return err
		}
		fmt.Println("✅ Logged in successfully!")
		return nil
	}

	username := prompt("Username: ")
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	fmt.Println("🔄 Logging in...")
	if err := client.Login(ctx, username, password); err != nil {
		return err
	}

	fmt.Println("✅ Logged in successfully!")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	if !client.IsLoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	fmt.Println("🔄 Logging out...")
	if err := client.Logout(context.Background()); err != nil {
		return err
	}

	fmt.Println("✅ Logged out successfully.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	username := prompt("Username: ")
	email := prompt("Email: ")
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirmPassword, err := promptPassword("Confirm Password: ")
	if err != nil {
		return err
	}

	if password != confirmPassword {
		return fmt.Errorf("passwords do not match")
	}

	fmt.Println("🔄 Creating account...")
	if err := client.Register(context.Background(), username, email, password); err != nil {
		return err
	}

	fmt.Println("✅ Account created and logged in!")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}

	me, err := client.Me(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("👤 %s (@%s)\n", me.Name(), me.Username)
	fmt.Printf("   Email:  %s\n", me.Email)
	fmt.Printf("   Server: %s\n", client.ServerURL())
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}

	var update remote.ProfileUpdate
	if cmd.Flags().Changed("name") {
		name := strings.TrimSpace(profileName)
		update.DisplayName = &name
	}
	if cmd.Flags().Changed("avatar") {
		avatar := strings.TrimSpace(profileAvatar)
		update.AvatarURL = &avatar
	}
	if update.DisplayName == nil && update.AvatarURL == nil {
		return fmt.Errorf("nothing to update, pass --name or --avatar")
	}

	me, err := client.UpdateProfile(context.Background(), update)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Profile updated: %s\n", me.Name())
	return nil
}
