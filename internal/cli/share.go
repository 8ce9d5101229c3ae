package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/existflow/dashcraft/internal/db"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/remote"
	"github.com/spf13/cobra"
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Manage who can access a project",
	Long: `Invite collaborators by email and manage their roles.

Roles: viewer (read and comment), editor (change the canvas), admin (also
share and invite). Only the owner can delete the project.

Examples:
  dashcraft share invite bob@example.com --role editor
  dashcraft share role bob admin
  dashcraft share remove bob`,
}

var shareListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List collaborators",
	RunE:    runShareList,
}

var shareInviteCmd = &cobra.Command{
	Use:   "invite [email]",
	Short: "Give an existing user access to the project",
	Args:  cobra.ExactArgs(1),
	RunE:  runShareInvite,
}

var shareRoleCmd = &cobra.Command{
	Use:   "role [user] [role]",
	Short: "Change a collaborator's role",
	Args:  cobra.ExactArgs(2),
	RunE:  runShareRole,
}

var shareRemoveCmd = &cobra.Command{
	Use:     "remove [user]",
	Aliases: []string{"rm"},
	Short:   "Remove a collaborator",
	Args:    cobra.ExactArgs(1),
	RunE:    runShareRemove,
}

var shareLeaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Remove yourself from the project",
	RunE:  runShareLeave,
}

var shareRole string

func init() {
	shareInviteCmd.Flags().StringVarP(&shareRole, "role", "r", string(model.RoleViewer), "Role: viewer, editor or admin")

	shareCmd.AddCommand(shareListCmd)
	shareCmd.AddCommand(shareInviteCmd)
	shareCmd.AddCommand(shareRoleCmd)
	shareCmd.AddCommand(shareRemoveCmd)
	shareCmd.AddCommand(shareLeaveCmd)
}

// shareTarget returns a logged-in client and the selected project
func shareTarget(ctx context.Context) (*remote.Client, string, error) {
	client, err := loggedInClient()
	if err != nil {
		return nil, "", err
	}
	cache := openCache()
	defer closeCache(cache)
	projectID, err := resolveProject(ctx, cache)
	if err != nil {
		return nil, "", err
	}
	return client, projectID, nil
}

// findCollaborator resolves a username, email or user id prefix
func findCollaborator(list []model.Collaborator, ref string) (model.Collaborator, error) {
	for _, c := range list {
		if c.Profile != nil && (strings.EqualFold(c.Profile.Username, ref) || strings.EqualFold(c.Profile.Email, ref)) {
			return c, nil
		}
	}
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.UserID
	}
	id, err := matchID(ids, ref)
	if err != nil {
		return model.Collaborator{}, fmt.Errorf("collaborator not found: %w", err)
	}
	for _, c := range list {
		if c.UserID == id {
			return c, nil
		}
	}
	return model.Collaborator{}, fmt.Errorf("collaborator not found: %s", ref)
}

func collaboratorName(c model.Collaborator) string {
	if c.Profile == nil {
		return shortID(c.UserID)
	}
	return c.Profile.Username
}

func runShareList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, projectID, err := shareTarget(ctx)
	if err != nil {
		return err
	}
	project, err := client.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	list, err := client.ListCollaborators(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list collaborators: %w", err)
	}

	fmt.Printf("\n👥 %s\n\n", project.Name)
	fmt.Printf("  %-20s  %-28s  %s\n", "User", "Email", "Role")
	fmt.Println(strings.Repeat("─", 60))
	for _, c := range list {
		email := ""
		if c.Profile != nil {
			email = c.Profile.Email
		}
		fmt.Printf("  %-20s  %-28s  %s\n", truncate(collaboratorName(c), 20), truncate(email, 28), c.Role)
	}
	if len(list) == 0 {
		fmt.Println("  Only the owner has access.")
	}
	if project.IsPublic {
		fmt.Println("\n  🌐 Anyone with the link can view this project.")
	}
	fmt.Println()
	return nil
}

func runShareInvite(cmd *cobra.Command, args []string) error {
	role, err := model.ParseRole(shareRole)
	if err != nil {
		return err
	}
	email, err := model.ValidateEmail(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, projectID, err := shareTarget(ctx)
	if err != nil {
		return err
	}

	c, err := client.InviteCollaborator(ctx, projectID, email, role)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return fmt.Errorf("no account uses %s, ask them to register first", email)
		}
		return fmt.Errorf("failed to invite: %w", err)
	}
	fmt.Printf("✓ Invited %s as %s\n", email, c.Role)
	return nil
}

func runShareRole(cmd *cobra.Command, args []string) error {
	role, err := model.ParseRole(args[1])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, projectID, err := shareTarget(ctx)
	if err != nil {
		return err
	}
	list, err := client.ListCollaborators(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list collaborators: %w", err)
	}
	target, err := findCollaborator(list, args[0])
	if err != nil {
		return err
	}

	if _, err := client.UpdateCollaboratorRole(ctx, projectID, target.UserID, role); err != nil {
		return fmt.Errorf("failed to change role: %w", err)
	}
	fmt.Printf("✓ %s is now %s\n", collaboratorName(target), role)
	return nil
}

func runShareRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, projectID, err := shareTarget(ctx)
	if err != nil {
		return err
	}
	list, err := client.ListCollaborators(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list collaborators: %w", err)
	}
	target, err := findCollaborator(list, args[0])
	if err != nil {
		return err
	}
	if !confirm(fmt.Sprintf("Remove %s from the project?", collaboratorName(target))) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := client.RemoveCollaborator(ctx, projectID, target.UserID); err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}
	fmt.Printf("🗑️  Removed %s\n", collaboratorName(target))
	return nil
}

func runShareLeave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, projectID, err := shareTarget(ctx)
	if err != nil {
		return err
	}
	if !confirm("Leave this project?") {
		fmt.Println("Cancelled.")
		return nil
	}
	if err := client.RemoveCollaborator(ctx, projectID, client.UserID()); err != nil {
		return fmt.Errorf("failed to leave project: %w", err)
	}

	cache := openCache()
	defer closeCache(cache)
	if cache != nil {
		_ = cache.DeleteSnapshot(ctx, projectID)
		_ = cache.ClearState(ctx, db.KeyCurrentProject)
	}
	fmt.Println("👋 Left the project")
	return nil
}
