package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/existflow/dashcraft/internal/db"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/remote"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list, share and select dashboard projects.`,
}

var projectNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new project",
	Long: `Create a new project with one empty screen and select it.

Examples:
  dashcraft project new "Sales"
  dashcraft project new "Ops" --description "On-call dashboards"`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your projects",
	RunE:    runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project and your access to it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectShow,
}

var projectUseCmd = &cobra.Command{
	Use:   "use [project-id]",
	Short: "Select the project other commands work on",
	Long: `Select the project that canvas, comment and share commands use
when --project is not given.

Examples:
  dashcraft project use 3f2a9c1e
  dashcraft project use --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProjectUse,
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename [name]",
	Short: "Rename the project or change its description",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectRename,
}

var projectPublicCmd = &cobra.Command{
	Use:   "public [on|off]",
	Short: "Allow or stop anonymous read access",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectPublic,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a project",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

var projectPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send canvas edits saved while the server was unreachable",
	RunE:  runProjectPush,
}

var (
	projectDescription string
	projectClear       bool
)

func init() {
	projectNewCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")
	projectRenameCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")
	projectUseCmd.Flags().BoolVar(&projectClear, "clear", false, "Clear the selection")

	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectUseCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectPublicCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectPushCmd)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}
	name, err := model.ValidateProjectName(args[0])
	if err != nil {
		return err
	}
	desc, err := model.ValidateDescription(projectDescription)
	if err != nil {
		return err
	}

	ctx := context.Background()
	project, err := client.CreateProject(ctx, name, desc)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	cache := openCache()
	defer closeCache(cache)
	if cache != nil {
		_ = cache.PutProject(ctx, project)
		_ = cache.SetState(ctx, db.KeyCurrentProject, project.ID)
	}

	fmt.Printf("✓ Created project: %s (id: %s)\n", project.Name, project.ID)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	cache := openCache()
	defer closeCache(cache)

	projects, err := client.ListProjects(ctx)
	if err != nil {
		return listCachedProjects(ctx, cache, err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects found. Create one with: dashcraft project new \"Name\"")
		return nil
	}

	current := ""
	if cache != nil {
		current, _ = cache.GetState(ctx, db.KeyCurrentProject)
	}
	me := client.UserID()

	fmt.Println()
	fmt.Printf("  %-10s  %-24s  %-8s  %-7s  %s\n", "ID", "Name", "Owner", "Public", "Elements")
	fmt.Println(strings.Repeat("─", 66))
	for _, p := range projects {
		marker := "  "
		if p.ID == current {
			marker = "❯ "
		}
		owner := "shared"
		if p.OwnerID == me {
			owner = "you"
		}
		public := ""
		if p.IsPublic {
			public = "yes"
		}
		fmt.Printf("%s%-10s  %-24s  %-8s  %-7s  %d\n", marker, shortID(p.ID), truncate(p.Name, 24), owner, public, len(p.Elements))
	}
	fmt.Println(strings.Repeat("─", 66))
	fmt.Printf("  %d projects\n\n", len(projects))
	return nil
}

// listCachedProjects prints the cached projects when the server is down
func listCachedProjects(ctx context.Context, cache *db.DB, cause error) error {
	if cache == nil {
		return fmt.Errorf("failed to list projects: %w", cause)
	}
	snaps, err := cache.ListSnapshots(ctx)
	if err != nil || len(snaps) == 0 {
		return fmt.Errorf("failed to list projects: %w", cause)
	}
	fmt.Printf("⚠️  Server unreachable (%v), showing cached projects\n\n", cause)
	for _, s := range snaps {
		state := ""
		if s.Dirty {
			state = "unsent edits"
		}
		fmt.Printf("  %-10s  %-24s  %s\n", shortID(s.ProjectID), truncate(s.Name, 24), state)
	}
	fmt.Println()
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if len(args) == 1 {
		projectFlag = args[0]
	}
	cache := openCache()
	defer closeCache(cache)
	projectID, err := resolveProject(ctx, cache)
	if err != nil {
		return err
	}

	project, err := client.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	info, err := client.Access(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load access: %w", err)
	}

	fmt.Printf("📁 %s (%s)\n", project.Name, project.ID)
	if project.Description != "" {
		fmt.Printf("   %s\n", project.Description)
	}
	fmt.Printf("   Screens: %d  Elements: %d  Public: %t\n", len(project.Screens), len(project.Elements), project.IsPublic)
	fmt.Printf("   Updated: %s\n", project.UpdatedAt.Local().Format("2006-01-02 15:04"))
	p := info.Permissions
	fmt.Printf("   Your role: %s (edit %t, share %t, invite %t, comment %t, delete %t)\n",
		p.Role, p.CanEdit, p.CanShare, p.CanInvite, p.CanComment, p.CanDelete)
	return nil
}

func runProjectUse(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cache, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = cache.Close()
	}()

	if projectClear {
		if err := cache.ClearState(ctx, db.KeyCurrentProject); err != nil {
			return fmt.Errorf("failed to clear selection: %w", err)
		}
		fmt.Println("📥 Project selection cleared")
		return nil
	}

	if len(args) == 0 {
		current, _ := cache.GetState(ctx, db.KeyCurrentProject)
		if current == "" {
			fmt.Println("📥 No project selected")
			return nil
		}
		snap, err := cache.GetSnapshot(ctx, current)
		if err != nil {
			fmt.Printf("📁 Current project: %s\n", current)
			return nil
		}
		fmt.Printf("📁 Current project: %s (%s)\n", snap.Name, current)
		return nil
	}

	projectID, err := expandProjectID(ctx, args[0])
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	project, err := client.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("project not found: %s", args[0])
	}
	_ = cache.PutProject(ctx, project)

	if err := cache.SetState(ctx, db.KeyCurrentProject, project.ID); err != nil {
		return fmt.Errorf("failed to select project: %w", err)
	}
	fmt.Printf("📁 Switched to: %s\n", project.Name)
	return nil
}

// expandProjectID turns an id prefix from 'project list' into the full id
func expandProjectID(ctx context.Context, ref string) (string, error) {
	client, err := newClient()
	if err != nil || !client.IsLoggedIn() {
		return ref, nil
	}
	projects, err := client.ListProjects(ctx)
	if err != nil {
		return ref, nil
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	id, err := matchID(ids, ref)
	if err != nil {
		// Public projects of other users are not listed
		return ref, nil
	}
	return id, nil
}

func runProjectRename(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	cache := openCache()
	defer closeCache(cache)
	projectID, err := resolveProject(ctx, cache)
	if err != nil {
		return err
	}

	var update remote.ProjectUpdate
	if len(args) == 1 {
		name, err := model.ValidateProjectName(args[0])
		if err != nil {
			return err
		}
		update.Name = &name
	}
	if cmd.Flags().Changed("description") {
		desc, err := model.ValidateDescription(projectDescription)
		if err != nil {
			return err
		}
		update.Description = &desc
	}
	if update.Name == nil && update.Description == nil {
		return errors.New("nothing to change, pass a name or --description")
	}

	project, err := client.UpdateProject(ctx, projectID, update)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	fmt.Printf("✓ Updated project: %s\n", project.Name)
	return nil
}

func runProjectPublic(cmd *cobra.Command, args []string) error {
	public, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	client, err := loggedInClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	cache := openCache()
	defer closeCache(cache)
	projectID, err := resolveProject(ctx, cache)
	if err != nil {
		return err
	}

	project, err := client.SetPublic(ctx, projectID, public)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if project.IsPublic {
		fmt.Printf("🌐 %s is now public\n", project.Name)
	} else {
		fmt.Printf("🔒 %s is now private\n", project.Name)
	}
	return nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	projectID, err := expandProjectID(ctx, args[0])
	if err != nil {
		return err
	}

	project, err := client.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("project not found: %s", args[0])
	}
	if !confirm(fmt.Sprintf("Delete project %q and all its comments?", project.Name)) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := client.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	cache := openCache()
	defer closeCache(cache)
	if cache != nil {
		_ = cache.DeleteSnapshot(ctx, project.ID)
		if current, _ := cache.GetState(ctx, db.KeyCurrentProject); current == project.ID {
			_ = cache.ClearState(ctx, db.KeyCurrentProject)
		}
	}

	fmt.Printf("🗑️  Deleted project: %s\n", project.Name)
	return nil
}

func runProjectPush(cmd *cobra.Command, args []string) error {
	client, err := loggedInClient()
	if err != nil {
		return err
	}
	cache, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = cache.Close()
	}()

	fmt.Println("🔄 Sending cached edits...")
	sent, err := db.NewCachingSaver(cache, client).Replay(context.Background())
	if err != nil {
		fmt.Printf("⚠️  Sent %d before failing\n", sent)
		return err
	}
	if sent == 0 {
		fmt.Println("✓ Already up to date")
		return nil
	}
	fmt.Printf("✓ Sent %d project(s)\n", sent)
	return nil
}
