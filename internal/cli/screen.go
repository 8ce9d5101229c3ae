package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/workspace"
	"github.com/spf13/cobra"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Manage the screens of a project",
	Long: `List, add, rename, delete and switch screens.

Screens can be named by position (1, 2, ...), by name or by id prefix.

Examples:
  dashcraft screen add
  dashcraft screen rename 2 "Revenue"
  dashcraft screen switch Revenue`,
}

var screenListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List screens",
	RunE:    runScreenList,
}

var screenAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a screen and switch to it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScreenAdd,
}

var screenRenameCmd = &cobra.Command{
	Use:   "rename [screen] [name]",
	Short: "Rename a screen",
	Args:  cobra.ExactArgs(2),
	RunE:  runScreenRename,
}

var screenDeleteCmd = &cobra.Command{
	Use:     "delete [screen]",
	Aliases: []string{"rm"},
	Short:   "Delete a screen and its elements",
	Args:    cobra.ExactArgs(1),
	RunE:    runScreenDelete,
}

var screenSwitchCmd = &cobra.Command{
	Use:   "switch [screen]",
	Short: "Make a screen the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runScreenSwitch,
}

func init() {
	screenCmd.AddCommand(screenListCmd)
	screenCmd.AddCommand(screenAddCmd)
	screenCmd.AddCommand(screenRenameCmd)
	screenCmd.AddCommand(screenDeleteCmd)
	screenCmd.AddCommand(screenSwitchCmd)
}

// findScreen resolves a position, name or id prefix to a screen
func findScreen(screens []model.Screen, ref string) (model.Screen, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(screens) {
			return model.Screen{}, fmt.Errorf("no screen %d, the project has %d", n, len(screens))
		}
		return screens[n-1], nil
	}
	for _, s := range screens {
		if strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	ids := make([]string, len(screens))
	for i, s := range screens {
		ids[i] = s.ID
	}
	id, err := matchID(ids, ref)
	if err != nil {
		return model.Screen{}, fmt.Errorf("screen not found: %w", err)
	}
	for _, s := range screens {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Screen{}, fmt.Errorf("screen not found: %s", ref)
}

// editCanvas opens the selected project, runs fn and saves the result
func editCanvas(fn func(ctx context.Context, s *session) error) error {
	ctx := context.Background()
	s, err := openSession(ctx, workspace.Options{})
	if err != nil {
		return err
	}
	if err := s.requireEdit(); err != nil {
		_ = s.close()
		return err
	}
	if err := fn(ctx, s); err != nil {
		_ = s.close()
		return err
	}
	return s.close()
}

// viewCanvas opens the selected project read-only and runs fn
func viewCanvas(fn func(ctx context.Context, s *session) error) error {
	ctx := context.Background()
	s, err := openSession(ctx, workspace.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
	}()
	return fn(ctx, s)
}

func runScreenList(cmd *cobra.Command, args []string) error {
	return viewCanvas(func(ctx context.Context, s *session) error {
		st := s.ws.Store()
		elements := st.Elements()

		fmt.Printf("\n📁 %s\n\n", s.ws.Project().Name)
		for i, screen := range st.Screens() {
			count := 0
			for _, el := range elements {
				if el.ScreenID == screen.ID {
					count++
				}
			}
			marker := "  "
			if screen.IsActive {
				marker = "❯ "
			}
			fmt.Printf("%s%d. %-24s  %-10s  %d elements\n", marker, i+1, truncate(screen.Name, 24), shortID(screen.ID), count)
		}
		fmt.Println()
		return nil
	})
}

func runScreenAdd(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) == 1 {
		var err error
		if name, err = model.ValidateScreenName(args[0]); err != nil {
			return err
		}
	}
	return editCanvas(func(ctx context.Context, s *session) error {
		screen := s.ws.Store().AddScreen()
		if name != "" {
			s.ws.Store().RenameScreen(screen.ID, name)
			screen.Name = name
		}
		fmt.Printf("✓ Added screen: %s\n", screen.Name)
		return nil
	})
}

func runScreenRename(cmd *cobra.Command, args []string) error {
	name, err := model.ValidateScreenName(args[1])
	if err != nil {
		return err
	}
	return editCanvas(func(ctx context.Context, s *session) error {
		screen, err := findScreen(s.ws.Store().Screens(), args[0])
		if err != nil {
			return err
		}
		s.ws.Store().RenameScreen(screen.ID, name)
		fmt.Printf("✓ Renamed %s to %s\n", screen.Name, name)
		return nil
	})
}

func runScreenDelete(cmd *cobra.Command, args []string) error {
	return editCanvas(func(ctx context.Context, s *session) error {
		st := s.ws.Store()
		screens := st.Screens()
		if len(screens) <= 1 {
			return fmt.Errorf("cannot delete the only screen")
		}
		screen, err := findScreen(screens, args[0])
		if err != nil {
			return err
		}
		if !confirm(fmt.Sprintf("Delete screen %q and its elements?", screen.Name)) {
			fmt.Println("Cancelled.")
			return nil
		}
		st.DeleteScreen(screen.ID)
		fmt.Printf("🗑️  Deleted screen: %s\n", screen.Name)
		return nil
	})
}

func runScreenSwitch(cmd *cobra.Command, args []string) error {
	return editCanvas(func(ctx context.Context, s *session) error {
		screen, err := findScreen(s.ws.Store().Screens(), args[0])
		if err != nil {
			return err
		}
		s.ws.Store().SwitchScreen(screen.ID)
		fmt.Printf("📄 Switched to: %s\n", screen.Name)
		return nil
	})
}
