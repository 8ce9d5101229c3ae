package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/store"
	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Save and load canvas templates",
	Long: `Templates are named copies of a canvas that belong to your account.

Examples:
  dashcraft template save "Weekly KPIs"
  dashcraft template load "Weekly KPIs"
  dashcraft template list`,
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your templates",
	RunE:    runTemplateList,
}

var templateSaveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Save the current canvas as a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateSave,
}

var templateNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Start a blank template and load it onto the canvas",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateNew,
}

var templateLoadCmd = &cobra.Command{
	Use:   "load [template]",
	Short: "Replace the canvas with a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateLoad,
}

var templateDeleteCmd = &cobra.Command{
	Use:     "delete [template]",
	Aliases: []string{"rm"},
	Short:   "Delete a template",
	Args:    cobra.ExactArgs(1),
	RunE:    runTemplateDelete,
}

func init() {
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateSaveCmd)
	templateCmd.AddCommand(templateNewCmd)
	templateCmd.AddCommand(templateLoadCmd)
	templateCmd.AddCommand(templateDeleteCmd)
}

// templateStore is a store used only for its template operations
func templateStore(ctx context.Context) (*store.Store, error) {
	client, err := loggedInClient()
	if err != nil {
		return nil, err
	}
	st := store.New(store.WithTemplateRepository(client), store.WithNotifier(printNotifier))
	if err := st.FetchTemplates(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// findTemplate resolves a name or id prefix among the fetched templates
func findTemplate(st *store.Store, ref string) (model.Template, error) {
	if t, err := st.TemplateByName(ref); err == nil {
		return t, nil
	}
	templates := st.Templates()
	ids := make([]string, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
	}
	id, err := matchID(ids, ref)
	if err != nil {
		return model.Template{}, fmt.Errorf("template not found: %w", err)
	}
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Template{}, fmt.Errorf("template not found: %s", ref)
}

func validTemplateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.ErrEmptyName
	}
	if len([]rune(name)) > model.MaxTemplateNameLength {
		return "", fmt.Errorf("template name must be at most %d characters", model.MaxTemplateNameLength)
	}
	return name, nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	st, err := templateStore(context.Background())
	if err != nil {
		return err
	}
	templates := st.Templates()
	if len(templates) == 0 {
		fmt.Println("No templates. Save one with: dashcraft template save \"Name\"")
		return nil
	}

	fmt.Println()
	fmt.Printf("  %-10s  %-28s  %-8s  %-9s  %s\n", "ID", "Name", "Screens", "Elements", "Updated")
	fmt.Println(strings.Repeat("─", 76))
	for _, t := range templates {
		fmt.Printf("  %-10s  %-28s  %-8d  %-9d  %s\n",
			shortID(t.ID), truncate(t.Name, 28), len(t.Screens), len(t.Elements),
			t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	return nil
}

func runTemplateSave(cmd *cobra.Command, args []string) error {
	name, err := validTemplateName(args[0])
	if err != nil {
		return err
	}
	return viewCanvas(func(ctx context.Context, s *session) error {
		t, err := s.ws.Store().SaveTemplate(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Saved template: %s (id: %s)\n", t.Name, shortID(t.ID))
		return nil
	})
}

func runTemplateNew(cmd *cobra.Command, args []string) error {
	name, err := validTemplateName(args[0])
	if err != nil {
		return err
	}
	return editCanvas(func(ctx context.Context, s *session) error {
		if len(s.ws.Store().Elements()) > 0 && !confirm("Replace the current canvas with a blank template?") {
			fmt.Println("Cancelled.")
			return nil
		}
		t, err := s.ws.Store().CreateNewTemplate(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Created template: %s (id: %s)\n", t.Name, shortID(t.ID))
		return nil
	})
}

func runTemplateLoad(cmd *cobra.Command, args []string) error {
	return editCanvas(func(ctx context.Context, s *session) error {
		st := s.ws.Store()
		if err := st.FetchTemplates(ctx); err != nil {
			return err
		}
		t, err := findTemplate(st, args[0])
		if err != nil {
			return err
		}
		if len(st.Elements()) > 0 && !confirm(fmt.Sprintf("Replace the current canvas with %q?", t.Name)) {
			fmt.Println("Cancelled.")
			return nil
		}
		loaded, err := st.LoadTemplate(ctx, t.ID)
		if err != nil {
			return err
		}
		fmt.Printf("📋 Loaded template: %s (%d screens, %d elements)\n", loaded.Name, len(loaded.Screens), len(loaded.Elements))
		return nil
	})
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := templateStore(ctx)
	if err != nil {
		return err
	}
	t, err := findTemplate(st, args[0])
	if err != nil {
		return err
	}
	if !confirm(fmt.Sprintf("Delete template %q?", t.Name)) {
		fmt.Println("Cancelled.")
		return nil
	}
	if err := st.DeleteTemplate(ctx, t.ID); err != nil {
		return err
	}
	fmt.Printf("🗑️  Deleted template: %s\n", t.Name)
	return nil
}
