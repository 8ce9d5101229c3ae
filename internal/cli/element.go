package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/store"
	"github.com/spf13/cobra"
)

var elementCmd = &cobra.Command{
	Use:     "element",
	Aliases: []string{"el"},
	Short:   "Manage canvas elements",
	Long: `Add, inspect, change and remove elements of the active screen.

Elements are named by id prefix as printed by 'element list'.

Examples:
  dashcraft element add bar-chart --x 40 --y 80
  dashcraft element update 1a2b --width 480 --set title="Revenue"
  dashcraft element remove 1a2b`,
}

var elementListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List elements of the active screen",
	RunE:    runElementList,
}

var elementShowCmd = &cobra.Command{
	Use:   "show [element]",
	Short: "Show an element and its properties",
	Args:  cobra.ExactArgs(1),
	RunE:  runElementShow,
}

var elementAddCmd = &cobra.Command{
	Use:   "add [type]",
	Short: "Add an element to the active screen",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runElementAdd,
}

var elementUpdateCmd = &cobra.Command{
	Use:   "update [element]",
	Short: "Move, resize or change the properties of an element",
	Long: `Move, resize or change the properties of an element.

--set takes key=value pairs. Values that parse as JSON (numbers, booleans,
arrays, objects, quoted strings) are stored as such; anything else is
stored as a plain string.`,
	Args: cobra.ExactArgs(1),
	RunE: runElementUpdate,
}

var elementDuplicateCmd = &cobra.Command{
	Use:     "duplicate [element]",
	Aliases: []string{"dup"},
	Short:   "Copy an element next to the original",
	Args:    cobra.ExactArgs(1),
	RunE:    runElementDuplicate,
}

var elementRemoveCmd = &cobra.Command{
	Use:     "remove [element]",
	Aliases: []string{"rm"},
	Short:   "Remove an element",
	Args:    cobra.ExactArgs(1),
	RunE:    runElementRemove,
}

var elementTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the element types",
	RunE:  runElementTypes,
}

var (
	elementAll    bool
	elementX      float64
	elementY      float64
	elementWidth  float64
	elementHeight float64
	elementScreen string
	elementSet    []string
)

func init() {
	elementListCmd.Flags().BoolVarP(&elementAll, "all", "a", false, "List elements of every screen")

	elementAddCmd.Flags().Float64Var(&elementX, "x", 100, "Left edge")
	elementAddCmd.Flags().Float64Var(&elementY, "y", 100, "Top edge")

	elementUpdateCmd.Flags().Float64Var(&elementX, "x", 0, "Left edge")
	elementUpdateCmd.Flags().Float64Var(&elementY, "y", 0, "Top edge")
	elementUpdateCmd.Flags().Float64Var(&elementWidth, "width", 0, "Width")
	elementUpdateCmd.Flags().Float64Var(&elementHeight, "height", 0, "Height")
	elementUpdateCmd.Flags().StringVar(&elementScreen, "screen", "", "Move to another screen")
	elementUpdateCmd.Flags().StringArrayVar(&elementSet, "set", nil, "Set a property (key=value), repeatable")

	elementCmd.AddCommand(elementListCmd)
	elementCmd.AddCommand(elementShowCmd)
	elementCmd.AddCommand(elementAddCmd)
	elementCmd.AddCommand(elementUpdateCmd)
	elementCmd.AddCommand(elementDuplicateCmd)
	elementCmd.AddCommand(elementRemoveCmd)
	elementCmd.AddCommand(elementTypesCmd)
}

// findElement resolves an id prefix to an element
func findElement(st *store.Store, ref string) (model.Element, error) {
	elements := st.Elements()
	ids := make([]string, len(elements))
	for i, el := range elements {
		ids[i] = el.ID
	}
	id, err := matchID(ids, ref)
	if err != nil {
		return model.Element{}, fmt.Errorf("element not found: %w", err)
	}
	for _, el := range elements {
		if el.ID == id {
			return el, nil
		}
	}
	return model.Element{}, fmt.Errorf("element not found: %s", ref)
}

// elementTitle picks a label for listings
func elementTitle(el model.Element) string {
	for _, key := range []string{"title", "label", "content", "placeholder"} {
		if v, ok := el.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return model.DefaultsFor(el.Type).Label
}

// parseProperties turns key=value pairs into a property patch
func parseProperties(pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q, expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		props[key] = v
	}
	return props, nil
}

func runElementList(cmd *cobra.Command, args []string) error {
	return viewCanvas(func(ctx context.Context, s *session) error {
		st := s.ws.Store()
		elements := st.ElementsOnActiveScreen()
		title := "active screen"
		if screen, ok := st.ActiveScreen(); ok {
			title = screen.Name
		}
		if elementAll {
			elements = st.Elements()
			title = "all screens"
		}

		if len(elements) == 0 {
			fmt.Println("No elements. Add one with: dashcraft element add kpi")
			return nil
		}

		fmt.Printf("\n📄 %s (%s)\n\n", s.ws.Project().Name, title)
		fmt.Printf("  %-10s  %-14s  %-22s  %-12s  %s\n", "ID", "Type", "Title", "Position", "Size")
		fmt.Println(strings.Repeat("─", 76))
		for _, el := range elements {
			fmt.Printf("  %-10s  %-14s  %-22s  %-12s  %s\n",
				shortID(el.ID), el.Type, truncate(elementTitle(el), 22),
				fmt.Sprintf("%.0f,%.0f", el.Position.X, el.Position.Y),
				fmt.Sprintf("%.0fx%.0f", el.Size.Width, el.Size.Height))
		}
		fmt.Println()
		return nil
	})
}

func runElementShow(cmd *cobra.Command, args []string) error {
	return viewCanvas(func(ctx context.Context, s *session) error {
		el, err := findElement(s.ws.Store(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("🧩 %s %s\n", el.Type, el.ID)
		fmt.Printf("   Position: %.0f,%.0f  Size: %.0fx%.0f  Screen: %s\n",
			el.Position.X, el.Position.Y, el.Size.Width, el.Size.Height, shortID(el.ScreenID))

		keys := make([]string, 0, len(el.Properties))
		for k := range el.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			data, err := json.Marshal(el.Properties[k])
			if err != nil {
				data = []byte(fmt.Sprint(el.Properties[k]))
			}
			fmt.Printf("   %s = %s\n", k, data)
		}
		return nil
	})
}

func runElementAdd(cmd *cobra.Command, args []string) error {
	t := appConfig.DefaultElementType
	if len(args) == 1 {
		t = model.ElementType(strings.ToLower(args[0]))
	}
	if !model.IsKnownElementType(t) {
		return fmt.Errorf("unknown element type %q, see 'dashcraft element types'", t)
	}

	return editCanvas(func(ctx context.Context, s *session) error {
		el := s.ws.Store().AddElement(t, model.Position{X: elementX, Y: elementY})
		fmt.Printf("✓ Added %s (id: %s)\n", el.Type, shortID(el.ID))
		return nil
	})
}

func runElementUpdate(cmd *cobra.Command, args []string) error {
	props, err := parseProperties(elementSet)
	if err != nil {
		return err
	}

	return editCanvas(func(ctx context.Context, s *session) error {
		st := s.ws.Store()
		el, err := findElement(st, args[0])
		if err != nil {
			return err
		}

		patch := store.ElementPatch{Properties: props}
		flags := cmd.Flags()
		if flags.Changed("x") || flags.Changed("y") {
			pos := el.Position
			if flags.Changed("x") {
				pos.X = elementX
			}
			if flags.Changed("y") {
				pos.Y = elementY
			}
			patch.Position = &pos
		}
		if flags.Changed("width") || flags.Changed("height") {
			size := el.Size
			if flags.Changed("width") {
				size.Width = elementWidth
			}
			if flags.Changed("height") {
				size.Height = elementHeight
			}
			if size.Width <= 0 || size.Height <= 0 {
				return fmt.Errorf("width and height must be positive")
			}
			patch.Size = &size
		}
		if elementScreen != "" {
			screen, err := findScreen(st.Screens(), elementScreen)
			if err != nil {
				return err
			}
			patch.ScreenID = &screen.ID
		}
		if patch.Position == nil && patch.Size == nil && patch.ScreenID == nil && len(patch.Properties) == 0 {
			return fmt.Errorf("nothing to change")
		}

		st.UpdateElement(el.ID, patch)
		fmt.Printf("✓ Updated %s %s\n", el.Type, shortID(el.ID))
		return nil
	})
}

func runElementDuplicate(cmd *cobra.Command, args []string) error {
	return editCanvas(func(ctx context.Context, s *session) error {
		el, err := findElement(s.ws.Store(), args[0])
		if err != nil {
			return err
		}
		clone, _ := s.ws.Store().DuplicateElement(el.ID)
		fmt.Printf("✓ Duplicated %s as %s\n", shortID(el.ID), shortID(clone.ID))
		return nil
	})
}

func runElementRemove(cmd *cobra.Command, args []string) error {
	return editCanvas(func(ctx context.Context, s *session) error {
		el, err := findElement(s.ws.Store(), args[0])
		if err != nil {
			return err
		}
		s.ws.Store().RemoveElement(el.ID)
		fmt.Printf("🗑️  Removed %s %s\n", el.Type, shortID(el.ID))
		return nil
	})
}

func runElementTypes(cmd *cobra.Command, args []string) error {
	fmt.Println()
	for _, t := range model.ElementTypes() {
		d := model.DefaultsFor(t)
		marker := "  "
		if t == appConfig.DefaultElementType {
			marker = "❯ "
		}
		fmt.Printf("%s%-14s  %-18s  %.0fx%.0f\n", marker, t, d.Label, d.Size.Width, d.Size.Height)
	}
	fmt.Println()
	return nil
}
