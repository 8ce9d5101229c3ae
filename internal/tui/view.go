package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/model"
)

const (
	sidebarWidth   = 24
	inspectorWidth = 38
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sidebar := m.renderSidebar()
	canvas := m.renderCanvas()
	inspector := m.renderInspector()
	statusBar := m.renderStatusBar()

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, canvas, inspector)

	var modal string
	switch m.mode {
	case ModeRenameScreen, ModeEditProperty, ModeSaveTemplate, ModeNewTemplate, ModeComment:
		modal = m.renderInputModal()
	case ModePalette:
		modal = m.renderPalette()
	case ModeTemplates:
		modal = m.renderTemplates()
	case ModeConfirm:
		modal = m.renderConfirm()
	case ModeHelp:
		mainContent = m.renderHelp()
	}
	if modal != "" {
		mainContent = lipgloss.Place(
			m.width, m.height-2,
			lipgloss.Center, lipgloss.Center,
			modal,
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusBar)
}

func divider(width int) string {
	return lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width, 1)))
}

func (m Model) renderSidebar() string {
	var s string

	project := m.ws.Project()
	s += TitleStyle.Render(truncate(project.Name, sidebarWidth-4)) + "\n"
	s += RoleBadge(string(m.ws.Permissions().Role))
	if project.IsPublic {
		s += HelpStyle.Render(" · public")
	}
	s += "\n" + divider(sidebarWidth-5) + "\n\n"

	for i, screen := range m.ws.Store().Screens() {
		cursor := "  "
		style := ItemStyle
		if i == m.screenCursor && m.pane == PaneScreens {
			cursor = "❯ "
			style = ItemSelectedStyle
		}
		marker := " "
		if screen.IsActive {
			marker = "●"
		}
		line := fmt.Sprintf("%s%s %s", cursor, marker, truncate(screen.Name, sidebarWidth-9))
		s += style.Render(line) + "\n"
	}

	s += "\n" + divider(sidebarWidth-5) + "\n"
	if id := m.ws.Store().ActiveTemplateID(); id != "" {
		for _, t := range m.ws.Store().Templates() {
			if t.ID == id {
				s += HelpStyle.Render("template: "+truncate(t.Name, sidebarWidth-14)) + "\n"
			}
		}
	}
	s += HelpStyle.Render("a add  r rename  d del")

	return SidebarStyle.Width(sidebarWidth).Height(m.height - 2).Render(s)
}

func (m Model) canvasWidth() int {
	return max(m.width-sidebarWidth-inspectorWidth-2, 20)
}

func (m Model) renderCanvas() string {
	width := m.canvasWidth()
	height := m.height - 2
	var s string

	screen, _ := m.ws.Store().ActiveScreen()
	elements := m.currentElements()
	s += TitleStyle.Render(fmt.Sprintf("%s (%d elements)", screen.Name, len(elements))) + "\n"
	s += divider(width-4) + "\n"

	selectedID := ""
	if el, ok := m.ws.Store().SelectedElement(); ok {
		selectedID = el.ID
	}

	// Preview keeps the aspect of the logical canvas, using about half of
	// the pane height
	rows := max(height/2-2, 4)
	cols := width - 4
	for _, line := range drawCanvas(elements, selectedID, cols, rows) {
		s += HelpStyle.Render(line) + "\n"
	}
	s += divider(width-4) + "\n"

	if len(elements) == 0 {
		s += HelpStyle.Render("  Empty screen. Press 'a' to add an element.")
	}

	for i, el := range elements {
		cursor := "  "
		style := ItemStyle
		if i == m.elemCursor && m.pane == PaneElements {
			cursor = "❯ "
			style = ItemSelectedStyle
		}
		marker := " "
		if el.ID == selectedID {
			marker = "◆"
		}
		line := fmt.Sprintf("%s%s %-12s %s", cursor, marker, el.Type, truncate(elementLabel(el), cols-36))
		geometry := HelpStyle.Render(fmt.Sprintf(" %4.0f,%-4.0f %3.0fx%-3.0f",
			el.Position.X, el.Position.Y, el.Size.Width, el.Size.Height))
		s += style.Render(line) + geometry + "\n"
	}

	return CanvasStyle.Width(width).Height(height).Render(s)
}

func (m Model) renderInspector() string {
	width := inspectorWidth - 4
	var s string

	el, ok := m.ws.Store().SelectedElement()
	if !ok {
		s += TitleStyle.Render("Properties") + "\n"
		s += divider(width) + "\n"
		s += HelpStyle.Render("Select an element with enter")
		return InspectorStyle.Width(inspectorWidth).Height(m.height - 2).Render(s)
	}

	s += TitleStyle.Render(truncate(elementLabel(el), width)) + "\n"
	s += HelpStyle.Render(string(el.Type)) + "\n"
	s += divider(width) + "\n"
	for _, line := range propertyLines(el.Properties) {
		s += truncate(line, width) + "\n"
	}

	s += "\n" + TitleStyle.Render(fmt.Sprintf("Comments (%d)", len(m.threadComments))) + "\n"
	s += divider(width) + "\n"
	switch {
	case m.thread == nil:
		s += HelpStyle.Render("Loading...") + "\n"
	case len(m.threadComments) == 0:
		s += HelpStyle.Render("No comments yet") + "\n"
	}

	for i, c := range m.threadComments {
		cursor := "  "
		if i == m.commentCursor && m.pane == PaneComments {
			cursor = "❯ "
		}
		header := fmt.Sprintf("%s%s  %s", cursor, truncate(c.AuthorName(), width-12), c.CreatedAt.Local().Format("15:04"))
		if comments.IsTemporaryID(c.ID) {
			s += PendingStyle.Render(header+"  sending…") + "\n"
		} else {
			s += lipgloss.NewStyle().Bold(true).Render(header) + "\n"
		}
		body := comments.HighlightMentions(wrap(c.Content, width-2), func(tok string) string {
			return MentionStyle.Render(tok)
		})
		for _, line := range strings.Split(body, "\n") {
			s += "  " + line + "\n"
		}
	}

	if m.ws.Permissions().CanComment && m.thread != nil {
		s += "\n" + HelpStyle.Render("c comment  d delete")
	}

	return InspectorStyle.Width(inspectorWidth).Height(m.height - 2).Render(s)
}

// wrap breaks s into lines of at most width runes on word boundaries
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len([]rune(line))+1+len([]rune(word)) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// saveLabel describes the autosave state
func (m Model) saveLabel() (string, lipgloss.Color) {
	switch {
	case m.ws.Offline():
		return "Offline", Offline
	case m.status.Saving:
		return "Saving…", SavePending
	case m.status.LastError != nil:
		return "Save failed", SaveError
	case m.status.Pending:
		return "Unsaved", SavePending
	case !m.status.LastSavedAt.IsZero():
		return "Saved " + m.status.LastSavedAt.Local().Format("15:04"), SaveOK
	default:
		return "", Offline
	}
}

func (m Model) renderStatusBar() string {
	help := "a:add  enter:select  e:edit  c:comment  t:templates  w:save  ?:help  q:quit"
	if m.message != "" {
		help = m.message
		if m.messageErr {
			help = ErrorStyle.Render(help)
		}
	}

	label, color := m.saveLabel()
	if label != "" {
		right := lipgloss.NewStyle().Foreground(color).Render(label)
		avail := m.width - lipgloss.Width(help) - lipgloss.Width(right) - 4
		if avail > 0 {
			help += strings.Repeat(" ", avail) + right
		} else {
			help += " " + right
		}
	}

	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderInputModal() string {
	title := ""
	switch m.mode {
	case ModeRenameScreen:
		title = "Rename Screen"
	case ModeEditProperty:
		if el, ok := m.currentElement(); ok {
			title = "Set property on " + elementLabel(el)
		}
	case ModeSaveTemplate:
		title = "Save as Template"
	case ModeNewTemplate:
		title = "New Template"
	case ModeComment:
		title = "Comment"
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n"

	if m.mode == ModeComment && len(m.suggestions) > 0 {
		content += "\n"
		for i, p := range m.suggestions {
			marker := "  "
			style := lipgloss.NewStyle()
			if i == m.suggestCursor {
				marker = "❯ "
				style = lipgloss.NewStyle().Bold(true).Foreground(Primary)
			}
			content += style.Render(fmt.Sprintf("%s@%s  %s", marker, p.Username, p.Name())) + "\n"
		}
		content += "\n" + HelpStyle.Render("↑↓:pick  Tab:insert  Esc:dismiss")
		return ModalStyle.Width(60).Render(content)
	}

	if m.mode == ModeComment {
		n := len([]rune(m.input.Value()))
		content += HelpStyle.Render(fmt.Sprintf("%d/%d", n, model.MaxCommentLength)) + "\n"
	}
	content += "\n" + HelpStyle.Render("Enter:save  Esc:cancel")
	return ModalStyle.Width(60).Render(content)
}

func (m Model) renderPalette() string {
	content := lipgloss.NewStyle().Bold(true).Render("Add Element") + "\n\n"
	for i, t := range model.ElementTypes() {
		marker := "  "
		style := lipgloss.NewStyle()
		if i == m.paletteCursor {
			marker = "❯ "
			style = lipgloss.NewStyle().Bold(true).Foreground(Primary)
		}
		d := model.DefaultsFor(t)
		line := fmt.Sprintf("%s%-12s %3.0fx%-3.0f", marker, d.Label, d.Size.Width, d.Size.Height)
		content += style.Render(line) + "\n"
	}
	content += "\n" + HelpStyle.Render("↑↓:nav  Enter:add  Esc:close")
	return ModalStyle.Width(40).Render(content)
}

func (m Model) renderTemplates() string {
	modalWidth := 56
	content := lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("Templates") + "\n"
	content += divider(modalWidth-6) + "\n\n"

	if len(m.templates) == 0 {
		content += HelpStyle.Render("No templates yet. Press 'n' to start one.") + "\n"
	}
	active := m.ws.Store().ActiveTemplateID()
	for i, t := range m.templates {
		marker := "  "
		style := lipgloss.NewStyle()
		if i == m.templateCursor {
			marker = "❯ "
			style = lipgloss.NewStyle().Bold(true).Foreground(Primary)
		}
		name := truncate(t.Name, 24)
		if t.ID == active {
			name += " ●"
		}
		line := fmt.Sprintf("%s%-26s %2d scr %3d el  %s", marker, name, len(t.Screens), len(t.Elements), ago(t.UpdatedAt))
		content += style.Render(line) + "\n"
	}

	content += "\n" + HelpStyle.Render("Enter:load  n:new  d:delete  Esc:close")
	return ModalStyle.Width(modalWidth).Render(content)
}

// ago formats a timestamp relative to now
func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format("Jan 2")
	}
}

func (m Model) renderConfirm() string {
	content := lipgloss.NewStyle().Bold(true).Foreground(SaveError).Render("Confirm") + "\n\n"
	content += m.confirmPrompt + "\n\n"
	content += HelpStyle.Render("y:yes  any other key:cancel")
	return ModalStyle.Render(content)
}

func (m Model) renderHelp() string {
	help := `
╭──── Keyboard Shortcuts ────╮
│                            │
│  Navigation                │
│  ──────────                │
│  j/k ↑/↓   Move            │
│  h/l Tab   Switch pane     │
│  Enter     Open / select   │
│  Esc       Deselect        │
│                            │
│  Canvas                    │
│  ──────                    │
│  a         Add             │
│  r         Rename screen   │
│  d         Delete          │
│  D         Duplicate       │
│  e         Set property    │
│  H/J/K/L   Move element    │
│  +/-       Resize element  │
│                            │
│  Templates                 │
│  ─────────                 │
│  t         Browse / load   │
│  s         Save template   │
│                            │
│  Other                     │
│  ─────                     │
│  c         Comment         │
│  w         Save now        │
│  R         Refresh access  │
│  ?         Toggle help     │
│  q         Quit            │
│                            │
╰────────────────────────────╯
`
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, help)
}
