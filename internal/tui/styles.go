package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	// Role colors
	RoleOwner  = lipgloss.Color("#FF6B6B")
	RoleAdmin  = lipgloss.Color("#FFB347")
	RoleEditor = lipgloss.Color("#4ECDC4")
	RoleViewer = lipgloss.Color("#888888")

	// Status colors
	SaveOK      = lipgloss.Color("#95E1A3") // Green
	SavePending = lipgloss.Color("#FFE66D") // Yellow
	SaveError   = lipgloss.Color("#FF6B6B") // Red
	Offline     = lipgloss.Color("#6C757D") // Gray

	// UI colors
	Primary    = lipgloss.Color("#4ECDC4")
	Secondary  = lipgloss.Color("#6C757D")
	Background = lipgloss.Color("#1a1a2e")
	Surface    = lipgloss.Color("#16213e")
	Text       = lipgloss.Color("#FFFFFF")
	TextMuted  = lipgloss.Color("#888888")
	Border     = lipgloss.Color("#333333")
	Highlight  = lipgloss.Color("#4ECDC4")
	Mention    = lipgloss.Color("#FFB347")
)

// Styles
var (
	// Sidebar
	SidebarStyle = lipgloss.NewStyle().
			Width(22).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			Padding(1, 1)

	// Canvas and element list
	CanvasStyle = lipgloss.NewStyle().
			Padding(1, 2)

	// Properties and comments
	InspectorStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(Border).
			Padding(1, 1)

	ItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	ItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	MentionStyle = lipgloss.NewStyle().
			Foreground(Mention).
			Bold(true)

	PendingStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	ErrorStyle = lipgloss.NewStyle().Foreground(SaveError)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// RoleBadge renders a role label in its color
func RoleBadge(role string) string {
	var c lipgloss.Color
	switch role {
	case "owner":
		c = RoleOwner
	case "admin":
		c = RoleAdmin
	case "editor":
		c = RoleEditor
	default:
		c = RoleViewer
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(role)
}
