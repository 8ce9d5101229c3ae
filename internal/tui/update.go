package tui

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/autosave"
	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
	"github.com/existflow/dashcraft/internal/store"
)

// remoteTimeout bounds every network call made from the TUI
const remoteTimeout = 15 * time.Second

// Element nudges
const (
	moveStep   = 10
	resizeStep = 20
	minSize    = 20
	maxSuggest = 5
)

// tickMsg is sent every second to refresh the autosave status
type tickMsg time.Time

type membersMsg struct {
	members []model.Profile
	err     error
}

type threadOpenedMsg struct {
	elementID string
	thread    *comments.Thread
	err       error
}

type commentSentMsg struct{ err error }

type commentDeletedMsg struct{ err error }

type templatesMsg struct{ err error }

// templateDoneMsg reports a finished template operation
type templateDoneMsg struct {
	message string
	canvas  bool
	err     error
}

type savedMsg struct{ err error }

type refreshedMsg struct {
	perms access.Permissions
	err   error
}

// Init starts the clock, the event pump and the member lookup
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.events.wait(), m.loadMembers())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadMembers() tea.Cmd {
	if m.ws.Offline() || m.ws.Actor().ID == "" {
		return nil
	}
	ws := m.ws
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		list, err := ws.Members(ctx)
		return membersMsg{members: list, err: err}
	}
}

func (m Model) openThread(elementID string) tea.Cmd {
	ws := m.ws
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		t, err := ws.OpenThread(ctx, elementID)
		return threadOpenedMsg{elementID: elementID, thread: t, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.status = m.ws.Status()
		return m, tickCmd()

	case statusMsg:
		m.status = autosave.Status(msg)
		return m, m.events.wait()

	case notifyMsg:
		if msg.Level == notify.LevelError {
			m.setError(msg.Title + ": " + msg.Message)
		} else {
			m.setMessage(msg.Title)
		}
		return m, m.events.wait()

	case threadMsg:
		if msg.elementID == m.threadElement {
			m.threadComments = msg.comments
			m.clampCursors()
		}
		return m, m.events.wait()

	case membersMsg:
		if msg.err != nil {
			logger.Warn("Failed to load collaborators", logger.F("error", msg.err))
			return m, nil
		}
		m.members = msg.members
		return m, nil

	case threadOpenedMsg:
		return m.handleThreadOpened(msg)

	case commentSentMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Comment not sent: %v", msg.err))
		} else {
			m.setMessage("Comment posted")
		}
		return m, nil

	case commentDeletedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Delete failed: %v", msg.err))
		} else {
			m.setMessage("Comment deleted")
		}
		return m, nil

	case templatesMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Templates unavailable: %v", msg.err))
			return m, nil
		}
		m.templates = m.ws.Store().Templates()
		m.templateCursor = 0
		m.mode = ModeTemplates
		return m, nil

	case templateDoneMsg:
		if msg.err != nil {
			m.setError(msg.err.Error())
			return m, nil
		}
		m.setMessage(msg.message)
		m.templates = m.ws.Store().Templates()
		if m.templateCursor >= len(m.templates) {
			m.templateCursor = max(len(m.templates)-1, 0)
		}
		if msg.canvas {
			m.closeThread()
			m.syncScreenCursor()
			m.elemCursor = 0
			m.mode = ModeNormal
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Save failed: %v", msg.err))
		} else {
			m.setMessage("Saved")
		}
		m.status = m.ws.Status()
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Refresh failed: %v", msg.err))
			return m, nil
		}
		m.setMessage(fmt.Sprintf("Role: %s", msg.perms.Role))
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeRenameScreen, ModeEditProperty, ModeSaveTemplate, ModeNewTemplate:
			return m.updateInput(msg)
		case ModeComment:
			return m.updateComposer(msg)
		case ModePalette:
			return m.updatePalette(msg)
		case ModeTemplates:
			return m.updateTemplates(msg)
		case ModeConfirm:
			return m.updateConfirm(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

func (m Model) handleThreadOpened(msg threadOpenedMsg) (tea.Model, tea.Cmd) {
	selected, ok := m.ws.Store().SelectedElement()
	if !ok || selected.ID != msg.elementID {
		if msg.thread != nil {
			_ = msg.thread.Close()
		}
		return m, nil
	}
	if msg.err != nil {
		m.setError(fmt.Sprintf("Comments unavailable: %v", msg.err))
		return m, nil
	}

	m.closeThread()
	m.thread = msg.thread
	m.threadElement = msg.elementID
	m.threadComments = msg.thread.Comments()
	events := m.events
	elementID := msg.elementID
	m.threadOff = msg.thread.OnChange(func(list []model.Comment) {
		events.send(threadMsg{elementID: elementID, comments: list})
	})
	return m, nil
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.closeThread()
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		m.pane = (m.pane + 1) % 3
		if m.pane == PaneComments && m.thread == nil {
			m.pane = PaneScreens
		}

	case key.Matches(msg, keys.Left):
		if m.pane > PaneScreens {
			m.pane--
		}

	case key.Matches(msg, keys.Right):
		if m.pane < PaneComments && !(m.pane == PaneElements && m.thread == nil) {
			m.pane++
		}

	case key.Matches(msg, keys.Up):
		m.handleUp()

	case key.Matches(msg, keys.Down):
		m.handleDown()

	case key.Matches(msg, keys.Enter):
		return m.handleEnter()

	case key.Matches(msg, keys.Add):
		return m.handleAdd()

	case key.Matches(msg, keys.Rename):
		return m.startRenameScreen()

	case key.Matches(msg, keys.Delete):
		return m.handleDelete()

	case key.Matches(msg, keys.Duplicate):
		m.handleDuplicate()

	case key.Matches(msg, keys.Edit):
		return m.startEditProperty()

	case key.Matches(msg, keys.Comment):
		return m.startComment()

	case key.Matches(msg, keys.MoveLeft):
		m.nudge(-moveStep, 0)
	case key.Matches(msg, keys.MoveRight):
		m.nudge(moveStep, 0)
	case key.Matches(msg, keys.MoveUp):
		m.nudge(0, -moveStep)
	case key.Matches(msg, keys.MoveDown):
		m.nudge(0, moveStep)

	case key.Matches(msg, keys.Grow):
		m.resize(resizeStep)
	case key.Matches(msg, keys.Shrink):
		m.resize(-resizeStep)

	case key.Matches(msg, keys.Save):
		return m, m.flush()

	case key.Matches(msg, keys.Templates):
		return m, m.fetchTemplates()

	case key.Matches(msg, keys.SaveAs):
		return m.startSaveTemplate()

	case key.Matches(msg, keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, keys.Escape):
		if _, ok := m.ws.Store().SelectedElement(); ok {
			m.ws.Store().SelectElement("")
			m.closeThread()
			if m.pane == PaneComments {
				m.pane = PaneElements
			}
		}
		m.message = ""

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
	}

	return m, nil
}

func (m *Model) handleUp() {
	switch m.pane {
	case PaneScreens:
		if m.screenCursor > 0 {
			m.screenCursor--
		}
	case PaneElements:
		if m.elemCursor > 0 {
			m.elemCursor--
		}
	case PaneComments:
		if m.commentCursor > 0 {
			m.commentCursor--
		}
	}
}

func (m *Model) handleDown() {
	switch m.pane {
	case PaneScreens:
		if m.screenCursor < len(m.ws.Store().Screens())-1 {
			m.screenCursor++
		}
	case PaneElements:
		if m.elemCursor < len(m.currentElements())-1 {
			m.elemCursor++
		}
	case PaneComments:
		if m.commentCursor < len(m.threadComments)-1 {
			m.commentCursor++
		}
	}
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	st := m.ws.Store()
	switch m.pane {
	case PaneScreens:
		screen, ok := m.currentScreen()
		if !ok || screen.IsActive {
			return m, nil
		}
		st.SwitchScreen(screen.ID)
		m.closeThread()
		m.elemCursor = 0
		m.setMessage("Screen: " + screen.Name)
	case PaneElements:
		el, ok := m.currentElement()
		if !ok {
			return m, nil
		}
		if selected, ok := st.SelectedElement(); ok && selected.ID == el.ID {
			st.SelectElement("")
			m.closeThread()
			return m, nil
		}
		st.SelectElement(el.ID)
		m.closeThread()
		return m, m.openThread(el.ID)
	}
	return m, nil
}

func (m Model) handleAdd() (tea.Model, tea.Cmd) {
	if !m.canEdit() {
		return m, nil
	}
	if m.pane == PaneScreens {
		screen := m.ws.Store().AddScreen()
		m.closeThread()
		m.syncScreenCursor()
		m.elemCursor = 0
		m.setMessage("Added " + screen.Name)
		return m, nil
	}
	m.mode = ModePalette
	m.paletteCursor = 0
	for i, t := range model.ElementTypes() {
		if t == m.opts.DefaultElementType {
			m.paletteCursor = i
		}
	}
	return m, nil
}

func (m Model) updatePalette(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	types := model.ElementTypes()
	switch {
	case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Quit):
		m.mode = ModeNormal
	case key.Matches(msg, keys.Up):
		if m.paletteCursor > 0 {
			m.paletteCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.paletteCursor < len(types)-1 {
			m.paletteCursor++
		}
	case key.Matches(msg, keys.Enter):
		m.mode = ModeNormal
		n := len(m.currentElements())
		offset := float64(40 + 20*(n%10))
		el := m.ws.Store().AddElement(types[m.paletteCursor], model.Position{X: offset, Y: offset})
		for i, e := range m.currentElements() {
			if e.ID == el.ID {
				m.elemCursor = i
			}
		}
		m.pane = PaneElements
		m.closeThread()
		m.setMessage(fmt.Sprintf("Added %s", model.DefaultsFor(el.Type).Label))
		return m, m.openThread(el.ID)
	}
	return m, nil
}

func (m Model) startRenameScreen() (tea.Model, tea.Cmd) {
	if m.pane != PaneScreens || !m.canEdit() {
		return m, nil
	}
	screen, ok := m.currentScreen()
	if !ok {
		return m, nil
	}
	return m.startInput(ModeRenameScreen, screen.Name, "Screen name...")
}

func (m Model) startEditProperty() (tea.Model, tea.Cmd) {
	if !m.canEdit() {
		return m, nil
	}
	if _, ok := m.currentElement(); !ok {
		return m, nil
	}
	return m.startInput(ModeEditProperty, "", "key=value, e.g. title=Revenue")
}

func (m Model) startSaveTemplate() (tea.Model, tea.Cmd) {
	name := ""
	st := m.ws.Store()
	if id := st.ActiveTemplateID(); id != "" {
		for _, t := range st.Templates() {
			if t.ID == id {
				name = t.Name
			}
		}
	}
	return m.startInput(ModeSaveTemplate, name, "Template name...")
}

func (m Model) startInput(mode Mode, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.input.CursorEnd()
	return m, textinput.Blink
}

func (m *Model) nudge(dx, dy float64) {
	el, ok := m.currentElement()
	if !ok || !m.canEdit() {
		return
	}
	pos := model.Position{X: max(el.Position.X+dx, 0), Y: max(el.Position.Y+dy, 0)}
	m.ws.Store().UpdateElement(el.ID, store.ElementPatch{Position: &pos})
}

func (m *Model) resize(d float64) {
	el, ok := m.currentElement()
	if !ok || !m.canEdit() {
		return
	}
	size := model.Size{Width: max(el.Size.Width+d, minSize), Height: max(el.Size.Height+d, minSize)}
	m.ws.Store().UpdateElement(el.ID, store.ElementPatch{Size: &size})
}

func (m *Model) handleDuplicate() {
	el, ok := m.currentElement()
	if !ok || !m.canEdit() {
		return
	}
	clone, ok := m.ws.Store().DuplicateElement(el.ID)
	if !ok {
		return
	}
	for i, e := range m.currentElements() {
		if e.ID == clone.ID {
			m.elemCursor = i
		}
	}
	m.closeThread()
	m.setMessage("Duplicated " + elementLabel(el))
}

func (m Model) handleDelete() (tea.Model, tea.Cmd) {
	st := m.ws.Store()
	switch m.pane {
	case PaneScreens:
		if !m.canEdit() {
			return m, nil
		}
		screen, ok := m.currentScreen()
		if !ok {
			return m, nil
		}
		if len(st.Screens()) <= 1 {
			m.setError("Cannot delete the only screen")
			return m, nil
		}
		return m.confirm(fmt.Sprintf("Delete screen %q and its elements?", screen.Name), func(m *Model) tea.Cmd {
			st.DeleteScreen(screen.ID)
			m.closeThread()
			m.syncScreenCursor()
			m.clampCursors()
			m.setMessage("Deleted " + screen.Name)
			return nil
		})

	case PaneElements:
		if !m.canEdit() {
			return m, nil
		}
		el, ok := m.currentElement()
		if !ok {
			return m, nil
		}
		return m.confirm(fmt.Sprintf("Delete %s?", elementLabel(el)), func(m *Model) tea.Cmd {
			st.RemoveElement(el.ID)
			if m.threadElement == el.ID {
				m.closeThread()
			}
			m.clampCursors()
			m.setMessage("Deleted " + elementLabel(el))
			return nil
		})

	case PaneComments:
		if m.thread == nil || m.commentCursor >= len(m.threadComments) {
			return m, nil
		}
		c := m.threadComments[m.commentCursor]
		if c.UserID != m.ws.Actor().ID && !m.ws.Permissions().CanShare {
			m.setError("You can only delete your own comments")
			return m, nil
		}
		if comments.IsTemporaryID(c.ID) {
			m.setError("Comment is still being sent")
			return m, nil
		}
		thread := m.thread
		return m.confirm("Delete this comment?", func(m *Model) tea.Cmd {
			return func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
				defer cancel()
				return commentDeletedMsg{err: thread.Delete(ctx, c.ID)}
			}
		})
	}
	return m, nil
}

// confirm runs action after a y/N prompt, or at once when confirmations
// are turned off
func (m Model) confirm(prompt string, action func(*Model) tea.Cmd) (tea.Model, tea.Cmd) {
	if !m.opts.ConfirmDelete {
		cmd := action(&m)
		return m, cmd
	}
	m.mode = ModeConfirm
	m.confirmPrompt = prompt
	m.confirmAction = action
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirmAction
	m.mode = ModeNormal
	m.confirmAction = nil
	m.confirmPrompt = ""
	if msg.String() == "y" || msg.String() == "Y" {
		if action != nil {
			cmd := action(&m)
			return m, cmd
		}
		return m, nil
	}
	m.setMessage("Cancelled")
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		value := m.input.Value()
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		return m.submitInput(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitInput(mode Mode, value string) (tea.Model, tea.Cmd) {
	st := m.ws.Store()
	switch mode {
	case ModeRenameScreen:
		name, err := model.ValidateScreenName(value)
		if err != nil {
			m.setError(err.Error())
			return m, nil
		}
		if screen, ok := m.currentScreen(); ok {
			st.RenameScreen(screen.ID, name)
			m.setMessage("Renamed to " + name)
		}

	case ModeEditProperty:
		k, v, err := parseAssignment(value)
		if err != nil {
			m.setError(err.Error())
			return m, nil
		}
		if el, ok := m.currentElement(); ok {
			st.UpdateElementProperties(el.ID, map[string]any{k: v})
			m.setMessage("Set " + k)
		}

	case ModeSaveTemplate:
		return m, m.templateOp(false, func(ctx context.Context) (string, error) {
			t, err := st.SaveTemplate(ctx, value)
			if err != nil {
				return "", err
			}
			return "Saved template " + t.Name, nil
		})

	case ModeNewTemplate:
		if !m.canEdit() {
			return m, nil
		}
		return m, m.templateOp(true, func(ctx context.Context) (string, error) {
			t, err := st.CreateNewTemplate(ctx, value)
			if err != nil {
				return "", err
			}
			return "Started template " + t.Name, nil
		})
	}
	return m, nil
}

func (m Model) templateOp(canvas bool, fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		message, err := fn(ctx)
		return templateDoneMsg{message: message, canvas: canvas && err == nil, err: err}
	}
}

func (m Model) fetchTemplates() tea.Cmd {
	st := m.ws.Store()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return templatesMsg{err: st.FetchTemplates(ctx)}
	}
}

func (m Model) updateTemplates(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.ws.Store()
	switch {
	case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Quit):
		m.mode = ModeNormal
	case key.Matches(msg, keys.Up):
		if m.templateCursor > 0 {
			m.templateCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.templateCursor < len(m.templates)-1 {
			m.templateCursor++
		}
	case msg.String() == "n":
		if !m.canEdit() {
			return m, nil
		}
		return m.startInput(ModeNewTemplate, "", "New template name...")
	case key.Matches(msg, keys.Enter):
		if m.templateCursor >= len(m.templates) || !m.canEdit() {
			return m, nil
		}
		t := m.templates[m.templateCursor]
		return m, m.templateOp(true, func(ctx context.Context) (string, error) {
			loaded, err := st.LoadTemplate(ctx, t.ID)
			if err != nil {
				return "", err
			}
			return "Loaded template " + loaded.Name, nil
		})
	case key.Matches(msg, keys.Delete):
		if m.templateCursor >= len(m.templates) {
			return m, nil
		}
		t := m.templates[m.templateCursor]
		m.mode = ModeNormal
		return m.confirm(fmt.Sprintf("Delete template %q?", t.Name), func(m *Model) tea.Cmd {
			return m.templateOp(false, func(ctx context.Context) (string, error) {
				if err := st.DeleteTemplate(ctx, t.ID); err != nil {
					return "", err
				}
				return "Deleted template " + t.Name, nil
			})
		})
	}
	return m, nil
}

func (m Model) startComment() (tea.Model, tea.Cmd) {
	if m.thread == nil {
		m.setError("Select an element first (enter)")
		return m, nil
	}
	if !m.ws.Permissions().CanComment {
		m.setError("You cannot comment on this project")
		return m, nil
	}
	m.composer.Reset()
	m.suggestions = nil
	m.input.CharLimit = model.MaxCommentLength
	return m.startInput(ModeComment, "", "Comment, @ to mention...")
}

// updateComposer edits the comment and offers mention suggestions
func (m Model) updateComposer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.suggestions) > 0 {
		switch msg.Type {
		case tea.KeyUp:
			if m.suggestCursor > 0 {
				m.suggestCursor--
			}
			return m, nil
		case tea.KeyDown:
			if m.suggestCursor < len(m.suggestions)-1 {
				m.suggestCursor++
			}
			return m, nil
		case tea.KeyTab, tea.KeyEnter:
			m.pickSuggestion(m.suggestions[m.suggestCursor])
			return m, nil
		case tea.KeyEsc:
			m.suggestions = nil
			return m, nil
		}
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeNormal
		m.input.Blur()
		m.composer.Reset()
		return m, nil
	case tea.KeyEnter:
		return m.sendComment()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.syncComposer()
	return m, cmd
}

// syncComposer copies the input into the composer and recomputes the
// mention suggestions
func (m *Model) syncComposer() {
	value := m.input.Value()
	m.composer.SetText(value, byteOffset(value, m.input.Position()))
	m.suggestions = nil
	m.suggestCursor = 0
	q, ok := m.composer.Query()
	if !ok {
		return
	}
	for _, p := range comments.FilterCollaborators(m.members, q) {
		if p.ID == m.ws.Actor().ID {
			continue
		}
		m.suggestions = append(m.suggestions, p)
		if len(m.suggestions) == maxSuggest {
			break
		}
	}
}

func (m *Model) pickSuggestion(p model.Profile) {
	if !m.composer.Select(p) {
		return
	}
	text := m.composer.Text()
	m.input.SetValue(text)
	m.input.SetCursor(utf8.RuneCountInString(text[:m.composer.Cursor()]))
	m.suggestions = nil
	m.suggestCursor = 0
}

func (m Model) sendComment() (tea.Model, tea.Cmd) {
	m.composer.SetText(m.input.Value(), len(m.input.Value()))
	text := m.composer.Text()
	mentions := m.composer.Mentions()
	thread := m.thread

	done, err := thread.Add(context.Background(), text, mentions)
	if err != nil {
		m.setError(err.Error())
		return m, nil
	}
	m.mode = ModeNormal
	m.input.Blur()
	m.input.SetValue("")
	m.composer.Reset()
	m.suggestions = nil
	m.threadComments = thread.Comments()
	m.commentCursor = max(len(m.threadComments)-1, 0)
	return m, func() tea.Msg {
		return commentSentMsg{err: <-done}
	}
}

// byteOffset converts a rune position in s to a byte offset
func byteOffset(s string, runePos int) int {
	if runePos <= 0 {
		return 0
	}
	i := 0
	for pos := range s {
		if i == runePos {
			return pos
		}
		i++
	}
	return len(s)
}

func (m Model) flush() tea.Cmd {
	ws := m.ws
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return savedMsg{err: ws.Flush(ctx)}
	}
}

func (m Model) refresh() tea.Cmd {
	ws := m.ws
	thread := m.thread
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		perms, err := ws.RefreshPermissions(ctx)
		if err == nil && thread != nil {
			err = thread.Fetch(ctx)
		}
		return refreshedMsg{perms: perms, err: err}
	}
}
