package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/existflow/dashcraft/internal/config"
	"github.com/existflow/dashcraft/internal/db"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/notify"
	"github.com/existflow/dashcraft/internal/remote"
	"github.com/existflow/dashcraft/internal/workspace"
	"golang.org/x/term"
)

// appConfig is loaded before every command runs
var appConfig = config.DefaultConfig()

var stdin = bufio.NewReader(os.Stdin)

// printNotifier writes toasts from background operations to stdout
var printNotifier = notify.Func(func(m notify.Message) {
	switch m.Level {
	case notify.LevelError:
		fmt.Printf("⚠️  %s: %s\n", m.Title, m.Message)
	case notify.LevelSuccess:
		fmt.Printf("✓ %s\n", m.Title)
	default:
		fmt.Printf("ℹ️  %s: %s\n", m.Title, m.Message)
	}
})

// newClient returns the API client pointed at the configured server
func newClient() (*remote.Client, error) {
	client, err := remote.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if appConfig.Server != "" && client.ServerURL() != appConfig.Server {
		if err := client.SetServer(appConfig.Server); err != nil {
			logger.Warn("Failed to persist server URL", logger.F("error", err))
		}
	}
	return client, nil
}

// loggedInClient is newClient for commands that need an account
func loggedInClient() (*remote.Client, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	if !client.IsLoggedIn() {
		return nil, remote.ErrNotLoggedIn
	}
	return client, nil
}

// openCache opens the local project cache. Commands keep working without
// it, so a failure is only logged.
func openCache() *db.DB {
	cache, err := db.OpenDefault()
	if err != nil {
		logger.Warn("Local cache unavailable", logger.F("error", err))
		return nil
	}
	return cache
}

func closeCache(cache *db.DB) {
	if cache != nil {
		_ = cache.Close()
	}
}

// resolveProject picks the project to work on: the --project flag, then
// the project selected with 'dashcraft project use'
func resolveProject(ctx context.Context, cache *db.DB) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}
	if cache != nil {
		id, err := cache.GetState(ctx, db.KeyCurrentProject)
		if err == nil && id != "" {
			return id, nil
		}
	}
	return "", errors.New("no project selected, pass --project or run 'dashcraft project use <id>'")
}

// session is an open project together with what it was opened from
type session struct {
	client *remote.Client
	cache  *db.DB
	ws     *workspace.Workspace
}

// openSession opens the selected project for editing
func openSession(ctx context.Context, opts workspace.Options) (*session, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	cache := openCache()
	projectID, err := resolveProject(ctx, cache)
	if err != nil {
		closeCache(cache)
		return nil, err
	}

	if opts.Notifier == nil {
		opts.Notifier = printNotifier
	}
	if opts.Delay == 0 {
		opts.Delay = appConfig.AutoSaveDelay
	}
	ws, err := workspace.Open(ctx, client, cache, projectID, opts)
	if err != nil {
		closeCache(cache)
		return nil, err
	}
	return &session{client: client, cache: cache, ws: ws}, nil
}

// requireEdit fails unless the session may change the canvas
func (s *session) requireEdit() error {
	if s.ws.Offline() {
		return errors.New("server unreachable, the cached copy is read-only")
	}
	if !s.ws.Permissions().CanEdit {
		return errors.New("you do not have permission to edit this project")
	}
	return nil
}

// close saves pending canvas changes and releases the cache
func (s *session) close() error {
	err := s.ws.Close()
	closeCache(s.cache)
	return err
}

// prompt reads one trimmed line from stdin
func prompt(label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

// promptPassword reads a line from stdin without echo
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// confirm asks a yes/no question unless confirmations are turned off
func confirm(question string) bool {
	if assumeYes || !appConfig.ConfirmDelete {
		return true
	}
	answer := strings.ToLower(prompt(question + " [y/N]: "))
	return answer == "y" || answer == "yes"
}

// matchID finds the single id equal to ref or starting with it
func matchID(ids []string, ref string) (string, error) {
	var found []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("nothing matches %q", ref)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d matches)", ref, len(found))
	}
}

// shortID shortens an id for table output
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
