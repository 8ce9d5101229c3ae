// Package comments keeps the comment thread of one element in sync with
// the server. New comments appear locally before the server confirms them
// and are reconciled with the realtime change feed by id.
package comments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/notify"
	"github.com/oklog/ulid/v2"
)

var (
	ErrEmptyComment     = errors.New("comment is empty")
	ErrCommentTooLong   = fmt.Errorf("comment exceeds %d characters", model.MaxCommentLength)
	ErrNotAuthenticated = errors.New("sign in to comment")
	ErrPendingComment   = errors.New("comment is still being posted")
	ErrClosed           = errors.New("thread is closed")
)

// fetchTimeout bounds the row lookup done for each change feed insert
const fetchTimeout = 10 * time.Second

// Backend is the remote store of comments and notifications
type Backend interface {
	ListComments(ctx context.Context, projectID, elementID string) ([]model.Comment, error)
	GetComment(ctx context.Context, id string) (model.Comment, error)
	CreateComment(ctx context.Context, c model.NewComment) (model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	CreateNotification(ctx context.Context, n model.Notification) error
}

// ChangeKind is the kind of row change seen on the feed
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeDelete ChangeKind = "DELETE"
)

// Change identifies a comment row that was inserted or deleted remotely
type Change struct {
	Kind ChangeKind
	ID   string
}

// Subscription is a live change feed
type Subscription interface {
	Close() error
}

// Subscriber opens change feeds for the comments of one element
type Subscriber interface {
	SubscribeComments(ctx context.Context, projectID, elementID string, handler func(Change)) (Subscription, error)
}

// Option configures a Thread
type Option func(*Thread)

// WithNotifier sets where failures are surfaced
func WithNotifier(n notify.Notifier) Option {
	return func(t *Thread) { t.notifier = n }
}

// WithTempIDs overrides how temporary comment ids are generated
func WithTempIDs(gen func() string) Option {
	return func(t *Thread) { t.newTempID = gen }
}

// WithClock overrides the clock used for optimistic timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Thread) { t.now = now }
}

// Thread is the comment list of one element
type Thread struct {
	backend   Backend
	projectID string
	elementID string
	actor     model.Profile
	notifier  notify.Notifier
	newTempID func() string
	now       func() time.Time
	log       *logger.Logger

	mu           sync.Mutex
	comments     []model.Comment
	tombstones   map[string]struct{}
	listeners    map[int]func([]model.Comment)
	nextListener int
	sub          Subscription
	closed       bool
}

// NewThread creates the thread of elementID in projectID as seen by actor.
// A zero actor is an anonymous reader and cannot post.
func NewThread(backend Backend, projectID, elementID string, actor model.Profile, opts ...Option) *Thread {
	t := &Thread{
		backend:    backend,
		projectID:  projectID,
		elementID:  elementID,
		actor:      actor,
		notifier:   notify.Discard,
		newTempID:  func() string { return TempIDPrefix + ulid.Make().String() },
		now:        time.Now,
		comments:   []model.Comment{},
		tombstones: make(map[string]struct{}),
		listeners:  make(map[int]func([]model.Comment)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = logger.WithFields(logger.F("project", projectID), logger.F("element", elementID))
	return t
}

// Comments returns the thread in display order
func (t *Thread) Comments() []model.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clone(t.comments)
}

// OnChange registers fn to receive the thread after every change. The
// returned function removes it.
func (t *Thread) OnChange(fn func([]model.Comment)) func() {
	t.mu.Lock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// apply runs fn under the lock and, if it changed the list, sends the new
// list to listeners after unlocking
func (t *Thread) apply(fn func() bool) {
	t.mu.Lock()
	if t.closed || !fn() {
		t.mu.Unlock()
		return
	}
	list := clone(t.comments)
	fns := make([]func([]model.Comment), 0, len(t.listeners))
	for _, l := range t.listeners {
		fns = append(fns, l)
	}
	t.mu.Unlock()

	for _, l := range fns {
		l(list)
	}
}

func (t *Thread) tombstonedLocked(id string) bool {
	_, ok := t.tombstones[id]
	return ok
}

func (t *Thread) fail(title string, err error) {
	t.log.Error(title, logger.F("error", err))
	notify.Error(t.notifier, title, err.Error())
}

// Fetch loads the whole thread, oldest first. Comments still being posted
// are kept. On failure the current list is left as is.
func (t *Thread) Fetch(ctx context.Context) error {
	list, err := t.backend.ListComments(ctx, t.projectID, t.elementID)
	if err != nil {
		t.fail("Failed to load comments", err)
		return fmt.Errorf("failed to load comments: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

	t.apply(func() bool {
		fresh := make([]model.Comment, 0, len(list))
		for _, c := range list {
			if !t.tombstonedLocked(c.ID) {
				fresh = append(fresh, c)
			}
		}
		for _, c := range t.comments {
			if !IsTemporaryID(c.ID) {
				continue
			}
			confirmed := false
			for _, f := range fresh {
				if matchesTemp(c, f) {
					confirmed = true
					break
				}
			}
			if !confirmed {
				fresh = append(fresh, c)
			}
		}
		t.comments = fresh
		return true
	})
	t.log.Debug("Comments fetched", logger.F("count", len(list)))
	return nil
}

// Add posts a comment. The comment is visible in the thread as soon as Add
// returns; the returned channel yields the outcome of the remote write and
// is then closed. Validation errors are returned directly and nothing is
// posted.
func (t *Thread) Add(ctx context.Context, content string, mentions []string) (<-chan error, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	if len([]rune(content)) > model.MaxCommentLength {
		return nil, ErrCommentTooLong
	}
	if t.actor.ID == "" {
		return nil, ErrNotAuthenticated
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	now := t.now().UTC()
	temp := model.Comment{
		ID:        t.newTempID(),
		Content:   content,
		UserID:    t.actor.ID,
		ProjectID: t.projectID,
		ElementID: t.elementID,
		Mentions:  uniqueMentions(mentions, ""),
		CreatedAt: now,
		UpdatedAt: now,
		Author: &model.Author{
			Username:    t.actor.Username,
			DisplayName: t.actor.DisplayName,
			AvatarURL:   t.actor.AvatarURL,
		},
	}
	t.apply(func() bool {
		t.comments = append(t.comments, temp)
		return true
	})

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- t.commit(ctx, temp)
	}()
	return done, nil
}

func (t *Thread) commit(ctx context.Context, temp model.Comment) error {
	confirmed, err := t.backend.CreateComment(ctx, model.NewComment{
		ProjectID: temp.ProjectID,
		ElementID: temp.ElementID,
		Content:   temp.Content,
		Mentions:  temp.Mentions,
	})
	if err != nil {
		t.apply(func() bool {
			var removed bool
			t.comments, removed = RemoveComment(t.comments, temp.ID)
			return removed
		})
		t.fail("Failed to add comment", err)
		return fmt.Errorf("failed to add comment: %w", err)
	}
	if confirmed.Author == nil {
		confirmed.Author = temp.Author
	}

	t.apply(func() bool {
		if t.tombstonedLocked(confirmed.ID) {
			var removed bool
			t.comments, removed = RemoveComment(t.comments, temp.ID)
			return removed
		}
		t.comments = MergeConfirmed(t.comments, temp.ID, confirmed)
		return true
	})
	t.log.Info("Comment added", logger.F("id", confirmed.ID))

	t.notifyMentions(ctx, confirmed, temp.Mentions)
	return nil
}

func uniqueMentions(ids []string, skip string) []string {
	seen := make(map[string]bool, len(ids))
	out := []string{}
	for _, id := range ids {
		if id == "" || id == skip || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// notifyMentions queues a notification for every mentioned user. Failures
// are logged and never undo the comment.
func (t *Thread) notifyMentions(ctx context.Context, c model.Comment, mentions []string) {
	message := fmt.Sprintf("%s mentioned you in a comment", t.actor.Name())
	for _, userID := range uniqueMentions(mentions, t.actor.ID) {
		err := t.backend.CreateNotification(ctx, model.Notification{
			UserID:    userID,
			ActorID:   t.actor.ID,
			ProjectID: t.projectID,
			ElementID: t.elementID,
			CommentID: c.ID,
			Kind:      model.NotificationMention,
			Message:   message,
		})
		if err != nil {
			t.log.Warn("Failed to send mention notification",
				logger.F("user", userID), logger.F("error", err))
		}
	}
}

// Delete removes a comment remotely, then from the thread
func (t *Thread) Delete(ctx context.Context, id string) error {
	if IsTemporaryID(id) {
		return ErrPendingComment
	}
	if err := t.backend.DeleteComment(ctx, id); err != nil {
		t.fail("Failed to delete comment", err)
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	t.removeLocal(id)
	t.log.Info("Comment deleted", logger.F("id", id))
	return nil
}

func (t *Thread) removeLocal(id string) {
	t.apply(func() bool {
		t.tombstones[id] = struct{}{}
		var removed bool
		t.comments, removed = RemoveComment(t.comments, id)
		return removed
	})
}

// Subscribe opens the change feed for this thread, replacing any previous
// one. Inserts are looked up and merged by id; deletes are applied and
// remembered so a late insert cannot bring the comment back.
func (t *Thread) Subscribe(ctx context.Context, s Subscriber) error {
	sub, err := s.SubscribeComments(ctx, t.projectID, t.elementID, t.handleChange)
	if err != nil {
		t.log.Warn("Failed to subscribe to comments", logger.F("error", err))
		return fmt.Errorf("failed to subscribe to comments: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = sub.Close()
		return ErrClosed
	}
	prev := t.sub
	t.sub = sub
	t.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

func (t *Thread) handleChange(ch Change) {
	switch ch.Kind {
	case ChangeDelete:
		t.removeLocal(ch.ID)
	case ChangeInsert:
		t.mu.Lock()
		skip := t.closed || t.tombstonedLocked(ch.ID) || indexOf(t.comments, ch.ID) >= 0
		t.mu.Unlock()
		if skip {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		c, err := t.backend.GetComment(ctx, ch.ID)
		if err != nil {
			t.log.Warn("Failed to load inserted comment", logger.F("id", ch.ID), logger.F("error", err))
			return
		}
		if c.ProjectID != t.projectID || c.ElementID != t.elementID {
			return
		}
		t.ApplyInsert(c)
	}
}

// ApplyInsert merges a full comment row from the change feed
func (t *Thread) ApplyInsert(c model.Comment) {
	t.apply(func() bool {
		if t.tombstonedLocked(c.ID) {
			return false
		}
		var changed bool
		t.comments, changed = MergeRemoteInsert(t.comments, c)
		return changed
	})
}

// Close tears down the change feed. Posts still in flight complete
// remotely but no longer change the thread.
func (t *Thread) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}
