package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type commentRow struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	ElementID string `json:"element_id"`
	Content   string `json:"content"`
}

func mustEvent(t *testing.T, typ EventType, table string, newRow, oldRow any) Event {
	t.Helper()
	e, err := NewEvent(typ, table, newRow, oldRow)
	require.NoError(t, err)
	return e
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("project_id=eq.p1,element_id=eq.el1")
	require.NoError(t, err)
	require.Len(t, f, 2)
	assert.Equal(t, Condition{Column: "project_id", Op: OpEq, Value: "p1"}, f[0])
	assert.Equal(t, "project_id=eq.p1,element_id=eq.el1", f.String())

	v, ok := f.Eq("element_id")
	assert.True(t, ok)
	assert.Equal(t, "el1", v)

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Empty(t, f)

	f, err = ParseFilter("content=ilike.%a.b%")
	require.NoError(t, err)
	assert.Equal(t, "%a.b%", f[0].Value)

	for _, bad := range []string{"project_id", "project_id=p1", "project_id=gt.1", "=eq.1"} {
		_, err := ParseFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestFilterMatch(t *testing.T) {
	f, err := ParseFilter("project_id=eq.p1,content=ilike.%HELLO%")
	require.NoError(t, err)

	assert.True(t, f.Match(map[string]any{"project_id": "p1", "content": "well hello there"}))
	assert.False(t, f.Match(map[string]any{"project_id": "p2", "content": "hello"}))
	assert.False(t, f.Match(map[string]any{"project_id": "p1", "content": "bye"}))
	assert.False(t, f.Match(map[string]any{"content": "hello"}))

	pub, err := ParseFilter("is_public=eq.true")
	require.NoError(t, err)
	assert.True(t, pub.Match(map[string]any{"is_public": true}))

	under, err := ParseFilter("name=ilike.a_c")
	require.NoError(t, err)
	assert.True(t, under.Match(map[string]any{"name": "ABC"}))
	assert.False(t, under.Match(map[string]any{"name": "abbc"}))
}

func TestChannelMatches(t *testing.T) {
	f, err := ParseFilter("project_id=eq.p1,element_id=eq.el1")
	require.NoError(t, err)
	ch := Channel{Table: "comments", Event: EventAll, Filter: f}
	assert.Equal(t, "comments:*:project_id=eq.p1,element_id=eq.el1", ch.Key())

	row := commentRow{ID: "c1", ProjectID: "p1", ElementID: "el1"}
	assert.True(t, ch.Matches(mustEvent(t, EventInsert, "comments", row, nil)))
	assert.True(t, ch.Matches(mustEvent(t, EventDelete, "comments", nil, row)))
	assert.False(t, ch.Matches(mustEvent(t, EventInsert, "projects", row, nil)))

	other := commentRow{ID: "c2", ProjectID: "p1", ElementID: "el2"}
	assert.False(t, ch.Matches(mustEvent(t, EventInsert, "comments", other, nil)))

	inserts := Channel{Table: "comments", Event: EventInsert}
	assert.False(t, inserts.Matches(mustEvent(t, EventDelete, "comments", nil, row)))
}

func TestParseEventType(t *testing.T) {
	e, err := ParseEventType("")
	require.NoError(t, err)
	assert.Equal(t, EventAll, e)
	e, err = ParseEventType("DELETE")
	require.NoError(t, err)
	assert.Equal(t, EventDelete, e)
	_, err = ParseEventType("TRUNCATE")
	assert.Error(t, err)
}

func TestHub_PublishAndDrop(t *testing.T) {
	hub := NewHub()
	hub.buffer = 1
	sub := hub.Subscribe(Channel{Table: "comments"})
	defer sub.Close()
	other := hub.Subscribe(Channel{Table: "projects"})
	defer other.Close()

	e := mustEvent(t, EventInsert, "comments", commentRow{ID: "c1"}, nil)
	assert.Equal(t, 1, hub.Publish(e))
	assert.Equal(t, 0, hub.Publish(e), "full buffer drops")

	got := <-sub.Events()
	assert.Equal(t, EventInsert, got.Type)

	var row commentRow
	require.NoError(t, got.Decode(&row))
	assert.Equal(t, "c1", row.ID)

	sub.Close()
	sub.Close()
	assert.Equal(t, 1, hub.Len())
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestTicket(t *testing.T) {
	secret := []byte("test-secret")
	ticket, err := IssueTicket(secret, "u1", time.Minute)
	require.NoError(t, err)

	user, err := ParseTicket(secret, ticket)
	require.NoError(t, err)
	assert.Equal(t, "u1", user)

	_, err = ParseTicket([]byte("other"), ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	expired, err := IssueTicket(secret, "u1", -time.Minute)
	require.NoError(t, err)
	_, err = ParseTicket(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestWebsocketRoundTrip(t *testing.T) {
	hub := NewHub()
	settings := DefaultSettings()
	f, err := ParseFilter("project_id=eq.p1")
	require.NoError(t, err)
	channel := Channel{Table: "comments", Event: EventAll, Filter: f}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(hub, w, r, channel, settings)
	}))
	defer srv.Close()

	received := make(chan Event, 4)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(context.Background(), url, func(e Event) { received <- e }, settings)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(mustEvent(t, EventInsert, "comments", commentRow{ID: "skip", ProjectID: "p2"}, nil))
	hub.Publish(mustEvent(t, EventInsert, "comments", commentRow{ID: "c1", ProjectID: "p1"}, nil))

	select {
	case e := <-received:
		var row commentRow
		require.NoError(t, e.Decode(&row))
		assert.Equal(t, "c1", row.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}
