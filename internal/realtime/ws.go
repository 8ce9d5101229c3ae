package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/gorilla/websocket"
)

// Settings are the socket timeouts shared by server and client
type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
}

// DefaultSettings returns the timeouts used when none are given. The ping
// interval stays below the read timeout so idle sockets are kept open.
func DefaultSettings() Settings {
	return Settings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     25 * time.Second,
	}
}

const maxClientMessage = 4096

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and streams the events of ch until either
// side closes the socket. Clients do not send data; anything they send is
// discarded.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, ch Channel, settings Settings) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade: %w", err)
	}
	defer ws.Close()

	sub := hub.Subscribe(ch)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.SetReadLimit(maxClientMessage)
		ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(settings.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-r.Context().Done():
			return nil
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			ws.SetWriteDeadline(time.Now().Add(settings.WriteTimeout))
			if err := ws.WriteJSON(e); err != nil {
				logger.Debug("Realtime write failed", logger.F("channel", ch.Key()), logger.F("error", err))
				return nil
			}
		case <-ticker.C:
			deadline := time.Now().Add(settings.WriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return nil
			}
		}
	}
}

// Conn is a client connection to a realtime channel
type Conn struct {
	ws       *websocket.Conn
	settings Settings
	done     chan struct{}
	once     sync.Once
	writeMu  sync.Mutex
}

// Dial opens a realtime socket at url and calls handler for every event
// received, on the connection's read goroutine
func Dial(ctx context.Context, url string, handler func(Event), settings Settings) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: settings.HandshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open realtime socket: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to open realtime socket: %w", err)
	}

	c := &Conn{ws: ws, settings: settings, done: make(chan struct{})}
	ws.SetPingHandler(func(data string) error {
		ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(settings.WriteTimeout))
	})
	go c.readLoop(handler)
	return c, nil
}

func (c *Conn) readLoop(handler func(Event)) {
	defer close(c.done)
	for {
		c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			logger.Warn("Dropping malformed realtime message", logger.F("error", err))
			continue
		}
		handler(e)
	}
}

// Done is closed when the connection stops reading
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close sends a close frame, closes the socket and waits for the read
// goroutine to exit
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.settings.WriteTimeout))
		c.writeMu.Unlock()
		err = c.ws.Close()
		<-c.done
	})
	return err
}
