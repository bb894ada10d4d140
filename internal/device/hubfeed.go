package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/labstack/gommon/log"

	"dialdesk/internal/realtime"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
	reconnectMaxTries  = 8
)

var errFeedClosed = errors.New("hub feed closed")

// HubFeed keeps one device subscribed to the presence hub. It dials the
// realtime endpoint, authenticates with the login token, and forwards
// call_answered notifications to the controller. A dropped connection is
// re-dialed with capped exponential backoff and a bounded attempt budget;
// events missed while disconnected are gone, the hub keeps no backlog.
type HubFeed struct {
	host       string
	token      string
	controller *Controller
	logger     *log.Logger

	// OnEvent, when set, receives every hub event after the controller has
	// seen it. The console uses it to render teammate presence.
	OnEvent func(event realtime.Event)

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

// NewHubFeed wires a feed for host (host:port of the realtime listener)
// onto the given controller. Call Start to begin receiving.
func NewHubFeed(host, token string, controller *Controller) *HubFeed {
	return &HubFeed{
		host:       host,
		token:      token,
		controller: controller,
		logger:     log.New("hubfeed"),
		done:       make(chan struct{}),
	}
}

// Start launches the dial/read loop in the background.
func (f *HubFeed) Start() {
	go f.run()
}

// Stop closes the feed. Safe to call more than once.
func (f *HubFeed) Stop() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	close(f.done)
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
}

func (f *HubFeed) run() {
	delay := reconnectBaseDelay
	failures := 0
	for {
		conn, err := f.dial()
		if errors.Is(err, errFeedClosed) {
			return
		}
		if err != nil {
			failures++
			if failures >= reconnectMaxTries {
				f.logger.Errorf("giving up on hub after %d attempts: %v", failures, err)
				f.controller.notice("lost the presence feed; answered-elsewhere dismissal is offline")
				return
			}
			f.logger.Warnf("hub dial failed (attempt %d): %v", failures, err)
			if !f.wait(delay) {
				return
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		// A live connection refills the retry budget.
		failures = 0
		delay = reconnectBaseDelay
		if !f.readLoop(conn) {
			return
		}
	}
}

// dial connects, sends the auth handshake, and hands the connection to
// the read loop. Authentication is re-done from scratch on every
// reconnect; there is no resume.
func (f *HubFeed) dial() (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: f.host, Path: "/ws"}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u.String(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	auth, err := json.Marshal(realtime.ClientMessage{Type: realtime.MessageTypeAuth, Token: f.token})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, auth); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("auth frame: %w", err)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return nil, errFeedClosed
	}
	f.conn = conn
	f.mu.Unlock()

	f.logger.Infof("connected to hub at %s", f.host)
	return conn, nil
}

// readLoop blocks on the connection until it dies. It returns false when
// the feed should stop for good instead of re-dialing.
func (f *HubFeed) readLoop(conn *websocket.Conn) bool {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.stopping() {
				return false
			}
			f.logger.Warnf("hub read: %v", err)
			return true
		}
		if !f.dispatch(data) {
			f.Stop()
			return false
		}
	}
}

// dispatch routes one hub frame. It returns false when the hub has
// rejected our token; re-dialing with the same token cannot help.
func (f *HubFeed) dispatch(data []byte) bool {
	var event realtime.Event
	if err := json.Unmarshal(data, &event); err != nil {
		f.logger.Warnf("hub frame: %v", err)
		return true
	}

	switch event.Type {
	case realtime.EventAuthSuccess:
		f.logger.Infof("hub feed authenticated")
	case realtime.EventAuthError:
		f.controller.notice("hub rejected the session token")
		return false
	case realtime.EventCallAnswered:
		f.controller.HandleCallAnswered(event.CallSID, event.AnsweredByUserID, event.AnsweredByName)
	}

	if f.OnEvent != nil {
		f.OnEvent(event)
	}
	return true
}

func (f *HubFeed) stopping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *HubFeed) wait(d time.Duration) bool {
	select {
	case <-f.done:
		return false
	case <-time.After(d):
		return true
	}
}
