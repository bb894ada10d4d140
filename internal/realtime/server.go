package realtime

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/lesismal/nbio/nbhttp"
	"github.com/lesismal/nbio/nbhttp/websocket"
)

// Server runs the websocket endpoint on its own port next to the REST
// listener, on non-blocking I/O so idle agent connections stay cheap.
type Server struct {
	hub *Hub
	svr *nbhttp.Server
}

// NewServer builds the realtime listener for the given port.
func NewServer(hub *Hub, port int) *Server {
	s := &Server{hub: hub}

	mux := &http.ServeMux{}
	mux.HandleFunc("/ws", s.serveWs)

	s.svr = nbhttp.NewServer(nbhttp.Config{
		Network:                 "tcp",
		Addrs:                   []string{fmt.Sprintf(":%d", port)},
		MaxLoad:                 1000000,
		ReleaseWebsocketPayload: true,
		NPoller:                 runtime.NumCPU() * 4,
	}, mux, nil)

	return s
}

// Start begins accepting websocket connections.
func (s *Server) Start() error {
	return s.svr.Start()
}

// Stop closes the listener and every connection.
func (s *Server) Stop() {
	s.svr.Stop()
}

// serveWs upgrades one request and hands the connection to the hub. The
// connection carries no identity until its auth frame validates.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.NewUpgrader()
	upgrader.CheckOrigin = func(r *http.Request) bool {
		return true
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.logger.Warnf("upgrade: %v", err)
		return
	}
	wsConn := conn.(*websocket.Conn)
	// Clients only speak once (the auth frame); never time their reads out.
	wsConn.SetReadDeadline(time.Time{})

	client := s.hub.NewClient(&wsSender{conn: wsConn})

	upgrader.OnMessage(func(c *websocket.Conn, messageType websocket.MessageType, data []byte) {
		if messageType != websocket.TextMessage {
			return
		}
		s.hub.HandleMessage(client, data)
	})
	wsConn.OnClose(func(c *websocket.Conn, err error) {
		s.hub.Drop(client)
	})
}

// wsSender adapts an nbio connection to the hub's Sender.
type wsSender struct {
	conn *websocket.Conn
}

func (s *wsSender) WriteText(data []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSender) Close() error {
	return s.conn.Close()
}
