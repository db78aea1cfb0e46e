package console

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Basic Auth handles security; allow all origins
	CheckOrigin:     func(r *http.Request) bool { return true },
	Subprotocols:    []string{"binary"},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Proxy bridges WebSocket clients to the VM's remote display TCP port
// (VRDE or VNC, whichever the VM is configured with).
type Proxy struct {
	displayAddr string
	log         *slog.Logger
}

// NewProxy creates a Proxy that forwards to the given remote display TCP address.
func NewProxy(displayAddr string, log *slog.Logger) *Proxy {
	return &Proxy{displayAddr: displayAddr, log: log}
}

// ServeHTTP upgrades the connection to a WebSocket and proxies data
// bidirectionally to the remote display server.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	display, err := net.Dial("tcp", p.displayAddr)
	if err != nil {
		p.log.Warn("remote display unreachable", "addr", p.displayAddr, "error", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "remote display unavailable"))
		return
	}
	defer display.Close()

	done := make(chan struct{}, 2)

	// display → WebSocket
	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 4096)
		for {
			n, err := display.Read(buf)
			if n > 0 {
				if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// WebSocket → display
	go func() {
		defer func() { done <- struct{}{} }()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if _, werr := display.Write(msg); werr != nil {
				return
			}
		}
	}()

	<-done
}
