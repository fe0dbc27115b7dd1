package socket

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn is the subset of the websocket connection the manager uses.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer establishes the transport connection.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

type gorillaDialer struct {
	d *websocket.Dialer
}

// NewDialer returns the production websocket dialer.
func NewDialer() Dialer {
	return &gorillaDialer{d: websocket.DefaultDialer}
}

func (g *gorillaDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := g.d.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}
