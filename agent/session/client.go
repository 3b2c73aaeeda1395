package session

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type Client struct {
	HTTPClient *http.Client
	URL        string
	Logger     *zap.SugaredLogger
}

// Conn is a client's end of a session.
type Conn struct {
	log  *zap.SugaredLogger
	conn *websocket.Conn
}

// Connect opens a session. The server's ready status is the first message read from the returned Conn.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	c.Logger.Debugw("dialing WebSocket for session", "URL", c.URL)
	wsConn, _, err := websocket.Dial(ctx, c.URL, &websocket.DialOptions{
		HTTPClient:      c.HTTPClient,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		c.Logger.Debugf("dial error: %s", err)
		return nil, fmt.Errorf("establishing WebSocket conn for session: %w", err)
	}
	wsConn.SetReadLimit(readLimit)
	return &Conn{log: c.Logger.Named("session_conn"), conn: wsConn}, nil
}

// Send sends a command line as an action.
func (c *Conn) Send(ctx context.Context, command string) error {
	msg, err := newMessage(EventAction, ActionData{Command: command})
	if err != nil {
		return err
	}
	c.log.Debugw("sending action", "Command", command)
	return wsjson.Write(ctx, c.conn, msg)
}

// Next blocks until the next event arrives.
func (c *Conn) Next(ctx context.Context) (Message, error) {
	var msg Message
	err := wsjson.Read(ctx, c.conn, &msg)
	if err != nil {
		return msg, err
	}
	c.log.Debugw("got event", "Event", msg.Event)
	return msg, nil
}

func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
