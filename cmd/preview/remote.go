package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/wricardo/townmap/game/service"
	ws "github.com/wricardo/townmap/transport/websocket"
)

// createStream starts a stream on a map server and returns its ID
func createStream(ctx context.Context, baseURL, params string, seed *uint64, columns int) (string, error) {
	body, err := json.Marshal(service.StreamRequest{
		ParamsName: params,
		Seed:       seed,
		Viewport:   service.Viewport{Columns: columns},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(baseURL, "/")+"/api/streams", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("create stream: %s (%d)", errResp["error"], resp.StatusCode)
	}

	var info service.StreamInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("create stream: %w", err)
	}
	return info.ID, nil
}

// wsURL turns a server base URL into the stream's WebSocket URL
func wsURL(baseURL, streamID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"stream": {streamID}}.Encode()
	return u.String(), nil
}

// Remote follows a server stream and forwards its events to a presenter
type Remote struct {
	conn *websocket.Conn
}

// DialRemote connects to the stream's WebSocket feed
func DialRemote(ctx context.Context, baseURL, streamID string) (*Remote, error) {
	u, err := wsURL(baseURL, streamID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	// Mount messages carry a full snapshot
	conn.SetReadLimit(1 << 22)
	return &Remote{conn: conn}, nil
}

// Run reads events until the connection or ctx closes
func (r *Remote) Run(ctx context.Context, presenter *TermPresenter) error {
	for {
		var msg ws.Message
		if err := wsjson.Read(ctx, r.conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch msg.Event {
		case ws.EventMount:
			if msg.Frame != nil {
				presenter.MountSnapshot(msg.Frame)
			}
		case ws.EventUnmount:
			presenter.Unmount(msg.FrameID)
		case ws.EventClear:
			presenter.Clear()
		}
	}
}

// SetColumns reports a terminal resize to the server
func (r *Remote) SetColumns(ctx context.Context, columns int) error {
	return wsjson.Write(ctx, r.conn, ws.ClientMessage{Event: "viewport", Columns: columns})
}

// Close closes the connection
func (r *Remote) Close() error {
	return r.conn.Close(websocket.StatusNormalClosure, "")
}
