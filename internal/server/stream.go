package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tofupilot/codeblock/internal/snippet"
)

const (
	_streamWriteWait = 10 * time.Second
	_streamCloseWait = time.Second
)

var _upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// frame is a message sent on the snippet stream
// every time the snippet's view changes.
type frame struct {
	State string `json:"state"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// stream upgrades to a websocket
// and sends a frame for every state the snippet passes through.
// The server closes the connection once the snippet settles.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	src, mode, err := sourceFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := _upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		h.log.Printf("stream: upgrade: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Drain the read side so that we notice the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sn := h.pipeline.Mount(src, mode)
	defer sn.Close()

	for {
		v, changed := sn.Watch()
		if err := h.sendView(conn, &v); err != nil {
			h.log.Printf("stream: write: %v", err)
			return
		}
		if v.Settled() {
			break
		}

		select {
		case <-changed:
		case <-ctx.Done():
			h.log.Printf("stream: %v", ctx.Err())
			h.closeStream(conn, websocket.CloseGoingAway, "timed out")
			return
		}
	}

	h.closeStream(conn, websocket.CloseNormalClosure, "")
}

func (h *handler) sendView(conn *websocket.Conn, v *snippet.View) error {
	f := frame{State: v.State.String()}
	var buf bytes.Buffer
	if err := h.fragments.RenderSnippet(&buf, v); err != nil {
		f.Error = err.Error()
	} else {
		f.HTML = buf.String()
	}

	if err := conn.SetWriteDeadline(time.Now().Add(_streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(f)
}

func (h *handler) closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(_streamCloseWait)); err != nil {
		h.log.Printf("stream: close: %v", err)
	}
}
