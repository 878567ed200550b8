package webui

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/formdeck/formdeck/pkg/assistant"
	"github.com/formdeck/formdeck/pkg/session"
)

// SafeConn wraps a WebSocket connection with a write mutex and panic
// recovery so the instruct goroutine and the read loop can both respond.
type SafeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

// NewSafeConn creates a new safe connection wrapper.
func NewSafeConn(conn *websocket.Conn) *SafeConn {
	return &SafeConn{conn: conn}
}

// WriteJSON safely writes JSON to the WebSocket connection.
func (sc *SafeConn) WriteJSON(v any) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	if sc.closed {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			sc.closed = true
		}
	}()

	return sc.conn.WriteJSON(v)
}

// Close closes the underlying connection.
func (sc *SafeConn) Close() error {
	sc.writeMu.Lock()
	sc.closed = true
	sc.writeMu.Unlock()
	return sc.conn.Close()
}

type socketMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// handleFormSocket serves the interactive chat editing loop for one form.
// The client drives the two-stage protocol over typed messages: instruct
// stages a proposal, approve commits it, revert discards it.
func (s *Server) handleFormSocket(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("id")

	sess, err := s.manager.Get(r.Context(), formID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.LogError(err)
		return
	}
	safeConn := NewSafeConn(conn)
	defer safeConn.Close()

	safeConn.WriteJSON(socketMessage{
		Type: "connected",
		Data: map[string]any{
			"form_id":        formID,
			"formDefinition": sess.Buffer(),
			"state":          sess.State(),
		},
	})

	conn.SetReadLimit(512 * 1024)
	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				if err := safeConn.WriteJSON(socketMessage{
					Type: "ping",
					Data: map[string]any{"timestamp": time.Now().Unix()},
				}); err != nil {
					return
				}
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.LogError(err)
			}
			return
		}

		s.handleSocketMessage(r, safeConn, sess, msg)
	}
}

func (s *Server) handleSocketMessage(r *http.Request, safeConn *SafeConn, sess *session.EditSession, msg socketMessage) {
	switch msg.Type {
	case "ping":
		safeConn.WriteJSON(socketMessage{
			Type: "pong",
			Data: map[string]any{"timestamp": time.Now().Unix()},
		})

	case "instruct":
		message, _ := msg.Data["message"].(string)
		turn, current, err := sess.BeginTurn()
		if err != nil {
			writeSocketError(safeConn, err, "")
			return
		}
		// The provider call can take a while; answer from a goroutine so
		// heartbeats keep flowing.
		go func() {
			result := s.orchestrator.Process(r.Context(), assistant.Request{
				Message:        message,
				FormDefinition: current,
			})
			if !result.Success {
				writeSocketError(safeConn, result.Err, result.RawResponse)
				return
			}
			if err := sess.StageResult(turn, *result.FormDefinition); err != nil {
				writeSocketError(safeConn, err, "")
				return
			}
			preview, _ := sess.PendingPreview()
			safeConn.WriteJSON(socketMessage{
				Type: "proposal",
				Data: map[string]any{
					"formDefinition": *result.FormDefinition,
					"preview":        preview,
					"state":          sess.State(),
				},
			})
		}()

	case "approve":
		diff, err := sess.Approve(r.Context(), s.manager.Store())
		if err != nil {
			writeSocketError(safeConn, err, "")
			return
		}
		safeConn.WriteJSON(socketMessage{
			Type: "committed",
			Data: map[string]any{
				"formDefinition": sess.Buffer(),
				"diff":           diff,
				"state":          sess.State(),
			},
		})

	case "revert":
		def, err := sess.Revert()
		if err != nil {
			writeSocketError(safeConn, err, "")
			return
		}
		safeConn.WriteJSON(socketMessage{
			Type: "reverted",
			Data: map[string]any{
				"formDefinition": def,
				"state":          sess.State(),
			},
		})

	case "preview":
		preview, ok := sess.PendingPreview()
		if !ok {
			writeSocketError(safeConn, session.ErrNoPendingEdit, "")
			return
		}
		safeConn.WriteJSON(socketMessage{
			Type: "preview",
			Data: map[string]any{"preview": preview},
		})
	}
}

func writeSocketError(safeConn *SafeConn, err error, raw string) {
	data := map[string]any{}
	if err != nil {
		data["message"] = err.Error()
	}
	if raw != "" {
		data["raw"] = raw
	}
	safeConn.WriteJSON(socketMessage{Type: "error", Data: data})
}
