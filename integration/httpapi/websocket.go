package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/keyrelay/core/logger"
)

// listenWS streams a relay over a websocket, one text frame per message.
// The socket is closed with 1000 "complete" when the relay finishes and
// 1013 "timeout" when the listen deadline passes first.
func (h *Handler) listenWS(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscribe(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.cancel()
		h.finish(sub, 0)
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			logger.RelayKey(sub.key),
			logger.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	// A read error means the peer went away; stop the relay stream.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.cancel()
				return
			}
		}
	}()

	delivered := 0
	for msg := range sub.messages {
		_ = conn.SetWriteDeadline(time.Now().Add(DefaultWSWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			sub.cancel()
			break
		}
		delivered++
	}

	var closeMsg []byte
	switch h.finish(sub, delivered) {
	case outcomeCompleted:
		closeMsg = websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(outcomeCompleted))
	case outcomeTimeout:
		closeMsg = websocket.FormatCloseMessage(websocket.CloseTryAgainLater, string(outcomeTimeout))
	default:
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
}
