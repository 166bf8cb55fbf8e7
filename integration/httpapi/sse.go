package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// listenSSE streams a relay as server-sent events. Each message is a
// "message" event whose id is its 1-based position. The stream ends with a
// "complete" or "timeout" event carrying the delivered count.
func (h *Handler) listenSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, ok := h.subscribe(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	var keepAlive <-chan time.Time
	var ticker *time.Ticker
	if h.keepAlive > 0 {
		ticker = time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	delivered := 0
loop:
	for {
		select {
		case <-keepAlive:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				sub.cancel()
				break loop
			}
			flusher.Flush()

		case msg, ok := <-sub.messages:
			if !ok {
				break loop
			}
			delivered++
			if ticker != nil {
				ticker.Reset(h.keepAlive)
			}
			if err := writeEvent(w, "message", strconv.Itoa(delivered), msg); err != nil {
				sub.cancel()
				break loop
			}
			flusher.Flush()
		}
	}

	result := h.finish(sub, delivered)
	if result == outcomeCanceled {
		return
	}
	_ = writeEvent(w, string(result), "", fmt.Sprintf(`{"delivered":%d}`, delivered))
	flusher.Flush()
}

// lineBreaks maps every SSE line terminator to "\n".
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// writeEvent writes one SSE event. Multi-line data is split across data
// fields so the client reassembles it with newlines. CR and CRLF count as
// line breaks too, since SSE clients end a field on either.
func writeEvent(w io.Writer, event, id, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	if id != "" {
		fmt.Fprintf(&b, "id: %s\n", id)
	}
	for line := range strings.SplitSeq(lineBreaks.Replace(data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
