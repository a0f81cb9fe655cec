package rpc

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"lendledger/observability/metrics"
)

const wsWriteTimeout = 5 * time.Second

// handleWebsocket streams ledger events to the client as JSON frames. Passing
// ?replay=true first delivers the recent-event buffer so late joiners can
// catch up.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	metrics.WebsocketClients.Inc()
	defer metrics.WebsocketClients.Dec()

	subID, ch := s.node.Subscribe(128)
	defer s.node.Unsubscribe(subID)

	ctx := r.Context()
	if r.URL.Query().Get("replay") == "true" {
		for _, evt := range s.node.RecentEvents() {
			if err := writeEvent(ctx, conn, evt); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, evt)
}
