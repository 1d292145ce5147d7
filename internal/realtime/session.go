package realtime

import (
	"errors"

	"github.com/gorilla/websocket"

	"meno/internal/metrics"
)

// ServeChat registers conn under the chat's key and relays every valid
// inbound frame to the whole chat, sender included. Malformed frames are
// dropped without closing the connection. Returns when the peer goes away.
func (h *Hub) ServeChat(chatID int, conn *Conn) {
	key := ChatKey(chatID)
	h.serve(key, conn, func(data []byte) {
		frame, err := NormalizeFrame(data)
		if err != nil {
			metrics.WsDroppedFramesTotal.Inc()
			h.log.Debug().Err(err).Stringer("key", key).Msg("dropping frame")
			return
		}
		if _, err := h.Send(key, frame); err != nil {
			h.log.Error().Err(err).Stringer("key", key).Msg("relay frame")
		}
	})
}

// ServeNotifications keeps conn registered under the user's key until the
// peer goes away. Inbound frames are read and discarded.
func (h *Hub) ServeNotifications(userID int, conn *Conn) {
	h.serve(UserKey(userID), conn, func([]byte) {})
}

func (h *Hub) serve(key Key, conn *Conn, onFrame func([]byte)) {
	h.Register(key, conn)
	defer h.Unregister(key, conn)
	go conn.keepAlive()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				h.log.Debug().Err(err).Stringer("key", key).Msg("read failed")
			}
			return
		}
		onFrame(data)
	}
}
