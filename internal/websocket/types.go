package websocket

// Room groups the storefront tabs watching one session. Rooms are created
// lazily on first join and keyed by session id.
type Room struct {
	Id      string               `json:"id"`
	Clients map[string]*WSClient `json:"clients"`
}

// SessionEvent is one server-to-storefront push. The storefront never sends
// events back over the socket; the connection is a one-way notification lane.
type SessionEvent struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

type RoomRes struct {
	ID string `json:"id"`
}
