package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"monger-backend/internal/logger"
)

type WSClient struct {
	Conn      *websocket.Conn
	Event     chan *SessionEvent
	ID        string
	SessionID string
	done      chan struct{}
	mu        sync.Mutex
	isClosed  bool
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteMessage(websocket.PingMessage, nil)
			cl.mu.Unlock()

			if err != nil {
				logger.Logger.Debug().Err(err).Str("clientId", cl.ID).Msg("ws ping failed")
				return
			}
		}
	}
}

func (cl *WSClient) writeEvents() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case event, ok := <-cl.Event:
			if !ok {
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteJSON(event)
			cl.mu.Unlock()

			if err != nil {
				logger.Logger.Debug().Err(err).Str("clientId", cl.ID).Msg("ws write failed")
				return
			}
		}
	}
}

// readLoop only watches for the close handshake. The storefront never sends
// application messages over the socket; anything it does send is discarded.
func (cl *WSClient) readLoop(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error().Interface("panic", r).Msg("recovered in ws read loop")
		}

		if cl.done != nil {
			close(cl.done)
		}

		hub.Unregister <- cl
		logger.Logger.Debug().Str("clientId", cl.ID).Str("sessionId", cl.SessionID).Msg("ws client disconnected")
	}()

	cl.Conn.SetReadLimit(4 * 1024)

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				if closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived {
					break
				}
			}
			logger.Logger.Debug().Err(err).Str("clientId", cl.ID).Msg("ws read failed")
			break
		}
	}
}
