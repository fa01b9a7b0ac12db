package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"monger-backend/internal/env"
	"monger-backend/internal/logger"
)

const channelPrefix = "monger:session:"

var (
	upgrader    websocket.Upgrader
	redisClient *redis.Client
)

func init() {
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.EventsRedisURL),
		Password: env.Get(env.EventsRedisPass),
		DB:       0,
	})
}

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
}

func NewHandler(h *Hub) *Handler {
	return &Handler{
		hub:         h,
		redisClient: redisClient,
	}
}

// subscribeToSessionChannel bridges the Redis channel for one session into
// the local hub. The API server publishes; every ws-server instance with a
// watcher for that session relays.
func (h *Handler) subscribeToSessionChannel(sessionID string) {
	if _, exists := h.hub.Rooms[sessionID]; !exists {
		logger.Logger.Debug().Str("sessionId", sessionID).Msg("no room for subscription")
		return
	}

	subscriber := h.redisClient.Subscribe(context.Background(), channelPrefix+sessionID)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for msg := range ch {
		h.hub.Broadcast <- &SessionEvent{
			Content:   msg.Payload,
			SessionID: sessionID,
			Timestamp: time.Now().Unix(),
		}
	}
	logger.Logger.Debug().Str("sessionId", sessionID).Msg("unsubscribed from session channel")
}

func (h *Handler) createRoom(sessionID string) {
	if _, exists := h.hub.Rooms[sessionID]; exists {
		return
	}

	h.hub.Rooms[sessionID] = &Room{
		Id:      sessionID,
		Clients: make(map[string]*WSClient),
	}
	setRooms(len(h.hub.Rooms))

	go h.subscribeToSessionChannel(sessionID)
}

// Watch upgrades the connection and attaches it to the session's room,
// creating the room and its Redis bridge on first watcher.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.createRoom(sessionID)

	cl := &WSClient{
		Conn:      conn,
		Event:     make(chan *SessionEvent, 10),
		ID:        uuid.NewString(),
		SessionID: sessionID,
		done:      make(chan struct{}),
	}

	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writeEvents()
	go cl.readLoop(h.hub)
}

func (h *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	rooms := make([]RoomRes, 0)
	for _, room := range h.hub.Rooms {
		rooms = append(rooms, RoomRes{ID: room.Id})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rooms)
}
