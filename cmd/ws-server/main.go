package main

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"monger-backend/internal/api"
	"monger-backend/internal/api/router"
	"monger-backend/internal/database"
	"monger-backend/internal/engine"
	"monger-backend/internal/env"
	"monger-backend/internal/logger"
	"monger-backend/internal/queue"
	"monger-backend/internal/websocket"
)

func main() {
	godotenv.Load()
	env.MustValidate()
	logger.Init()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		logger.Error().Err(err).Msg("db init failed")
		return
	}

	hub := websocket.NewHub()
	go hub.Run()
	handler := websocket.NewHandler(hub)

	services := &api.Services{Engine: buildEngine()}

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		services,
		handler,
		router.UtilsRoutes("/api/ws/v1"),
		router.SessionWebsocketRoutes("/api/ws/v1"),
	)

	server.Run()
}

func buildEngine() engine.Engine {
	url := env.Get(env.EngineURL)
	if url == "" {
		return engine.NewScriptedEngine()
	}

	timeout := engine.DefaultTimeout
	if raw := env.Get(env.EngineTimeoutSeconds); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	return engine.NewHTTPEngine(url, timeout)
}
