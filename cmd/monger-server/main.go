package main

import (
	"context"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"monger-backend/internal/api"
	"monger-backend/internal/api/router"
	"monger-backend/internal/database"
	"monger-backend/internal/engine"
	"monger-backend/internal/env"
	"monger-backend/internal/fulfillment"
	"monger-backend/internal/logger"
	"monger-backend/internal/queue"
	"monger-backend/internal/service/conversation"
	"monger-backend/internal/service/customer"
	"monger-backend/internal/service/payment"
	"monger-backend/internal/service/referral"
	"monger-backend/internal/service/session"
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

	store := session.NewMemoryStore()
	sweeper := session.NewSweeper(store, hoursFromEnv(env.SessionTTLHours, 24), 0)
	go sweeper.Run(context.Background())

	eng := buildEngine()
	customers := customer.New(db)
	referrals := referral.New(db)

	conv := conversation.New(store, customers, referrals, eng)
	conv.BlockDuration = hoursFromEnv(env.TimeWasterBlockHours, 24)

	var notifier payment.Notifier
	if n, err := fulfillment.NewResendNotifier(); err != nil {
		logger.Warn().Err(err).Msg("order confirmation email disabled")
	} else {
		notifier = n
	}

	pay := payment.New(
		payment.NewDynamoRepository(db),
		conv,
		customers,
		notifier,
		func(sessionID string, event interface{}) {
			if err := websocket.Publish(sessionID, event); err != nil {
				logger.Warn().Err(err).Str("sessionId", sessionID).Msg("session event publish failed")
			}
		},
	)

	services := &api.Services{
		Conversation: conv,
		Customer:     customers,
		Payment:      pay,
		Engine:       eng,
	}

	server := api.NewAPIServer(
		":82",
		queueManager,
		db,
		services,
		nil,
		router.UtilsRoutes("/api/public/v1"),
		router.SessionPublicRoutes("/api/public/v1"),
		router.WebhookRoutes("/api/webhooks/v1"),
	)

	server.Run()
}

// buildEngine picks the dialogue backend: the LLM sidecar when configured,
// the scripted one otherwise.
func buildEngine() engine.Engine {
	url := env.Get(env.EngineURL)
	if url == "" {
		logger.Warn().Msg("no engine url configured, using scripted dialogue")
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

func hoursFromEnv(key string, fallback int) time.Duration {
	if raw := env.Get(key); raw != "" {
		if hours, err := strconv.Atoi(raw); err == nil && hours > 0 {
			return time.Duration(hours) * time.Hour
		}
	}
	return time.Duration(fallback) * time.Hour
}
