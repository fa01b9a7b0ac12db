package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"monger-backend/internal/database"
	"monger-backend/internal/engine"
	"monger-backend/internal/logger"
	"monger-backend/internal/queue"
	"monger-backend/internal/service/conversation"
	"monger-backend/internal/service/customer"
	"monger-backend/internal/service/payment"
	"monger-backend/internal/websocket"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

// Services bundles the wired domain services the routers hand to endpoints.
type Services struct {
	Conversation *conversation.Service
	Customer     *customer.Service
	Payment      *payment.Service
	Engine       engine.Engine
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	db                  *database.Database
	services            *Services
	routeRegistrars     []RouteRegistrar
	handler             *websocket.Handler
	metrics             *metrics
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, db *database.Database, services *Services, handler *websocket.Handler, registrars ...RouteRegistrar) *APIServer {
	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		db:                  db,
		services:            services,
		handler:             handler,
		routeRegistrars:     registrars,
		metrics:             newMetrics(prometheus.DefaultRegisterer, listenAddr, rqm),
	}
}

func (s *APIServer) Run() {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	logger.Info().Str("addr", s.listenAddr).Msg("server listening")

	if err := http.ListenAndServe(s.listenAddr, s.metrics.instrument(mux)); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}

func (s *APIServer) Database() *database.Database {
	return s.db
}

func (s *APIServer) Services() *Services {
	return s.services
}

func (s *APIServer) Handler() *websocket.Handler {
	return s.handler
}
