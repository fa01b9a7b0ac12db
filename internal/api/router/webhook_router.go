package router

import (
	"net/http"

	"monger-backend/internal/api"
	"monger-backend/internal/api/endpoints"
)

func WebhookRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		webhookEndpoints := endpoints.NewWebhookEndpoints(s.Services().Payment)
		mux.HandleFunc(prefix+"/payments", s.MakeHTTPHandleFunc(webhookEndpoints.Payments))
	}
}
