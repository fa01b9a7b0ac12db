package router

import (
	"net/http"
	"strings"

	"monger-backend/internal/api"
	"monger-backend/internal/api/endpoints"
)

func SessionPublicRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		paths := endpoints.SessionPaths{
			SessionsPath:     base + "/sessions",
			SessionOpsPrefix: base + "/sessions/",
		}
		sessionEndpoints := endpoints.NewSessionEndpointsWithPaths(s.Services().Conversation, s.Handler(), paths)

		mux.HandleFunc(prefix+"/sessions", s.MakeHTTPHandleFunc(sessionEndpoints.Sessions))
		mux.HandleFunc(prefix+"/sessions/", s.MakeHTTPHandleFunc(sessionEndpoints.SessionOps))
	}
}

func SessionWebsocketRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		paths := endpoints.SessionPaths{
			WebsocketPrefix: base + "/sessions/",
		}
		sessionEndpoints := endpoints.NewSessionEndpointsWithPaths(s.Services().Conversation, s.Handler(), paths)

		mux.HandleFunc(prefix+"/sessions/", s.MakeHTTPHandleFunc(sessionEndpoints.Websocket))
	}
}
