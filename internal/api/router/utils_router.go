package router

import (
	"net/http"

	"monger-backend/internal/api"
	"monger-backend/internal/api/endpoints"
)

func UtilsRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		utilsEndpoints := endpoints.NewUtilsEndpoints(s.Services().Engine)
		mux.HandleFunc(prefix+"/hello-world", s.MakeHTTPHandleFunc(utilsEndpoints.HelloWorld))
		mux.HandleFunc(prefix+"/healthz", s.MakeHTTPHandleFunc(utilsEndpoints.Health))
	}
}
