package endpoints

import (
	"net/http"

	"monger-backend/internal/engine"
)

type UtilsEndpoints interface {
	HelloWorld(http.ResponseWriter, *http.Request) error
	Health(http.ResponseWriter, *http.Request) error
}

type utilsEndpoints struct {
	engine engine.Engine
}

func NewUtilsEndpoints(eng engine.Engine) UtilsEndpoints {
	return &utilsEndpoints{engine: eng}
}

func (h *utilsEndpoints) HelloWorld(w http.ResponseWriter, r *http.Request) error {
	return WriteJSON(w, http.StatusOK, map[string]string{"message": "Hello world"})
}

type healthRes struct {
	Status string          `json:"status"`
	Engine engineHealthRes `json:"engine"`
}

type engineHealthRes struct {
	Status    string `json:"status"`
	Model     string `json:"model,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Health aggregates the dialogue backend into the service health. A degraded
// or unreachable backend degrades the whole report but still returns 200; the
// storefront keeps working on the fallback line.
func (h *utilsEndpoints) Health(w http.ResponseWriter, r *http.Request) error {
	res := healthRes{Status: "ok"}

	if h.engine != nil {
		eh, err := h.engine.Health(r.Context())
		res.Engine = engineHealthRes{
			Status:    eh.Status,
			Model:     eh.Model,
			LatencyMS: eh.LatencyMS,
			Error:     eh.Err,
		}
		if err != nil || eh.Status != engine.HealthOK {
			res.Status = "degraded"
		}
	}

	return WriteJSON(w, http.StatusOK, res)
}
