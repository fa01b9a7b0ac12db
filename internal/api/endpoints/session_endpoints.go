package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	internaljwt "monger-backend/internal/jwt"
	"monger-backend/internal/model"
	conversationservice "monger-backend/internal/service/conversation"
	"monger-backend/internal/websocket"
)

// VisitorCookieName carries the signed identity token that makes a returning
// visitor recognizable.
const VisitorCookieName = "monger_visitor"

type SessionEndpoints interface {
	Sessions(http.ResponseWriter, *http.Request) error
	SessionOps(http.ResponseWriter, *http.Request) error
	Websocket(http.ResponseWriter, *http.Request) error
}

type SessionPaths struct {
	SessionsPath     string
	SessionOpsPrefix string
	WebsocketPrefix  string
}

type sessionEndpoints struct {
	service *conversationservice.Service
	handler *websocket.Handler
	paths   SessionPaths
}

func NewSessionEndpoints(service *conversationservice.Service, handler *websocket.Handler, prefix string) SessionEndpoints {
	base := strings.TrimRight(prefix, "/")
	return NewSessionEndpointsWithPaths(service, handler, SessionPaths{
		SessionsPath:     base + "/sessions",
		SessionOpsPrefix: base + "/sessions/",
		WebsocketPrefix:  base + "/sessions/",
	})
}

func NewSessionEndpointsWithPaths(service *conversationservice.Service, handler *websocket.Handler, paths SessionPaths) SessionEndpoints {
	return &sessionEndpoints{
		service: service,
		handler: handler,
		paths:   paths,
	}
}

type messageRes struct {
	MessageID string    `json:"messageId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionRes struct {
	SessionID string                      `json:"sessionId"`
	Mode      model.Mode                  `json:"mode"`
	Phase     model.Phase                 `json:"phase"`
	Collected model.Collected             `json:"collected"`
	Checkout  model.Checkout              `json:"checkout"`
	Referral  model.Referral              `json:"referral"`
	Messages  []messageRes                `json:"messages"`
	Hints     conversationservice.UIHints `json:"hints"`
}

type turnRes struct {
	SessionID string                      `json:"sessionId"`
	Reply     messageRes                  `json:"reply"`
	Mode      model.Mode                  `json:"mode"`
	Phase     model.Phase                 `json:"phase"`
	Mood      string                      `json:"mood"`
	Collected model.Collected             `json:"collected"`
	Checkout  model.Checkout              `json:"checkout"`
	Referral  model.Referral              `json:"referral"`
	Hints     conversationservice.UIHints `json:"hints"`
}

type turnReq struct {
	Input string `json:"input"`
}

type referralReq struct {
	Query string `json:"query"`
}

func toMessageRes(m model.SessionMessage) messageRes {
	return messageRes{
		MessageID: m.MessageID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toSessionRes(s model.Session, hints conversationservice.UIHints) sessionRes {
	messages := make([]messageRes, 0, len(s.Messages))
	for _, m := range s.Messages {
		messages = append(messages, toMessageRes(m))
	}
	return sessionRes{
		SessionID: s.SessionID,
		Mode:      s.Mode,
		Phase:     s.Phase,
		Collected: s.Collected,
		Checkout:  s.Checkout,
		Referral:  s.Referral,
		Messages:  messages,
		Hints:     hints,
	}
}

func toTurnRes(out conversationservice.TurnOutcome) turnRes {
	return turnRes{
		SessionID: out.SessionID,
		Reply:     toMessageRes(out.Reply),
		Mode:      out.Mode,
		Phase:     out.Phase,
		Mood:      out.Mood,
		Collected: out.Collected,
		Checkout:  out.Checkout,
		Referral:  out.Referral,
		Hints:     out.Hints,
	}
}

func (h *sessionEndpoints) Sessions(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreateSession,
	})
}

func (h *sessionEndpoints) SessionOps(w http.ResponseWriter, r *http.Request) error {
	sessionID, op, err := h.splitOpsPath(r.URL.Path)
	if err != nil {
		return err
	}

	switch op {
	case "":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: h.handleGetSession(sessionID),
		})
	case "turns":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleTurn(sessionID),
		})
	case "referral":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleReferral(sessionID),
		})
	case "time-waster":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleTimeWaster(sessionID),
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("unknown session operation %q", op),
		}
	}
}

func (h *sessionEndpoints) splitOpsPath(p string) (sessionID, op string, err error) {
	rest := strings.TrimPrefix(p, h.paths.SessionOpsPrefix)
	if rest == p {
		return "", "", &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("path %q outside session prefix", p),
		}
	}
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if parts[0] == "" {
		return "", "", &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("session id missing in path %q", p),
		}
	}
	sessionID = parts[0]
	if len(parts) == 2 {
		op = parts[1]
	}
	return sessionID, op, nil
}

func (h *sessionEndpoints) handleCreateSession(w http.ResponseWriter, r *http.Request) error {
	token := ""
	if cookie, err := r.Cookie(VisitorCookieName); err == nil {
		token = cookie.Value
	}

	res, err := h.service.Init(r.Context(), token)
	if err != nil {
		return h.serviceError(err)
	}

	if res.Token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     VisitorCookieName,
			Value:    res.Token,
			Path:     "/",
			Expires:  time.Now().Add(internaljwt.IdentityTokenTTL),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return WriteJSON(w, http.StatusCreated, toSessionRes(res.Session, res.Hints))
}

func (h *sessionEndpoints) handleGetSession(sessionID string) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		sess, hints, err := h.service.Snapshot(r.Context(), sessionID)
		if err != nil {
			return h.serviceError(err)
		}
		return WriteJSON(w, http.StatusOK, toSessionRes(sess, hints))
	}
}

func (h *sessionEndpoints) handleTurn(sessionID string) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req turnReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Invalid request body",
				ErrorLog:   fmt.Errorf("decode turn request: %w", err),
			}
		}

		out, err := h.service.Turn(r.Context(), sessionID, req.Input)
		if err != nil {
			return h.serviceError(err)
		}
		return WriteJSON(w, http.StatusOK, toTurnRes(out))
	}
}

func (h *sessionEndpoints) handleReferral(sessionID string) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req referralReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "Invalid request body",
				ErrorLog:   fmt.Errorf("decode referral request: %w", err),
			}
		}

		out, err := h.service.CheckReferral(r.Context(), sessionID, req.Query)
		if err != nil {
			return h.serviceError(err)
		}
		return WriteJSON(w, http.StatusOK, toTurnRes(out))
	}
}

func (h *sessionEndpoints) handleTimeWaster(sessionID string) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		out, err := h.service.MarkTimeWaster(r.Context(), sessionID)
		if err != nil {
			return h.serviceError(err)
		}
		return WriteJSON(w, http.StatusOK, toTurnRes(out))
	}
}

// Websocket attaches a storefront tab to its session's event stream. The
// session itself may live on another instance, so existence is not checked
// here; a watcher on a dead session simply never receives an event.
func (h *sessionEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, h.paths.WebsocketPrefix), "/")
	if sessionID == "" {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Session not found",
			ErrorLog:   fmt.Errorf("websocket session id missing"),
		}
	}

	h.handler.Watch(w, r, sessionID)
	return nil
}

func (h *sessionEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*conversationservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("conversation service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case conversationservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
