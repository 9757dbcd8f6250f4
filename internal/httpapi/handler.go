// Package httpapi exposes the session engine as an HTTP tool surface for
// automated callers. Every tool validates its required fields before the
// engine (and therefore the store) is touched, and every rejection carries
// the engine's structured diagnostic in the response body.
package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// Handler serves the tool routes on top of an engine.
type Handler struct {
	engine api.Engine
}

// NewRouter builds the chi router for the tool surface.
func NewRouter(engine api.Engine) http.Handler {
	h := &Handler{engine: engine}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/tools", func(r chi.Router) {
		r.Post("/start", h.start)
		r.Post("/add_node", h.addNode)
		r.Post("/connect", h.connect)
		r.Post("/commit", h.commit)
		r.Post("/discard", h.discard)
		r.Post("/resume", h.resume)
		r.Get("/get", h.get)
		r.Get("/list", h.list)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req api.StartRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.Start(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) addNode(w http.ResponseWriter, r *http.Request) {
	var req api.AddNodeRequest
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w, field{"session_id", req.SessionID}, field{"type", req.Type}) {
		return
	}

	res, err := h.engine.AddNode(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	var req api.ConnectRequest
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w,
		field{"session_id", req.SessionID},
		field{"from_node", req.FromNode},
		field{"to_node", req.ToNode},
	) {
		return
	}

	res, err := h.engine.Connect(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var req api.CommitRequest
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w, field{"session_id", req.SessionID}) {
		return
	}

	res, err := h.engine.Commit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	var req sessionRef
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w, field{"session_id", req.SessionID}) {
		return
	}

	if err := h.engine.Discard(r.Context(), req.SessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"discarded": true, "session_id": req.SessionID})
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	var req sessionRef
	if !decode(w, r, &req) {
		return
	}
	if !requireFields(w, field{"session_id", req.SessionID}) {
		return
	}

	res, err := h.engine.Resume(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if !requireFields(w, field{"session_id", sessionID}) {
		return
	}

	sess, err := h.engine.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	includeExpired := r.URL.Query().Get("include_expired") == "true"

	summaries, err := h.engine.List(r.Context(), includeExpired)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries, "count": len(summaries)})
}

// decode reads the JSON request body into dst. On failure it writes a 400
// and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
		return false
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body is required"})
		return false
	}
	if err := sonic.Unmarshal(body, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

type field struct {
	name  string
	value string
}

func requireFields(w http.ResponseWriter, fields ...field) bool {
	for _, f := range fields {
		if f.value == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "missing required field: " + f.name,
			})
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	w.Write(data)
}

// writeError maps the engine's error taxonomy onto HTTP statuses and ships
// the structured diagnostic to the caller.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody(err))
}

func statusFor(err error) int {
	var (
		closedErr *api.SessionClosedError
		commitErr *api.CommitFailedError
	)
	switch {
	case errors.Is(err, api.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrVersionConflict):
		return http.StatusConflict
	case errors.As(err, &closedErr):
		return http.StatusConflict
	case errors.As(err, &commitErr):
		return http.StatusUnprocessableEntity
	default:
		var (
			unknownErr *api.UnknownNodeTypeError
			missingErr *api.NodeNotFoundError
			arityErr   *api.InvalidOutputIndexError
		)
		if errors.As(err, &unknownErr) || errors.As(err, &missingErr) || errors.As(err, &arityErr) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// errorBody flattens an error into a response document, keeping the
// structure of the richer diagnostics.
func errorBody(err error) map[string]any {
	body := map[string]any{"error": err.Error()}

	var arityErr *api.InvalidOutputIndexError
	if errors.As(err, &arityErr) {
		body["node"] = arityErr.Node
		body["node_type"] = arityErr.NodeType
		body["category"] = arityErr.Category.String()
		body["requested_output"] = arityErr.Requested
		body["valid_max_output"] = arityErr.ValidMax
		body["suggested_output"] = arityErr.SuggestedOutput
		body["suggested_call"] = arityErr.SuggestedCall
		body["existing_connections"] = arityErr.ExistingConnections
		body["reference"] = arityErr.Reference
	}

	var commitErr *api.CommitFailedError
	if errors.As(err, &commitErr) {
		body["session_id"] = commitErr.SessionID
		body["session_status"] = string(commitErr.SessionStatus)
		body["ttl_extended"] = commitErr.TTLExtended
		body["expires_at"] = commitErr.ExpiresAt
		body["retry_count"] = commitErr.RetryCount
		body["advice"] = commitErr.Advice
	}

	return body
}
