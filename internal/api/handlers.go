// Package api exposes the agent's data-access operations over HTTP: SQL read
// and write execution, fuzzy value lookup, schema reflection, asynchronous
// exports and the dashboard stream.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noless3011/data-formulator/internal/db"
	"github.com/noless3011/data-formulator/internal/hub"
	"github.com/noless3011/data-formulator/internal/security"
	"github.com/noless3011/data-formulator/internal/store"
	"github.com/noless3011/data-formulator/internal/worker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware owns origin policy
	},
}

type Handler struct {
	DB    *db.Handler
	Store *store.Store
	Pool  *worker.Pool
	Hub   *hub.Hub

	// Secret enables authentication when non-empty.
	Secret   string
	TokenTTL time.Duration
	// ValidateReads applies the read-only query guard to /query.
	ValidateReads bool
	// ExportTimeout bounds each submitted export job.
	ExportTimeout time.Duration
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/token", h.HandleToken)
	mux.HandleFunc("/keys", h.auth(h.HandleKeys))
	mux.HandleFunc("/query", h.auth(h.HandleQuery))
	mux.HandleFunc("/write", h.auth(h.HandleWrite))
	mux.HandleFunc("/fuzzy", h.auth(h.HandleFuzzy))
	mux.HandleFunc("/schema", h.auth(h.HandleSchema))
	mux.HandleFunc("/export", h.auth(h.HandleExport))
	mux.HandleFunc("/dashboard/stream", h.HandleDashboard)
}

// auth wraps an endpoint with bearer-token or HMAC-signature verification.
// With no secret configured every request passes (local development).
func (h *Handler) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Secret == "" {
			next(w, r)
			return
		}

		if bearer := r.Header.Get("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
			if _, err := security.VerifyToken(h.Secret, strings.TrimPrefix(bearer, "Bearer ")); err == nil {
				next(w, r)
				return
			}
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Unreadable body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		err = security.VerifyHMAC(
			h.Secret,
			r.Method,
			r.URL.Path,
			string(body),
			r.Header.Get("X-Timestamp"),
			r.Header.Get("X-Signature"),
		)
		if err != nil {
			slog.Warn("request authentication failed", "path", r.URL.Path, "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// --- Auth ---

// HandleToken exchanges a valid API key for a short-lived bearer token.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Secret == "" {
		http.Error(w, "Authentication disabled", http.StatusNotImplemented)
		return
	}

	rawKey := r.Header.Get("X-Api-Key")
	if rawKey == "" {
		http.Error(w, "Missing API key", http.StatusUnauthorized)
		return
	}

	key, err := h.Store.VerifyAPIKey(rawKey)
	if err != nil {
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	token, err := security.MintToken(h.Secret, key.Label, h.TokenTTL)
	if err != nil {
		slog.Error("minting token", "error", err)
		http.Error(w, "Token error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleKeys creates (POST) or lists (GET) API keys.
func (h *Handler) HandleKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Label string `json:"label"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		key, err := h.Store.CreateAPIKey(req.Label)
		if err != nil {
			slog.Error("creating api key", "error", err)
			http.Error(w, "Failed to create key", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key, "label": req.Label})
	case http.MethodGet:
		keys, err := h.Store.ListAPIKeys()
		if err != nil {
			slog.Error("listing api keys", "error", err)
			http.Error(w, "Failed to list keys", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, keys)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Data access ---

type sqlRequest struct {
	SQL string `json:"sql"`
}

// HandleQuery runs a read statement and answers text/csv. The response is
// always 200: read failures arrive as the single-column "error" document,
// which is the contract of the read path.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if !decodePost(w, r, &req) {
		return
	}

	if h.ValidateReads {
		if err := security.ValidateQuery(req.SQL); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	io.WriteString(w, h.DB.ExecuteRead(r.Context(), req.SQL))
}

// HandleWrite runs a write statement and answers the outcome record.
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if !decodePost(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.DB.ExecuteWrite(r.Context(), req.SQL))
}

// HandleFuzzy resolves a user-supplied term against a column's distinct
// values.
func (h *Handler) HandleFuzzy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value  string `json:"value"`
		Column string `json:"column"`
		Table  string `json:"table"`
	}
	if !decodePost(w, r, &req) {
		return
	}

	matches, err := h.DB.FuzzyFind(r.Context(), req.Value, req.Column, req.Table)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleSchema reflects the database structure. 502 when no session is
// established; schema reflection never reconnects implicitly.
func (h *Handler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	schema, err := h.DB.SchemaString(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, db.ErrConnection) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, schema)
}

// --- Exports ---

// HandleExport submits an asynchronous export job.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SQL    string `json:"sql"`
		Format string `json:"format"`
		Email  string `json:"email"`
	}
	if !decodePost(w, r, &req) {
		return
	}

	if err := security.ValidateQuery(req.SQL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email != "" {
		if err := security.ValidateEmail(req.Email); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	job := worker.NewExportJob(req.SQL, req.Email, req.Format, h.ExportTimeout)
	if !h.Pool.Submit(job) {
		job.Cancel()
		http.Error(w, "Export queue full", http.StatusServiceUnavailable)
		return
	}

	h.Hub.Broadcast(hub.JobUpdate{Type: "job_submitted", JobID: job.ID, Status: string(job.Status)})
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// HandleDashboard upgrades to a websocket carrying job lifecycle updates.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("dashboard upgrade failed", "error", err)
		return
	}

	h.Hub.Register(conn)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Hub.Unregister(conn)
			break
		}
	}
}

// --- helpers ---

func decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
