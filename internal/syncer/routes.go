package syncer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coachkit/knowledge-engine/internal/knowledge"
)

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// RegisterRoutes mounts the sync endpoints.
func RegisterRoutes(r chi.Router, reconciler *Reconciler) {
	h := &handler{reconciler: reconciler}
	r.Post("/api/sync/{namespace}", h.runSync)
	r.Post("/api/sync/{namespace}/documents", h.uploadDocument)
	r.Get("/api/sync/{namespace}/status", h.getStatus)
	r.Get("/api/sync/{namespace}/history", h.getHistory)
}

type handler struct {
	reconciler *Reconciler
}

type syncRequest struct {
	Mode Mode `json:"mode"`
}

func (h *handler) runSync(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	var req syncRequest
	if r.Body != nil {
		// An empty body means a full sync.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.reconciler.Sync(r.Context(), namespace, req.Mode)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrSyncRunning) {
			code = http.StatusConflict
		}
		writeError(w, code, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	// Partial failures still return the full per-item breakdown.
	if !result.Success() {
		w.WriteHeader(http.StatusMultiStatus)
	}
	json.NewEncoder(w).Encode(result)
}

type uploadDocumentRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	DocType  string `json:"doc_type"`
	Category string `json:"category"`
}

func (h *handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	var req uploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Content == "" {
		http.Error(w, `{"error":"title and content are required"}`, http.StatusBadRequest)
		return
	}

	doc, op, err := h.reconciler.UploadDocument(r.Context(), namespace, knowledge.Document{
		Title:    req.Title,
		Content:  req.Content,
		DocType:  req.DocType,
		Category: req.Category,
	})
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"document": doc,
		"synced":   op.Success,
	}
	w.Header().Set("Content-Type", "application/json")
	if op.Success {
		w.WriteHeader(http.StatusCreated)
	} else {
		// The document is saved locally even when the remote push failed.
		resp["sync_error"] = op.Message
		w.WriteHeader(http.StatusMultiStatus)
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	status, err := h.reconciler.Status(r.Context(), namespace)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	runs := h.reconciler.History(namespace)
	if runs == nil {
		runs = []Result{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"namespace": namespace,
		"runs":      runs,
	})
}
