package knowledge

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the document and processing API routes.
func RegisterRoutes(r chi.Router, store *Store, processor *Processor) {
	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/", handleCreateDocument(store))
		r.Get("/", handleListDocuments(store))
		r.Get("/{id}", handleGetDocument(store))
		r.Delete("/{id}", handleDeleteDocument(store))
		r.Post("/{id}/process", handleProcessDocument(processor))
		r.Get("/{id}/jobs", handleListJobs(store))
	})
	r.Get("/api/knowledge/stats", handleStats(store))
}

type createDocumentRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	DocType   string `json:"doc_type"`
	Category  string `json:"category"`
	Namespace string `json:"namespace"`
}

func handleCreateDocument(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Title == "" || req.Content == "" {
			http.Error(w, `{"error":"title and content are required"}`, http.StatusBadRequest)
			return
		}

		doc, err := store.CreateDocument(r.Context(), Document{
			Title:     req.Title,
			Content:   req.Content,
			DocType:   req.DocType,
			Category:  req.Category,
			Namespace: req.Namespace,
		})
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(doc)
	}
}

func handleListDocuments(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := DocumentFilter{
			Namespace: r.URL.Query().Get("namespace"),
			DocType:   r.URL.Query().Get("doc_type"),
		}
		docs, err := store.ListDocuments(r.Context(), filter)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if docs == nil {
			docs = []Document{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(docs)
	}
}

func handleGetDocument(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := store.GetDocument(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if doc == nil {
			http.Error(w, `{"error":"document not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}
}

func handleDeleteDocument(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleProcessDocument(processor *Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := processor.ProcessAsync(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(job)
	}
}

func handleListJobs(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := store.ListJobs(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if jobs == nil {
			jobs = []Job{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jobs)
	}
}

func handleStats(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}
