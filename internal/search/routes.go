package search

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the search and context endpoints.
func RegisterRoutes(r chi.Router, searcher *Searcher, assembler *Assembler) {
	h := &handler{searcher: searcher, assembler: assembler}
	r.Post("/api/search", h.search)
	r.Post("/api/context", h.buildContext)
	r.Get("/api/search/health", h.health)
}

type handler struct {
	searcher  *Searcher
	assembler *Assembler
}

type searchRequest struct {
	Query         string  `json:"query"`
	Options       Options `json:"options"`
	UseVariations bool    `json:"use_variations"`
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
		return
	}

	var results []Result
	var err error
	if req.UseVariations {
		results, err = h.searcher.SearchWithVariations(r.Context(), req.Query, req.Options, h.assembler.strategy)
	} else {
		results, err = h.searcher.Search(r.Context(), req.Query, req.Options)
	}
	if err != nil {
		http.Error(w, `{"error":"search failed"}`, http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   req.Query,
		"results": results,
	})
}

type contextRequest struct {
	Queries []string     `json:"queries"`
	Options BuildOptions `json:"options"`
}

func (h *handler) buildContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Queries) == 0 {
		http.Error(w, `{"error":"at least one query is required"}`, http.StatusBadRequest)
		return
	}

	result, err := h.assembler.BuildContext(r.Context(), req.Queries, req.Options)
	if err != nil {
		http.Error(w, `{"error":"context assembly failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// health runs a throwaway query against the index and reports whether the
// retrieval path works end to end.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.searcher.Refresh(r.Context()); err != nil {
		http.Error(w, `{"error":"index refresh failed"}`, http.StatusInternalServerError)
		return
	}

	h.searcher.mu.RLock()
	indexed := len(h.searcher.lexical.docs)
	h.searcher.mu.RUnlock()

	results, err := h.searcher.Search(r.Context(), "development goals and strengths", Options{
		Threshold:  0.01,
		MaxResults: 3,
		Mode:       ModeLexical,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"working":        err == nil,
		"indexed_chunks": indexed,
		"sample_matches": len(results),
	})
}
