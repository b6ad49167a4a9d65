package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/cauldron/pkg/types"
)

// maxBodyBytes caps the size of a combine request body.
const maxBodyBytes = 64 << 10

type elementJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type recipeJSON struct {
	ElementAName    string    `json:"element_a_name"`
	ElementBName    string    `json:"element_b_name"`
	ResultName      string    `json:"result_name"`
	ResultEmoji     string    `json:"result_emoji"`
	FirstDiscoverer string    `json:"first_discoverer"`
	CreatedAt       time.Time `json:"created_at"`
}

type elementsResponse struct {
	Success  bool          `json:"success"`
	Count    int           `json:"count"`
	Elements []elementJSON `json:"elements"`
}

type recipesResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Recipes []recipeJSON `json:"recipes"`
}

type combineRequest struct {
	A      string `json:"a"`
	B      string `json:"b"`
	UserID string `json:"userId"`
}

type combineResult struct {
	Name            string `json:"name"`
	Emoji           string `json:"emoji"`
	FirstDiscoverer string `json:"firstDiscoverer"`
}

type combineResponse struct {
	Success bool          `json:"success"`
	IsNew   bool          `json:"isNew"`
	Result  combineResult `json:"result"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	els, err := s.combiner.Elements(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]elementJSON, len(els))
	for i, e := range els {
		out[i] = elementJSON{ID: e.ElementID, Name: e.Name, Emoji: e.Emoji, CreatedAt: e.CreatedAt}
	}
	writeJSON(w, http.StatusOK, elementsResponse{Success: true, Count: len(out), Elements: out})
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.combiner.Recipes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]recipeJSON, len(recipes))
	for i, rec := range recipes {
		out[i] = recipeJSON{
			ElementAName:    rec.ElementA.Name,
			ElementBName:    rec.ElementB.Name,
			ResultName:      rec.Result.Name,
			ResultEmoji:     rec.Result.Emoji,
			FirstDiscoverer: rec.Discoverer,
			CreatedAt:       rec.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, recipesResponse{Success: true, Count: len(out), Recipes: out})
}

func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.metrics.Combinations.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.A) == "" || strings.TrimSpace(req.B) == "" {
		s.metrics.Combinations.WithLabelValues(outcomeInvalid).Inc()
		writeError(w, http.StatusBadRequest, "Missing elements")
		return
	}

	c, err := s.combiner.ResolveCombination(r.Context(), req.A, req.B, req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	outcome := outcomeKnown
	if c.IsNew {
		outcome = outcomeNew
	}
	s.metrics.Combinations.WithLabelValues(outcome).Inc()
	writeJSON(w, http.StatusOK, combineResponse{
		Success: true,
		IsNew:   c.IsNew,
		Result: combineResult{
			Name:            c.Result.Name,
			Emoji:           c.Result.Emoji,
			FirstDiscoverer: c.FirstDiscoverer,
		},
	})
}

// fail maps err to a status code and writes a JSON error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message, outcome := classify(err)
	if r.URL.Path == routeCombine {
		s.metrics.Combinations.WithLabelValues(outcome).Inc()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", r.Header.Get(RequestIDHeader),
			"error", err)
	}
	writeError(w, status, message)
}

func classify(err error) (status int, message, outcome string) {
	switch {
	case errors.Is(err, types.ErrUnknownElement):
		return http.StatusNotFound, "Element not found", outcomeUnknown
	case errors.Is(err, types.ErrInvalidName):
		return http.StatusBadRequest, "Missing elements", outcomeInvalid
	case errors.Is(err, types.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Store unavailable", outcomeUnavailable
	default:
		return http.StatusInternalServerError, "Failed", outcomeError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
