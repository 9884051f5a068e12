package handlers

import (
	"net/http"

	"github.com/flavioribeiro/h264viewer/internal/controllers"
	"github.com/flavioribeiro/h264viewer/internal/entities"
)

type AnalysisHandler struct {
	store *controllers.AnalysisStore
}

func NewAnalysisHandler(store *controllers.AnalysisStore) *AnalysisHandler {
	return &AnalysisHandler{store: store}
}

func (h *AnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return entities.ErrHTTPGetOnly
	}

	analysis, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		return err
	}
	return writeJSON(w, analysis)
}
