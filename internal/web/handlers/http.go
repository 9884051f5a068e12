package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/flavioribeiro/h264viewer/internal/entities"
)

func SetSuccessJson(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	SetSuccessJson(w)
	_, err = w.Write(body)
	return err
}

// playbackFPS prefers the rate signaled in the SPS.
func playbackFPS(c *entities.Config, a *entities.Analysis) float64 {
	if a != nil && a.FPS > 0 {
		return a.FPS
	}
	return c.DefaultFPS
}
