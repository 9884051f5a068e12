package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/flavioribeiro/h264viewer/internal/controllers"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"go.uber.org/zap"
)

// uploadFormField is the multipart field carrying the file.
const uploadFormField = "file"

type AnalyzeHandler struct {
	c        *entities.Config
	l        *zap.SugaredLogger
	analyzer *controllers.AnalyzerController
	store    *controllers.AnalysisStore
}

func NewAnalyzeHandler(
	c *entities.Config,
	l *zap.SugaredLogger,
	analyzer *controllers.AnalyzerController,
	store *controllers.AnalysisStore,
) *AnalyzeHandler {
	return &AnalyzeHandler{
		c:        c,
		l:        l,
		analyzer: analyzer,
		store:    store,
	}
}

// ServeHTTP accepts either a multipart form with a "file" field or the raw
// stream as the request body, and answers with the analysis JSON.
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return entities.ErrHTTPPostOnly
	}
	if h.c.MaxUploadSizeBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.c.MaxUploadSizeBytes)
	}

	input, err := h.readInput(r)
	if err != nil {
		return err
	}

	analysis, err := h.analyzer.Analyze(r.Context(), input)
	if err != nil {
		return err
	}
	h.store.Put(analysis)

	h.l.Infow("analysis stored",
		"id", analysis.ID,
		"name", analysis.Name,
		"chunks", len(analysis.Chunks),
	)
	return writeJSON(w, analysis)
}

func (h *AnalyzeHandler) readInput(r *http.Request) (*entities.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, uploadError(err)
		}
		return &entities.Input{Name: r.URL.Query().Get("name"), Data: data}, nil
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		return nil, uploadError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err)
	}
	return &entities.Input{Name: header.Filename, Data: data}, nil
}

func uploadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("%w: limit is %d bytes", entities.ErrUploadTooLarge, maxBytesErr.Limit)
	}
	if errors.Is(err, http.ErrMissingFile) {
		return entities.ErrEmptyInput
	}
	return fmt.Errorf("%w: %v", entities.ErrInvalidRequestBody, err)
}
