package web

import (
	"errors"
	"net/http"

	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type ErrorHTTPHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request) error
}

func NewServeMux(
	index *handlers.IndexHandler,
	analyze *handlers.AnalyzeHandler,
	analysis *handlers.AnalysisHandler,
	stream *handlers.StreamHandler,
	signaling *handlers.SignalingHandler,
	l *zap.SugaredLogger,
) *http.ServeMux {

	mux := http.NewServeMux()

	mux.Handle("/", index)
	mux.Handle("/analyze", setCors(errorHandler(l, analyze)))
	mux.Handle("/analysis/{id}", setCors(errorHandler(l, analysis)))
	mux.Handle("/stream/{id}", errorHandler(l, stream))
	mux.Handle("/doSignaling", setCors(errorHandler(l, signaling)))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func setCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			allowedHeaders := "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization,X-CSRF-Token"
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Expose-Headers", "Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func errorHandler(l *zap.SugaredLogger, next ErrorHTTPHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := next.ServeHTTP(w, r)
		if err != nil {
			status := StatusFor(err)
			l.Errorw("error on handler",
				"err", err,
				"path", r.URL.Path,
				"status", status,
			)
			http.Error(w, err.Error(), status)
			return
		}
	})
}

// StatusFor maps handler errors to HTTP status codes, unknown errors are 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrMissingAnalysis):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, entities.ErrHTTPGetOnly),
		errors.Is(err, entities.ErrHTTPPostOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, entities.ErrEmptyInput),
		errors.Is(err, entities.ErrInvalidRequestBody),
		errors.Is(err, entities.ErrNoNALUs),
		errors.Is(err, entities.ErrMissingH264Stream),
		errors.Is(err, entities.ErrMissingProber),
		errors.Is(err, entities.ErrMissingStreamer),
		errors.Is(err, entities.ErrMissingStreamRequest),
		errors.Is(err, entities.ErrMissingAnalysisID),
		errors.Is(err, entities.ErrUnsupportedTransport),
		errors.Is(err, entities.ErrUnsupportedCodec),
		errors.Is(err, entities.ErrMissingRemoteOffer):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
