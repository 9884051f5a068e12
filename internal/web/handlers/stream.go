package handlers

import (
	"context"
	"net/http"

	"github.com/flavioribeiro/h264viewer/internal/controllers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/engine"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type StreamHandler struct {
	c        *entities.Config
	l        *zap.SugaredLogger
	store    *controllers.AnalysisStore
	engine   *engine.EngineController
	upgrader websocket.Upgrader
}

func NewStreamHandler(
	c *entities.Config,
	l *zap.SugaredLogger,
	store *controllers.AnalysisStore,
	engine *engine.EngineController,
) *StreamHandler {
	return &StreamHandler{
		c:      c,
		l:      l,
		store:  store,
		engine: engine,
		upgrader: websocket.Upgrader{
			// the viewer may be served from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades to a websocket and streams the chunks of an analysis.
// Errors found after the upgrade are only logged since the response is gone.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return entities.ErrHTTPGetOnly
	}

	req := &entities.StreamRequest{
		AnalysisID: r.PathValue("id"),
		Transport:  entities.WebSocketTransport,
	}
	if err := req.Valid(); err != nil {
		return err
	}

	analysis, err := h.store.Get(req.AnalysisID)
	if err != nil {
		return err
	}

	streamer, err := h.engine.StreamerFor(req)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Errorw("error while upgrading to websocket",
			"error", err,
		)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// close frames are only processed while reading
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = streamer.Stream(ctx, &entities.StreamParameters{
		Analysis:  analysis,
		FPS:       playbackFPS(h.c, analysis),
		WebSocket: conn,
	})
	if err != nil {
		h.l.Errorw("error while streaming",
			"request", req.String(),
			"error", err,
		)
	}
	return nil
}
