package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flavioribeiro/h264viewer/internal/controllers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/engine"
	"github.com/flavioribeiro/h264viewer/internal/controllers/streamers"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

type SignalingHandler struct {
	c                *entities.Config
	l                *zap.SugaredLogger
	webRTCController *controllers.WebRTCController
	store            *controllers.AnalysisStore
	engine           *engine.EngineController
}

func NewSignalingHandler(
	c *entities.Config,
	l *zap.SugaredLogger,
	webRTCController *controllers.WebRTCController,
	store *controllers.AnalysisStore,
	engine *engine.EngineController,
) *SignalingHandler {
	return &SignalingHandler{
		c:                c,
		l:                l,
		webRTCController: webRTCController,
		store:            store,
		engine:           engine,
	}
}

// ServeHTTP answers a WebRTC offer for a stored analysis. Streaming starts
// once the metadata data channel opens and stops when the peer goes away.
func (h *SignalingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return entities.ErrHTTPPostOnly
	}

	req := entities.StreamRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrInvalidRequestBody, err)
	}
	if req.Transport == "" {
		req.Transport = entities.WebRTCTransport
	}
	if err := req.Valid(); err != nil {
		return err
	}

	analysis, err := h.store.Get(req.AnalysisID)
	if err != nil {
		return err
	}

	streamer, err := h.engine.StreamerFor(&req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	peer, err := h.webRTCController.CreatePeerConnection(req.AnalysisID, cancel)
	if err != nil {
		cancel()
		return err
	}
	go func() {
		<-ctx.Done()
		if err := peer.Close(); err != nil {
			h.l.Errorw("error while closing the peer connection",
				"error", err,
			)
		}
	}()

	localDescription, err := h.negotiate(ctx, cancel, peer, &req, analysis, streamer)
	if err != nil {
		cancel()
		return err
	}
	return writeJSON(w, localDescription)
}

func (h *SignalingHandler) negotiate(
	ctx context.Context,
	cancel context.CancelFunc,
	peer *webrtc.PeerConnection,
	req *entities.StreamRequest,
	analysis *entities.Analysis,
	streamer streamers.Streamer,
) (*webrtc.SessionDescription, error) {
	videoTrack, err := h.webRTCController.CreateVideoTrack(peer, analysis.DecoderConfig, req.AnalysisID)
	if err != nil {
		h.l.Errorw("error while creating a web rtc track",
			"error", err,
		)
		return nil, err
	}

	metadataSender, err := h.webRTCController.CreateMetadataChannel(peer)
	if err != nil {
		h.l.Errorw("error while creating a web rtc data channel",
			"error", err,
		)
		return nil, err
	}

	metadataSender.OnOpen(func() {
		go func() {
			defer cancel()
			err := streamer.Stream(ctx, &entities.StreamParameters{
				Analysis:      analysis,
				FPS:           playbackFPS(h.c, analysis),
				VideoTrack:    videoTrack,
				MetadataTrack: metadataSender,
			})
			if err != nil {
				h.l.Errorw("error while streaming",
					"request", req.String(),
					"error", err,
				)
			}
		}()
	})

	if err := h.webRTCController.SetRemoteDescription(peer, req.Offer); err != nil {
		h.l.Errorw("error while setting a remote web rtc description",
			"error", err,
		)
		return nil, err
	}

	localDescription, err := h.webRTCController.GatheringWebRTC(ctx, peer)
	if err != nil {
		h.l.Errorw("error while preparing a local web rtc description",
			"error", err,
		)
		return nil, err
	}
	return localDescription, nil
}
