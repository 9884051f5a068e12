package streamers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/metrics"
	"github.com/gorilla/websocket"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type WebSocketStreamer struct {
	c *entities.Config
	l *zap.SugaredLogger

	middlewares []entities.StreamMiddleware
}

type WebSocketStreamerParams struct {
	fx.In
	C *entities.Config
	L *zap.SugaredLogger

	Middlewares []entities.StreamMiddleware `group:"middlewares"`
}

type ResultWebSocketStreamer struct {
	fx.Out
	WebSocketStreamer Streamer `group:"streamers"`
}

func NewWebSocketStreamer(p WebSocketStreamerParams) ResultWebSocketStreamer {
	return ResultWebSocketStreamer{
		WebSocketStreamer: &WebSocketStreamer{
			c:           p.C,
			l:           p.L,
			middlewares: p.Middlewares,
		},
	}
}

func (c *WebSocketStreamer) Match(req *entities.StreamRequest) bool {
	return req.Transport == entities.WebSocketTransport
}

// ConfigMessage is the first message of a websocket stream, it carries what
// the browser needs to configure its VideoDecoder.
type ConfigMessage struct {
	Type          entities.MessageType `json:"type"`
	DecoderConfig *h264.DecoderConfig  `json:"decoderConfig"`
	FPS           float64              `json:"fps"`
	Chunks        int                  `json:"chunks"`
}

// Stream sends the config message as text and then every chunk as one
// binary frame, in order. Pacing is left to the browser.
func (c *WebSocketStreamer) Stream(ctx context.Context, sp *entities.StreamParameters) error {
	conn := sp.WebSocket
	if conn == nil {
		return entities.ErrMissingWebSocket
	}
	if sp.Analysis == nil {
		return entities.ErrMissingAnalysis
	}
	if sp.OnClose != nil {
		defer sp.OnClose()
	}

	metrics.ActiveStreams.WithLabelValues(string(entities.WebSocketTransport)).Inc()
	defer metrics.ActiveStreams.WithLabelValues(string(entities.WebSocketTransport)).Dec()

	sp.MetadataTrack = &webSocketMetadataSender{conn: conn, timeout: c.c.WebSocketWriteTimeout}

	config, err := json.Marshal(ConfigMessage{
		Type:          entities.MessageTypeConfig,
		DecoderConfig: sp.Analysis.DecoderConfig,
		FPS:           sp.FPS,
		Chunks:        len(sp.Analysis.Payloads),
	})
	if err != nil {
		return err
	}
	if err := c.write(conn, websocket.TextMessage, config); err != nil {
		return c.fail(sp, err)
	}

	c.l.Infow("streaming has started",
		"analysis", sp.Analysis.ID,
		"chunks", len(sp.Analysis.Payloads),
	)

	for _, chunk := range sp.Analysis.Payloads {
		if err := ctx.Err(); err != nil {
			c.l.Infow("streaming has stopped due cancellation")
			return err
		}

		for _, m := range c.middlewares {
			if err := m.Act(chunk, sp); err != nil {
				c.l.Errorw("middleware error",
					"error", err,
				)
			}
		}

		if err := c.write(conn, websocket.BinaryMessage, EncodeChunkFrame(chunk)); err != nil {
			return c.fail(sp, err)
		}
	}

	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of stream")
	if err := c.write(conn, websocket.CloseMessage, closing); err != nil {
		return c.fail(sp, err)
	}
	c.l.Infow("streaming has finished",
		"analysis", sp.Analysis.ID,
	)
	return nil
}

func (c *WebSocketStreamer) write(conn *websocket.Conn, messageType int, data []byte) error {
	if c.c.WebSocketWriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.c.WebSocketWriteTimeout)); err != nil {
			return err
		}
	}
	return conn.WriteMessage(messageType, data)
}

func (c *WebSocketStreamer) fail(sp *entities.StreamParameters, err error) error {
	c.l.Errorw("failed to write to websocket",
		"error", err,
	)
	if sp.OnError != nil {
		sp.OnError(err)
	}
	return err
}

type webSocketMetadataSender struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *webSocketMetadataSender) SendText(text string) error {
	if s.timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}
