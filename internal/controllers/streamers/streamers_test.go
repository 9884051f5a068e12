package streamers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/controllers/streamers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/streammiddlewares"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/mapper"
	"github.com/flavioribeiro/h264viewer/internal/teststreaming"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func config() *entities.Config {
	return &entities.Config{
		DefaultFPS:            25,
		WebSocketWriteTimeout: time.Second,
	}
}

func newAnalysis(f teststreaming.Fixture) *entities.Analysis {
	assembly := h264.Assemble(h264.ScanNALUs(f.Data))
	return &entities.Analysis{
		ID:            f.Name,
		DecoderConfig: assembly.DecoderConfig,
		Payloads:      assembly.Chunks,
	}
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []entities.Message
}

func (s *fakeSender) SendText(text string) error {
	var msg entities.Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeSender) count(t entities.MessageType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.Type == t {
			n++
		}
	}
	return n
}

func TestChunkFrame(t *testing.T) {
	chunk := h264.Chunk{
		Kind:         h264.ChunkKey,
		Timestamp:    -42,
		Payload:      teststreaming.AnnexB(teststreaming.IDRUnit),
		InferredType: h264.PictureI,
	}

	frame := streamers.EncodeChunkFrame(chunk)
	assert.Equal(t, byte(0), frame[0])
	assert.Len(t, frame, 9+len(chunk.Payload))

	decoded, err := streamers.DecodeChunkFrame(frame)
	require.Nil(t, err)
	assert.Equal(t, chunk, decoded)

	_, err = streamers.DecodeChunkFrame(frame[:8])
	assert.ErrorIs(t, err, streamers.ErrShortChunkFrame)
}

func TestWebSocketStreamer_Stream(t *testing.T) {
	analysis := newAnalysis(teststreaming.GOP288p)
	streamer := streamers.NewWebSocketStreamer(streamers.WebSocketStreamerParams{
		C: config(),
		L: zap.NewNop().Sugar(),
	}).WebSocketStreamer
	assert.True(t, streamer.Match(&entities.StreamRequest{Transport: entities.WebSocketTransport}))
	assert.False(t, streamer.Match(&entities.StreamRequest{Transport: entities.WebRTCTransport}))

	upgrader := websocket.Upgrader{}
	done := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		done <- streamer.Stream(context.Background(), &entities.StreamParameters{
			Analysis:  analysis,
			FPS:       30,
			WebSocket: conn,
		})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Nil(t, err)
	defer conn.Close()

	typ, msg, err := conn.ReadMessage()
	require.Nil(t, err)
	require.Equal(t, websocket.TextMessage, typ)

	var config streamers.ConfigMessage
	require.Nil(t, json.Unmarshal(msg, &config))
	assert.Equal(t, entities.MessageTypeConfig, config.Type)
	require.NotNil(t, config.DecoderConfig)
	assert.Equal(t, teststreaming.GOP288p.ExpectedCodec, config.DecoderConfig.Codec)
	assert.Equal(t, teststreaming.GOP288p.ExpectedChunks, config.Chunks)
	assert.Equal(t, float64(30), config.FPS)

	for _, expected := range analysis.Payloads {
		typ, msg, err := conn.ReadMessage()
		require.Nil(t, err)
		require.Equal(t, websocket.BinaryMessage, typ)

		chunk, err := streamers.DecodeChunkFrame(msg)
		require.Nil(t, err)
		assert.Equal(t, expected.Kind, chunk.Kind)
		assert.Equal(t, expected.Timestamp, chunk.Timestamp)
		assert.Equal(t, expected.Payload, chunk.Payload)
	}

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.Nil(t, <-done)
}

func TestWebSocketStreamer_MissingConn(t *testing.T) {
	streamer := streamers.NewWebSocketStreamer(streamers.WebSocketStreamerParams{
		C: config(),
		L: zap.NewNop().Sugar(),
	}).WebSocketStreamer

	err := streamer.Stream(context.Background(), &entities.StreamParameters{})
	assert.ErrorIs(t, err, entities.ErrMissingWebSocket)
}

func newWebRTCStreamer() *streamers.WebRTCStreamer {
	m := mapper.NewMapper(zap.NewNop().Sugar())
	return streamers.NewWebRTCStreamer(streamers.WebRTCStreamerParams{
		C: config(),
		L: zap.NewNop().Sugar(),
		Middlewares: []entities.StreamMiddleware{
			streammiddlewares.NewStreamInfo(m).StreamInfoMiddleware,
			streammiddlewares.NewCaptions(m).CaptionsMiddleware,
		},
	}).WebRTCStreamer.(*streamers.WebRTCStreamer)
}

func TestWebRTCStreamer_Stream(t *testing.T) {
	analysis := newAnalysis(teststreaming.GOP720p)
	analysis.Captions = []entities.Cue{{
		Type:      "captions",
		StartTime: analysis.Payloads[1].Timestamp,
		Text:      "hello",
	}}

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "video", "test")
	require.Nil(t, err)
	sender := &fakeSender{}

	streamer := newWebRTCStreamer()
	assert.True(t, streamer.Match(&entities.StreamRequest{Transport: entities.WebRTCTransport}))

	err = streamer.Stream(context.Background(), &entities.StreamParameters{
		Analysis:      analysis,
		FPS:           1000,
		VideoTrack:    track,
		MetadataTrack: sender,
	})
	require.Nil(t, err)

	// codec line and chunk summary, no SPS summary on this analysis
	assert.Equal(t, 2, sender.count(entities.MessageTypeMetadata))
	require.Equal(t, 1, sender.count(entities.MessageTypeCaption))

	var cue entities.Cue
	for _, m := range sender.msgs {
		if m.Type == entities.MessageTypeCaption {
			require.Nil(t, json.Unmarshal([]byte(m.Message), &cue))
		}
	}
	assert.Equal(t, "hello", cue.Text)
}

func TestWebRTCStreamer_Canceled(t *testing.T) {
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "video", "test")
	require.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{}
	err = newWebRTCStreamer().Stream(ctx, &entities.StreamParameters{
		Analysis:      newAnalysis(teststreaming.GOP720p),
		VideoTrack:    track,
		MetadataTrack: sender,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.msgs)
}

func TestWebRTCStreamer_MissingTrack(t *testing.T) {
	err := newWebRTCStreamer().Stream(context.Background(), &entities.StreamParameters{})
	assert.ErrorIs(t, err, entities.ErrMissingWebRTCSetup)
}

func TestWebRTCStreamer_SampleDuration(t *testing.T) {
	streamer := newWebRTCStreamer()
	fps := 30.0
	assert.Equal(t, time.Duration(float64(time.Second)/fps), streamer.SampleDuration(30))
	assert.Equal(t, 40*time.Millisecond, streamer.SampleDuration(0))
}
