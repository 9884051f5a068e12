package entities

import (
	"fmt"
	"time"

	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
)

const (
	MetadataChannelID string = "metadata"
)

type Codec string

const (
	UnknownCodec Codec = "unknownCodec"
	H264         Codec = "h264"
	H265         Codec = "h265"
	AAC          Codec = "aac"
)

type Container string

const (
	UnknownContainer Container = "unknown"
	AnnexBContainer  Container = "annexb"
	MpegTSContainer  Container = "mpegts"
)

// Input is an uploaded file, either a raw Annex-B elementary stream or an
// MPEG-TS carrying one.
type Input struct {
	Name string
	Data []byte
}

func (i *Input) String() string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("Input %q (%d bytes)", i.Name, len(i.Data))
}

type Transport string

const (
	WebSocketTransport Transport = "websocket"
	WebRTCTransport    Transport = "webrtc"
)

type StreamRequest struct {
	AnalysisID string    `json:"analysisId"`
	Transport  Transport `json:"transport"`
	// Offer is only used by the webrtc transport.
	Offer webrtc.SessionDescription `json:"offer"`
}

func (p *StreamRequest) Valid() error {
	if p == nil {
		return ErrMissingStreamRequest
	}

	if p.AnalysisID == "" {
		return ErrMissingAnalysisID
	}

	switch p.Transport {
	case WebSocketTransport:
	case WebRTCTransport:
		if p.Offer.SDP == "" {
			return ErrMissingRemoteOffer
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTransport, p.Transport)
	}

	return nil
}

func (p *StreamRequest) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("StreamRequest %v/%v", p.Transport, p.AnalysisID)
}

type StreamParameters struct {
	Analysis *Analysis
	// FPS paces real time transports.
	FPS float64

	WebSocket *websocket.Conn

	VideoTrack    *webrtc.TrackLocalStaticSample
	MetadataTrack MetadataSender

	OnClose func()
	OnError func(err error)
}

// MetadataSender is satisfied by *webrtc.DataChannel.
type MetadataSender interface {
	SendText(s string) error
}

// StreamMiddleware runs for every chunk a streamer sends.
type StreamMiddleware interface {
	Act(chunk h264.Chunk, sp *StreamParameters) error
}

type MessageType string

const (
	MessageTypeMetadata MessageType = "metadata"
	MessageTypeCaption  MessageType = "caption"
	MessageTypeConfig   MessageType = "config"
)

type Message struct {
	Type    MessageType
	Message string
}

type Cue struct {
	Type      string
	StartTime int64
	Text      string
}

type NALUInfo struct {
	Index           int    `json:"index"`
	Offset          int    `json:"offset"`
	Length          int    `json:"length"`
	StartCodeLength int    `json:"startCodeLength"`
	Type            uint8  `json:"type"`
	TypeName        string `json:"typeName"`
	RefIDC          uint8  `json:"refIdc"`
	ForbiddenBit    bool   `json:"forbiddenBit,omitempty"`
}

type ChunkInfo struct {
	Index        int    `json:"index"`
	Kind         string `json:"type"`
	Timestamp    int64  `json:"timestamp"`
	InferredType string `json:"inferredType"`
	Size         int    `json:"size"`
	NALUIndex    int    `json:"naluIndex"`
}

type SPSSummary struct {
	Profile           string   `json:"profile"`
	ProfileIDC        uint8    `json:"profileIdc"`
	Level             string   `json:"level"`
	LevelIDC          uint8    `json:"levelIdc"`
	Codec             string   `json:"codec"`
	ChromaFormat      string   `json:"chromaFormat"`
	BitDepthLuma      uint32   `json:"bitDepthLuma"`
	BitDepthChroma    uint32   `json:"bitDepthChroma"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Interlaced        bool     `json:"interlaced"`
	MaxNumRefFrames   uint32   `json:"maxNumRefFrames"`
	PicOrderCntType   uint32   `json:"picOrderCntType"`
	Cropped           bool     `json:"cropped"`
	FPS               float64  `json:"fps,omitempty"`
	SampleAspectRatio string   `json:"sampleAspectRatio,omitempty"`
	FullRange         bool     `json:"fullRange,omitempty"`
	Truncated         bool     `json:"truncated,omitempty"`
	Diagnostics       []string `json:"diagnostics,omitempty"`
}

// Analysis is the result of inspecting one Input.
type Analysis struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Container Container `json:"container"`

	FileSize      int    `json:"fileSize"`
	FileSizeHuman string `json:"fileSizeHuman"`

	NALUs         []NALUInfo          `json:"nalus"`
	SPS           *SPSSummary         `json:"sps,omitempty"`
	SPSErrors     []string            `json:"spsErrors,omitempty"`
	DecoderConfig *h264.DecoderConfig `json:"decoderConfig,omitempty"`
	Chunks        []ChunkInfo         `json:"chunks"`
	Dropped       int                 `json:"dropped"`

	FrameTypes       h264.FrameTypeStats `json:"frameTypes"`
	FrameTypeSummary string              `json:"frameTypeSummary"`
	Captions         []Cue               `json:"captions,omitempty"`

	// FPS, Duration and Bitrate are only known when the SPS signals timing.
	FPS      float64       `json:"fps,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Bitrate  string        `json:"bitrate,omitempty"`

	// Payloads keeps the assembled chunks for the streamers.
	Payloads []h264.Chunk `json:"-"`
}

type Config struct {
	HTTPPort       int32  `required:"true" default:"8080"`
	HTTPHost       string `required:"true" default:"0.0.0.0"`
	PproffHTTPPort int32  `required:"true" default:"6060"`

	MaxUploadSizeBytes int64 `required:"true" default:"268435456"`
	// DefaultFPS paces playback when the SPS carries no timing info.
	DefaultFPS    float64 `required:"true" default:"30"`
	TimestampStep int64   `required:"true" default:"1"`

	TCPICEPort         int      `required:"true" default:"8081"`
	UDPICEPort         int      `required:"true" default:"8081"`
	ICEReadBufferSize  int      `required:"true" default:"8"`
	ICEExternalIPsDNAT []string `required:"true" default:"127.0.0.1"`
	EnableICEMux       bool     `required:"true" default:"false"`
	StunServers        []string `required:"true" default:"stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302,stun:stun2.l.google.com:19302,stun:stun4.l.google.com:19302"`

	WebSocketWriteTimeout time.Duration `required:"true" default:"10s"`
	AnalysisTTL           time.Duration `required:"true" default:"30m"`
}
