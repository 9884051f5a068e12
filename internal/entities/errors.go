package entities

import (
	"errors"
	"fmt"
)

var ErrHTTPGetOnly = errors.New("you must use http GET verb")
var ErrHTTPPostOnly = errors.New("you must use http POST verb")

var ErrEmptyInput = errors.New("input must not be empty")
var ErrInvalidRequestBody = errors.New("request body could not be decoded")
var ErrUploadTooLarge = errors.New("upload is too large")
var ErrNoNALUs = errors.New("file could not be parsed")
var ErrMissingH264Stream = errors.New("there is no h264 stream")

var ErrMissingStreamRequest = errors.New("StreamRequest must not be nil")
var ErrMissingAnalysisID = errors.New("analysis ID must not be empty")
var ErrMissingAnalysis = errors.New("analysis not found")
var ErrUnsupportedTransport = errors.New("unsupported transport")
var ErrUnsupportedCodec = errors.New("codec cannot be streamed over webrtc")

var ErrMissingWebRTCSetup = errors.New("WebRTCController.CreatePeerConnection must be called first")
var ErrMissingWebSocket = errors.New("websocket connection must not be nil")
var ErrMissingRemoteOffer = errors.New("nil offer, in order to connect one must pass a valid offer")

var ErrMissingProber = errors.New("there is no prober")
var ErrMissingStreamer = errors.New("there is no streamer")

var ErrMissingDecoderConfig = errors.New("decoder must be configured before decoding")

// FFmpeg/LibAV
var ErrFFMpegLibAV = errors.New("ffmpeg/libav error")
var ErrFFmpegLibAVDecoderNotFound = fmt.Errorf("%w decoder not found", ErrFFMpegLibAV)
var ErrFFmpegLibAVCodecContextIsNil = fmt.Errorf("%w codec context is nil", ErrFFMpegLibAV)
var ErrFFmpegLibAVOpenCodecFailed = fmt.Errorf("%w codec open has failed", ErrFFMpegLibAV)
