package controllers

import (
	"context"
	"fmt"
	"net"

	"github.com/flavioribeiro/h264viewer/h264"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/mapper"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

const VideoTrackID = "video"

type WebRTCController struct {
	c   *entities.Config
	l   *zap.SugaredLogger
	api *webrtc.API
	m   *mapper.Mapper
}

func NewWebRTCController(
	c *entities.Config,
	l *zap.SugaredLogger,
	api *webrtc.API,
	m *mapper.Mapper,
) *WebRTCController {
	return &WebRTCController{
		c:   c,
		l:   l,
		api: api,
		m:   m,
	}
}

// CreatePeerConnection opens a peer for one streaming session. cancel fires
// once ICE reports the peer gone.
func (c *WebRTCController) CreatePeerConnection(analysisID string, cancel context.CancelFunc) (*webrtc.PeerConnection, error) {
	l := c.l.With("analysis", analysisID)
	l.Infow("trying to set up web rtc conn")

	peerConnectionConfiguration := webrtc.Configuration{}
	if !c.c.EnableICEMux {
		peerConnectionConfiguration.ICEServers = []webrtc.ICEServer{
			{
				URLs: c.c.StunServers,
			},
		}
	}

	peerConnection, err := c.api.NewPeerConnection(peerConnectionConfiguration)
	if err != nil {
		l.Errorw("error while creating a new peer connection",
			"error", err,
		)
		return nil, err
	}

	peerConnection.OnICEConnectionStateChange(func(connectionState webrtc.ICEConnectionState) {
		l.Infow("OnICEConnectionStateChange",
			"status", connectionState.String(),
		)

		switch connectionState {
		case webrtc.ICEConnectionStateClosed,
			webrtc.ICEConnectionStateDisconnected,
			webrtc.ICEConnectionStateFailed:
			l.Infow("Canceling webrtc",
				"status", connectionState.String(),
			)
			cancel()
		}
	})

	return peerConnection, nil
}

// CreateVideoTrack adds the track chunks are written to. The offered
// capability follows the analysis' decoder config, so the answer carries the
// stream's own profile-level-id.
func (c *WebRTCController) CreateVideoTrack(peer *webrtc.PeerConnection, config *h264.DecoderConfig, analysisID string) (*webrtc.TrackLocalStaticSample, error) {
	codecCapability := c.m.FromDecoderConfigToRTPCodecCapability(config)
	if codecCapability.MimeType == "" {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnsupportedCodec, config.Codec)
	}

	videoTrack, err := webrtc.NewTrackLocalStaticSample(codecCapability, VideoTrackID, analysisID)
	if err != nil {
		return nil, err
	}

	if _, err := peer.AddTrack(videoTrack); err != nil {
		return nil, err
	}

	c.l.Infow("video track created",
		"analysis", analysisID,
		"mime", codecCapability.MimeType,
		"fmtp", codecCapability.SDPFmtpLine,
	)
	return videoTrack, nil
}

// CreateMetadataChannel opens the ordered data channel that carries
// metadata and caption messages next to the video.
func (c *WebRTCController) CreateMetadataChannel(peer *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := true
	return peer.CreateDataChannel(entities.MetadataChannelID, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
}

func (c *WebRTCController) SetRemoteDescription(peer *webrtc.PeerConnection, desc webrtc.SessionDescription) error {
	if desc.SDP == "" {
		return entities.ErrMissingRemoteOffer
	}
	return peer.SetRemoteDescription(desc)
}

// GatheringWebRTC answers the remote offer and waits for ICE gathering to
// finish, or for ctx to end.
func (c *WebRTCController) GatheringWebRTC(ctx context.Context, peer *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	c.l.Infow("Gathering WebRTC Candidates")
	gatherComplete := webrtc.GatheringCompletePromise(peer)
	answer, err := peer.CreateAnswer(nil)
	if err != nil {
		return nil, err
	} else if err = peer.SetLocalDescription(answer); err != nil {
		return nil, err
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.l.Infow("Gathering WebRTC Candidates Complete")

	return peer.LocalDescription(), nil
}

func NewWebRTCSettingsEngine(c *entities.Config, tcpListener net.Listener, udpListener net.PacketConn) webrtc.SettingEngine {
	settingEngine := webrtc.SettingEngine{}

	settingEngine.SetNAT1To1IPs(c.ICEExternalIPsDNAT, webrtc.ICECandidateTypeHost)
	settingEngine.SetICETCPMux(webrtc.NewICETCPMux(nil, tcpListener, c.ICEReadBufferSize))
	settingEngine.SetICEUDPMux(webrtc.NewICEUDPMux(nil, udpListener))

	return settingEngine
}

func NewWebRTCMediaEngine() (*webrtc.MediaEngine, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	return mediaEngine, nil
}

func NewWebRTCAPI(mediaEngine *webrtc.MediaEngine, settingEngine webrtc.SettingEngine) *webrtc.API {
	return webrtc.NewAPI(
		webrtc.WithSettingEngine(settingEngine),
		webrtc.WithMediaEngine(mediaEngine),
	)
}

func NewTCPICEServer(c *entities.Config) (net.Listener, error) {
	tcpListener, err := net.ListenTCP("tcp", &net.TCPAddr{
		IP:   net.IP{0, 0, 0, 0},
		Port: c.TCPICEPort,
	})
	if err != nil {
		return nil, err
	}
	return tcpListener, nil
}

func NewUDPICEServer(c *entities.Config) (net.PacketConn, error) {
	udpListener, err := net.ListenUDP("udp", &net.UDPAddr{
		IP:   net.IP{0, 0, 0, 0},
		Port: c.UDPICEPort,
	})
	if err != nil {
		return nil, err
	}
	return udpListener, nil
}
