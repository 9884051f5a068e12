package web

import (
	"log"

	"github.com/flavioribeiro/h264viewer/internal/controllers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/engine"
	"github.com/flavioribeiro/h264viewer/internal/controllers/probers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/streamers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/streammiddlewares"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/mapper"
	"github.com/flavioribeiro/h264viewer/internal/web/handlers"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Dependencies(enableICEMux bool) fx.Option {
	var c entities.Config
	err := envconfig.Process("h264viewer", &c)
	if err != nil {
		log.Fatal(err.Error())
	}
	c.EnableICEMux = enableICEMux

	return fx.Options(
		// HTTP Server
		fx.Provide(NewHTTPServer),

		// HTTP router
		fx.Provide(NewServeMux),

		// HTTP handlers
		fx.Provide(handlers.NewIndexHandler),
		fx.Provide(handlers.NewAnalyzeHandler),
		fx.Provide(handlers.NewAnalysisHandler),
		fx.Provide(handlers.NewStreamHandler),
		fx.Provide(handlers.NewSignalingHandler),

		// ICE mux servers
		fx.Provide(controllers.NewTCPICEServer),
		fx.Provide(controllers.NewUDPICEServer),

		// Controllers
		fx.Provide(controllers.NewWebRTCController),
		fx.Provide(controllers.NewWebRTCSettingsEngine),
		fx.Provide(controllers.NewWebRTCMediaEngine),
		fx.Provide(controllers.NewWebRTCAPI),
		fx.Provide(controllers.NewAnalyzerController),
		fx.Provide(controllers.NewAnalysisStore),

		// Probers
		fx.Provide(probers.NewAnnexB),
		fx.Provide(probers.NewMpegTS),

		// Streamers
		fx.Provide(streamers.NewWebSocketStreamer),
		fx.Provide(streamers.NewWebRTCStreamer),

		fx.Provide(engine.NewEngineController),

		// Stream middlewares
		fx.Provide(streammiddlewares.NewStreamInfo),
		fx.Provide(streammiddlewares.NewCaptions),

		// Mappers
		fx.Provide(mapper.NewMapper),

		// Logging, Config constructors
		fx.Provide(func() *zap.SugaredLogger {
			logger, _ := zap.NewProduction()
			return logger.Sugar()
		}),
		fx.Provide(func() *entities.Config {
			return &c
		}),
	)
}
