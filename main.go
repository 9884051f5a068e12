//go:build !js
// +build !js

package main

import (
	"net/http"

	"github.com/flavioribeiro/h264viewer/internal/web"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

func main() {
	enableICEMux := pflag.Bool("enable-ice-mux", false, "Enable ICE Mux on :8081")
	pflag.Parse()

	fx.New(
		web.Dependencies(*enableICEMux),
		// HTTP Server
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
