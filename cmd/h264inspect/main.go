package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/flavioribeiro/h264viewer/internal/controllers"
	"github.com/flavioribeiro/h264viewer/internal/controllers/decoders"
	"github.com/flavioribeiro/h264viewer/internal/controllers/decoders/libav"
	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/web"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <file.h264|file.ts>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	asJSON := pflag.Bool("json", false, "print the analysis as JSON")
	decode := pflag.Bool("decode", false, "decode every chunk with libav and report the decoded picture types")
	listNALUs := pflag.Bool("nalus", true, "print the NAL unit table")
	verbose := pflag.BoolP("verbose", "v", false, "log to stderr")

	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}
	path := pflag.Arg(0)

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	l := logger.Sugar()
	defer l.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	data, err := os.ReadFile(path)
	assertNoError(err)

	var analyzer *controllers.AnalyzerController
	app := fx.New(
		web.Dependencies(false),
		fx.Replace(l),
		fx.NopLogger,
		fx.Populate(&analyzer),
	)
	assertNoError(app.Err())

	analysis, err := analyzer.Analyze(ctx, &entities.Input{Name: filepath.Base(path), Data: data})
	assertNoError(err)

	var report *decoders.Report
	if *decode {
		if analysis.DecoderConfig == nil {
			assertNoError(entities.ErrMissingDecoderConfig)
		}
		report, err = decoders.Run(ctx, libav.NewDecoder(l), *analysis.DecoderConfig, analysis.Payloads)
		assertNoError(err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		assertNoError(enc.Encode(struct {
			*entities.Analysis
			Decoded *decoders.Report `json:"decoded,omitempty"`
		}{analysis, report}))
		return
	}

	printAnalysis(analysis, *listNALUs)
	if report != nil {
		printReport(report)
	}
}

func printAnalysis(a *entities.Analysis, listNALUs bool) {
	fmt.Printf("%s: %s, %s\n", a.Name, a.Container, a.FileSizeHuman)

	if listNALUs {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "#\toffset\tlength\tsc\tref\ttype\t")
		for _, n := range a.NALUs {
			fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%s (%d)\t\n",
				n.Index, n.Offset, humanize.Comma(int64(n.Length)), n.StartCodeLength, n.RefIDC, n.TypeName, n.Type)
		}
		w.Flush()
	}

	if a.SPS != nil {
		s := a.SPS
		fmt.Printf("SPS: %s, %s profile (%d), level %s, %s %d-bit\n",
			s.Codec, s.Profile, s.ProfileIDC, s.Level, s.ChromaFormat, s.BitDepthLuma)
		fmt.Printf("     %dx%d interlaced=%t refs=%d poc=%d cropped=%t\n",
			s.Width, s.Height, s.Interlaced, s.MaxNumRefFrames, s.PicOrderCntType, s.Cropped)
		if s.FPS > 0 {
			fmt.Printf("     %.3f fps, sar %s, full range %t\n", s.FPS, s.SampleAspectRatio, s.FullRange)
		}
		for _, d := range s.Diagnostics {
			fmt.Printf("     warning: %s\n", d)
		}
	}
	for _, e := range a.SPSErrors {
		fmt.Printf("SPS error: %s\n", e)
	}

	fmt.Printf("%d NAL units, %d chunks (%s), %d dropped\n",
		len(a.NALUs), len(a.Chunks), a.FrameTypeSummary, a.Dropped)
	if a.Duration > 0 {
		fmt.Printf("duration %s, %s\n", a.Duration, a.Bitrate)
	}
	for _, c := range a.Captions {
		fmt.Printf("caption @%d: %s\n", c.StartTime, c.Text)
	}
}

func printReport(r *decoders.Report) {
	fmt.Printf("decoded %d frames (%s), %d undecoded, %d unmatched\n",
		len(r.Frames), r.Stats.String(), r.Undecoded, r.Unmatched)
}

func assertNoError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
