package probers

import (
	"bytes"
	"context"

	"github.com/flavioribeiro/h264viewer/internal/entities"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	startCode3 = []byte{0x00, 0x00, 0x01}
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

type AnnexB struct {
	l *zap.SugaredLogger
}

type ResultAnnexB struct {
	fx.Out
	AnnexBProber Prober `group:"probers"`
}

// NewAnnexB creates a new AnnexB Prober
func NewAnnexB(l *zap.SugaredLogger) ResultAnnexB {
	return ResultAnnexB{
		AnnexBProber: &AnnexB{l: l},
	}
}

// Match returns true when the input starts with a start code
func (c *AnnexB) Match(input *entities.Input) bool {
	return bytes.HasPrefix(input.Data, startCode3) || bytes.HasPrefix(input.Data, startCode4)
}

func (c *AnnexB) Container() entities.Container {
	return entities.AnnexBContainer
}

// ElementaryStream returns the input as is, it already is an elementary stream.
func (c *AnnexB) ElementaryStream(ctx context.Context, input *entities.Input) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input.Data) == 0 {
		return nil, entities.ErrEmptyInput
	}
	return input.Data, nil
}
