package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/docrag/extract"
)

// Progress landmarks. Text work ends at progressTextOnly when the document
// has no images to describe, and at progressImagesStart otherwise.
const (
	progressExtractStart = 5
	progressExtractEnd   = 10
	progressImagesStart  = 60
	progressDescribeEnd  = 78
	progressImagesEnd    = 95
	progressTextOnly     = progressImagesEnd
)

type detectProcessor struct{}

func (*detectProcessor) name() string { return StageDetect }

func (*detectProcessor) span(*jobRun) (int, int) { return 0, progressExtractStart }

func (*detectProcessor) process(_ context.Context, run *jobRun) error {
	kind, mime, err := extract.Detect(run.path)
	if err != nil {
		return err
	}
	if kind == extract.KindUnknown {
		return fmt.Errorf("%w: %s (%s)", extract.ErrUnsupportedType, run.filename, mime)
	}
	run.kind = kind
	return nil
}

type extractProcessor struct {
	router *extract.Router
	images bool
}

func (*extractProcessor) name() string { return StageExtract }

func (*extractProcessor) span(*jobRun) (int, int) { return progressExtractStart, progressExtractEnd }

func (e *extractProcessor) process(ctx context.Context, run *jobRun) error {
	doc, err := e.router.Extract(ctx, run.kind, run.path)
	if err != nil {
		return err
	}
	run.doc = doc
	if e.images {
		run.images = doc.Images
	}
	return nil
}

type chunkProcessor struct {
	chunker *extract.Chunker
}

func (*chunkProcessor) name() string { return StageChunk }

func (*chunkProcessor) span(*jobRun) (int, int) { return progressExtractEnd, progressExtractEnd }

func (c *chunkProcessor) process(_ context.Context, run *jobRun) error {
	chunks, err := c.chunker.Split(run.doc)
	if err != nil {
		return err
	}
	run.chunks = chunks
	return nil
}
