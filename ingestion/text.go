package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/index"
)

// textProcessor embeds every chunk and writes it to the text collection as
// soon as its vector is ready.
type textProcessor struct {
	pipeline *Pipeline
}

func (*textProcessor) name() string { return StageEmbedText }

func (*textProcessor) span(run *jobRun) (int, int) {
	if len(run.images) > 0 {
		return progressExtractEnd, progressImagesStart
	}
	return progressExtractEnd, progressTextOnly
}

func (t *textProcessor) process(ctx context.Context, run *jobRun) error {
	p := t.pipeline
	return p.fanOut(ctx, len(run.chunks), run.progress, func(ctx context.Context, i int) error {
		chunk := run.chunks[i]
		vec, err := p.embed(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", chunk.Ordinal, err)
		}
		entry := index.TextEntry(chunk.Ordinal, vec, chunk.Text, location(run, chunk.Page))
		if err := p.index.Write(ctx, core.ItemTypeText, entry); err != nil {
			return fmt.Errorf("chunk %d: write index: %w", chunk.Ordinal, err)
		}
		return nil
	})
}

func location(run *jobRun, page int) index.Location {
	return index.Location{
		Source:     run.path,
		Filename:   run.filename,
		JobID:      run.jobID,
		Page:       page,
		TotalPages: run.doc.TotalPages,
	}
}
