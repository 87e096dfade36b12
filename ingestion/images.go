package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/index"
)

// describeProcessor asks the vision collaborator for a description of
// every extracted image.
type describeProcessor struct {
	pipeline *Pipeline
}

func (*describeProcessor) name() string { return StageDescribeImages }

func (*describeProcessor) skip(run *jobRun) bool { return len(run.images) == 0 }

func (*describeProcessor) span(*jobRun) (int, int) { return progressImagesStart, progressDescribeEnd }

func (d *describeProcessor) process(ctx context.Context, run *jobRun) error {
	p := d.pipeline
	run.descriptions = make([]string, len(run.images))
	return p.fanOut(ctx, len(run.images), run.progress, func(ctx context.Context, i int) error {
		img := run.images[i]
		desc, err := p.describe(ctx, img.MIMEType, img.Data)
		if err != nil {
			return fmt.Errorf("image %d: %w", img.Number, err)
		}
		run.descriptions[i] = desc
		return nil
	})
}

// imageEmbedProcessor embeds each description and writes it to the image
// collection.
type imageEmbedProcessor struct {
	pipeline *Pipeline
}

func (*imageEmbedProcessor) name() string { return StageEmbedImages }

func (*imageEmbedProcessor) skip(run *jobRun) bool { return len(run.images) == 0 }

func (*imageEmbedProcessor) span(*jobRun) (int, int) { return progressDescribeEnd, progressImagesEnd }

func (e *imageEmbedProcessor) process(ctx context.Context, run *jobRun) error {
	p := e.pipeline
	return p.fanOut(ctx, len(run.images), run.progress, func(ctx context.Context, i int) error {
		img := run.images[i]
		vec, err := p.embed(ctx, run.descriptions[i])
		if err != nil {
			return fmt.Errorf("image %d: %w", img.Number, err)
		}
		info := index.ImageInfo{
			ID:     fmt.Sprintf("%s-img-%d", run.jobID, img.Number),
			Path:   fmt.Sprintf("%s#image-%d", run.path, img.Number),
			Width:  img.Width,
			Height: img.Height,
			Number: img.Number,
			Kind:   string(img.Kind),
		}
		entry := index.ImageEntry(img.Number, vec, run.descriptions[i], location(run, img.Page), info)
		if err := p.index.Write(ctx, core.ItemTypeImage, entry); err != nil {
			return fmt.Errorf("image %d: write index: %w", img.Number, err)
		}
		return nil
	})
}
