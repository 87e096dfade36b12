// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/docrag/extract"
)

// Stage names, recorded on the job and used to prefix failure messages.
const (
	StageDetect         = "detect"
	StageExtract        = "extract"
	StageChunk          = "chunk"
	StageEmbedText      = "embed_text"
	StageDescribeImages = "describe_images"
	StageEmbedImages    = "embed_images"
)

// processor is one stage of a job.
type processor interface {
	// name identifies the stage.
	name() string

	// span returns the progress range the stage covers for this run.
	span(run *jobRun) (from, to int)

	// process performs the stage, reporting completed work through run.
	process(ctx context.Context, run *jobRun) error
}

// skipper is implemented by stages that have nothing to do for some runs.
type skipper interface {
	skip(run *jobRun) bool
}

// jobRun carries one job's state from stage to stage.
type jobRun struct {
	jobID    string
	path     string
	filename string

	kind         extract.Kind
	doc          *extract.Document
	chunks       []extract.Chunk
	images       []extract.Image
	descriptions []string

	// progress reports done of total work items in the current stage.
	progress func(done, total int)
}

// stageError attributes a failure to the stage that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}
