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


// Package ai provides abstractions for the external AI services docrag calls.
//
// Two services are used: an Embedder that turns text into vectors, and an
// ImageDescriber that turns extracted images into text so that figures can be
// searched alongside document prose. AIProvider bundles both.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible implementation built on langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and read call counts.
//
// # Retries
//
// External calls are wrapped with Retry, which makes a fixed number of
// attempts separated by a fixed delay:
//
//	err := ai.Retry(ctx, 3, time.Second, func(ctx context.Context) error {
//	    vec, err = embedder.EmbedText(ctx, chunk)
//	    return err
//	})
//	if errors.Is(err, ai.ErrRetriesExhausted) {
//	    // fail the job stage
//	}
package ai
