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


// Package search answers retrieval queries over the multimodal index.
//
// A Searcher validates the request, consults the search cache and, on a
// miss, embeds the query once and searches the text and image collections
// concurrently. Results carry per-modality metrics. Index or embedding
// failures produce an error result instead of a Go error so callers can
// keep serving; only invalid requests are rejected with ErrInvalidQuery.
package search
