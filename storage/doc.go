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


// Package storage defines the persistence contracts used by docrag.
//
// Four stores are abstracted here:
//
//   - JobStore: ingestion job records (storage/memory)
//   - FingerprintStore: content fingerprint table for deduplication (storage/memory)
//   - VectorIndex: named fixed-dimension vector collections (storage/badger, storage/qdrant)
//   - CacheStore: TTL-bounded key/value store for search results and sessions (storage/badger)
//
// # Constructor Return Type Pattern
//
// Backend constructors that open resources return interface types:
//
//	index, err := badger.OpenVectorIndex(path, false)  // storage.VectorIndex
//	index, err := qdrant.Open(cfg)                     // storage.VectorIndex
//
// Constructors that wrap an already-open backend may return concrete types.
//
// # Serialization
//
// Values persisted by embedded backends are encoded with mus-go using the
// serializers in package core; see MarshalVectorRecord, MarshalSearchResult
// and MarshalConversation.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
