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


package badger

import "github.com/poiesic/docrag/storage"

// NewMemoryStores creates an in-memory vector index and cache store for
// testing. Both own their backends; the caller must close both.
func NewMemoryStores() (storage.VectorIndex, storage.CacheStore, error) {
	index, err := OpenVectorIndex("", true)
	if err != nil {
		return nil, nil, err
	}

	cache, err := OpenCacheStore("", true)
	if err != nil {
		index.Close()
		return nil, nil, err
	}

	return index, cache, nil
}
