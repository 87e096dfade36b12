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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docrag/core"
)

// VectorRecord is an Entry as persisted by embedded backends. Seq is the
// insertion sequence used to break score ties.
type VectorRecord struct {
	Entry
	Seq uint64
}

type vectorRecordSer struct{}

var vectorRecordMUS = vectorRecordSer{}

func (vectorRecordSer) Marshal(v VectorRecord, bs []byte) int {
	e := core.NewEncoder(bs)
	core.Put[uint64](e, varint.Uint64, v.Seq)
	core.Put[string](e, ord.String, v.ID)
	core.Put[string](e, ord.String, v.Text)
	core.Put(e, core.StringMapMUS, v.Metadata)
	core.Put(e, core.Float32SliceMUS, v.Vector)
	return e.Len()
}

func (vectorRecordSer) Unmarshal(bs []byte) (VectorRecord, int, error) {
	var v VectorRecord
	d := core.NewDecoder(bs)
	core.Get[uint64](d, varint.Uint64, &v.Seq)
	core.Get[string](d, ord.String, &v.ID)
	core.Get[string](d, ord.String, &v.Text)
	core.Get(d, core.StringMapMUS, &v.Metadata)
	core.Get(d, core.Float32SliceMUS, &v.Vector)
	n, err := d.Read()
	return v, n, err
}

func (vectorRecordSer) Size(v VectorRecord) int {
	return varint.Uint64.Size(v.Seq) +
		ord.String.Size(v.ID) +
		ord.String.Size(v.Text) +
		core.StringMapMUS.Size(v.Metadata) +
		core.Float32SliceMUS.Size(v.Vector)
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(rec *VectorRecord) []byte {
	return core.Marshal[VectorRecord](vectorRecordMUS, *rec)
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*VectorRecord, error) {
	rec, _, err := vectorRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &rec, nil
}

// MarshalDimension serializes a collection dimension.
func MarshalDimension(dim int) []byte {
	return core.Marshal[int](varint.Int, dim)
}

// UnmarshalDimension deserializes a collection dimension.
func UnmarshalDimension(data []byte) (int, error) {
	dim, _, err := varint.Int.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return dim, nil
}

// MarshalSearchResult serializes a CachedSearchResult to bytes.
func MarshalSearchResult(result *core.CachedSearchResult) []byte {
	return core.Marshal[core.CachedSearchResult](core.CachedSearchResultMUS, *result)
}

// UnmarshalSearchResult deserializes a CachedSearchResult from bytes.
func UnmarshalSearchResult(data []byte) (*core.CachedSearchResult, error) {
	result, _, err := core.CachedSearchResultMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &result, nil
}

// MarshalConversation serializes a ConversationContext to bytes.
func MarshalConversation(c *core.ConversationContext) []byte {
	return core.Marshal[core.ConversationContext](core.ConversationContextMUS, *c)
}

// UnmarshalConversation deserializes a ConversationContext from bytes.
func UnmarshalConversation(data []byte) (*core.ConversationContext, error) {
	c, _, err := core.ConversationContextMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &c, nil
}

// MarshalFingerprint serializes a FingerprintRecord to bytes.
func MarshalFingerprint(rec *core.FingerprintRecord) []byte {
	return core.Marshal[core.FingerprintRecord](core.FingerprintRecordMUS, *rec)
}

// UnmarshalFingerprint deserializes a FingerprintRecord from bytes.
func UnmarshalFingerprint(data []byte) (*core.FingerprintRecord, error) {
	rec, _, err := core.FingerprintRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &rec, nil
}
