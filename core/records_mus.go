package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Serializer is the MUS serializer shape shared by mus-go's built-in
// serializers and the record serializers in this package.
type Serializer[T any] interface {
	Marshal(v T, bs []byte) (n int)
	Unmarshal(bs []byte) (v T, n int, err error)
	Size(v T) (size int)
}

// Encoder accumulates MUS-encoded fields into a pre-sized buffer.
type Encoder struct {
	bs []byte
	n  int
}

// Decoder reads MUS-encoded fields in order, stopping at the first error.
type Decoder struct {
	bs  []byte
	n   int
	err error
}

// NewEncoder returns an Encoder writing into bs, which must be large enough.
func NewEncoder(bs []byte) *Encoder { return &Encoder{bs: bs} }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return e.n }

func NewDecoder(bs []byte) *Decoder { return &Decoder{bs: bs} }

// Read returns the number of bytes consumed and the first error seen.
func (d *Decoder) Read() (int, error) { return d.n, d.err }

// checkLength rejects collection lengths that cannot fit in the remaining input.
// Every encoded element occupies at least one byte.
func (d *Decoder) checkLength(length int) {
	if length < 0 || length > len(d.bs)-d.n {
		d.err = fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
}

// Put writes v with s.
func Put[T any](e *Encoder, s Serializer[T], v T) {
	e.n += s.Marshal(v, e.bs[e.n:])
}

// Get reads a value with s into dst.
func Get[T any](d *Decoder, s Serializer[T], dst *T) {
	if d.err != nil {
		return
	}
	v, n, err := s.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.err = err
		return
	}
	*dst = v
	d.n += n
}

// Marshal sizes, allocates and encodes v with s.
func Marshal[T any](s Serializer[T], v T) []byte {
	buf := make([]byte, s.Size(v))
	s.Marshal(v, buf)
	return buf
}

// timeSer encodes time.Time as Unix microseconds, decoding to UTC.
type timeSer struct{}

var TimeMUS = timeSer{}

func (timeSer) Marshal(v time.Time, bs []byte) int {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (timeSer) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeSer) Size(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}

// stringMapSer encodes map[string]string with keys in sorted order so that
// equal maps always produce equal bytes.
type stringMapSer struct{}

var StringMapMUS = stringMapSer{}

func (stringMapSer) keys(v map[string]string) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s stringMapSer) Marshal(v map[string]string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, k := range s.keys(v) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v[k], bs[n:])
	}
	return n
}

func (stringMapSer) Unmarshal(bs []byte) (map[string]string, int, error) {
	d := NewDecoder(bs)
	var length int
	Get[int](d, varint.Int, &length)
	if d.err == nil {
		d.checkLength(length)
	}
	if d.err != nil {
		return nil, d.n, d.err
	}
	if length == 0 {
		return nil, d.n, nil
	}
	m := make(map[string]string, length)
	for i := 0; i < length; i++ {
		var k, v string
		Get[string](d, ord.String, &k)
		Get[string](d, ord.String, &v)
		if d.err != nil {
			return nil, d.n, d.err
		}
		m[k] = v
	}
	return m, d.n, nil
}

func (s stringMapSer) Size(v map[string]string) int {
	size := varint.Int.Size(len(v))
	for k, val := range v {
		size += ord.String.Size(k) + ord.String.Size(val)
	}
	return size
}

// sliceSer encodes a length-prefixed slice of T.
type sliceSer[T any] struct {
	elem Serializer[T]
}

// NewSliceMUS returns a serializer for []T using elem for each element.
func NewSliceMUS[T any](elem Serializer[T]) Serializer[[]T] {
	return sliceSer[T]{elem: elem}
}

func (s sliceSer[T]) Marshal(v []T, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, el := range v {
		n += s.elem.Marshal(el, bs[n:])
	}
	return n
}

func (s sliceSer[T]) Unmarshal(bs []byte) ([]T, int, error) {
	d := NewDecoder(bs)
	var length int
	Get[int](d, varint.Int, &length)
	if d.err == nil {
		d.checkLength(length)
	}
	if d.err != nil {
		return nil, d.n, d.err
	}
	if length == 0 {
		return nil, d.n, nil
	}
	out := make([]T, length)
	for i := range out {
		Get(d, s.elem, &out[i])
	}
	if d.err != nil {
		return nil, d.n, d.err
	}
	return out, d.n, nil
}

func (s sliceSer[T]) Size(v []T) int {
	size := varint.Int.Size(len(v))
	for _, el := range v {
		size += s.elem.Size(el)
	}
	return size
}

// Float32SliceMUS encodes embedding vectors.
var Float32SliceMUS = NewSliceMUS[float32](raw.Float32)

type searchResultItemSer struct{}

var SearchResultItemMUS = searchResultItemSer{}

func (searchResultItemSer) Marshal(v SearchResultItem, bs []byte) int {
	e := &Encoder{bs: bs}
	Put[string](e, ord.String, v.Content)
	Put[float32](e, raw.Float32, v.Score)
	Put[string](e, ord.String, v.Source)
	Put[string](e, ord.String, v.Filename)
	Put[string](e, ord.String, v.JobID)
	Put[string](e, ord.String, string(v.Type))
	Put[int](e, varint.Int, v.Page)
	Put[int](e, varint.Int, v.TotalPages)
	Put[string](e, ord.String, v.ImagePath)
	Put[string](e, ord.String, v.ImageID)
	Put[int](e, varint.Int, v.Width)
	Put[int](e, varint.Int, v.Height)
	Put[int](e, varint.Int, v.ImageNumber)
	return e.n
}

func (searchResultItemSer) Unmarshal(bs []byte) (SearchResultItem, int, error) {
	var v SearchResultItem
	var itemType string
	d := NewDecoder(bs)
	Get[string](d, ord.String, &v.Content)
	Get[float32](d, raw.Float32, &v.Score)
	Get[string](d, ord.String, &v.Source)
	Get[string](d, ord.String, &v.Filename)
	Get[string](d, ord.String, &v.JobID)
	Get[string](d, ord.String, &itemType)
	Get[int](d, varint.Int, &v.Page)
	Get[int](d, varint.Int, &v.TotalPages)
	Get[string](d, ord.String, &v.ImagePath)
	Get[string](d, ord.String, &v.ImageID)
	Get[int](d, varint.Int, &v.Width)
	Get[int](d, varint.Int, &v.Height)
	Get[int](d, varint.Int, &v.ImageNumber)
	v.Type = ItemType(itemType)
	return v, d.n, d.err
}

func (searchResultItemSer) Size(v SearchResultItem) int {
	return ord.String.Size(v.Content) +
		raw.Float32.Size(v.Score) +
		ord.String.Size(v.Source) +
		ord.String.Size(v.Filename) +
		ord.String.Size(v.JobID) +
		ord.String.Size(string(v.Type)) +
		varint.Int.Size(v.Page) +
		varint.Int.Size(v.TotalPages) +
		ord.String.Size(v.ImagePath) +
		ord.String.Size(v.ImageID) +
		varint.Int.Size(v.Width) +
		varint.Int.Size(v.Height) +
		varint.Int.Size(v.ImageNumber)
}

type modalityMetricsSer struct{}

var ModalityMetricsMUS = modalityMetricsSer{}

func (modalityMetricsSer) Marshal(v ModalityMetrics, bs []byte) int {
	e := &Encoder{bs: bs}
	Put[int](e, varint.Int, v.Count)
	Put[int64](e, varint.Int64, v.DurationMs)
	Put[float64](e, raw.Float64, v.AverageScore)
	Put[float64](e, raw.Float64, v.MaxScore)
	Put[float64](e, raw.Float64, v.MinScore)
	return e.n
}

func (modalityMetricsSer) Unmarshal(bs []byte) (ModalityMetrics, int, error) {
	var v ModalityMetrics
	d := NewDecoder(bs)
	Get[int](d, varint.Int, &v.Count)
	Get[int64](d, varint.Int64, &v.DurationMs)
	Get[float64](d, raw.Float64, &v.AverageScore)
	Get[float64](d, raw.Float64, &v.MaxScore)
	Get[float64](d, raw.Float64, &v.MinScore)
	return v, d.n, d.err
}

func (modalityMetricsSer) Size(v ModalityMetrics) int {
	return varint.Int.Size(v.Count) +
		varint.Int64.Size(v.DurationMs) +
		raw.Float64.Size(v.AverageScore) +
		raw.Float64.Size(v.MaxScore) +
		raw.Float64.Size(v.MinScore)
}

var searchResultItemsMUS = NewSliceMUS[SearchResultItem](SearchResultItemMUS)

type cachedSearchResultSer struct{}

// CachedSearchResultMUS encodes a CachedSearchResult. WasCached is not
// stored; it describes how a value was obtained, not the value itself.
var CachedSearchResultMUS = cachedSearchResultSer{}

func (cachedSearchResultSer) Marshal(v CachedSearchResult, bs []byte) int {
	e := &Encoder{bs: bs}
	Put(e, searchResultItemsMUS, v.TextResults)
	Put(e, searchResultItemsMUS, v.ImageResults)
	Put[ModalityMetrics](e, ModalityMetricsMUS, v.TextMetrics)
	Put[ModalityMetrics](e, ModalityMetricsMUS, v.ImageMetrics)
	Put[int64](e, varint.Int64, v.TotalDurationMs)
	Put[bool](e, ord.Bool, v.HasError)
	Put[string](e, ord.String, v.ErrorMessage)
	return e.n
}

func (cachedSearchResultSer) Unmarshal(bs []byte) (CachedSearchResult, int, error) {
	var v CachedSearchResult
	d := NewDecoder(bs)
	Get(d, searchResultItemsMUS, &v.TextResults)
	Get(d, searchResultItemsMUS, &v.ImageResults)
	Get[ModalityMetrics](d, ModalityMetricsMUS, &v.TextMetrics)
	Get[ModalityMetrics](d, ModalityMetricsMUS, &v.ImageMetrics)
	Get[int64](d, varint.Int64, &v.TotalDurationMs)
	Get[bool](d, ord.Bool, &v.HasError)
	Get[string](d, ord.String, &v.ErrorMessage)
	return v, d.n, d.err
}

func (cachedSearchResultSer) Size(v CachedSearchResult) int {
	return searchResultItemsMUS.Size(v.TextResults) +
		searchResultItemsMUS.Size(v.ImageResults) +
		ModalityMetricsMUS.Size(v.TextMetrics) +
		ModalityMetricsMUS.Size(v.ImageMetrics) +
		varint.Int64.Size(v.TotalDurationMs) +
		ord.Bool.Size(v.HasError) +
		ord.String.Size(v.ErrorMessage)
}

type historyEntrySer struct{}

// HistoryEntryMUS encodes the discriminant first, then the payload union.
var HistoryEntryMUS = historyEntrySer{}

func (historyEntrySer) Marshal(v HistoryEntry, bs []byte) int {
	e := &Encoder{bs: bs}
	Put[string](e, ord.String, string(v.Kind))
	Put[string](e, ord.String, v.Role)
	Put[string](e, ord.String, v.Text)
	Put[map[string]string](e, StringMapMUS, v.Attrs)
	Put[time.Time](e, TimeMUS, v.At)
	return e.n
}

func (historyEntrySer) Unmarshal(bs []byte) (HistoryEntry, int, error) {
	var v HistoryEntry
	var kind string
	d := NewDecoder(bs)
	Get[string](d, ord.String, &kind)
	Get[string](d, ord.String, &v.Role)
	Get[string](d, ord.String, &v.Text)
	Get[map[string]string](d, StringMapMUS, &v.Attrs)
	Get[time.Time](d, TimeMUS, &v.At)
	v.Kind = EntryKind(kind)
	return v, d.n, d.err
}

func (historyEntrySer) Size(v HistoryEntry) int {
	return ord.String.Size(string(v.Kind)) +
		ord.String.Size(v.Role) +
		ord.String.Size(v.Text) +
		StringMapMUS.Size(v.Attrs) +
		TimeMUS.Size(v.At)
}

var historyEntriesMUS = NewSliceMUS[HistoryEntry](HistoryEntryMUS)

type conversationContextSer struct{}

var ConversationContextMUS = conversationContextSer{}

func (conversationContextSer) Marshal(v ConversationContext, bs []byte) int {
	e := &Encoder{bs: bs}
	Put[string](e, ord.String, v.SessionID)
	Put[string](e, ord.String, v.UserID)
	Put(e, historyEntriesMUS, v.History)
	Put[time.Time](e, TimeMUS, v.UpdatedAt)
	return e.n
}

func (conversationContextSer) Unmarshal(bs []byte) (ConversationContext, int, error) {
	var v ConversationContext
	d := NewDecoder(bs)
	Get[string](d, ord.String, &v.SessionID)
	Get[string](d, ord.String, &v.UserID)
	Get(d, historyEntriesMUS, &v.History)
	Get[time.Time](d, TimeMUS, &v.UpdatedAt)
	return v, d.n, d.err
}

func (conversationContextSer) Size(v ConversationContext) int {
	return ord.String.Size(v.SessionID) +
		ord.String.Size(v.UserID) +
		historyEntriesMUS.Size(v.History) +
		TimeMUS.Size(v.UpdatedAt)
}

type fingerprintRecordSer struct{}

var FingerprintRecordMUS = fingerprintRecordSer{}

func (fingerprintRecordSer) Marshal(v FingerprintRecord, bs []byte) int {
	e := &Encoder{bs: bs}
	Put[string](e, ord.String, string(v.Fingerprint))
	Put[string](e, ord.String, v.JobID)
	Put[string](e, ord.String, v.OriginalFileName)
	Put[time.Time](e, TimeMUS, v.UploadedAt)
	Put[int64](e, varint.Int64, v.FileSize)
	return e.n
}

func (fingerprintRecordSer) Unmarshal(bs []byte) (FingerprintRecord, int, error) {
	var v FingerprintRecord
	var fp string
	d := NewDecoder(bs)
	Get[string](d, ord.String, &fp)
	Get[string](d, ord.String, &v.JobID)
	Get[string](d, ord.String, &v.OriginalFileName)
	Get[time.Time](d, TimeMUS, &v.UploadedAt)
	Get[int64](d, varint.Int64, &v.FileSize)
	v.Fingerprint = Fingerprint(fp)
	return v, d.n, d.err
}

func (fingerprintRecordSer) Size(v FingerprintRecord) int {
	return ord.String.Size(string(v.Fingerprint)) +
		ord.String.Size(v.JobID) +
		ord.String.Size(v.OriginalFileName) +
		TimeMUS.Size(v.UploadedAt) +
		varint.Int64.Size(v.FileSize)
}
