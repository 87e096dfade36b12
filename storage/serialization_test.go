package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRecordRoundTrip(t *testing.T) {
	rec := &VectorRecord{
		Entry: Entry{
			ID:       "0b7f5f3e-0000-5000-8000-000000000001",
			Vector:   []float32{0.25, -0.5, 1},
			Text:     "quarterly revenue grew",
			Metadata: map[string]string{"source": "a.pdf", "page": "2"},
		},
		Seq: 42,
	}

	got, err := UnmarshalVectorRecord(MarshalVectorRecord(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestUnmarshal_Corrupt(t *testing.T) {
	_, err := UnmarshalVectorRecord([]byte{0x05})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalSearchResult([]byte{0x02, 0x01})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalConversation(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestDimensionRoundTrip(t *testing.T) {
	dim, err := UnmarshalDimension(MarshalDimension(1536))
	require.NoError(t, err)
	assert.Equal(t, 1536, dim)
}

func TestSearchResultRoundTrip(t *testing.T) {
	in := &core.CachedSearchResult{
		ImageResults: []core.SearchResultItem{{Content: "bar chart", Score: 0.8, Type: core.ItemTypeImage, Width: 640, Height: 480, ImageNumber: 1}},
		ImageMetrics: core.ModalityMetrics{Count: 1, AverageScore: 0.8, MaxScore: 0.8, MinScore: 0.8},
	}
	out, err := UnmarshalSearchResult(MarshalSearchResult(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFingerprintRoundTrip(t *testing.T) {
	in := &core.FingerprintRecord{
		Fingerprint:      "9f86d081884c7d65",
		JobID:            "job-1",
		OriginalFileName: "report.pdf",
		UploadedAt:       time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		FileSize:         1 << 20,
	}
	out, err := UnmarshalFingerprint(MarshalFingerprint(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = UnmarshalFingerprint([]byte{0xff})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
