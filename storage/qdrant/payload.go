package qdrant

import (
	"github.com/poiesic/docrag/storage"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadText     = "text"
	payloadMetadata = "metadata"
	payloadSeq      = "seq"
)

func toPayload(e storage.Entry, seq int64) map[string]any {
	meta := make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		meta[k] = v
	}
	return map[string]any{
		payloadText:     e.Text,
		payloadMetadata: meta,
		payloadSeq:      seq,
	}
}

// toFilter matches any of the filter values on the nested metadata field.
func toFilter(f *storage.Filter) *qdrant.Filter {
	if f == nil || len(f.Values) == 0 {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchKeywords(payloadMetadata+"."+f.Field, f.Values...),
		},
	}
}

// pointSeq returns the insertion sequence stored with p, or zero for points
// written before sequences were recorded.
func pointSeq(p *qdrant.ScoredPoint) int64 {
	return p.GetPayload()[payloadSeq].GetIntegerValue()
}

func fromScoredPoint(p *qdrant.ScoredPoint) storage.Hit {
	hit := storage.Hit{
		ID:    p.GetId().GetUuid(),
		Score: p.GetScore(),
	}
	payload := p.GetPayload()
	if payload == nil {
		return hit
	}
	if v, ok := payload[payloadText]; ok {
		hit.Text = v.GetStringValue()
	}
	if v, ok := payload[payloadMetadata]; ok {
		fields := v.GetStructValue().GetFields()
		if len(fields) > 0 {
			hit.Metadata = make(map[string]string, len(fields))
			for k, fv := range fields {
				hit.Metadata[k] = fv.GetStringValue()
			}
		}
	}
	return hit
}
