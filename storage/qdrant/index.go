// Package qdrant implements storage.VectorIndex on a Qdrant server over gRPC.
package qdrant

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/docrag/storage"
	"github.com/qdrant/go-client/qdrant"
)

// Config holds connection parameters for a Qdrant server.
type Config struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// client is the subset of *qdrant.Client used by Index.
type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

// tieOverfetch widens each query so that points tied on score at the
// limit boundary are still ranked by insertion order.
const tieOverfetch = 2

// Index implements storage.VectorIndex with one Qdrant collection per
// index collection, using cosine distance. Every point carries an insertion
// sequence in its payload; equal scores are ordered by it, oldest first.
type Index struct {
	client  client
	ensured sync.Map // collection name -> dimension
	seq     atomic.Int64
	logger  *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// Open connects to a Qdrant server. The connection is established lazily;
// call Ping to verify reachability.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func Open(cfg Config) (storage.VectorIndex, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return newIndex(c), nil
}

func newIndex(c client) *Index {
	x := &Index{
		client: c,
		logger: slog.Default().With("component", "qdrant-index"),
	}
	// Seeded from the clock so sequences keep increasing across restarts.
	x.seq.Store(time.Now().UnixNano())
	return x
}

func (x *Index) Close() error {
	return x.client.Close()
}

func (x *Index) Ping(ctx context.Context) error {
	if _, err := x.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// EnsureCollection creates a cosine collection of the given dimension if it
// does not exist, and verifies the dimension if it does.
func (x *Index) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return storage.ErrInvalidDimension
	}
	if dim, ok := x.ensured.Load(collection); ok {
		return checkDimension(collection, dim.(int), dimension)
	}

	exists, err := x.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant collection exists %s: %w", collection, err)
	}

	if !exists {
		x.logger.Info("creating collection", "collection", collection, "dimension", dimension)
		err := x.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			// Another process may have created it concurrently.
			if again, existsErr := x.client.CollectionExists(ctx, collection); existsErr != nil || !again {
				return fmt.Errorf("qdrant create collection %s: %w", collection, err)
			}
		}
	}

	info, err := x.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant collection info %s: %w", collection, err)
	}
	existing := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if err := checkDimension(collection, existing, dimension); err != nil {
		return err
	}

	x.ensured.Store(collection, dimension)
	return nil
}

func (x *Index) Upsert(ctx context.Context, collection string, entries ...storage.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if dim, ok := x.ensured.Load(collection); ok {
		for _, e := range entries {
			if len(e.Vector) != dim.(int) {
				return fmt.Errorf("%w: entry %s has %d values, collection %q has dimension %d",
					storage.ErrDimensionMismatch, e.ID, len(e.Vector), collection, dim.(int))
			}
		}
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(toPayload(e, x.seq.Add(1))),
		}
	}

	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %s: %w", collection, err)
	}
	return nil
}

func (x *Index) Search(ctx context.Context, collection string, vector []float32, limit int, filter *storage.Filter) ([]storage.Hit, error) {
	if limit <= 0 {
		return []storage.Hit{}, nil
	}

	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit * tieOverfetch)),
		Filter:         toFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query %s: %w", collection, err)
	}

	slices.SortStableFunc(points, func(a, b *qdrant.ScoredPoint) int {
		if c := cmp.Compare(b.GetScore(), a.GetScore()); c != 0 {
			return c
		}
		return cmp.Compare(pointSeq(a), pointSeq(b))
	})
	if len(points) > limit {
		points = points[:limit]
	}

	hits := make([]storage.Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, fromScoredPoint(p))
	}
	return hits, nil
}

func (x *Index) Count(ctx context.Context, collection string) (int, error) {
	n, err := x.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count %s: %w", collection, err)
	}
	return int(n), nil
}

func checkDimension(collection string, existing, want int) error {
	if existing != want {
		return fmt.Errorf("%w: collection %q has dimension %d, want %d",
			storage.ErrDimensionMismatch, collection, existing, want)
	}
	return nil
}
