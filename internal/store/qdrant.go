package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const (
	defaultQdrantPort       = 6334
	defaultQdrantCollection = "documents"
	payloadUserID           = "user_id"
	payloadText             = "text"
	payloadCtime            = "ctime"
)

type qdrantStore struct {
	client     *qdrant.Client
	collection string

	mu      sync.Mutex
	ensured bool
}

func init() {
	Register("qdrant", createQdrantStore)
}

func createQdrantStore(_ context.Context, cfg config.StoreConfig, _ Options) (Store, error) {
	qc := cfg.Qdrant
	if strings.TrimSpace(qc.Host) == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	port := qc.Port
	if port == 0 {
		port = defaultQdrantPort
	}
	collection := qc.Collection
	if collection == "" {
		collection = defaultQdrantCollection
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   qc.Host,
		Port:   port,
		APIKey: qc.APIKey,
		UseTLS: qc.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client for %s:%d: %w", qc.Host, port, err)
	}
	return &qdrantStore{client: client, collection: collection}, nil
}

// ensureCollection creates the collection on first write, sized to the
// first vector seen.
func (s *qdrantStore) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return err
		}
	}
	s.ensured = true
	return nil
}

func (s *qdrantStore) Insert(ctx context.Context, userID string, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return appErr.Upstream("qdrant", err)
	}
	now := time.Now().Unix()
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: map[string]*qdrant.Value{
				payloadUserID: qdrant.NewValueString(userID),
				payloadText:   qdrant.NewValueString(c.Text),
				payloadCtime:  qdrant.NewValueInt(now),
			},
		})
	}
	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return appErr.Upstream("qdrant", err)
	}
	return nil
}

func (s *qdrantStore) Match(ctx context.Context, userID string, embedding []float32, count int) ([]model.Match, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, appErr.Upstream("qdrant", err)
	}
	if !exists {
		return nil, nil
	}
	res, err := s.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(count),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         userFilter(userID),
	})
	if err != nil {
		return nil, appErr.Upstream("qdrant", err)
	}
	out := make([]model.Match, 0, len(res.GetResult()))
	for _, point := range res.GetResult() {
		out = append(out, model.Match{
			Text:       point.GetPayload()[payloadText].GetStringValue(),
			Similarity: float64(point.GetScore()),
		})
	}
	return out, nil
}

func (s *qdrantStore) Close() error {
	return s.client.Close()
}

func userFilter(userID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: payloadUserID,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: userID},
						},
					},
				},
			},
		},
	}
}
