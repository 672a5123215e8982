// Package qdrant implements search.Engine on a Qdrant vector store.
package qdrant

import (
	"context"
	"fmt"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cadenza-ai/cadenza/pkg/search"
)

// Engine stores documents as embedded points in a Qdrant collection and
// answers queries by vector similarity.
type Engine struct {
	points      pb.PointsClient
	collections pb.CollectionsClient
	embedder    search.Embedder
	collection  string
	vectorSize  uint64
}

// New connects to Qdrant and ensures the collection exists.
func New(addr, collection string, embedder search.Embedder, vectorSize uint64) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if collection == "" {
		collection = "cadenza"
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("did not connect: %w", err)
	}
	e := &Engine{
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		embedder:    embedder,
		collection:  collection,
		vectorSize:  vectorSize,
	}
	return e, nil
}

// EnsureCollection creates the collection if it does not exist yet.
func (e *Engine) EnsureCollection(ctx context.Context) error {
	exists, err := e.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: e.collection,
	})
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = e.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: e.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     e.vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Index embeds and upserts documents.
func (e *Engine) Index(ctx context.Context, docs ...search.Document) error {
	points := make([]*pb.PointStruct, 0, len(docs))
	for _, doc := range docs {
		vector, err := e.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		payload := map[string]*pb.Value{
			"path":    {Kind: &pb.Value_StringValue{StringValue: doc.Path}},
			"content": {Kind: &pb.Value_StringValue{StringValue: doc.Content}},
		}
		for k, v := range doc.Metadata {
			payload["meta_"+k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: doc.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vector},
				},
			},
			Payload: payload,
		})
	}

	_, err := e.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: e.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search embeds the query and returns the nearest documents.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if limit <= 0 {
		limit = 10
	}
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	resp, err := e.points.Search(ctx, &pb.SearchPoints{
		CollectionName: e.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]search.Result, 0, len(resp.Result))
	for _, r := range resp.Result {
		doc := search.Document{
			ID:       r.Id.GetUuid(),
			Metadata: map[string]string{},
		}
		for k, v := range r.Payload {
			str, ok := v.GetKind().(*pb.Value_StringValue)
			if !ok {
				continue
			}
			switch k {
			case "path":
				doc.Path = str.StringValue
			case "content":
				doc.Content = str.StringValue
			default:
				if name, found := strings.CutPrefix(k, "meta_"); found {
					doc.Metadata[name] = str.StringValue
				}
			}
		}
		results = append(results, search.Result{Document: doc, Score: float64(r.Score)})
	}
	return results, nil
}

// Count returns the number of points in the collection.
func (e *Engine) Count(ctx context.Context) (int, error) {
	resp, err := e.points.Count(ctx, &pb.CountPoints{CollectionName: e.collection})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}
