// Package qdrant provides a driven.VectorIndex backed by a Qdrant server
// over gRPC. It is an optional backend for corpora that outgrow memory.
package qdrant

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/docmind/internal/adapters/driven/vector"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// pointNamespace seeds the UUIDv5 point IDs derived from chunk IDs.
var pointNamespace = uuid.MustParse("6f1c8e0a-3d4b-5a7e-9c2f-0b8d4e6a1f35")

// searchSlack is how many extra hits are fetched so ties at the cut-off
// can be ordered by chunk ID locally.
const searchSlack = 16

const (
	payloadChunkID    = "chunk_id"
	payloadDocID      = "doc_id"
	payloadGeneration = "generation"
)

// Index stores chunk vectors as Qdrant points with cosine distance.
//
// ReplaceDocument upserts the new points before deleting stale ones, so a
// concurrent reader may briefly see the union of both generations but
// never an empty document.
type Index struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string

	mu         sync.Mutex
	dimensions int
	ready      bool
}

// New connects to Qdrant at addr (host:grpc-port).
func New(addr, collection string, dimensions int) (*Index, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", addr, err)
	}
	return &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimensions:  dimensions,
	}, nil
}

// Close closes the underlying gRPC connection.
func (x *Index) Close() error {
	return x.conn.Close()
}

// ensure fixes the dimension on first write and prepares the collection.
// The corpus lives only as long as the process, so an existing collection
// must have the same vector size and is emptied of earlier runs' points.
// Until then Search and Len report an empty index.
func (x *Index) ensure(ctx context.Context, dims int) error {
	if dims == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimensions != 0 && x.dimensions != dims {
		return &domain.DimensionMismatchError{Want: x.dimensions, Got: dims}
	}
	if x.ready {
		return nil
	}

	exists, err := x.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		err = x.adopt(ctx, dims)
	} else {
		err = x.create(ctx, dims)
	}
	if err != nil {
		return err
	}
	x.dimensions = dims
	x.ready = true
	return nil
}

func (x *Index) collectionExists(ctx context.Context) (bool, error) {
	list, err := x.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == x.collection {
			return true, nil
		}
	}
	return false, nil
}

// adopt checks the vector size of an existing collection and drops every
// point in it.
func (x *Index) adopt(ctx context.Context, dims int) error {
	info, err := x.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: x.collection})
	if err != nil {
		return fmt.Errorf("qdrant: get collection %s: %w", x.collection, err)
	}
	size := int(info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if size != dims {
		return fmt.Errorf("qdrant: collection %s: %w", x.collection,
			&domain.DimensionMismatchError{Want: size, Got: dims})
	}
	return x.deleteWhere(ctx, &pb.Filter{})
}

func (x *Index) create(ctx context.Context, dims int) error {
	_, err := x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", x.collection, err)
	}
	return nil
}

func (x *Index) state() (dims int, ready bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.dimensions, x.ready
}

// Add inserts or replaces the vector for a chunk.
func (x *Index) Add(ctx context.Context, chunkID, docID string, vec []float32) error {
	if err := x.ensure(ctx, len(vec)); err != nil {
		return err
	}
	return x.upsert(ctx, docID, []driven.VectorEntry{{ChunkID: chunkID, Vector: vec}})
}

// ReplaceDocument swaps the vectors of docID.
func (x *Index) ReplaceDocument(ctx context.Context, docID string, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return x.DeleteDocument(ctx, docID)
	}
	for _, e := range entries {
		if len(e.Vector) != len(entries[0].Vector) {
			return fmt.Errorf("chunk %s: %w", e.ChunkID,
				&domain.DimensionMismatchError{Want: len(entries[0].Vector), Got: len(e.Vector)})
		}
	}
	if err := x.ensure(ctx, len(entries[0].Vector)); err != nil {
		return err
	}
	if err := x.upsert(ctx, docID, entries); err != nil {
		return err
	}

	keep := make([]*pb.PointId, len(entries))
	for i, e := range entries {
		keep[i] = PointID(e.ChunkID)
	}
	return x.deleteWhere(ctx, &pb.Filter{
		Must:    []*pb.Condition{fieldMatch(payloadDocID, docID)},
		MustNot: []*pb.Condition{hasID(keep)},
	})
}

// DeleteDocument removes every vector of docID.
func (x *Index) DeleteDocument(ctx context.Context, docID string) error {
	if _, ready := x.state(); !ready {
		return nil
	}
	return x.deleteWhere(ctx, &pb.Filter{
		Must: []*pb.Condition{fieldMatch(payloadDocID, docID)},
	})
}

// Search returns the top topK hits ordered by score, then chunk ID.
func (x *Index) Search(ctx context.Context, query []float32, topK int, docFilter string) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	dims, ready := x.state()
	if dims != 0 && len(query) != dims {
		return nil, &domain.DimensionMismatchError{Want: dims, Got: len(query)}
	}
	if !ready {
		return []driven.VectorHit{}, nil
	}

	req := &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         query,
		Limit:          uint64(topK + searchSlack),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if docFilter != "" {
		req.Filter = &pb.Filter{Must: []*pb.Condition{fieldMatch(payloadDocID, docFilter)}}
	}

	resp, err := x.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	hits := hitsFromScored(resp.GetResult())
	vector.SortHits(hits)
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Len counts vectors, optionally for one document.
func (x *Index) Len(ctx context.Context, docFilter string) (int, error) {
	if _, ready := x.state(); !ready {
		return 0, nil
	}
	exact := true
	req := &pb.CountPoints{CollectionName: x.collection, Exact: &exact}
	if docFilter != "" {
		req.Filter = &pb.Filter{Must: []*pb.Condition{fieldMatch(payloadDocID, docFilter)}}
	}
	resp, err := x.points.Count(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (x *Index) upsert(ctx context.Context, docID string, entries []driven.VectorEntry) error {
	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = pointFor(docID, e)
	}
	wait := true
	_, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	return nil
}

func (x *Index) deleteWhere(ctx context.Context, filter *pb.Filter) error {
	wait := true
	_, err := x.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete: %w", err)
	}
	return nil
}

// PointID derives the Qdrant point ID for a chunk.
func PointID(chunkID string) *pb.PointId {
	return &pb.PointId{
		PointIdOptions: &pb.PointId_Uuid{Uuid: uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()},
	}
}

func pointFor(docID string, e driven.VectorEntry) *pb.PointStruct {
	return &pb.PointStruct{
		Id: PointID(e.ChunkID),
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: e.Vector},
			},
		},
		Payload: map[string]*pb.Value{
			payloadChunkID:    {Kind: &pb.Value_StringValue{StringValue: e.ChunkID}},
			payloadDocID:      {Kind: &pb.Value_StringValue{StringValue: docID}},
			payloadGeneration: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(e.Generation)}},
		},
	}
}

func hitsFromScored(points []*pb.ScoredPoint) []driven.VectorHit {
	hits := make([]driven.VectorHit, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		hits = append(hits, driven.VectorHit{
			ChunkID:    payload[payloadChunkID].GetStringValue(),
			DocumentID: payload[payloadDocID].GetStringValue(),
			Generation: uint64(payload[payloadGeneration].GetIntegerValue()),
			Score:      float64(p.GetScore()),
		})
	}
	return hits
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func hasID(ids []*pb.PointId) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_HasId{
			HasId: &pb.HasIdCondition{HasId: ids},
		},
	}
}
