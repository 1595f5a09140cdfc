package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	// VectorSize is the embedding dimensionality the collection is
	// created with; it must match the embedding model's output.
	VectorSize = 768

	// DefaultUpsertBatchSize bounds the number of documents per upsert
	// request.
	DefaultUpsertBatchSize = 50

	// defaultReadyAttempts bounds the create-then-poll readiness wait.
	defaultReadyAttempts = 60
)

// ErrCollectionNotReady is returned when a freshly created collection
// does not report green status within the readiness bound.
var ErrCollectionNotReady = errors.New("collection did not become ready in time")

// Index is the similarity-search surface the pipeline depends on.
type Index interface {
	// Ensure creates the collection if it does not exist and waits,
	// bounded, for it to be ready.
	Ensure(ctx context.Context) error

	// Upsert adds documents in batches. Failed batches are reported,
	// not retried; earlier successful batches stay in place.
	Upsert(ctx context.Context, docs []Document) UpsertReport

	// Search runs a nearest-neighbor query.
	Search(ctx context.Context, vector []float32, limit uint64) ([]Hit, error)

	// FilteredSearch runs a nearest-neighbor query constrained by
	// metadata predicates.
	FilteredSearch(ctx context.Context, vector []float32, f Filter, limit uint64) ([]Hit, error)
}

// Filter is the structured metadata predicate set for a filtered search.
// Zero values mean "no constraint".
type Filter struct {
	Language   string
	CreatedBy  string
	Categories []string
	MinStars   int64
}

// Empty reports whether no predicate is set.
func (f Filter) Empty() bool {
	return f.Language == "" && f.CreatedBy == "" && len(f.Categories) == 0 && f.MinStars == 0
}

// BatchOutcome records the fate of one upsert batch.
type BatchOutcome struct {
	Start int
	Count int
	Err   error
}

// UpsertReport collects per-batch outcomes of an Upsert call, so callers
// can see (and, if they choose, retry) failed batches instead of
// scraping logs.
type UpsertReport struct {
	Batches []BatchOutcome
}

// Failed returns the outcomes of batches that errored.
func (r UpsertReport) Failed() []BatchOutcome {
	var failed []BatchOutcome
	for _, b := range r.Batches {
		if b.Err != nil {
			failed = append(failed, b)
		}
	}
	return failed
}

// Upserted returns the number of documents successfully written.
func (r UpsertReport) Upserted() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err == nil {
			n += b.Count
		}
	}
	return n
}

// collectionsAPI is the slice of qdrant's collections service this
// package uses; qdrantclient.CollectionsClient satisfies it.
type collectionsAPI interface {
	List(ctx context.Context, in *qdrantclient.ListCollectionsRequest, opts ...grpc.CallOption) (*qdrantclient.ListCollectionsResponse, error)
	Create(ctx context.Context, in *qdrantclient.CreateCollection, opts ...grpc.CallOption) (*qdrantclient.CollectionOperationResponse, error)
	Get(ctx context.Context, in *qdrantclient.GetCollectionInfoRequest, opts ...grpc.CallOption) (*qdrantclient.GetCollectionInfoResponse, error)
}

// pointsAPI is the slice of qdrant's points service this package uses;
// qdrantclient.PointsClient satisfies it.
type pointsAPI interface {
	Upsert(ctx context.Context, in *qdrantclient.UpsertPoints, opts ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error)
	Search(ctx context.Context, in *qdrantclient.SearchPoints, opts ...grpc.CallOption) (*qdrantclient.SearchResponse, error)
}

// QdrantIndex implements Index against a qdrant server over gRPC.
type QdrantIndex struct {
	collections collectionsAPI
	points      pointsAPI
	collection  string
	logger      *log.Logger

	batchSize     int
	readyAttempts int
	pollInterval  time.Duration
}

// Connect dials qdrant and returns an index bound to the named
// collection.
func Connect(addr, collection string, logger *log.Logger) (*QdrantIndex, *grpc.ClientConn, error) {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}

	return NewQdrantIndex(
		qdrantclient.NewCollectionsClient(conn),
		qdrantclient.NewPointsClient(conn),
		collection,
		logger,
	), conn, nil
}

// NewQdrantIndex builds an index from already constructed clients;
// tests inject fakes here.
func NewQdrantIndex(collections collectionsAPI, points pointsAPI, collection string, logger *log.Logger) *QdrantIndex {
	return &QdrantIndex{
		collections:   collections,
		points:        points,
		collection:    collection,
		logger:        logger,
		batchSize:     DefaultUpsertBatchSize,
		readyAttempts: defaultReadyAttempts,
		pollInterval:  time.Second,
	}
}

// Ensure creates the collection (768 dimensions, cosine distance) if it
// is absent and polls until qdrant reports it green. The poll is
// bounded: exhausting it yields ErrCollectionNotReady instead of
// hanging.
func (q *QdrantIndex) Ensure(ctx context.Context) error {
	collections, err := q.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, col := range collections.GetCollections() {
		if col.GetName() == q.collection {
			return nil
		}
	}

	q.logger.Info("creating collection", "name", q.collection, "size", VectorSize)

	_, err = q.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(VectorSize),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for attempt := 0; attempt < q.readyAttempts; attempt++ {
		info, err := q.collections.Get(ctx, &qdrantclient.GetCollectionInfoRequest{
			CollectionName: q.collection,
		})
		if err != nil {
			return fmt.Errorf("failed to check collection status: %w", err)
		}

		if info.GetResult().GetStatus() == qdrantclient.CollectionStatus_Green {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrCollectionNotReady, q.readyAttempts)
}

// Upsert writes documents in fixed-size batches. A failing batch is
// recorded and skipped; prior batches are not rolled back.
func (q *QdrantIndex) Upsert(ctx context.Context, docs []Document) UpsertReport {
	var report UpsertReport

	for start := 0; start < len(docs); start += q.batchSize {
		end := start + q.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		points := make([]*qdrantclient.PointStruct, 0, len(batch))
		for _, doc := range batch {
			points = append(points, pointFromDocument(doc))
		}

		_, err := q.points.Upsert(ctx, &qdrantclient.UpsertPoints{
			CollectionName: q.collection,
			Points:         points,
		})
		if err != nil {
			q.logger.Error("batch upsert failed", "start", start, "count", len(batch), "err", err)
		}

		report.Batches = append(report.Batches, BatchOutcome{
			Start: start,
			Count: len(batch),
			Err:   err,
		})
	}

	return report
}

// Search runs a plain nearest-neighbor query and returns hits with their
// full payloads.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, limit uint64) ([]Hit, error) {
	return q.search(ctx, vector, nil, limit)
}

// FilteredSearch runs a nearest-neighbor query with metadata predicates.
func (q *QdrantIndex) FilteredSearch(ctx context.Context, vector []float32, f Filter, limit uint64) ([]Hit, error) {
	return q.search(ctx, vector, buildFilter(f), limit)
}

func (q *QdrantIndex) search(ctx context.Context, vector []float32, filter *qdrantclient.Filter, limit uint64) ([]Hit, error) {
	resp, err := q.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          limit,
		Filter:         filter,
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	hits := make([]Hit, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		hits = append(hits, hitFromPayload(point.GetPayload(), point.GetScore()))
	}

	return hits, nil
}

// pointFromDocument converts a document to a qdrant point: the content
// under "text" plus the six metadata fields, stars numeric, categories
// a list value. The document's Vector must already be filled by the
// embedding step.
func pointFromDocument(doc Document) *qdrantclient.PointStruct {
	return &qdrantclient.PointStruct{
		Id: &qdrantclient.PointId{
			PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: doc.ID},
		},
		Vectors: &qdrantclient.Vectors{
			VectorsOptions: &qdrantclient.Vectors_Vector{
				Vector: &qdrantclient.Vector{Data: doc.Vector},
			},
		},
		Payload: payloadFromDocument(doc),
	}
}

func payloadFromDocument(doc Document) map[string]*qdrantclient.Value {
	categories := make([]*qdrantclient.Value, 0, len(doc.Metadata.Categories))
	for _, c := range doc.Metadata.Categories {
		categories = append(categories, stringValue(c))
	}

	return map[string]*qdrantclient.Value{
		"text":       stringValue(doc.Content),
		"title":      stringValue(doc.Metadata.Title),
		"link":       stringValue(doc.Metadata.Link),
		"created_by": stringValue(doc.Metadata.CreatedBy),
		"stars": {
			Kind: &qdrantclient.Value_IntegerValue{IntegerValue: doc.Metadata.Stars},
		},
		"categories": {
			Kind: &qdrantclient.Value_ListValue{
				ListValue: &qdrantclient.ListValue{Values: categories},
			},
		},
		"language":    stringValue(doc.Metadata.Language),
		"github_link": stringValue(doc.Metadata.GithubLink),
	}
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}

func hitFromPayload(payload map[string]*qdrantclient.Value, score float32) Hit {
	hit := Hit{Score: score}

	hit.Content = payload["text"].GetStringValue()
	hit.Metadata = Metadata{
		Title:      payload["title"].GetStringValue(),
		Link:       payload["link"].GetStringValue(),
		CreatedBy:  payload["created_by"].GetStringValue(),
		Stars:      payload["stars"].GetIntegerValue(),
		Language:   payload["language"].GetStringValue(),
		GithubLink: payload["github_link"].GetStringValue(),
	}

	categories := payload["categories"].GetListValue().GetValues()
	hit.Metadata.Categories = make([]string, 0, len(categories))
	for _, c := range categories {
		hit.Metadata.Categories = append(hit.Metadata.Categories, c.GetStringValue())
	}

	return hit
}

// buildFilter translates the structured predicates into qdrant match and
// range conditions.
func buildFilter(f Filter) *qdrantclient.Filter {
	if f.Empty() {
		return nil
	}

	var must []*qdrantclient.Condition

	if f.Language != "" {
		must = append(must, keywordCondition("language", f.Language))
	}
	if f.CreatedBy != "" {
		must = append(must, keywordCondition("created_by", f.CreatedBy))
	}
	if len(f.Categories) > 0 {
		must = append(must, &qdrantclient.Condition{
			ConditionOneOf: &qdrantclient.Condition_Field{
				Field: &qdrantclient.FieldCondition{
					Key: "categories",
					Match: &qdrantclient.Match{
						MatchValue: &qdrantclient.Match_Keywords{
							Keywords: &qdrantclient.RepeatedStrings{Strings: f.Categories},
						},
					},
				},
			},
		})
	}
	if f.MinStars > 0 {
		gte := float64(f.MinStars)
		must = append(must, &qdrantclient.Condition{
			ConditionOneOf: &qdrantclient.Condition_Field{
				Field: &qdrantclient.FieldCondition{
					Key:   "stars",
					Range: &qdrantclient.Range{Gte: &gte},
				},
			},
		})
	}

	return &qdrantclient.Filter{Must: must}
}

func keywordCondition(key, value string) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key: key,
				Match: &qdrantclient.Match{
					MatchValue: &qdrantclient.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
