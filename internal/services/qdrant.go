package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/models"
)

type qdrantStore struct {
	client               *qdrant.Client
	jobsCollection       string
	candidatesCollection string
	vectorSize           uint64
	log                  *zap.Logger
}

// NewQdrantStore connects to Qdrant over gRPC. urlStr may be an http(s) URL;
// the port defaults to 6334.
func NewQdrantStore(urlStr, apiKey, jobsCollection, candidatesCollection string, dimension int, log *zap.Logger) (VectorStore, func() error, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &qdrantStore{
		client:               client,
		jobsCollection:       jobsCollection,
		candidatesCollection: candidatesCollection,
		vectorSize:           uint64(dimension),
		log:                  log,
	}

	if err := store.initCollections(context.Background()); err != nil {
		client.Close()
		return nil, nil, err
	}

	return store, client.Close, nil
}

func (q *qdrantStore) initCollections(ctx context.Context) error {
	for _, name := range []string{q.jobsCollection, q.candidatesCollection} {
		exists, err := q.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check collection %s: %w", name, err)
		}
		if exists {
			q.log.Info("✅ Qdrant collection already exists", zap.String("collection", name))
			continue
		}

		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		q.log.Info("✅ Qdrant collection created", zap.String("collection", name))
	}
	return nil
}

// UpsertJobVector implements VectorStore. The point id is the job id.
func (q *qdrantStore) UpsertJobVector(ctx context.Context, job *models.JobDescription, embedding []float32) error {
	return q.upsert(ctx, q.jobsCollection, job.ID, embedding, jobPayload(job))
}

// UpsertCandidateVector implements VectorStore.
func (q *qdrantStore) UpsertCandidateVector(ctx context.Context, resume *models.Resume, embedding []float32) error {
	return q.upsert(ctx, q.candidatesCollection, resume.ID, embedding, map[string]any{
		"name": resume.Name,
		"text": resume.Text,
	})
}

func (q *qdrantStore) upsert(ctx context.Context, collection string, id uuid.UUID, embedding []float32, payload map[string]any) error {
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id.String()),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upsert point: %v", ErrMatchServiceUnavailable, err)
	}
	return nil
}

// DeleteJobVector implements VectorStore.
func (q *qdrantStore) DeleteJobVector(ctx context.Context, jobID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.jobsCollection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(jobID.String())),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete point: %v", ErrMatchServiceUnavailable, err)
	}
	return nil
}

// MatchJobs implements VectorStore.
func (q *qdrantStore) MatchJobs(ctx context.Context, embedding []float32, opts MatchOptions) ([]models.MatchResult, error) {
	points, opts, err := q.query(ctx, q.jobsCollection, embedding, opts)
	if err != nil {
		return nil, err
	}

	results := make([]models.MatchResult, 0, len(points))
	for _, p := range points {
		job, err := jobFromPoint(p)
		if err != nil {
			return nil, err
		}
		results = append(results, models.MatchResult{Job: job, Similarity: float64(p.GetScore())})
	}
	return enforceMatchBounds(results, opts), nil
}

// MatchCandidates implements VectorStore.
func (q *qdrantStore) MatchCandidates(ctx context.Context, embedding []float32, opts MatchOptions) ([]models.MatchResult, error) {
	points, opts, err := q.query(ctx, q.candidatesCollection, embedding, opts)
	if err != nil {
		return nil, err
	}

	results := make([]models.MatchResult, 0, len(points))
	for _, p := range points {
		resume, err := candidateFromPoint(p)
		if err != nil {
			return nil, err
		}
		results = append(results, models.MatchResult{Candidate: resume, Similarity: float64(p.GetScore())})
	}
	return enforceMatchBounds(results, opts), nil
}

func (q *qdrantStore) query(ctx context.Context, collection string, embedding []float32, opts MatchOptions) ([]*qdrant.ScoredPoint, MatchOptions, error) {
	opts = normalizeMatchOptions(opts)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		ScoreThreshold: qdrant.PtrOf(float32(opts.Threshold)),
		Limit:          qdrant.PtrOf(uint64(opts.Count)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, opts, fmt.Errorf("%w: failed to search %s: %v", ErrMatchServiceUnavailable, collection, err)
	}
	return points, opts, nil
}

func jobPayload(job *models.JobDescription) map[string]any {
	return map[string]any{
		"title":            job.Title,
		"company":          job.Company,
		"domain":           job.Domain,
		"description":      job.Description,
		"requirements":     job.Requirements,
		"location":         job.Location,
		"salary":           job.Salary,
		"contact_info":     job.ContactInfo,
		"application_link": job.ApplicationLink,
	}
}

func pointUUID(p *qdrant.ScoredPoint) (uuid.UUID, error) {
	id, err := uuid.Parse(p.GetId().GetUuid())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: point without uuid id", ErrMatchServiceUnavailable)
	}
	return id, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.GetKind().(*qdrant.Value_StringValue)
	if !ok {
		return "", false
	}
	return s.StringValue, true
}

func jobFromPoint(p *qdrant.ScoredPoint) (*models.JobDescription, error) {
	id, err := pointUUID(p)
	if err != nil {
		return nil, err
	}

	payload := p.GetPayload()
	title, ok := payloadString(payload, "title")
	if !ok {
		return nil, fmt.Errorf("%w: job point %s has no title", ErrMatchServiceUnavailable, id)
	}

	job := &models.JobDescription{ID: id, Title: title}
	job.Company, _ = payloadString(payload, "company")
	job.Domain, _ = payloadString(payload, "domain")
	job.Description, _ = payloadString(payload, "description")
	job.Requirements, _ = payloadString(payload, "requirements")
	job.Location, _ = payloadString(payload, "location")
	job.ContactInfo, _ = payloadString(payload, "contact_info")
	job.ApplicationLink, _ = payloadString(payload, "application_link")

	if salary, ok := payload["salary"]; ok {
		switch kind := salary.GetKind().(type) {
		case *qdrant.Value_DoubleValue:
			job.Salary = kind.DoubleValue
		case *qdrant.Value_IntegerValue:
			job.Salary = float64(kind.IntegerValue)
		}
	}

	return job, nil
}

func candidateFromPoint(p *qdrant.ScoredPoint) (*models.Resume, error) {
	id, err := pointUUID(p)
	if err != nil {
		return nil, err
	}

	payload := p.GetPayload()
	text, ok := payloadString(payload, "text")
	if !ok {
		return nil, fmt.Errorf("%w: candidate point %s has no text", ErrMatchServiceUnavailable, id)
	}
	name, _ := payloadString(payload, "name")

	return &models.Resume{ID: id, Name: name, Text: text}, nil
}
