package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/repositories"
)

const (
	DefaultMatchThreshold = 0.2
	DefaultMatchCount     = 10
)

type MatchOptions struct {
	Threshold float64
	Count     int
}

func DefaultMatchOptions() MatchOptions {
	return MatchOptions{Threshold: DefaultMatchThreshold, Count: DefaultMatchCount}
}

// VectorStore indexes job and candidate embeddings and answers nearest
// neighbour queries over them. Match results are ordered by descending
// similarity as the backend returns them.
type VectorStore interface {
	UpsertJobVector(ctx context.Context, job *models.JobDescription, embedding []float32) error
	DeleteJobVector(ctx context.Context, jobID uuid.UUID) error
	UpsertCandidateVector(ctx context.Context, resume *models.Resume, embedding []float32) error
	MatchJobs(ctx context.Context, embedding []float32, opts MatchOptions) ([]models.MatchResult, error)
	MatchCandidates(ctx context.Context, embedding []float32, opts MatchOptions) ([]models.MatchResult, error)
}

type pgvectorStore struct {
	repo repositories.VectorRepository
}

// NewPgvectorStore serves matches from the Postgres match functions.
func NewPgvectorStore(repo repositories.VectorRepository) VectorStore {
	return &pgvectorStore{repo: repo}
}

// UpsertJobVector implements VectorStore.
func (s *pgvectorStore) UpsertJobVector(ctx context.Context, job *models.JobDescription, embedding []float32) error {
	if err := s.repo.UpsertJobVector(ctx, job.ID, embedding); err != nil {
		return fmt.Errorf("%w: %v", ErrMatchServiceUnavailable, err)
	}
	return nil
}

// DeleteJobVector implements VectorStore.
func (s *pgvectorStore) DeleteJobVector(ctx context.Context, jobID uuid.UUID) error {
	if err := s.repo.DeleteJobVector(ctx, jobID); err != nil {
		return fmt.Errorf("%w: %v", ErrMatchServiceUnavailable, err)
	}
	return nil
}

// UpsertCandidateVector implements VectorStore.
func (s *pgvectorStore) UpsertCandidateVector(ctx context.Context, resume *models.Resume, embedding []float32) error {
	if err := s.repo.UpsertResumeVector(ctx, resume.ID, embedding); err != nil {
		return fmt.Errorf("%w: %v", ErrMatchServiceUnavailable, err)
	}
	return nil
}

// MatchJobs implements VectorStore.
func (s *pgvectorStore) MatchJobs(ctx context.Context, embedding []float32, opts MatchOptions) ([]models.MatchResult, error) {
	opts = normalizeMatchOptions(opts)
	rows, err := s.repo.MatchJobs(ctx, embedding, opts.Threshold, opts.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatchServiceUnavailable, err)
	}

	results := make([]models.MatchResult, 0, len(rows))
	for i := range rows {
		job := rows[i].JobDescription
		results = append(results, models.MatchResult{Job: &job, Similarity: rows[i].Similarity})
	}
	return enforceMatchBounds(results, opts), nil
}

// MatchCandidates implements VectorStore.
func (s *pgvectorStore) MatchCandidates(ctx context.Context, embedding []float32, opts MatchOptions) ([]models.MatchResult, error) {
	opts = normalizeMatchOptions(opts)
	rows, err := s.repo.MatchCandidates(ctx, embedding, opts.Threshold, opts.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatchServiceUnavailable, err)
	}

	results := make([]models.MatchResult, 0, len(rows))
	for i := range rows {
		resume := rows[i].Resume
		results = append(results, models.MatchResult{Candidate: &resume, Similarity: rows[i].Similarity})
	}
	return enforceMatchBounds(results, opts), nil
}

func normalizeMatchOptions(opts MatchOptions) MatchOptions {
	if opts.Count <= 0 {
		opts.Count = DefaultMatchCount
	}
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	return opts
}

// enforceMatchBounds drops rows under the threshold and caps the count,
// keeping the store's order.
func enforceMatchBounds(results []models.MatchResult, opts MatchOptions) []models.MatchResult {
	kept := results[:0]
	for _, r := range results {
		if r.Similarity < opts.Threshold {
			continue
		}
		kept = append(kept, r)
		if len(kept) == opts.Count {
			break
		}
	}
	return kept
}
