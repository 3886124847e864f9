package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/jobsync/internal/models"
)

// JobMatchRow is one row returned by match_filtered_job_descriptions.
type JobMatchRow struct {
	models.JobDescription
	Similarity float64
}

// CandidateMatchRow is one row returned by match_candidates.
type CandidateMatchRow struct {
	models.Resume
	Similarity float64
}

type VectorRepository interface {
	UpsertJobVector(ctx context.Context, jobID uuid.UUID, embedding []float32) error
	DeleteJobVector(ctx context.Context, jobID uuid.UUID) error
	UpsertResumeVector(ctx context.Context, resumeID uuid.UUID, embedding []float32) error
	MatchJobs(ctx context.Context, embedding []float32, threshold float64, count int) ([]JobMatchRow, error)
	MatchCandidates(ctx context.Context, embedding []float32, threshold float64, count int) ([]CandidateMatchRow, error)
}

type vectorRepository struct {
	db *gorm.DB
}

func NewVectorRepository(db *gorm.DB) VectorRepository {
	return &vectorRepository{db: db}
}

// UpsertJobVector implements VectorRepository.
func (r *vectorRepository) UpsertJobVector(ctx context.Context, jobID uuid.UUID, embedding []float32) error {
	row := models.JobVector{JobID: jobID, Embedding: pgvector.NewVector(embedding)}
	err := r.db.WithContext(ctx).
		Omit("Job").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert job vector: %w", err)
	}
	return nil
}

// DeleteJobVector implements VectorRepository.
func (r *vectorRepository) DeleteJobVector(ctx context.Context, jobID uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&models.JobVector{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete job vector: %w", err)
	}
	return nil
}

// UpsertResumeVector implements VectorRepository.
func (r *vectorRepository) UpsertResumeVector(ctx context.Context, resumeID uuid.UUID, embedding []float32) error {
	row := models.ResumeVector{ResumeID: resumeID, Embedding: pgvector.NewVector(embedding)}
	err := r.db.WithContext(ctx).
		Omit("Resume").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resume_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert resume vector: %w", err)
	}
	return nil
}

// MatchJobs implements VectorRepository by calling the
// match_filtered_job_descriptions function.
func (r *vectorRepository) MatchJobs(ctx context.Context, embedding []float32, threshold float64, count int) ([]JobMatchRow, error) {
	var rows []JobMatchRow
	err := r.db.WithContext(ctx).
		Raw("SELECT * FROM match_filtered_job_descriptions(?::vector, ?::double precision, ?::integer)",
			pgvector.NewVector(embedding), threshold, count).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("match_filtered_job_descriptions: %w", err)
	}
	return rows, nil
}

// MatchCandidates implements VectorRepository by calling match_candidates.
func (r *vectorRepository) MatchCandidates(ctx context.Context, embedding []float32, threshold float64, count int) ([]CandidateMatchRow, error) {
	var rows []CandidateMatchRow
	err := r.db.WithContext(ctx).
		Raw("SELECT * FROM match_candidates(?::vector, ?::double precision, ?::integer)",
			pgvector.NewVector(embedding), threshold, count).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("match_candidates: %w", err)
	}
	return rows, nil
}
