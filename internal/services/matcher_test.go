package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/repositories"
)

type mockVectorRepository struct {
	mock.Mock
}

func (m *mockVectorRepository) UpsertJobVector(ctx context.Context, jobID uuid.UUID, embedding []float32) error {
	return m.Called(ctx, jobID, embedding).Error(0)
}

func (m *mockVectorRepository) DeleteJobVector(ctx context.Context, jobID uuid.UUID) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *mockVectorRepository) UpsertResumeVector(ctx context.Context, resumeID uuid.UUID, embedding []float32) error {
	return m.Called(ctx, resumeID, embedding).Error(0)
}

func (m *mockVectorRepository) MatchJobs(ctx context.Context, embedding []float32, threshold float64, count int) ([]repositories.JobMatchRow, error) {
	args := m.Called(ctx, embedding, threshold, count)
	rows, _ := args.Get(0).([]repositories.JobMatchRow)
	return rows, args.Error(1)
}

func (m *mockVectorRepository) MatchCandidates(ctx context.Context, embedding []float32, threshold float64, count int) ([]repositories.CandidateMatchRow, error) {
	args := m.Called(ctx, embedding, threshold, count)
	rows, _ := args.Get(0).([]repositories.CandidateMatchRow)
	return rows, args.Error(1)
}

func jobRow(title string, similarity float64) repositories.JobMatchRow {
	return repositories.JobMatchRow{
		JobDescription: models.JobDescription{ID: uuid.New(), Title: title},
		Similarity:     similarity,
	}
}

func TestPgvectorMatchJobsKeepsStoreOrder(t *testing.T) {
	repo := new(mockVectorRepository)
	vec := []float32{0.1, 0.2}
	repo.On("MatchJobs", mock.Anything, vec, 0.2, 10).Return([]repositories.JobMatchRow{
		jobRow("a", 0.9), jobRow("b", 0.5), jobRow("c", 0.5),
	}, nil)

	results, err := NewPgvectorStore(repo).MatchJobs(context.Background(), vec, DefaultMatchOptions())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Job.Title)
	assert.Equal(t, "b", results[1].Job.Title)
	assert.Equal(t, "c", results[2].Job.Title)
	repo.AssertExpectations(t)
}

func TestPgvectorMatchJobsReenforcesBounds(t *testing.T) {
	repo := new(mockVectorRepository)
	repo.On("MatchJobs", mock.Anything, mock.Anything, 0.3, 2).Return([]repositories.JobMatchRow{
		jobRow("a", 0.8), jobRow("low", 0.1), jobRow("b", 0.6), jobRow("c", 0.4),
	}, nil)

	results, err := NewPgvectorStore(repo).MatchJobs(context.Background(), []float32{1}, MatchOptions{Threshold: 0.3, Count: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.3)
	}
	assert.Equal(t, "b", results[1].Job.Title)
}

func TestPgvectorMatchEmptyIsNotAnError(t *testing.T) {
	repo := new(mockVectorRepository)
	repo.On("MatchCandidates", mock.Anything, mock.Anything, 0.2, 10).Return([]repositories.CandidateMatchRow{}, nil)

	results, err := NewPgvectorStore(repo).MatchCandidates(context.Background(), []float32{1}, MatchOptions{Threshold: 0.2})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPgvectorErrorsSurfaceAsUnavailable(t *testing.T) {
	repo := new(mockVectorRepository)
	repo.On("MatchJobs", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	repo.On("UpsertJobVector", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout"))

	store := NewPgvectorStore(repo)
	_, err := store.MatchJobs(context.Background(), []float32{1}, DefaultMatchOptions())
	assert.ErrorIs(t, err, ErrMatchServiceUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	err = store.UpsertJobVector(context.Background(), &models.JobDescription{ID: uuid.New()}, []float32{1})
	assert.ErrorIs(t, err, ErrMatchServiceUnavailable)
}

func TestPgvectorCandidateRows(t *testing.T) {
	repo := new(mockVectorRepository)
	id := uuid.New()
	repo.On("MatchCandidates", mock.Anything, mock.Anything, 0.2, 10).Return([]repositories.CandidateMatchRow{
		{Resume: models.Resume{ID: id, Name: "kim.pdf", Text: "Go"}, Similarity: 0.7},
	}, nil)

	results, err := NewPgvectorStore(repo).MatchCandidates(context.Background(), []float32{1}, DefaultMatchOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchKindCandidate, results[0].Kind())
	assert.Equal(t, id, results[0].ID())
}

func TestJobFromPoint(t *testing.T) {
	id := uuid.New()
	job := &models.JobDescription{ID: id, Title: "Analyst", Company: "Acme", Domain: "Data", Salary: 5000}
	point := &qdrant.ScoredPoint{
		Id:      qdrant.NewID(id.String()),
		Payload: qdrant.NewValueMap(jobPayload(job)),
		Score:   0.61,
	}

	got, err := jobFromPoint(point)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Analyst", got.Title)
	assert.Equal(t, "Data", got.Domain)
	assert.Equal(t, 5000.0, got.Salary)
}

func TestPointsWithUnknownShapeAreRejected(t *testing.T) {
	noTitle := &qdrant.ScoredPoint{
		Id:      qdrant.NewID(uuid.NewString()),
		Payload: qdrant.NewValueMap(map[string]any{"company": "Acme"}),
	}
	_, err := jobFromPoint(noTitle)
	assert.ErrorIs(t, err, ErrMatchServiceUnavailable)

	numericID := &qdrant.ScoredPoint{
		Id:      qdrant.NewIDNum(7),
		Payload: qdrant.NewValueMap(map[string]any{"text": "Go", "name": "x"}),
	}
	_, err = candidateFromPoint(numericID)
	assert.ErrorIs(t, err, ErrMatchServiceUnavailable)
}

func TestCandidateFromPoint(t *testing.T) {
	id := uuid.New()
	got, err := candidateFromPoint(&qdrant.ScoredPoint{
		Id:      qdrant.NewID(id.String()),
		Payload: qdrant.NewValueMap(map[string]any{"name": "lee.pdf", "text": "Kubernetes"}),
	})
	require.NoError(t, err)
	assert.Equal(t, &models.Resume{ID: id, Name: "lee.pdf", Text: "Kubernetes"}, got)
}
