package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/repositories"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, filename, _ string) (*ExtractedText, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ExtractedText{Source: filename, Text: f.text, Pages: 1}, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

// fixedEmbedder returns a model-sized vector seeded by the text length.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, models.EmbeddingDimension)
	vec[0] = float32(len(text))
	return vec, nil
}

func (fixedEmbedder) Dimension() int { return models.EmbeddingDimension }

type memoryStore struct {
	jobs        map[uuid.UUID][]float32
	candidates  map[uuid.UUID][]float32
	jobMatches  []models.MatchResult
	candMatches []models.MatchResult
	upsertErr   error
	matchErr    error
	lastOpts    MatchOptions
	lastQuery   []float32
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: map[uuid.UUID][]float32{}, candidates: map[uuid.UUID][]float32{}}
}

func (m *memoryStore) UpsertJobVector(_ context.Context, job *models.JobDescription, vec []float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.jobs[job.ID] = vec
	return nil
}

func (m *memoryStore) DeleteJobVector(_ context.Context, id uuid.UUID) error {
	delete(m.jobs, id)
	return nil
}

func (m *memoryStore) UpsertCandidateVector(_ context.Context, resume *models.Resume, vec []float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.candidates[resume.ID] = vec
	return nil
}

func (m *memoryStore) MatchJobs(_ context.Context, vec []float32, opts MatchOptions) ([]models.MatchResult, error) {
	m.lastOpts, m.lastQuery = opts, vec
	return m.jobMatches, m.matchErr
}

func (m *memoryStore) MatchCandidates(_ context.Context, _ []float32, opts MatchOptions) ([]models.MatchResult, error) {
	m.lastOpts = opts
	return m.candMatches, m.matchErr
}

type recordingAnalyzer struct {
	mode    AnalysisMode
	source  string
	matches []models.MatchResult
}

func (r *recordingAnalyzer) Analyze(_ context.Context, mode AnalysisMode, source string, matches []models.MatchResult) *AnalysisReport {
	r.mode, r.source, r.matches = mode, source, matches
	return &AnalysisReport{
		Content:  fmt.Sprintf("analysis of %d matches", len(matches)),
		Model:    "test-model",
		State:    StateSucceeded,
		Attempts: []AttemptRecord{{Model: "test-model", Attempt: 1}},
	}
}

type memoryJobRepo struct {
	jobs      map[uuid.UUID]models.JobDescription
	createErr error
}

func newMemoryJobRepo() *memoryJobRepo {
	return &memoryJobRepo{jobs: map[uuid.UUID]models.JobDescription{}}
}

func (r *memoryJobRepo) Create(job *models.JobDescription) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepo) FindByID(id uuid.UUID) (*models.JobDescription, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, repositories.ErrNotFound)
	}
	return &job, nil
}

func (r *memoryJobRepo) FindByDomain(domain string) ([]models.JobDescription, error) {
	var out []models.JobDescription
	for _, j := range r.jobs {
		if strings.EqualFold(j.Domain, domain) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *memoryJobRepo) ListDomains() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, j := range r.jobs {
		if !seen[j.Domain] {
			seen[j.Domain] = true
			out = append(out, j.Domain)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memoryJobRepo) Delete(id uuid.UUID) error {
	if _, ok := r.jobs[id]; !ok {
		return fmt.Errorf("job %s: %w", id, repositories.ErrNotFound)
	}
	delete(r.jobs, id)
	return nil
}

type memoryResumeRepo struct {
	resumes   map[uuid.UUID]models.Resume
	createErr error
}

func newMemoryResumeRepo() *memoryResumeRepo {
	return &memoryResumeRepo{resumes: map[uuid.UUID]models.Resume{}}
}

func (r *memoryResumeRepo) Create(resume *models.Resume) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.resumes[resume.ID] = *resume
	return nil
}

func (r *memoryResumeRepo) FindByID(id uuid.UUID) (*models.Resume, error) {
	resume, ok := r.resumes[id]
	if !ok {
		return nil, fmt.Errorf("resume %s: %w", id, repositories.ErrNotFound)
	}
	return &resume, nil
}

type matchingFixture struct {
	extractor *fakeExtractor
	embedder  *fakeEmbedder
	store     *memoryStore
	analyzer  *recordingAnalyzer
	jobs      *memoryJobRepo
	resumes   *memoryResumeRepo
	svc       MatchingService
}

func newMatchingFixture() *matchingFixture {
	f := &matchingFixture{
		extractor: &fakeExtractor{text: "Python developer with SQL"},
		embedder:  &fakeEmbedder{},
		store:     newMemoryStore(),
		analyzer:  &recordingAnalyzer{},
		jobs:      newMemoryJobRepo(),
		resumes:   newMemoryResumeRepo(),
	}
	f.svc = NewMatchingService(f.extractor, f.embedder, f.store, f.analyzer, f.jobs, f.resumes, DefaultMatchOptions(), zap.NewNop())
	return f
}

func validJobRequest() models.CreateJobRequest {
	return models.CreateJobRequest{
		Title:       "Data Engineer",
		Company:     "Acme",
		Domain:      "Data",
		Description: "Build pipelines in Python",
	}
}

func TestAnalyzeResumeHappyPath(t *testing.T) {
	f := newMatchingFixture()
	f.store.jobMatches = []models.MatchResult{jobMatch("Data Engineer", "Acme", "Python", 0.6)}

	resp, err := f.svc.AnalyzeResume(context.Background(), Upload{Filename: "cv.pdf", Path: "/tmp/cv.pdf"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ResumeID)
	assert.Equal(t, len("Python developer with SQL"), resp.ExtractedLength)
	require.Len(t, resp.MatchedJobs, 1)
	assert.Equal(t, "analysis of 1 matches", resp.JobAnalysis)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 1, resp.AnalysisAttempted)
	assert.Equal(t, ModeResume, f.analyzer.mode)
	assert.Equal(t, DefaultMatchOptions(), f.store.lastOpts)
	assert.Len(t, f.store.candidates, 1)
}

func TestAnalyzeTextPDFFallsBackToKeywordReport(t *testing.T) {
	dir := t.TempDir()
	path := copyFixture(t, "resume.pdf", dir)
	ocr := &fakeOCR{}

	store := newMemoryStore()
	store.jobMatches = []models.MatchResult{
		jobMatch("Backend Engineer", "Acme", "Python services on AWS, shipped with Docker", 0.64),
		jobMatch("Data Engineer", "Globex", "Python and SQL pipelines", 0.41),
	}
	orchestrator, _ := newTestAnalyzer([]ModelPlan{
		{Model: "primary", Client: alwaysFailing(), Attempts: 3},
		{Model: "secondary", Client: alwaysFailing(), Attempts: 3},
	})

	svc := NewMatchingService(
		newTestExtractor(dir, NewPDFParserService(), &fakeRenderer{}, ocr),
		fixedEmbedder{},
		store,
		orchestrator,
		newMemoryJobRepo(),
		newMemoryResumeRepo(),
		DefaultMatchOptions(),
		zap.NewNop(),
	)

	resp, err := svc.AnalyzeResume(context.Background(), Upload{Filename: "resume.pdf", Path: path})
	require.NoError(t, err)

	assert.NoFileExists(t, path)
	assert.Zero(t, ocr.calls)
	assert.Len(t, store.lastQuery, models.EmbeddingDimension)
	assert.Equal(t, DefaultMatchOptions(), store.lastOpts)

	require.Len(t, resp.MatchedJobs, 2)
	assert.True(t, resp.AnalysisDegraded)
	assert.Equal(t, 6, resp.AnalysisAttempted)
	assert.Contains(t, resp.AnalysisError, "upstream 503")
	assert.Equal(t, 2, strings.Count(resp.JobAnalysis, "### Matching Skills\n- Python\n"))

	backend := section(resp.JobAnalysis, "## 1. Backend Engineer at Acme", "## 2.")
	assert.Contains(t, section(backend, "### Matching Skills", "### Missing Skills"), "- AWS")
	assert.Contains(t, section(backend, "### Matching Skills", "### Missing Skills"), "- Docker")
	data := resp.JobAnalysis[strings.Index(resp.JobAnalysis, "## 2. Data Engineer at Globex"):]
	assert.Contains(t, section(data, "### Missing Skills", "### Recommended Learning"), "- SQL")
}

func TestAnalyzeResumeSwallowsPersistenceFailure(t *testing.T) {
	f := newMatchingFixture()
	f.resumes.createErr = errors.New("db down")

	resp, err := f.svc.AnalyzeResume(context.Background(), Upload{Filename: "cv.pdf"})
	require.NoError(t, err)
	assert.Empty(t, resp.ResumeID)
	assert.Empty(t, f.store.candidates)
}

func TestAnalyzeResumeErrors(t *testing.T) {
	f := newMatchingFixture()
	f.extractor.err = ErrExtractionFailed
	_, err := f.svc.AnalyzeResume(context.Background(), Upload{Filename: "cv.pdf"})
	assert.ErrorIs(t, err, ErrExtractionFailed)

	f = newMatchingFixture()
	f.embedder.err = fmt.Errorf("%w: boom", ErrEmbeddingFailed)
	_, err = f.svc.AnalyzeResume(context.Background(), Upload{Filename: "cv.pdf"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	f = newMatchingFixture()
	f.store.matchErr = fmt.Errorf("%w: down", ErrMatchServiceUnavailable)
	_, err = f.svc.AnalyzeResume(context.Background(), Upload{Filename: "cv.pdf"})
	assert.ErrorIs(t, err, ErrMatchServiceUnavailable)
}

func TestAnalyzeStoredResume(t *testing.T) {
	f := newMatchingFixture()
	id := uuid.New()
	f.resumes.resumes[id] = models.Resume{ID: id, Name: "a.pdf", Text: "Go and Kubernetes"}

	resp, err := f.svc.AnalyzeStoredResume(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), resp.ResumeID)
	assert.Equal(t, "Go and Kubernetes", f.analyzer.source)

	_, err = f.svc.AnalyzeStoredResume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrResumeNotFound)
}

func TestUploadResumeIndexesBestEffort(t *testing.T) {
	f := newMatchingFixture()
	f.embedder.err = ErrEmbeddingFailed

	resp, err := f.svc.UploadResume(context.Background(), Upload{Filename: "cv.png"})
	require.NoError(t, err)
	assert.Equal(t, "cv.png", resp.Name)
	assert.Len(t, f.resumes.resumes, 1)
	assert.Empty(t, f.store.candidates)
}

func TestCreateJobStoresJobAndVector(t *testing.T) {
	f := newMatchingFixture()
	link := "https://acme.example/jobs/1"

	req := validJobRequest()
	req.ApplicationLink = &link
	job, err := f.svc.CreateJob(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0.0, job.Salary)
	assert.Equal(t, "", job.ContactInfo)
	assert.Equal(t, link, job.ApplicationLink)
	assert.Contains(t, f.jobs.jobs, job.ID)
	assert.Contains(t, f.store.jobs, job.ID)
}

func TestCreateJobEmbeddingFailureCreatesNothing(t *testing.T) {
	f := newMatchingFixture()
	f.embedder.err = ErrEmbeddingFailed

	_, err := f.svc.CreateJob(context.Background(), validJobRequest())
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Empty(t, f.jobs.jobs)
	assert.Empty(t, f.store.jobs)
}

func TestCreateJobRollsBackOnVectorFailure(t *testing.T) {
	f := newMatchingFixture()
	f.store.upsertErr = fmt.Errorf("%w: write failed", ErrMatchServiceUnavailable)

	_, err := f.svc.CreateJob(context.Background(), validJobRequest())
	assert.ErrorIs(t, err, ErrMatchServiceUnavailable)
	assert.Empty(t, f.jobs.jobs)
}

func TestCreateJobValidation(t *testing.T) {
	f := newMatchingFixture()

	_, err := f.svc.CreateJob(context.Background(), models.CreateJobRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidJob)
	assert.Contains(t, err.Error(), "company, domain, description")

	negative := -1.0
	req := validJobRequest()
	req.Salary = &negative
	_, err = f.svc.CreateJob(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidJob)
	assert.Equal(t, 0, f.embedder.calls)
}

func TestDeleteJob(t *testing.T) {
	f := newMatchingFixture()
	job, err := f.svc.CreateJob(context.Background(), validJobRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteJob(context.Background(), job.ID))
	assert.Empty(t, f.jobs.jobs)
	assert.Empty(t, f.store.jobs)

	assert.ErrorIs(t, f.svc.DeleteJob(context.Background(), job.ID), ErrJobNotFound)
}

func TestMatchCandidatesByJobID(t *testing.T) {
	f := newMatchingFixture()
	job, err := f.svc.CreateJob(context.Background(), validJobRequest())
	require.NoError(t, err)
	f.store.candMatches = []models.MatchResult{{Candidate: &models.Resume{ID: uuid.New(), Name: "b.pdf", Text: "Python"}, Similarity: 0.5}}

	threshold := 0.4
	resp, err := f.svc.MatchCandidates(context.Background(), models.MatchCandidatesRequest{JobID: job.ID.String(), Threshold: &threshold})
	require.NoError(t, err)

	require.Len(t, resp.MatchedCandidates, 1)
	assert.Equal(t, "b.pdf", resp.MatchedCandidates[0].Name)
	assert.Equal(t, ModeCandidates, f.analyzer.mode)
	assert.Equal(t, job.EmbeddingText(), f.analyzer.source)
	assert.Equal(t, MatchOptions{Threshold: 0.4, Count: 10}, f.store.lastOpts)
}

func TestMatchCandidatesValidation(t *testing.T) {
	f := newMatchingFixture()
	ctx := context.Background()

	_, err := f.svc.MatchCandidates(ctx, models.MatchCandidatesRequest{})
	assert.ErrorIs(t, err, ErrInvalidMatchRequest)

	_, err = f.svc.MatchCandidates(ctx, models.MatchCandidatesRequest{JobID: "nope"})
	assert.ErrorIs(t, err, ErrInvalidMatchRequest)

	_, err = f.svc.MatchCandidates(ctx, models.MatchCandidatesRequest{JobID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrJobNotFound)

	tooHigh := 1.5
	_, err = f.svc.MatchCandidates(ctx, models.MatchCandidatesRequest{JobDescription: "Go", Threshold: &tooHigh})
	assert.ErrorIs(t, err, ErrInvalidMatchRequest)

	zero := 0
	_, err = f.svc.MatchCandidates(ctx, models.MatchCandidatesRequest{JobDescription: "Go", Count: &zero})
	assert.ErrorIs(t, err, ErrInvalidMatchRequest)
}

func TestListJobsAndDomains(t *testing.T) {
	f := newMatchingFixture()
	for _, domain := range []string{"Data", "DevOps", "Data"} {
		req := validJobRequest()
		req.Domain = domain
		_, err := f.svc.CreateJob(context.Background(), req)
		require.NoError(t, err)
	}

	jobs, err := f.svc.ListJobsByDomain(context.Background(), "data")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	domains, err := f.svc.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "DevOps"}, domains)

	_, err = f.svc.ListJobsByDomain(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidMatchRequest)
}
