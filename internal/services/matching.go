package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/repositories"
)

// Upload is a document already written to the upload directory. The
// extractor deletes Path once it has read it.
type Upload struct {
	Filename string
	Path     string
}

type MatchingService interface {
	UploadResume(ctx context.Context, upload Upload) (*models.UploadResponse, error)
	AnalyzeResume(ctx context.Context, upload Upload) (*models.ResumeAnalysisResponse, error)
	AnalyzeStoredResume(ctx context.Context, resumeID uuid.UUID) (*models.ResumeAnalysisResponse, error)
	MatchCandidates(ctx context.Context, req models.MatchCandidatesRequest) (*models.CandidateMatchResponse, error)
	CreateJob(ctx context.Context, req models.CreateJobRequest) (*models.JobDescription, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
	ListJobsByDomain(ctx context.Context, domain string) ([]models.JobDescription, error)
	ListDomains(ctx context.Context) ([]string, error)
}

type matchingService struct {
	extractor  TextExtractor
	embedder   Embedder
	store      VectorStore
	analyzer   Analyzer
	jobRepo    repositories.JobRepository
	resumeRepo repositories.ResumeRepository
	opts       MatchOptions
	log        *zap.Logger
}

func NewMatchingService(
	extractor TextExtractor,
	embedder Embedder,
	store VectorStore,
	analyzer Analyzer,
	jobRepo repositories.JobRepository,
	resumeRepo repositories.ResumeRepository,
	opts MatchOptions,
	log *zap.Logger,
) MatchingService {
	return &matchingService{
		extractor:  extractor,
		embedder:   embedder,
		store:      store,
		analyzer:   analyzer,
		jobRepo:    jobRepo,
		resumeRepo: resumeRepo,
		opts:       normalizeMatchOptions(opts),
		log:        log,
	}
}

// UploadResume implements MatchingService. Indexing the resume for candidate
// search is best effort.
func (s *matchingService) UploadResume(ctx context.Context, upload Upload) (*models.UploadResponse, error) {
	extracted, err := s.extractor.Extract(ctx, upload.Filename, upload.Path)
	if err != nil {
		return nil, err
	}

	resume := &models.Resume{ID: uuid.New(), Name: upload.Filename, Text: extracted.Text}
	if err := s.resumeRepo.Create(resume); err != nil {
		return nil, err
	}

	if vec, err := s.embedder.Embed(ctx, resume.Text); err != nil {
		s.log.Warn("⚠️ resume stored without embedding", zap.String("resume_id", resume.ID.String()), zap.Error(err))
	} else {
		s.indexResume(ctx, resume, vec)
	}

	return &models.UploadResponse{
		Message:  "Resume uploaded successfully",
		ResumeID: resume.ID.String(),
		Name:     resume.Name,
		Length:   len(resume.Text),
	}, nil
}

// AnalyzeResume implements MatchingService.
func (s *matchingService) AnalyzeResume(ctx context.Context, upload Upload) (*models.ResumeAnalysisResponse, error) {
	extracted, err := s.extractor.Extract(ctx, upload.Filename, upload.Path)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, extracted.Text)
	if err != nil {
		return nil, err
	}

	resume := &models.Resume{ID: uuid.New(), Name: upload.Filename, Text: extracted.Text}
	resumeID := ""
	if err := s.resumeRepo.Create(resume); err != nil {
		s.log.Warn("⚠️ failed to store resume, continuing", zap.Error(err))
	} else {
		resumeID = resume.ID.String()
		s.indexResume(ctx, resume, vec)
	}

	return s.analyzeResumeVector(ctx, resumeID, extracted.Text, vec)
}

// AnalyzeStoredResume implements MatchingService.
func (s *matchingService) AnalyzeStoredResume(ctx context.Context, resumeID uuid.UUID) (*models.ResumeAnalysisResponse, error) {
	resume, err := s.resumeRepo.FindByID(resumeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrResumeNotFound, resumeID)
		}
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, resume.Text)
	if err != nil {
		return nil, err
	}

	return s.analyzeResumeVector(ctx, resume.ID.String(), resume.Text, vec)
}

func (s *matchingService) analyzeResumeVector(ctx context.Context, resumeID, text string, vec []float32) (*models.ResumeAnalysisResponse, error) {
	matches, err := s.store.MatchJobs(ctx, vec, s.opts)
	if err != nil {
		return nil, err
	}
	s.log.Info("🔍 jobs matched", zap.String("resume_id", resumeID), zap.Int("matches", len(matches)))

	report := s.analyzer.Analyze(ctx, ModeResume, text, matches)

	return &models.ResumeAnalysisResponse{
		ResumeID:          resumeID,
		ExtractedLength:   len(text),
		MatchedJobs:       models.ToJobMatches(matches),
		JobAnalysis:       report.Content,
		Model:             report.Model,
		AnalysisDegraded:  report.Degraded,
		AnalysisError:     report.FailureReason,
		AnalysisAttempted: len(report.Attempts),
	}, nil
}

// MatchCandidates implements MatchingService. The job is either a stored
// posting (JobID) or free text.
func (s *matchingService) MatchCandidates(ctx context.Context, req models.MatchCandidatesRequest) (*models.CandidateMatchResponse, error) {
	opts := s.opts
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			return nil, fmt.Errorf("%w: match_threshold must be between 0 and 1", ErrInvalidMatchRequest)
		}
		opts.Threshold = *req.Threshold
	}
	if req.Count != nil {
		if *req.Count <= 0 {
			return nil, fmt.Errorf("%w: match_count must be positive", ErrInvalidMatchRequest)
		}
		opts.Count = *req.Count
	}

	var jobText string
	switch {
	case req.JobID != "":
		id, err := uuid.Parse(req.JobID)
		if err != nil {
			return nil, fmt.Errorf("%w: job_id is not a valid uuid", ErrInvalidMatchRequest)
		}
		job, err := s.jobRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
			}
			return nil, err
		}
		jobText = job.EmbeddingText()
	case strings.TrimSpace(req.JobDescription) != "":
		jobText = strings.TrimSpace(req.JobDescription)
	default:
		return nil, fmt.Errorf("%w: job_id or job_description is required", ErrInvalidMatchRequest)
	}

	vec, err := s.embedder.Embed(ctx, jobText)
	if err != nil {
		return nil, err
	}

	matches, err := s.store.MatchCandidates(ctx, vec, opts)
	if err != nil {
		return nil, err
	}
	s.log.Info("🔍 candidates matched", zap.String("job_id", req.JobID), zap.Int("matches", len(matches)))

	report := s.analyzer.Analyze(ctx, ModeCandidates, jobText, matches)

	return &models.CandidateMatchResponse{
		JobID:             req.JobID,
		MatchedCandidates: models.ToCandidateMatches(matches),
		CandidateAnalysis: report.Content,
		Model:             report.Model,
		AnalysisDegraded:  report.Degraded,
		AnalysisError:     report.FailureReason,
		AnalysisAttempted: len(report.Attempts),
	}, nil
}

// CreateJob implements MatchingService. The embedding is computed before
// anything is written; a failed vector write removes the job again.
func (s *matchingService) CreateJob(ctx context.Context, req models.CreateJobRequest) (*models.JobDescription, error) {
	job, err := newJobFromRequest(req)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, job.EmbeddingText())
	if err != nil {
		return nil, err
	}

	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}

	if err := s.store.UpsertJobVector(ctx, job, vec); err != nil {
		if delErr := s.jobRepo.Delete(job.ID); delErr != nil {
			s.log.Error("❌ failed to roll back job after vector error", zap.String("job_id", job.ID.String()), zap.Error(delErr))
		}
		return nil, err
	}

	s.log.Info("✅ job created", zap.String("job_id", job.ID.String()), zap.String("domain", job.Domain))
	return job, nil
}

// ValidateJobRequest reports whether req would be accepted by CreateJob.
func ValidateJobRequest(req models.CreateJobRequest) error {
	_, err := newJobFromRequest(req)
	return err
}

func newJobFromRequest(req models.CreateJobRequest) (*models.JobDescription, error) {
	job := &models.JobDescription{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(req.Title),
		Company:      strings.TrimSpace(req.Company),
		Domain:       strings.TrimSpace(req.Domain),
		Description:  strings.TrimSpace(req.Description),
		Requirements: strings.TrimSpace(req.Requirements),
		Location:     strings.TrimSpace(req.Location),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", job.Title},
		{"company", job.Company},
		{"domain", job.Domain},
		{"description", job.Description},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidJob, strings.Join(missing, ", "))
	}

	if req.Salary != nil {
		if *req.Salary < 0 {
			return nil, fmt.Errorf("%w: salary must not be negative", ErrInvalidJob)
		}
		job.Salary = *req.Salary
	}
	if req.ContactInfo != nil {
		job.ContactInfo = strings.TrimSpace(*req.ContactInfo)
	}
	if req.ApplicationLink != nil {
		job.ApplicationLink = strings.TrimSpace(*req.ApplicationLink)
	}

	return job, nil
}

// DeleteJob implements MatchingService.
func (s *matchingService) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if _, err := s.jobRepo.FindByID(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return err
	}

	if err := s.store.DeleteJobVector(ctx, id); err != nil {
		return err
	}

	if err := s.jobRepo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return err
	}

	s.log.Info("🗑️ job deleted", zap.String("job_id", id.String()))
	return nil
}

// ListJobsByDomain implements MatchingService.
func (s *matchingService) ListJobsByDomain(_ context.Context, domain string) ([]models.JobDescription, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrInvalidMatchRequest)
	}
	return s.jobRepo.FindByDomain(domain)
}

// ListDomains implements MatchingService.
func (s *matchingService) ListDomains(_ context.Context) ([]string, error) {
	return s.jobRepo.ListDomains()
}

func (s *matchingService) indexResume(ctx context.Context, resume *models.Resume, vec []float32) {
	if err := s.store.UpsertCandidateVector(ctx, resume, vec); err != nil {
		s.log.Warn("⚠️ failed to index resume for candidate search", zap.String("resume_id", resume.ID.String()), zap.Error(err))
	}
}
