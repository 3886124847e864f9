package models

import "github.com/google/uuid"

type UploadResponse struct {
	Message  string `json:"message"`
	ResumeID string `json:"resume_id,omitempty"`
	Name     string `json:"name"`
	Length   int    `json:"extracted_text_length"`
}

type CreateJobRequest struct {
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Domain          string   `json:"domain"`
	Description     string   `json:"description"`
	Requirements    string   `json:"requirements"`
	Location        string   `json:"location"`
	Salary          *float64 `json:"salary"`
	ContactInfo     *string  `json:"contact_info"`
	ApplicationLink *string  `json:"application_link"`
}

type MatchCandidatesRequest struct {
	JobID          string   `json:"job_id"`
	JobDescription string   `json:"job_description"`
	Threshold      *float64 `json:"match_threshold"`
	Count          *int     `json:"match_count"`
}

// JobMatch is the wire shape of a matched job: the job fields plus similarity.
type JobMatch struct {
	JobDescription
	Similarity float64 `json:"similarity"`
}

type CandidateMatch struct {
	ResumeID   uuid.UUID `json:"resume_id"`
	Name       string    `json:"name"`
	Text       string    `json:"text"`
	Similarity float64   `json:"similarity"`
}

type ResumeAnalysisResponse struct {
	ResumeID          string     `json:"resume_id,omitempty"`
	ExtractedLength   int        `json:"extracted_text_length"`
	MatchedJobs       []JobMatch `json:"matched_jobs"`
	JobAnalysis       string     `json:"job_analysis"`
	Model             string     `json:"model,omitempty"`
	AnalysisDegraded  bool       `json:"analysis_degraded"`
	AnalysisError     string     `json:"analysis_error,omitempty"`
	AnalysisAttempted int        `json:"analysis_attempts"`
}

type CandidateMatchResponse struct {
	JobID             string           `json:"job_id,omitempty"`
	MatchedCandidates []CandidateMatch `json:"matched_candidates"`
	CandidateAnalysis string           `json:"candidate_analysis"`
	Model             string           `json:"model,omitempty"`
	AnalysisDegraded  bool             `json:"analysis_degraded"`
	AnalysisError     string           `json:"analysis_error,omitempty"`
	AnalysisAttempted int              `json:"analysis_attempts"`
}

func ToJobMatches(results []MatchResult) []JobMatch {
	out := make([]JobMatch, 0, len(results))
	for _, r := range results {
		if r.Job == nil {
			continue
		}
		out = append(out, JobMatch{JobDescription: *r.Job, Similarity: r.Similarity})
	}
	return out
}

func ToCandidateMatches(results []MatchResult) []CandidateMatch {
	out := make([]CandidateMatch, 0, len(results))
	for _, r := range results {
		if r.Candidate == nil {
			continue
		}
		out = append(out, CandidateMatch{
			ResumeID:   r.Candidate.ID,
			Name:       r.Candidate.Name,
			Text:       r.Candidate.Text,
			Similarity: r.Similarity,
		})
	}
	return out
}
