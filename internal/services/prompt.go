package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/jobsync/internal/models"
)

// AnalysisMode selects which side of the match the source text is on.
type AnalysisMode string

const (
	// ModeResume analyses a resume against matched jobs.
	ModeResume AnalysisMode = "resume"
	// ModeCandidates analyses a job description against matched candidates.
	ModeCandidates AnalysisMode = "candidates"
)

type PromptBuilder struct {
	descriptionBudget int
}

func NewPromptBuilder(descriptionBudget int) *PromptBuilder {
	if descriptionBudget <= 0 {
		descriptionBudget = 1000
	}
	return &PromptBuilder{descriptionBudget: descriptionBudget}
}

// SystemPrompt returns the instruction message for the given mode.
func (pb *PromptBuilder) SystemPrompt(mode AnalysisMode) string {
	if mode == ModeCandidates {
		return "You are an experienced technical recruiter. You compare a job description with candidate resumes and write clear, well structured markdown assessments. Never invent facts that are not in the resumes."
	}
	return "You are an expert career advisor. You compare a resume with job postings and write clear, well structured markdown analyses. Never invent facts that are not in the resume or the job postings."
}

// BuildResumeAnalysisPrompt creates the prompt comparing a resume with jobs
func (pb *PromptBuilder) BuildResumeAnalysisPrompt(resumeText string, matches []models.MatchResult) string {
	return fmt.Sprintf(`Analyze how well this candidate fits each of the matched job openings.

RESUME:
%s

MATCHED JOBS:
%s

For EACH job write a section with this structure:
## <Job title> at <Company>
**Match score:** <similarity as a percentage>
### Matching Skills
- skills from the resume that the job asks for
### Missing Skills
- skills the job asks for that the resume does not show
### Recommendations
- concrete learning resources or steps to close each gap

Finish with a short "## Overall Advice" section (3-5 sentences).
Use plain markdown headings and bullet points only. Keep it concise.`,
		strings.TrimSpace(resumeText), pb.renderMatches(matches))
}

// BuildCandidateAnalysisPrompt creates the prompt comparing a job with candidates
func (pb *PromptBuilder) BuildCandidateAnalysisPrompt(jobText string, matches []models.MatchResult) string {
	return fmt.Sprintf(`Assess how well each matched candidate fits this job opening.

JOB DESCRIPTION:
%s

MATCHED CANDIDATES:
%s

For EACH candidate write a section with this structure:
## <Candidate name>
**Match score:** <similarity as a percentage>
### Strengths
- skills and experience that fit the job
### Gaps
- requirements the candidate does not show
### Interview Focus
- topics worth probing in an interview

Finish with a short "## Recommendation" section ranking the candidates.
Use plain markdown headings and bullet points only. Keep it concise.`,
		strings.TrimSpace(jobText), pb.renderMatches(matches))
}

func (pb *PromptBuilder) Build(mode AnalysisMode, source string, matches []models.MatchResult) string {
	if mode == ModeCandidates {
		return pb.BuildCandidateAnalysisPrompt(source, matches)
	}
	return pb.BuildResumeAnalysisPrompt(source, matches)
}

func (pb *PromptBuilder) renderMatches(matches []models.MatchResult) string {
	if len(matches) == 0 {
		return "No matches found."
	}

	var parts []string
	for i, m := range matches {
		var sb strings.Builder
		fmt.Fprintf(&sb, "--- Match %d (Similarity: %.0f%%) ---\n", i+1, m.Similarity*100)
		if m.Job != nil {
			fmt.Fprintf(&sb, "Title: %s\nCompany: %s\nDomain: %s\n", m.Job.Title, m.Job.Company, m.Job.Domain)
			if m.Job.Location != "" {
				fmt.Fprintf(&sb, "Location: %s\n", m.Job.Location)
			}
		} else {
			fmt.Fprintf(&sb, "Candidate: %s\n", m.Heading())
		}
		fmt.Fprintf(&sb, "Description:\n%s", TruncateRunes(strings.TrimSpace(m.Description()), pb.descriptionBudget))
		parts = append(parts, sb.String())
	}

	return strings.Join(parts, "\n\n")
}

// TruncateRunes cuts s to at most limit runes, marking the cut with "...".
func TruncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
