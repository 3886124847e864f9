package models

import "github.com/google/uuid"

type MatchKind string

const (
	MatchKindJob       MatchKind = "job"
	MatchKindCandidate MatchKind = "candidate"
)

// MatchResult is a job or a candidate annotated with its similarity to a query
// vector. Exactly one of Job and Candidate is set.
type MatchResult struct {
	Job        *JobDescription
	Candidate  *Resume
	Similarity float64
}

func (m MatchResult) Kind() MatchKind {
	if m.Candidate != nil {
		return MatchKindCandidate
	}
	return MatchKindJob
}

func (m MatchResult) ID() uuid.UUID {
	if m.Candidate != nil {
		return m.Candidate.ID
	}
	if m.Job != nil {
		return m.Job.ID
	}
	return uuid.Nil
}

// Heading is the job title and company, or the candidate's name.
func (m MatchResult) Heading() string {
	switch {
	case m.Candidate != nil:
		return m.Candidate.Name
	case m.Job != nil && m.Job.Company != "":
		return m.Job.Title + " at " + m.Job.Company
	case m.Job != nil:
		return m.Job.Title
	}
	return ""
}

// Description is the text compared against the source: the job description
// with its requirements, or the candidate's resume text.
func (m MatchResult) Description() string {
	switch {
	case m.Candidate != nil:
		return m.Candidate.Text
	case m.Job != nil:
		return joinNonEmpty([]string{m.Job.Description, m.Job.Requirements}, "\n")
	}
	return ""
}
