package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/jobsync/internal/models"
)

const (
	fallbackMaxMatches   = 3
	fallbackMaxMissing   = 5
	fallbackMaxResources = 3
)

type skill struct {
	Name   string
	Needle string
}

// skillVocabulary is matched by case-insensitive substring, in this order.
var skillVocabulary = []skill{
	{"Python", "python"},
	{"Java", "java"},
	{"JavaScript", "javascript"},
	{"TypeScript", "typescript"},
	{"Golang", "golang"},
	{"C++", "c++"},
	{"C#", "c#"},
	{"SQL", "sql"},
	{"NoSQL", "nosql"},
	{"React", "react"},
	{"Angular", "angular"},
	{"Node.js", "node"},
	{"Django", "django"},
	{"Flask", "flask"},
	{"Spring", "spring"},
	{"HTML", "html"},
	{"CSS", "css"},
	{"AWS", "aws"},
	{"Azure", "azure"},
	{"GCP", "gcp"},
	{"Docker", "docker"},
	{"Kubernetes", "kubernetes"},
	{"Linux", "linux"},
	{"GitHub", "github"},
	{"REST API", "rest api"},
	{"Machine Learning", "machine learning"},
	{"Deep Learning", "deep learning"},
	{"Data Analysis", "data analysis"},
	{"TensorFlow", "tensorflow"},
	{"PyTorch", "pytorch"},
	{"Tableau", "tableau"},
	{"Power BI", "power bi"},
	{"Agile", "agile"},
	{"Communication", "communication"},
	{"Leadership", "leadership"},
}

// FallbackAnalyzer produces a keyword-based markdown report without any
// external calls. It is used when every LLM attempt failed.
type FallbackAnalyzer struct{}

func NewFallbackAnalyzer() *FallbackAnalyzer {
	return &FallbackAnalyzer{}
}

// SkillsIn returns the vocabulary skills mentioned in text, in vocabulary order.
func SkillsIn(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, s := range skillVocabulary {
		if strings.Contains(lower, s.Needle) {
			found = append(found, s.Name)
		}
	}
	return found
}

// Analyze never fails. In ModeResume a missing skill is one the job mentions
// and the resume does not; in ModeCandidates it is one the job (source)
// mentions and the candidate does not.
func (f *FallbackAnalyzer) Analyze(mode AnalysisMode, source string, matches []models.MatchResult) string {
	if len(matches) > fallbackMaxMatches {
		matches = matches[:fallbackMaxMatches]
	}

	var sb strings.Builder
	if mode == ModeCandidates {
		sb.WriteString("# Candidate Match Analysis\n\n")
	} else {
		sb.WriteString("# Job Match Analysis\n\n")
	}
	sb.WriteString("_The AI analysis service is currently unavailable. This is a basic keyword-based analysis._\n")

	if len(matches) == 0 {
		if mode == ModeCandidates {
			sb.WriteString("\nNo matching candidates were found for this job description.\n")
		} else {
			sb.WriteString("\nNo matching jobs were found for this resume.\n")
		}
		return sb.String()
	}

	sourceSkills := toSet(SkillsIn(source))

	for i, m := range matches {
		matchSkills := toSet(SkillsIn(m.Description()))

		var matching, missing []string
		for _, s := range skillVocabulary {
			inSource := sourceSkills[s.Name]
			inMatch := matchSkills[s.Name]
			switch {
			case inSource && inMatch:
				matching = append(matching, s.Name)
			case mode == ModeCandidates && inSource && !inMatch:
				missing = append(missing, s.Name)
			case mode != ModeCandidates && inMatch && !inSource:
				missing = append(missing, s.Name)
			}
		}
		if len(missing) > fallbackMaxMissing {
			missing = missing[:fallbackMaxMissing]
		}

		fmt.Fprintf(&sb, "\n## %d. %s\n", i+1, m.Heading())
		fmt.Fprintf(&sb, "**Match score:** %.0f%%\n", m.Similarity*100)

		sb.WriteString("\n### Matching Skills\n")
		writeBullets(&sb, matching, "No common skills detected")

		sb.WriteString("\n### Missing Skills\n")
		writeBullets(&sb, missing, "None detected")

		if len(missing) > 0 {
			if mode == ModeCandidates {
				sb.WriteString("\n### Suggested Upskilling\n")
			} else {
				sb.WriteString("\n### Recommended Learning\n")
			}
			for j, name := range missing {
				if j == fallbackMaxResources {
					break
				}
				fmt.Fprintf(&sb, "- **%s**: take an introductory course on Coursera, Udemy or YouTube and build a small project with it\n", name)
			}
		}
	}

	return sb.String()
}

func writeBullets(sb *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "- %s\n", empty)
		return
	}
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
