package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/models"
)

// ErrUnusableResponse marks a completion that arrived but failed the quality check.
var ErrUnusableResponse = errors.New("unusable llm response")

type AnalysisState string

const (
	StatePending     AnalysisState = "pending"
	StateTryingModel AnalysisState = "trying_model"
	StateRetrying    AnalysisState = "retrying"
	StateNextModel   AnalysisState = "next_model"
	StateSucceeded   AnalysisState = "succeeded"
	StateFallback    AnalysisState = "fallback"
)

// ModelPlan is one entry of the ordered model list: a model identifier, the
// client that serves it and how many attempts it gets.
type ModelPlan struct {
	Model    string
	Client   ChatCompleter
	Attempts int
}

type AnalyzerConfig struct {
	RetryDelay      time.Duration
	Timeout         time.Duration
	Temperature     float64
	MaxTokens       int
	MinLength       int
	MarkerThreshold int
	TopN            int
}

type AttemptRecord struct {
	Model   string `json:"model"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error,omitempty"`
}

type AnalysisReport struct {
	Content       string
	Model         string
	Degraded      bool
	FailureReason string
	State         AnalysisState
	Attempts      []AttemptRecord
}

// AttemptsFor counts the attempts made against one model.
func (r *AnalysisReport) AttemptsFor(model string) int {
	n := 0
	for _, a := range r.Attempts {
		if a.Model == model {
			n++
		}
	}
	return n
}

type Analyzer interface {
	// Analyze always returns a report. When every model fails the report
	// holds the fallback analysis and Degraded is set.
	Analyze(ctx context.Context, mode AnalysisMode, source string, matches []models.MatchResult) *AnalysisReport
}

type analyzer struct {
	plans    []ModelPlan
	cfg      AnalyzerConfig
	prompts  *PromptBuilder
	fallback *FallbackAnalyzer
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewAnalyzer(plans []ModelPlan, cfg AnalyzerConfig, prompts *PromptBuilder, fallback *FallbackAnalyzer, log *zap.Logger) Analyzer {
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &analyzer{
		plans:    plans,
		cfg:      cfg,
		prompts:  prompts,
		fallback: fallback,
		log:      log,
		sleep:    sleepContext,
	}
}

// BuildModelPlans maps model identifiers to clients. Models with the Gemini
// prefix are skipped when no Gemini client is configured. Every model gets
// at least one attempt.
func BuildModelPlans(modelNames []string, attempts int, openAI, gemini ChatCompleter, log *zap.Logger) []ModelPlan {
	if attempts < 1 {
		log.Warn("⚠️ LLM attempts below 1, using 1", zap.Int("attempts", attempts))
		attempts = 1
	}

	var plans []ModelPlan
	for _, name := range modelNames {
		client := openAI
		if strings.HasPrefix(name, GeminiModelPrefix) {
			client = gemini
		}
		if client == nil {
			log.Warn("⚠️ no client configured for model, skipping", zap.String("model", name))
			continue
		}
		plans = append(plans, ModelPlan{Model: name, Client: client, Attempts: attempts})
	}
	return plans
}

func (a *analyzer) Analyze(ctx context.Context, mode AnalysisMode, source string, matches []models.MatchResult) *AnalysisReport {
	if len(matches) > a.cfg.TopN {
		matches = matches[:a.cfg.TopN]
	}

	report := &AnalysisReport{State: StatePending}
	req := ChatRequest{
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: a.prompts.SystemPrompt(mode)},
			{Role: RoleUser, Content: a.prompts.Build(mode, source, matches)},
		},
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}

	var lastErr error

plans:
	for _, plan := range a.plans {
		report.State = StateTryingModel
		req.Model = plan.Model

		for attempt := 1; attempt <= plan.Attempts; attempt++ {
			content, err := a.attempt(ctx, plan.Client, req)
			record := AttemptRecord{Model: plan.Model, Attempt: attempt}
			if err == nil {
				report.Attempts = append(report.Attempts, record)
				report.Content = content
				report.Model = plan.Model
				report.State = StateSucceeded
				a.log.Info("✅ analysis generated", zap.String("model", plan.Model), zap.Int("attempt", attempt), zap.Int("chars", len(content)))
				return report
			}

			record.Error = err.Error()
			report.Attempts = append(report.Attempts, record)
			lastErr = fmt.Errorf("%s attempt %d: %w", plan.Model, attempt, err)
			a.log.Warn("⚠️ analysis attempt failed", zap.String("model", plan.Model), zap.Int("attempt", attempt), zap.Error(err))

			if ctx.Err() != nil {
				break plans
			}
			if attempt < plan.Attempts {
				report.State = StateRetrying
				if err := a.sleep(ctx, a.cfg.RetryDelay); err != nil {
					break plans
				}
			}
		}

		report.State = StateNextModel
	}

	if lastErr == nil {
		lastErr = errors.New("no language models configured")
	}

	a.log.Warn("⚠️ all models exhausted, using fallback analysis", zap.Error(lastErr))
	report.Content = a.fallback.Analyze(mode, source, matches)
	report.Degraded = true
	report.FailureReason = lastErr.Error()
	report.State = StateFallback
	return report
}

func (a *analyzer) attempt(ctx context.Context, client ChatCompleter, req ChatRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	raw, err := client.Complete(attemptCtx, req)
	if err != nil {
		return "", err
	}

	content := CleanResponse(raw)
	if err := CheckUsable(content, a.cfg.MinLength, a.cfg.MarkerThreshold); err != nil {
		return "", err
	}
	return content, nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// CleanResponse strips reasoning blocks and a wrapping code fence.
func CleanResponse(raw string) string {
	text := thinkBlock.ReplaceAllString(raw, "")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		if nl := strings.Index(text, "\n"); nl != -1 {
			text = text[nl+1:]
		} else {
			text = ""
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	return strings.TrimSpace(text)
}

// CheckUsable rejects truncated or garbled generations: too many '*'
// markers or fewer than minLength characters.
func CheckUsable(content string, minLength, markerThreshold int) error {
	if markerThreshold > 0 {
		if n := strings.Count(content, "*"); n > markerThreshold {
			return fmt.Errorf("%w: %d formatting markers exceed %d", ErrUnusableResponse, n, markerThreshold)
		}
	}
	if n := utf8.RuneCountInString(content); n < minLength {
		return fmt.Errorf("%w: %d characters is below the minimum of %d", ErrUnusableResponse, n, minLength)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
