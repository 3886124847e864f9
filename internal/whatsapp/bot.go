package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/logger"
	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/services"
)

// WebhookPayload is the body Meta posts to the webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
}

type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *Media `json:"image,omitempty"`
	Document *Media `json:"document,omitempty"`
}

type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

// Messages flattens every message in the payload.
func (p *WebhookPayload) Messages() []Message {
	var out []Message
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			out = append(out, c.Value.Messages...)
		}
	}
	return out
}

const (
	helpText = `👋 Welcome to JobSync AI!

Send me your resume as a PDF or an image and I will find matching jobs and explain how well you fit.

Commands:
• *domains* - list job domains
• *jobs <domain>* - list jobs in a domain
• *analyze* - analyze your last resume again
• *reset* - forget your session
• *help* - show this message`

	noResumeText     = "Send me your resume as a PDF or an image first."
	unsupportedText  = "Please send your resume as a PDF or an image (PNG, JPG, TIFF)."
	unreadableText   = "I could not read any text from that file. Please send a clearer scan or a text PDF."
	genericErrorText = "Something went wrong on our side. Please try again later."
	maxListedJobs    = 10
)

var mimeExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/tiff":      ".tiff",
	"image/bmp":       ".bmp",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
}

type Bot struct {
	messenger Messenger
	sessions  SessionStore
	matching  services.MatchingService
	storage   services.StorageService
	chunker   services.TextChuncker
	log       *zap.Logger
}

func NewBot(
	messenger Messenger,
	sessions SessionStore,
	matching services.MatchingService,
	storage services.StorageService,
	chunker services.TextChuncker,
	log *zap.Logger,
) *Bot {
	return &Bot{
		messenger: messenger,
		sessions:  sessions,
		matching:  matching,
		storage:   storage,
		chunker:   chunker,
		log:       log,
	}
}

// HandleMessage answers one incoming message. Errors are returned only when
// the reply itself could not be sent.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) error {
	log := b.log.With(zap.String("from", msg.From), zap.String("type", msg.Type))
	log.Info("💬 message received")

	switch {
	case msg.Document != nil:
		return b.handleMedia(ctx, msg.From, msg.Document)
	case msg.Image != nil:
		return b.handleMedia(ctx, msg.From, msg.Image)
	case msg.Text != nil:
		log.Debug("text body", zap.String("body", logger.Truncate(msg.Text.Body, 80)))
		return b.handleText(ctx, msg.From, msg.Text.Body)
	}
	return b.reply(ctx, msg.From, helpText)
}

func (b *Bot) handleText(ctx context.Context, from, body string) error {
	fields := strings.Fields(strings.ToLower(body))
	if len(fields) == 0 {
		return b.reply(ctx, from, helpText)
	}

	switch fields[0] {
	case "hi", "hello", "menu", "help":
		return b.reply(ctx, from, helpText)
	case "domains":
		return b.replyDomains(ctx, from)
	case "jobs":
		domain := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(body), strings.Fields(body)[0]))
		return b.replyJobs(ctx, from, domain)
	case "analyze":
		return b.reanalyze(ctx, from)
	case "reset":
		if err := b.sessions.Delete(ctx, from); err != nil {
			b.log.Error("❌ failed to reset session", zap.String("from", from), zap.Error(err))
			return b.reply(ctx, from, genericErrorText)
		}
		return b.reply(ctx, from, "Your session has been cleared.")
	}
	return b.reply(ctx, from, helpText)
}

func (b *Bot) replyDomains(ctx context.Context, from string) error {
	domains, err := b.matching.ListDomains(ctx)
	if err != nil {
		b.log.Error("❌ failed to list domains", zap.Error(err))
		return b.reply(ctx, from, genericErrorText)
	}
	if len(domains) == 0 {
		return b.reply(ctx, from, "No job domains are available yet.")
	}

	var sb strings.Builder
	sb.WriteString("*Available domains:*\n")
	for _, d := range domains {
		fmt.Fprintf(&sb, "• %s\n", d)
	}
	sb.WriteString("\nSend *jobs <domain>* to see the openings.")
	return b.reply(ctx, from, sb.String())
}

func (b *Bot) replyJobs(ctx context.Context, from, domain string) error {
	if domain == "" {
		return b.reply(ctx, from, "Usage: *jobs <domain>*, for example *jobs Data Science*.")
	}

	jobs, err := b.matching.ListJobsByDomain(ctx, domain)
	if err != nil {
		b.log.Error("❌ failed to list jobs", zap.String("domain", domain), zap.Error(err))
		return b.reply(ctx, from, genericErrorText)
	}
	if len(jobs) == 0 {
		return b.reply(ctx, from, fmt.Sprintf("No jobs found in %q. Send *domains* to see what is available.", domain))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Jobs in %s:*\n", domain)
	for i, j := range jobs {
		if i == maxListedJobs {
			fmt.Fprintf(&sb, "…and %d more\n", len(jobs)-maxListedJobs)
			break
		}
		fmt.Fprintf(&sb, "%d. %s at %s", i+1, j.Title, j.Company)
		if j.Location != "" {
			fmt.Fprintf(&sb, " (%s)", j.Location)
		}
		if j.ApplicationLink != "" {
			fmt.Fprintf(&sb, "\n   %s", j.ApplicationLink)
		}
		sb.WriteString("\n")
	}
	return b.reply(ctx, from, sb.String())
}

func (b *Bot) reanalyze(ctx context.Context, from string) error {
	session, err := b.sessions.Get(ctx, from)
	if err != nil {
		b.log.Error("❌ failed to load session", zap.String("from", from), zap.Error(err))
		return b.reply(ctx, from, genericErrorText)
	}
	if session == nil || session.LastResumeID == "" {
		return b.reply(ctx, from, noResumeText)
	}

	id, err := uuid.Parse(session.LastResumeID)
	if err != nil {
		return b.reply(ctx, from, noResumeText)
	}

	if err := b.reply(ctx, from, "🔍 Analyzing your last resume again..."); err != nil {
		return err
	}

	result, err := b.matching.AnalyzeStoredResume(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrResumeNotFound) {
			return b.reply(ctx, from, noResumeText)
		}
		return b.replyError(ctx, from, err)
	}
	return b.replyAnalysis(ctx, from, result)
}

func (b *Bot) handleMedia(ctx context.Context, from string, media *Media) error {
	if err := b.reply(ctx, from, "📄 Got it! Reading your resume, this can take a minute..."); err != nil {
		return err
	}

	data, mime, err := b.messenger.DownloadMedia(ctx, media.ID)
	if err != nil {
		b.log.Error("❌ failed to download media", zap.String("media_id", media.ID), zap.Error(err))
		return b.reply(ctx, from, genericErrorText)
	}
	if mime == "" {
		mime = media.MimeType
	}

	filename := mediaFilename(media, mime)
	path, err := b.storage.SaveBytes(filename, data)
	if err != nil {
		return b.replyError(ctx, from, err)
	}

	result, err := b.matching.AnalyzeResume(ctx, services.Upload{Filename: filename, Path: path})
	if err != nil {
		return b.replyError(ctx, from, err)
	}

	if result.ResumeID != "" {
		session := &Session{UserID: from, LastResumeID: result.ResumeID, LastFilename: filename}
		if err := b.sessions.Save(ctx, session); err != nil {
			b.log.Warn("⚠️ failed to save session", zap.String("from", from), zap.Error(err))
		}
	}

	return b.replyAnalysis(ctx, from, result)
}

func mediaFilename(media *Media, mime string) string {
	if media.Filename != "" && services.DetectDocumentKind(media.Filename) != services.DocumentUnknown {
		return filepath.Base(media.Filename)
	}
	mime = strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
	if ext, ok := mimeExtensions[mime]; ok {
		return "resume" + ext
	}
	if media.Filename != "" {
		return filepath.Base(media.Filename)
	}
	return "resume"
}

// FormatAnalysis renders matches and analysis as one chat message.
func FormatAnalysis(result *models.ResumeAnalysisResponse) string {
	var sb strings.Builder
	if len(result.MatchedJobs) == 0 {
		sb.WriteString("I could not find jobs matching your resume yet.\n")
	} else {
		sb.WriteString("*Top matching jobs:*\n")
		for i, j := range result.MatchedJobs {
			fmt.Fprintf(&sb, "%d. %s at %s (%.0f%%)\n", i+1, j.Title, j.Company, j.Similarity*100)
		}
	}
	if result.JobAnalysis != "" {
		sb.WriteString("\n")
		sb.WriteString(result.JobAnalysis)
	}
	return sb.String()
}

func (b *Bot) replyAnalysis(ctx context.Context, from string, result *models.ResumeAnalysisResponse) error {
	for _, chunk := range b.chunker.ChunkText(FormatAnalysis(result), services.MaxMessageRunes) {
		if err := b.reply(ctx, from, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) replyError(ctx context.Context, from string, err error) error {
	switch {
	case errors.Is(err, services.ErrUnsupportedFile):
		return b.reply(ctx, from, unsupportedText)
	case errors.Is(err, services.ErrExtractionFailed):
		return b.reply(ctx, from, unreadableText)
	}
	b.log.Error("❌ resume analysis failed", zap.String("from", from), zap.Error(err))
	return b.reply(ctx, from, genericErrorText)
}

func (b *Bot) reply(ctx context.Context, to, body string) error {
	if err := b.messenger.SendText(ctx, to, body); err != nil {
		b.log.Error("❌ failed to send reply", zap.String("to", to), zap.Error(err))
		return err
	}
	return nil
}
