package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	VectorStore VectorStoreConfig
	Qdrant      QdrantConfig
	Embedding   EmbeddingConfig
	Gemini      GeminiConfig
	LLM         LLMConfig
	Matching    MatchingConfig
	OCR         OCRConfig
	Storage     StorageConfig
	WhatsApp    WhatsAppConfig
	Session     SessionConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogJSON  bool
	LogDebug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type VectorStoreConfig struct {
	// Backend is either "pgvector" or "qdrant".
	Backend string
}

type QdrantConfig struct {
	URL                  string
	APIKey               string
	JobsCollection       string
	CandidatesCollection string
}

type EmbeddingConfig struct {
	// Provider is either "tei" (local sentence-transformers server) or "gemini".
	Provider  string
	URL       string
	Model     string
	Dimension int
	Timeout   time.Duration
}

type GeminiConfig struct {
	APIKey string
}

type LLMConfig struct {
	BaseURL         string
	APIKey          string
	Models          []string
	Attempts        int
	RetryDelay      time.Duration
	Timeout         time.Duration
	Temperature     float64
	MaxTokens       int
	MinLength       int
	MarkerThreshold int
}

type MatchingConfig struct {
	Threshold         float64
	Count             int
	AnalysisTopN      int
	DescriptionBudget int
}

type OCRConfig struct {
	Language     string
	PdftoppmPath string
	DPI          int
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WhatsAppConfig struct {
	Enabled       bool
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	GraphURL      string
}

type SessionConfig struct {
	// Backend is either "memory" or "redis".
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8000"),
			Env:      getEnv("ENV", "development"),
			LogJSON:  getEnvAsBool("LOG_JSON", false),
			LogDebug: getEnvAsBool("LOG_DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "jobsync"),
		},
		VectorStore: VectorStoreConfig{
			Backend: getEnv("VECTOR_BACKEND", "pgvector"),
		},
		Qdrant: QdrantConfig{
			URL:                  getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:               getEnv("QDRANT_API_KEY", ""),
			JobsCollection:       getEnv("QDRANT_JOBS_COLLECTION", "jobs"),
			CandidatesCollection: getEnv("QDRANT_CANDIDATES_COLLECTION", "candidates"),
		},
		Embedding: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", "tei"),
			URL:       getEnv("EMBEDDING_URL", "http://localhost:8080"),
			Model:     getEnv("EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 384),
			Timeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", "20s"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
		},
		LLM: LLMConfig{
			BaseURL:         getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:          getEnv("LLM_API_KEY", ""),
			Models:          getEnvAsList("LLM_MODELS", "llama-3.3-70b-versatile,llama-3.1-8b-instant"),
			Attempts:        getEnvAsInt("LLM_ATTEMPTS", 3),
			RetryDelay:      getEnvAsDuration("LLM_RETRY_DELAY", "2s"),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", "30s"),
			Temperature:     getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			MaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 2048),
			MinLength:       getEnvAsInt("LLM_MIN_LENGTH", 100),
			MarkerThreshold: getEnvAsInt("LLM_MARKER_THRESHOLD", 150),
		},
		Matching: MatchingConfig{
			Threshold:         getEnvAsFloat("MATCH_THRESHOLD", 0.2),
			Count:             getEnvAsInt("MATCH_COUNT", 10),
			AnalysisTopN:      getEnvAsInt("ANALYSIS_TOP_N", 3),
			DescriptionBudget: getEnvAsInt("PROMPT_DESCRIPTION_BUDGET", 1000),
		},
		OCR: OCRConfig{
			Language:     getEnv("OCR_LANGUAGE", "eng"),
			PdftoppmPath: getEnv("PDFTOPPM_PATH", "pdftoppm"),
			DPI:          getEnvAsInt("OCR_DPI", 200),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		WhatsApp: WhatsAppConfig{
			Enabled:       getEnvAsBool("WHATSAPP_ENABLED", false),
			AccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			VerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
			GraphURL:      getEnv("WHATSAPP_GRAPH_URL", "https://graph.facebook.com/v19.0"),
		},
		Session: SessionConfig{
			Backend:       getEnv("SESSION_BACKEND", "memory"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			TTL:           getEnvAsDuration("SESSION_TTL", "24h"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsList splits a comma separated value, dropping blank entries.
func getEnvAsList(key string, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
