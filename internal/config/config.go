package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 애플리케이션 설정
type Config struct {
	Env         string
	DatabaseURL string
	Port        string
	Debug       bool

	// External providers
	TranslateURL     string
	TranslateTimeout time.Duration
	PhraseSearchURL  string
	PhraseTimeout    time.Duration
	PosterTimeout    time.Duration

	// Search policy
	MaxQueryLength  int
	ResultLimit     int
	IngestBatchSize int
	AutoTranslate   bool

	// Suggestion policy
	SuggestionLimit     int
	SuggestionPrefixLen int

	// Quality score thresholds
	QualityVerified   int
	QualityPending    int
	QualityIncomplete int

	// Asset storage
	MediaDir        string
	MaxImageBytes   int64
	MaxVideoBytes   int64

	// Retention (cleanup service)
	RequestRetentionDays int
}

// Load 환경변수에서 설정 로드
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "realclips")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := getEnv("DATABASE_URL", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL))

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		DatabaseURL: dbURL,
		Port:        getEnv("PORT", "5008"),
		Debug:       getEnv("DEBUG", "false") == "true",

		TranslateURL:     getEnv("TRANSLATE_API_URL", "https://api.mymemory.translated.net/get"),
		TranslateTimeout: getDuration("TRANSLATE_TIMEOUT", 10*time.Second),
		PhraseSearchURL:  getEnv("PHRASE_API_URL", "https://www.playphrase.me/api/v1/phrases/search"),
		PhraseTimeout:    getDuration("PHRASE_TIMEOUT", 30*time.Second),
		PosterTimeout:    getDuration("POSTER_TIMEOUT", 15*time.Second),

		MaxQueryLength:  getInt("MAX_QUERY_LENGTH", 500),
		ResultLimit:     getInt("RESULT_LIMIT", 10),
		IngestBatchSize: getInt("INGEST_BATCH_SIZE", 20),
		AutoTranslate:   getEnv("AUTO_TRANSLATE", "true") == "true",

		SuggestionLimit:     getInt("SUGGESTION_LIMIT", 5),
		SuggestionPrefixLen: getInt("SUGGESTION_PREFIX_LEN", 5),

		QualityVerified:   getInt("QUALITY_VERIFIED_SCORE", 80),
		QualityPending:    getInt("QUALITY_PENDING_SCORE", 60),
		QualityIncomplete: getInt("QUALITY_INCOMPLETE_SCORE", 40),

		MediaDir:      getEnv("MEDIA_DIR", "./media"),
		MaxImageBytes: int64(getInt("MAX_IMAGE_MB", 10)) * 1024 * 1024,
		MaxVideoBytes: int64(getInt("MAX_VIDEO_MB", 100)) * 1024 * 1024,

		RequestRetentionDays: getInt("REQUEST_RETENTION_DAYS", 90),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
