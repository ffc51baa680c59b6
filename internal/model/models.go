package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Placeholder sentinels carried over from the source data. A movie parsed
// from a raw clip name keeps these until enrichment fills in real values.
const (
	YearUnknown     = "1004"
	DirectorUnknown = "unknown director"
	CountryUnknown  = "earth"
)

// DataQuality 영화 메타데이터 완성도 등급
type DataQuality string

const (
	QualityVerified   DataQuality = "verified"
	QualityPending    DataQuality = "pending"
	QualityIncomplete DataQuality = "incomplete"
	QualityError      DataQuality = "error"
)

// TranslationMethod 번역 방법
type TranslationMethod string

const (
	TranslationManual        TranslationMethod = "manual"
	TranslationAPIAuto       TranslationMethod = "api_auto"
	TranslationAIImproved    TranslationMethod = "ai_improved"
	TranslationUserSubmitted TranslationMethod = "user_submitted"
	TranslationUnknown       TranslationMethod = "unknown"
)

// TranslationQuality 번역 품질
type TranslationQuality string

const (
	TransQualityExcellent TranslationQuality = "excellent"
	TransQualityGood      TranslationQuality = "good"
	TransQualityFair      TranslationQuality = "fair"
	TransQualityPoor      TranslationQuality = "poor"
	TransQualityUnknown   TranslationQuality = "unknown"
)

// RequestRecord 검색 요청 원장 (one row per distinct normalized phrase)
type RequestRecord struct {
	ID                 uint               `json:"id" gorm:"primaryKey"`
	Phrase             string             `json:"phrase" gorm:"uniqueIndex;not null"`
	KoreanForm         string             `json:"korean_form"`
	ContentHash        string             `json:"content_hash" gorm:"uniqueIndex;size:64"`
	SearchCount        int                `json:"search_count" gorm:"default:1"`
	ResultCount        int                `json:"result_count" gorm:"default:0"`
	LastSearchedAt     time.Time          `json:"last_searched_at" gorm:"index"`
	TranslationQuality TranslationQuality `json:"translation_quality" gorm:"default:unknown"`
	IsActive           bool               `json:"is_active" gorm:"default:true"`
	CreatedAt          time.Time          `json:"created_at"`
}

// ComputeContentHash 구문 전체 텍스트의 안정 해시
func ComputeContentHash(phrase string) string {
	sum := sha256.Sum256([]byte(phrase))
	return hex.EncodeToString(sum[:])
}

// Movie 영화 모델
type Movie struct {
	ID            uint        `json:"id" gorm:"primaryKey"`
	Title         string      `json:"title" gorm:"index:idx_movie_triple,unique;not null"`
	OriginalTitle string      `json:"original_title"`
	ReleaseYear   string      `json:"release_year" gorm:"index:idx_movie_triple,unique;size:4;default:1004"`
	Director      string      `json:"director" gorm:"index:idx_movie_triple,unique;default:unknown director"`
	Country       string      `json:"country" gorm:"default:earth"`
	Genre         string      `json:"genre"`
	Rating        float64     `json:"rating"`
	SourceURL     string      `json:"source_url"`
	PosterURL     string      `json:"poster_url"`
	PosterImage   string      `json:"poster_image"` // stored asset path, owned by this movie
	DataQuality   DataQuality `json:"data_quality" gorm:"index;default:pending"`
	ViewCount     int         `json:"view_count" gorm:"default:0"`
	LikeCount     int         `json:"like_count" gorm:"default:0"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	Dialogues []Dialogue `json:"dialogues,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// TripleKey dedup key: (title, release_year, director)
func (m *Movie) TripleKey() string {
	return m.Title + "\x00" + m.ReleaseYear + "\x00" + m.Director
}

// HasRealYear reports whether the release year is known (not the sentinel).
func (m *Movie) HasRealYear() bool {
	return m.ReleaseYear != "" && m.ReleaseYear != YearUnknown
}

// HasRealDirector reports whether the director is known (not the sentinel).
func (m *Movie) HasRealDirector() bool {
	return m.Director != "" && m.Director != DirectorUnknown
}

// Dialogue 영화 대사 클립
type Dialogue struct {
	ID                 uint               `json:"id" gorm:"primaryKey"`
	MovieID            uint               `json:"movie_id" gorm:"index;not null"`
	Movie              *Movie             `json:"movie,omitempty"`
	Phrase             string             `json:"phrase" gorm:"not null"`
	PhraseKo           string             `json:"phrase_ko"`
	DialogueHash       string             `json:"dialogue_hash" gorm:"uniqueIndex;size:64"`
	StartTime          string             `json:"start_time" gorm:"default:00:00:00"`
	EndTime            string             `json:"end_time"`
	DurationSeconds    int                `json:"duration_seconds"`
	VideoURL           string             `json:"video_url"`
	VideoFile          string             `json:"video_file"` // stored asset path
	VideoQuality       string             `json:"video_quality" gorm:"default:unknown"`
	TranslationMethod  TranslationMethod  `json:"translation_method" gorm:"index;default:unknown"`
	TranslationQuality TranslationQuality `json:"translation_quality" gorm:"index;default:unknown"`
	PlayCount          int                `json:"play_count" gorm:"index;default:0"`
	LikeCount          int                `json:"like_count" gorm:"default:0"`
	SearchVector       string             `json:"-" gorm:"index"`
	IsActive           bool               `json:"is_active" gorm:"default:true"`
	CreatedAt          time.Time          `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ComputeDialogueHash fingerprints (movie, phrase, start time). The external
// source repeats the same clip across pages; this hash is the dedup guard.
func ComputeDialogueHash(movieID uint, phrase, startTime string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s:%s", movieID, phrase, startTime)))
	return hex.EncodeToString(sum[:])
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeSearchText lowercases and strips punctuation for substring search.
func NormalizeSearchText(texts ...string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t == "" {
			continue
		}
		n := nonWordRe.ReplaceAllString(strings.ToLower(t), " ")
		n = strings.TrimSpace(spaceRe.ReplaceAllString(n, " "))
		if n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}

// RefreshSearchVector rebuilds the search vector from both language fields.
func (d *Dialogue) RefreshSearchVector() {
	d.SearchVector = NormalizeSearchText(d.Phrase, d.PhraseKo)
}

// EnsureHash fills the dialogue hash if empty.
func (d *Dialogue) EnsureHash() {
	if d.DialogueHash == "" {
		d.DialogueHash = ComputeDialogueHash(d.MovieID, d.Phrase, d.StartTime)
	}
}
