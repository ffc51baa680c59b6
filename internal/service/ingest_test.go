package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acskang/endless-real-clips/internal/config"
	"github.com/acskang/endless-real-clips/internal/model"
	"github.com/acskang/endless-real-clips/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repository.Migrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		MaxQueryLength:      500,
		ResultLimit:         10,
		IngestBatchSize:     20,
		AutoTranslate:       false,
		SuggestionLimit:     5,
		SuggestionPrefixLen: 5,
		QualityVerified:     80,
		QualityPending:      60,
		QualityIncomplete:   40,
	}
}

func newTestPipeline(t *testing.T, db *gorm.DB) *IngestionPipeline {
	t.Helper()
	return NewIngestionPipeline(db, nil, nil, nil, testConfig())
}

func TestParseMovieTitle(t *testing.T) {
	cases := []struct {
		raw      string
		title    string
		original string
		year     string
	}{
		{"The Matrix (1999)", "The Matrix", "", "1999"},
		{"Old Movie [1954]", "Old Movie", "", "1954"},
		{"Cloud Atlas 2012", "Cloud Atlas", "", "2012"},
		{"Oldboy - 올드보이 (2003)", "Oldboy", "올드보이", "2003"},
		{"Title | Alt Title (2010)", "Title", "Alt Title", "2010"},
		{"No Year Movie", "No Year Movie", "", model.YearUnknown},
		{"", "Unknown Movie", "", model.YearUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got := ParseMovieTitle(tc.raw)
			assert.Equal(t, tc.title, got.Title)
			assert.Equal(t, tc.original, got.OriginalTitle)
			assert.Equal(t, tc.year, got.ReleaseYear)
		})
	}
}

func TestEvaluateDataQualityThresholds(t *testing.T) {
	p := newTestPipeline(t, newTestDB(t))

	full := qualityInput{Title: "Heat", Year: "1995", Director: "Michael Mann",
		Dialogue: "hello", VideoURL: "https://cdn/v.mp4", PosterURL: "https://cdn/p.jpg"}
	assert.Equal(t, model.QualityVerified, p.EvaluateDataQuality(full))

	// 80점 경계: 제목 + 연도 + 대사 + 비디오
	assert.Equal(t, model.QualityVerified, p.EvaluateDataQuality(qualityInput{
		Title: "Heat", Year: "1995", Dialogue: "hello", VideoURL: "https://cdn/v.mp4"}))

	// 60점: 비디오 없음
	assert.Equal(t, model.QualityPending, p.EvaluateDataQuality(qualityInput{
		Title: "Heat", Year: "1995", Dialogue: "hello"}))

	// 40점: 연도 센티널
	assert.Equal(t, model.QualityIncomplete, p.EvaluateDataQuality(qualityInput{
		Title: "Heat", Year: model.YearUnknown, Dialogue: "hello"}))

	// 20점: 제목만
	assert.Equal(t, model.QualityError, p.EvaluateDataQuality(qualityInput{Title: "Heat"}))

	// 센티널 감독은 점수에 들어가지 않는다
	assert.Equal(t, model.QualityPending, p.EvaluateDataQuality(qualityInput{
		Title: "Heat", Year: "1995", Dialogue: "hello", Director: model.DirectorUnknown}))
}

func TestRunDeduplicatesMovies(t *testing.T) {
	db := newTestDB(t)
	p := newTestPipeline(t, db)

	records := []model.RawClipRecord{
		{Name: "The Matrix (1999)", StartTime: "00:01:00", Text: "I know kung fu",
			VideoURL: "https://cdn.example.com/1.mp4", SourceURL: "https://example.com/m"},
		{Name: "The Matrix (1999)", StartTime: "00:02:00", Text: "There is no spoon",
			VideoURL: "https://cdn.example.com/2.mp4", SourceURL: "https://example.com/m"},
		{Name: "Heat (1995)", StartTime: "00:03:00", Text: "What do you say",
			VideoURL: "https://cdn.example.com/3.mp4", SourceURL: "https://example.com/h"},
	}

	results := p.Run(context.Background(), records, "kung fu", "", 20)
	assert.Len(t, results, 3)

	var movieCount, dialogueCount int64
	db.Model(&model.Movie{}).Count(&movieCount)
	db.Model(&model.Dialogue{}).Count(&dialogueCount)
	assert.Equal(t, int64(2), movieCount, "같은 영화의 클립 두 개는 영화 한 행")
	assert.Equal(t, int64(3), dialogueCount)
}

func TestRunIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	p := newTestPipeline(t, db)

	records := []model.RawClipRecord{
		{Name: "Heat (1995)", StartTime: "00:03:00", Text: "What do you say",
			VideoURL: "https://cdn.example.com/3.mp4"},
	}

	p.Run(context.Background(), records, "say", "", 20)
	p.Run(context.Background(), records, "say", "", 20)

	var movieCount, dialogueCount int64
	db.Model(&model.Movie{}).Count(&movieCount)
	db.Model(&model.Dialogue{}).Count(&dialogueCount)
	assert.Equal(t, int64(1), movieCount)
	assert.Equal(t, int64(1), dialogueCount, "재수집해도 행이 늘지 않는다")
}

func TestRunStoresQuality(t *testing.T) {
	db := newTestDB(t)
	p := newTestPipeline(t, db)

	records := []model.RawClipRecord{
		// 연도/비디오 없는 빈약한 레코드
		{Name: "Mystery Movie", StartTime: "00:00:00", Text: "who knows"},
	}
	p.Run(context.Background(), records, "who", "", 20)

	var movie model.Movie
	require.NoError(t, db.First(&movie).Error)
	assert.Equal(t, model.YearUnknown, movie.ReleaseYear)
	assert.Equal(t, model.QualityIncomplete, movie.DataQuality)
}

func TestRunUpdatesResultCount(t *testing.T) {
	db := newTestDB(t)
	p := newTestPipeline(t, db)
	requests := repository.NewRequestRepository(db)

	_, err := requests.RecordSearch("kung fu", "")
	require.NoError(t, err)

	records := []model.RawClipRecord{
		{Name: "The Matrix (1999)", StartTime: "00:01:00", Text: "I know kung fu",
			VideoURL: "https://cdn.example.com/1.mp4"},
	}
	p.Run(context.Background(), records, "kung fu", "", 20)

	rec, err := requests.FindByPhrase("kung fu")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.ResultCount)
}

func TestRunEmptyInput(t *testing.T) {
	p := newTestPipeline(t, newTestDB(t))
	assert.Nil(t, p.Run(context.Background(), nil, "x", "", 20))
}
