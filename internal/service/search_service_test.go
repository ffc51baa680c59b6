package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/acskang/endless-real-clips/internal/model"
	"github.com/acskang/endless-real-clips/internal/repository"
	"github.com/acskang/endless-real-clips/internal/utils"
)

// searchHarness 검색 흐름 테스트용 조립체
type searchHarness struct {
	db           *gorm.DB
	repos        *repository.Repositories
	orchestrator *SearchOrchestrator
	phraseCalls  *int32
}

func newSearchHarness(t *testing.T, phrasePayload string) *searchHarness {
	t.Helper()

	db := newTestDB(t)
	repos := repository.NewRepositories(db)
	cfg := testConfig()
	cache := utils.NewMemoryCache()

	var phraseCalls int32
	phraseSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&phraseCalls, 1)
		fmt.Fprint(w, phrasePayload)
	}))
	t.Cleanup(phraseSrv.Close)

	// 번역 서버는 항상 실패해 원문 그대로 흐르게 한다
	translateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(translateSrv.Close)

	translator := NewTranslator(translateSrv.URL, 100*time.Millisecond, nil)
	phraseClient := NewPhraseClient(phraseSrv.URL, time.Second, nil, repos.Request, repos.Dialogue)
	ingest := NewIngestionPipeline(db, nil, nil, cache, cfg)
	orchestrator := NewSearchOrchestrator(cfg, repos, translator, phraseClient, ingest, cache)

	return &searchHarness{db: db, repos: repos, orchestrator: orchestrator, phraseCalls: &phraseCalls}
}

func (h *searchHarness) seedDialogue(t *testing.T, title, phrase string, playCount int) {
	t.Helper()
	movie, err := h.repos.Movie.InsertIfAbsent(&model.Movie{
		Title: title, ReleaseYear: "1999", Director: "Someone", DataQuality: model.QualityVerified,
	})
	require.NoError(t, err)
	d, _, err := h.repos.Dialogue.InsertIfAbsent(&model.Dialogue{
		MovieID: movie.ID, Phrase: phrase, StartTime: "00:01:00",
		VideoURL: "https://cdn.example.com/c.mp4", IsActive: true,
	})
	require.NoError(t, err)
	require.NoError(t, h.db.Model(&model.Dialogue{}).Where("id = ?", d.ID).
		Update("play_count", playCount).Error)
}

func TestSearchValidation(t *testing.T) {
	h := newSearchHarness(t, "")

	_, err := h.orchestrator.Search(context.Background(), "   ", repository.SearchFilters{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	long := make([]byte, 0, 600)
	for i := 0; i < 600; i++ {
		long = append(long, 'a')
	}
	_, err = h.orchestrator.Search(context.Background(), string(long), repository.SearchFilters{})
	require.ErrorAs(t, err, &ve)
}

func TestSearchServesLocalWithoutExternalCall(t *testing.T) {
	h := newSearchHarness(t, "")
	h.seedDialogue(t, "The Matrix", "I know kung fu", 3)

	outcome, err := h.orchestrator.Search(context.Background(), "kung fu", repository.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, MethodLocalDB, outcome.Method)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "The Matrix", outcome.Results[0].MovieTitle)
	assert.Equal(t, int32(0), atomic.LoadInt32(h.phraseCalls), "로컬에 있으면 외부 호출 없음")

	// 원장에 결과 수가 남는다
	rec, err := h.repos.Request.FindByPhrase("kung fu")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.ResultCount)
}

func TestSearchFallsBackToExternal(t *testing.T) {
	payload := encodedPayload(
		encodedBlock("The Matrix (1999)", "00:12:34", "", "https://cdn.example.com/1.mp4", "I know kung fu"))
	h := newSearchHarness(t, payload)

	outcome, err := h.orchestrator.Search(context.Background(), "kung fu", repository.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, MethodExternal, outcome.Method)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "The Matrix", outcome.Results[0].MovieTitle)
	assert.Equal(t, int32(1), atomic.LoadInt32(h.phraseCalls))

	// 수집이 로컬 저장소에 남았다
	var dialogueCount int64
	h.db.Model(&model.Dialogue{}).Count(&dialogueCount)
	assert.Equal(t, int64(1), dialogueCount)

	// 두 번째 검색은 외부로 나가지 않는다
	outcome, err = h.orchestrator.Search(context.Background(), "kung fu", repository.SearchFilters{})
	require.NoError(t, err)
	assert.Contains(t, []string{MethodCache, MethodLocalDB}, outcome.Method)
	assert.Equal(t, int32(1), atomic.LoadInt32(h.phraseCalls))
}

func TestSearchNoResultsProducesSuggestions(t *testing.T) {
	// 외부는 빈 데이터 없음 응답
	h := newSearchHarness(t, "nothing")

	// 제안 재료가 될 과거 검색들
	for _, p := range []string{"hello world", "hello friend"} {
		_, err := h.repos.Request.RecordSearch(p, "")
		require.NoError(t, err)
	}

	outcome, err := h.orchestrator.Search(context.Background(), "hello nobody said this", repository.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, MethodNoResults, outcome.Method)
	assert.Empty(t, outcome.Results)
	assert.NotEmpty(t, outcome.Suggestions)
	assert.NotContains(t, outcome.Suggestions, "hello nobody said this")

	rec, err := h.repos.Request.FindByPhrase("hello nobody said this")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 0, rec.ResultCount)
}

func TestSearchRepeatIncrementsLedger(t *testing.T) {
	h := newSearchHarness(t, "nothing")
	h.seedDialogue(t, "Heat", "what do you say", 0)

	for i := 0; i < 3; i++ {
		_, err := h.orchestrator.Search(context.Background(), "what do you say", repository.SearchFilters{})
		require.NoError(t, err)
	}

	rec, err := h.repos.Request.FindByPhrase("what do you say")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.SearchCount, "구문당 한 행, 횟수만 증가")
}

func TestSearchMixedScriptSkipsTranslation(t *testing.T) {
	h := newSearchHarness(t, "nothing")

	outcome, err := h.orchestrator.Search(context.Background(), "hello 세상", repository.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, LangMixed, outcome.Language)
	assert.False(t, outcome.Translated)
	assert.Equal(t, "hello 세상", outcome.RequestPhrase)
	assert.NotEmpty(t, outcome.Warnings)
}

func TestSearchKoreanFallsBackWhenTranslatorDown(t *testing.T) {
	h := newSearchHarness(t, "nothing")

	outcome, err := h.orchestrator.Search(context.Background(), "안녕하세요", repository.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, LangKorean, outcome.Language)
	// 번역 실패 시 원문으로 검색을 계속한다
	assert.Equal(t, "안녕하세요", outcome.RequestPhrase)
	assert.False(t, outcome.Translated)
}

func TestAdvisoryWarnings(t *testing.T) {
	assert.NotEmpty(t, advisoryWarnings("ab"), "짧은 검색어")
	assert.NotEmpty(t, advisoryWarnings("12345"), "숫자만")
	assert.NotEmpty(t, advisoryWarnings("aaaaaa"), "같은 문자 반복")
	assert.NotEmpty(t, advisoryWarnings("hello 세상"), "혼합 스크립트")
	assert.Empty(t, advisoryWarnings("a normal phrase"))
}

func TestTrending(t *testing.T) {
	h := newSearchHarness(t, "nothing")
	for i := 0; i < 3; i++ {
		_, err := h.repos.Request.RecordSearch("popular phrase", "")
		require.NoError(t, err)
	}
	_, err := h.repos.Request.RecordSearch("rare phrase", "")
	require.NoError(t, err)

	recs, err := h.orchestrator.Trending(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "popular phrase", recs[0].Phrase)
}

func TestConcurrentFirstTimeSearches(t *testing.T) {
	payload := encodedPayload(
		encodedBlock("Dune (2021)", "00:10:00", "https://example.com/d", "https://cdn.example.com/d.mp4", "fear is the mind killer"))
	h := newSearchHarness(t, payload)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orchestrator.Search(context.Background(), "fear is the mind killer", repository.SearchFilters{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 동시 첫 검색이라도 외부 호출은 한 번으로 합쳐진다
	assert.Equal(t, int32(1), atomic.LoadInt32(h.phraseCalls))

	var movieRows, dialogueRows int64
	h.db.Model(&model.Movie{}).Count(&movieRows)
	h.db.Model(&model.Dialogue{}).Count(&dialogueRows)
	assert.Equal(t, int64(1), movieRows)
	assert.Equal(t, int64(1), dialogueRows)

	rec, err := h.repos.Request.FindByPhrase("fear is the mind killer")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.SearchCount)
}
