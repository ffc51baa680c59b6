package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/singleflight"

	"github.com/acskang/endless-real-clips/internal/config"
	"github.com/acskang/endless-real-clips/internal/model"
	"github.com/acskang/endless-real-clips/internal/repository"
	"github.com/acskang/endless-real-clips/internal/utils"
)

// 검색 처리 경로
const (
	MethodCache     = "cache"
	MethodLocalDB   = "local_db"
	MethodExternal  = "external_api"
	MethodNoResults = "no_results"
)

// ValidationError 입력 거부 사유. 호출자(핸들러)는 이를 400 으로 매핑한다.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// SearchOutcome 검색 한 건의 전체 결과 요약
type SearchOutcome struct {
	Query          string             `json:"query"`
	RequestPhrase  string             `json:"request_phrase"`  // 검색에 실제 쓰인 영어형
	RequestKorean  string             `json:"request_korean"`  // 대응 한글형 (없으면 빈 값)
	Language       DetectedLanguage   `json:"language"`
	Translated     bool               `json:"translated"`
	Confidence     float64            `json:"confidence,omitempty"`
	Method         string             `json:"method"`
	Warnings       []string           `json:"warnings,omitempty"`
	Results        []model.ClipResult `json:"results"`
	Suggestions    []string           `json:"suggestions,omitempty"`
	TotalCount     int                `json:"total_count"`
	ElapsedMs      int64              `json:"elapsed_ms"`
}

// SearchOrchestrator 검색 전체 흐름 조정자.
// 검증 → 언어 판별/번역 → 로컬 검색 → (없으면) 외부 수집 → 원장 기록.
// 동일 구문의 동시 외부 요청은 singleflight 로 한 번만 나간다.
type SearchOrchestrator struct {
	cfg          *config.Config
	requestRepo  *repository.RequestRepository
	dialogueRepo *repository.DialogueRepository
	translator   *Translator
	phraseClient *PhraseClient
	ingest       *IngestionPipeline
	cache        utils.Cache
	fetchGroup   singleflight.Group
}

func NewSearchOrchestrator(cfg *config.Config, repos *repository.Repositories,
	translator *Translator, phraseClient *PhraseClient, ingest *IngestionPipeline,
	cache utils.Cache) *SearchOrchestrator {
	return &SearchOrchestrator{
		cfg:          cfg,
		requestRepo:  repos.Request,
		dialogueRepo: repos.Dialogue,
		translator:   translator,
		phraseClient: phraseClient,
		ingest:       ingest,
		cache:        cache,
	}
}

// Search 구문 검색 실행
func (s *SearchOrchestrator) Search(ctx context.Context, query string, filters repository.SearchFilters) (*SearchOutcome, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Reason: "검색어가 비어 있습니다"}
	}
	if len([]rune(query)) > s.cfg.MaxQueryLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("검색어가 너무 깁니다 (최대 %d자)", s.cfg.MaxQueryLength)}
	}

	outcome := &SearchOutcome{
		Query:    query,
		Language: DetectLanguage(query),
		Warnings: advisoryWarnings(query),
	}

	s.resolvePhrases(ctx, outcome)

	if filters.Limit <= 0 {
		filters.Limit = s.cfg.ResultLimit
	}

	// 원장 기록은 결과 유무와 무관하게 먼저 남긴다
	if _, err := s.requestRepo.RecordSearch(outcome.RequestPhrase, outcome.RequestKorean); err != nil {
		log.Printf("[Search] 원장 기록 실패 (%s): %v", outcome.RequestPhrase, err)
	}

	cacheKey := "search_result_" + model.ComputeContentHash(outcome.RequestPhrase)
	if s.cache != nil && defaultFilters(filters, s.cfg) {
		if cached, ok := s.cache.Get(cacheKey); ok {
			if results, ok := cached.([]model.ClipResult); ok {
				outcome.Method = MethodCache
				s.finish(outcome, results, started)
				return outcome, nil
			}
		}
	}

	// 로컬 우선: 영어형 → 한글형 순서로 시도
	results, err := s.searchLocal(outcome, filters)
	if err != nil {
		log.Printf("[Search] 로컬 검색 실패 (%s): %v", outcome.RequestPhrase, err)
	}
	if len(results) > 0 {
		outcome.Method = MethodLocalDB
		s.storeCache(cacheKey, results, filters)
		s.finish(outcome, results, started)
		return outcome, nil
	}

	// 외부 수집. 같은 구문의 동시 요청은 하나로 합쳐진다.
	external, fetchErr := s.fetchExternal(ctx, outcome.RequestPhrase, outcome.RequestKorean)
	if fetchErr != nil {
		log.Printf("[Search] 외부 수집 실패 (%s): %v", outcome.RequestPhrase, fetchErr)
	}
	if len(external) > 0 {
		if len(external) > filters.Limit {
			external = external[:filters.Limit]
		}
		outcome.Method = MethodExternal
		s.storeCache(cacheKey, external, filters)
		s.finish(outcome, external, started)
		return outcome, nil
	}

	// 결과 없음: 원장에 0 을 기록하고 제안을 채운다
	if err := s.requestRepo.UpdateResultCount(outcome.RequestPhrase, 0); err != nil {
		log.Printf("[Search] 결과 수 기록 실패: %v", err)
	}
	outcome.Method = MethodNoResults
	outcome.Suggestions = s.buildSuggestions(outcome.RequestPhrase)
	outcome.Results = []model.ClipResult{}
	outcome.ElapsedMs = time.Since(started).Milliseconds()
	return outcome, nil
}

// resolvePhrases 언어 판별과 번역으로 (영어형, 한글형) 쌍을 정한다.
// 한글 입력은 영어로 번역해 검색하고, 영어 입력은 한글형을 best-effort 로
// 채운다. 혼합/불명 입력은 번역 없이 그대로 쓴다.
func (s *SearchOrchestrator) resolvePhrases(ctx context.Context, outcome *SearchOutcome) {
	query := outcome.Query
	switch outcome.Language {
	case LangKorean:
		translated := s.translator.Translate(ctx, query, KoToEn)
		outcome.RequestPhrase = translated
		outcome.RequestKorean = query
		if translated != query {
			outcome.Translated = true
			outcome.Confidence = Confidence(query, translated, KoToEn)
		}
	case LangEnglish:
		outcome.RequestPhrase = query
		if s.cfg.AutoTranslate {
			korean := s.translator.Translate(ctx, query, EnToKo)
			if korean != query {
				outcome.RequestKorean = korean
			}
		}
	default:
		// 혼합 스크립트나 불명 입력은 번역을 시도하지 않는다
		outcome.RequestPhrase = query
	}
}

// searchLocal 영어형 우선, 비면 한글형으로 재시도
func (s *SearchOrchestrator) searchLocal(outcome *SearchOutcome, filters repository.SearchFilters) ([]model.ClipResult, error) {
	dialogues, err := s.dialogueRepo.Search(outcome.RequestPhrase, filters)
	if err != nil {
		return nil, err
	}
	if len(dialogues) == 0 && outcome.RequestKorean != "" {
		dialogues, err = s.dialogueRepo.Search(outcome.RequestKorean, filters)
		if err != nil {
			return nil, err
		}
	}
	results := make([]model.ClipResult, 0, len(dialogues))
	for i := range dialogues {
		results = append(results, model.ClipFromDialogue(&dialogues[i]))
	}
	return results, nil
}

// fetchExternal 외부 구문검색 호출 + 디코딩 + 수집. singleflight 로 같은
// 구문의 중복 호출을 막는다. 대기자들도 리더의 결과를 그대로 받는다.
func (s *SearchOrchestrator) fetchExternal(ctx context.Context, phrase, korean string) ([]model.ClipResult, error) {
	v, err, shared := s.fetchGroup.Do(phrase, func() (interface{}, error) {
		raw, err := s.phraseClient.Fetch(ctx, phrase, s.cfg.ResultLimit, 0)
		if err != nil {
			return nil, err
		}
		if raw == "" {
			return []model.ClipResult{}, nil
		}
		records := s.phraseClient.Decode(raw)
		if len(records) == 0 {
			return []model.ClipResult{}, nil
		}
		clips := s.ingest.Run(ctx, records, phrase, korean, s.cfg.IngestBatchSize)
		return clips, nil
	})
	if shared {
		log.Printf("[Search] 외부 요청 병합됨: %s", phrase)
	}
	if err != nil {
		return nil, err
	}
	return v.([]model.ClipResult), nil
}

// finish 결과 수 기록, 재생수 증가, 소요 시간 측정
func (s *SearchOrchestrator) finish(outcome *SearchOutcome, results []model.ClipResult, started time.Time) {
	outcome.Results = results
	outcome.TotalCount = len(results)
	outcome.ElapsedMs = time.Since(started).Milliseconds()

	if err := s.requestRepo.UpdateResultCount(outcome.RequestPhrase, len(results)); err != nil {
		log.Printf("[Search] 결과 수 기록 실패: %v", err)
	}

	ids := make([]uint, 0, len(results))
	for _, r := range results {
		if r.DialogueID != 0 {
			ids = append(ids, r.DialogueID)
		}
	}
	if err := s.dialogueRepo.IncrementPlayCount(ids); err != nil {
		log.Printf("[Search] 재생수 증가 실패: %v", err)
	}
}

// buildSuggestions 결과 없음일 때 대안 구문 제안.
// 인기 구문에서 자기 자신을 뺀 것 + 앞부분이 같은 구문, 상한은 설정값.
// 어느 조회가 실패해도 검색 응답 자체는 흔들리지 않는다.
func (s *SearchOrchestrator) buildSuggestions(phrase string) []string {
	limit := s.cfg.SuggestionLimit
	seen := map[string]bool{strings.ToLower(phrase): true}
	var suggestions []string

	add := func(recs []model.RequestRecord) {
		for _, rec := range recs {
			key := strings.ToLower(rec.Phrase)
			if seen[key] || len(suggestions) >= limit {
				continue
			}
			seen[key] = true
			suggestions = append(suggestions, rec.Phrase)
		}
	}

	runes := []rune(phrase)
	prefixLen := s.cfg.SuggestionPrefixLen
	if len(runes) >= prefixLen {
		if recs, err := s.requestRepo.FindByPrefix(string(runes[:prefixLen]), phrase, limit); err == nil {
			add(recs)
		} else {
			log.Printf("[Search] 접두 제안 조회 실패: %v", err)
		}
	}
	if len(suggestions) < limit {
		if recs, err := s.requestRepo.Popular(limit * 2); err == nil {
			add(recs)
		} else {
			log.Printf("[Search] 인기 제안 조회 실패: %v", err)
		}
	}
	return suggestions
}

// Trending 인기 검색 구문 상위 n개
func (s *SearchOrchestrator) Trending(n int) ([]model.RequestRecord, error) {
	if n <= 0 {
		n = s.cfg.SuggestionLimit
	}
	return s.requestRepo.Popular(n)
}

// storeCache 기본 필터 검색만 캐싱한다. 필터 조합별 캐시는 적중률이 낮아
// 키만 늘린다.
func (s *SearchOrchestrator) storeCache(key string, results []model.ClipResult, filters repository.SearchFilters) {
	if s.cache == nil || !defaultFilters(filters, s.cfg) {
		return
	}
	s.cache.Set(key, results, 5*time.Minute)
}

func defaultFilters(f repository.SearchFilters, cfg *config.Config) bool {
	return f.MinQuality == "" && f.MovieTitle == "" && f.ReleaseYear == "" &&
		(f.Sort == "" || f.Sort == "relevance") &&
		!f.IncludeInactive && f.Limit == cfg.ResultLimit
}

// advisoryWarnings 입력 품질 경고. 검색을 막지 않고 응답에 실려 나간다.
func advisoryWarnings(query string) []string {
	var warnings []string
	runes := []rune(query)

	if len(runes) <= 2 {
		warnings = append(warnings, "검색어가 짧아 결과가 부정확할 수 있습니다")
	}

	allDigits := len(runes) > 0
	for _, r := range runes {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		warnings = append(warnings, "숫자만으로는 대사를 찾기 어렵습니다")
	}

	if len(runes) >= 4 {
		same := true
		for _, r := range runes[1:] {
			if r != runes[0] {
				same = false
				break
			}
		}
		if same {
			warnings = append(warnings, "같은 문자의 반복입니다")
		}
	}

	if IsKorean(query) && IsEnglish(query) {
		warnings = append(warnings, "한글과 영어가 섞여 있어 번역 없이 검색합니다")
	}
	return warnings
}
