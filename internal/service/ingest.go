package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/acskang/endless-real-clips/internal/config"
	"github.com/acskang/endless-real-clips/internal/model"
	"github.com/acskang/endless-real-clips/internal/repository"
	"github.com/acskang/endless-real-clips/internal/utils"
)

// IngestionPipeline 외부 원시 레코드를 영화/대사 행으로 수집한다.
// 영화는 (제목, 연도, 감독) 삼중키, 대사는 dialogue_hash 로 중복을 막고,
// 배치 단위 독립 트랜잭션으로 부분 실패를 격리한다.
type IngestionPipeline struct {
	db         *gorm.DB
	translator *Translator
	poster     *PosterService
	cache      utils.Cache
	cfg        *config.Config
}

func NewIngestionPipeline(db *gorm.DB, translator *Translator, poster *PosterService,
	cache utils.Cache, cfg *config.Config) *IngestionPipeline {
	return &IngestionPipeline{db: db, translator: translator, poster: poster, cache: cache, cfg: cfg}
}

// 연도 추출 패턴, 우선순위 순서: (1999) → [1999] → 끝자리 1999
var yearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\((\d{4})\)`),
	regexp.MustCompile(`\[(\d{4})\]`),
	regexp.MustCompile(`(\d{4})$`),
}

// titleSeparators 제목/원제 구분자, 첫 번째 일치로 분할
var titleSeparators = []string{" - ", " | ", " : ", " / "}

// ParseMovieTitle 원시 이름에서 제목/원제/연도 추출. 연도가 없으면 센티널
// "1004", 제목이 비면 원시 이름 전체를 제목으로 쓴다.
func ParseMovieTitle(rawName string) model.ParsedTitle {
	parsed := model.ParsedTitle{
		Title:       strings.TrimSpace(rawName),
		ReleaseYear: model.YearUnknown,
	}

	for _, re := range yearPatterns {
		if m := re.FindStringSubmatch(parsed.Title); m != nil {
			parsed.ReleaseYear = m[1]
			parsed.Title = strings.TrimSpace(re.ReplaceAllString(parsed.Title, ""))
			break
		}
	}

	for _, sep := range titleSeparators {
		if strings.Contains(parsed.Title, sep) {
			parts := strings.SplitN(parsed.Title, sep, 2)
			parsed.Title = strings.TrimSpace(parts[0])
			if len(parts) > 1 {
				parsed.OriginalTitle = strings.TrimSpace(parts[1])
			}
			break
		}
	}

	if parsed.Title == "" {
		parsed.Title = strings.TrimSpace(rawName)
		if parsed.Title == "" {
			parsed.Title = "Unknown Movie"
		}
	}
	return parsed
}

// qualityInput 품질 평가 입력
type qualityInput struct {
	Title     string
	Year      string
	Director  string
	Dialogue  string
	VideoURL  string
	PosterURL string
}

// EvaluateDataQuality 가산 점수 평가: 제목 +20, 실제 연도 +20, 대사 +20,
// 비디오 URL +20, 포스터 URL +10, 실제 감독 +10. 임계값은 설정값
// (기본 80/60/40).
func (p *IngestionPipeline) EvaluateDataQuality(in qualityInput) model.DataQuality {
	score := 0
	if in.Title != "" {
		score += 20
	}
	if in.Year != "" && in.Year != model.YearUnknown {
		score += 20
	}
	if in.Dialogue != "" {
		score += 20
	}
	if in.VideoURL != "" {
		score += 20
	}
	if in.PosterURL != "" {
		score += 10
	}
	if in.Director != "" && in.Director != model.DirectorUnknown {
		score += 10
	}

	switch {
	case score >= p.cfg.QualityVerified:
		return model.QualityVerified
	case score >= p.cfg.QualityPending:
		return model.QualityPending
	case score >= p.cfg.QualityIncomplete:
		return model.QualityIncomplete
	default:
		return model.QualityError
	}
}

// Run 수집 파이프라인 실행: 파싱 → 배치 중복 검사 → 영화/대사 저장 →
// 품질 평가/보강 → 통합 클립 목록 반환. 배치별 트랜잭션이라 한 배치의
// 실패가 이미 커밋된 배치를 되돌리지 않는다. 모든 배치 종료 후 원장의
// result_count 를 갱신한다 (부분 성공이어도 성공분 기준).
func (p *IngestionPipeline) Run(ctx context.Context, rawRecords []model.RawClipRecord,
	requestPhrase, requestKorean string, batchSize int) []model.ClipResult {

	if len(rawRecords) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = p.cfg.IngestBatchSize
	}

	// 사전 파싱: 레코드별 영화 후보 구성
	type parsedRecord struct {
		raw   model.RawClipRecord
		movie model.Movie
	}
	parsed := make([]parsedRecord, 0, len(rawRecords))
	for _, raw := range rawRecords {
		title := ParseMovieTitle(raw.Name)
		parsed = append(parsed, parsedRecord{
			raw: raw,
			movie: model.Movie{
				Title:         title.Title,
				OriginalTitle: title.OriginalTitle,
				ReleaseYear:   title.ReleaseYear,
				Director:      model.DirectorUnknown,
				Country:       model.CountryUnknown,
				SourceURL:     raw.SourceURL,
			},
		})
	}

	// 배치 중복 검사: 기존 삼중키를 한 번에 조회
	movieRepo := repository.NewMovieRepository(p.db)
	candidates := make([]model.Movie, len(parsed))
	for i := range parsed {
		candidates[i] = parsed[i].movie
	}
	existing, err := movieRepo.FindByTriples(candidates)
	if err != nil {
		log.Printf("[Ingest] 배치 중복 검사 실패: %v", err)
		existing = map[string]*model.Movie{}
	}
	newCount := 0
	for i := range parsed {
		if existing[parsed[i].movie.TripleKey()] == nil {
			newCount++
		}
	}
	log.Printf("[Ingest] 중복 검사 완료: 신규 %d개, 기존 %d개", newCount, len(parsed)-newCount)

	var results []model.ClipResult
	totalBatches := (len(parsed) + batchSize - 1) / batchSize

	for start := 0; start < len(parsed); start += batchSize {
		end := start + batchSize
		if end > len(parsed) {
			end = len(parsed)
		}
		batch := parsed[start:end]
		batchNum := start/batchSize + 1

		// 배치 클립은 커밋이 확정된 뒤에만 결과에 합친다.
		// 롤백된 배치의 클립이 결과 수를 부풀리면 안 된다.
		var batchClips []model.ClipResult
		err := p.db.Transaction(func(tx *gorm.DB) error {
			txMovies := repository.NewMovieRepository(tx)
			txDialogues := repository.NewDialogueRepository(tx)

			for _, rec := range batch {
				clip, err := p.persistRecord(ctx, txMovies, txDialogues, rec.movie, rec.raw, existing)
				if err != nil {
					// 단일 레코드 실패는 기록하고 건너뛴다
					log.Printf("[Ingest] 레코드 처리 실패 (%s): %v", rec.movie.Title, err)
					continue
				}
				batchClips = append(batchClips, clip)
			}
			return nil
		})
		if err != nil {
			log.Printf("[Ingest] 배치 %d/%d 실패, 롤백: %v", batchNum, totalBatches, err)
			continue
		}
		results = append(results, batchClips...)
	}

	// 수집 결과가 로컬 검색 결과 캐시를 낡게 만들므로 명시적으로 무효화
	p.invalidateSearchCache(requestPhrase, requestKorean)

	if requestPhrase != "" {
		requestRepo := repository.NewRequestRepository(p.db)
		if err := requestRepo.UpdateResultCount(requestPhrase, len(results)); err != nil {
			log.Printf("[Ingest] 결과 수 갱신 실패: %v", err)
		}
	}

	log.Printf("[Ingest] 수집 완료: %d개 레코드 → %d개 클립", len(rawRecords), len(results))
	return results
}

// persistRecord 영화 한 건 + 대사 한 건 저장
func (p *IngestionPipeline) persistRecord(ctx context.Context,
	movies *repository.MovieRepository, dialogues *repository.DialogueRepository,
	candidate model.Movie, raw model.RawClipRecord,
	existing map[string]*model.Movie) (model.ClipResult, error) {

	movie := existing[candidate.TripleKey()]
	if movie == nil {
		candidate.DataQuality = p.EvaluateDataQuality(qualityInput{
			Title:    candidate.Title,
			Year:     candidate.ReleaseYear,
			Director: candidate.Director,
			Dialogue: raw.Text,
			VideoURL: raw.VideoURL,
		})

		saved, err := movies.InsertIfAbsent(&candidate)
		if err != nil {
			return model.ClipResult{}, fmt.Errorf("영화 저장 실패: %w", err)
		}
		if saved == nil {
			return model.ClipResult{}, fmt.Errorf("영화 저장 후 조회 실패: %s", candidate.Title)
		}
		movie = saved
		existing[candidate.TripleKey()] = saved

		// 메타데이터가 빈약한 영화만 포스터 보강 (외부 요청 절약)
		if movie.DataQuality == model.QualityIncomplete || movie.DataQuality == model.QualityError {
			p.enrichMovie(ctx, movies, movie, raw)
		}
	}

	dialogue := &model.Dialogue{
		MovieID:            movie.ID,
		Phrase:             strings.TrimSpace(raw.Text),
		StartTime:          raw.StartTime,
		VideoURL:           raw.VideoURL,
		TranslationMethod:  model.TranslationUnknown,
		TranslationQuality: model.TransQualityFair,
		IsActive:           true,
	}
	saved, created, err := dialogues.InsertIfAbsent(dialogue)
	if err != nil {
		return model.ClipResult{}, fmt.Errorf("대사 저장 실패: %w", err)
	}
	if saved == nil {
		return model.ClipResult{}, fmt.Errorf("대사 저장 후 조회 실패")
	}

	// 신규 대사에 한글이 없으면 자동 번역. 실패는 비치명적이며
	// phrase_ko 는 비고 translation_method 는 unknown 으로 남는다.
	if created && p.cfg.AutoTranslate && saved.PhraseKo == "" && p.translator != nil {
		korean := p.translator.Translate(ctx, saved.Phrase, EnToKo)
		if korean != "" && korean != saved.Phrase {
			if err := dialogues.UpdateTranslation(saved.ID, korean, model.TranslationAPIAuto); err != nil {
				log.Printf("[Ingest] 번역 저장 실패: %v", err)
			} else {
				saved.PhraseKo = korean
				saved.TranslationMethod = model.TranslationAPIAuto
			}
		}
	}

	saved.Movie = movie
	return model.ClipFromDialogue(saved), nil
}

// enrichMovie 포스터 추출/다운로드 후 품질 재평가. 전 과정 best-effort.
func (p *IngestionPipeline) enrichMovie(ctx context.Context,
	movies *repository.MovieRepository, movie *model.Movie, raw model.RawClipRecord) {

	if p.poster == nil || movie.SourceURL == "" {
		return
	}

	posterURL, err := p.poster.ExtractPosterURL(ctx, movie.SourceURL)
	if err != nil {
		log.Printf("[Ingest] 포스터 추출 실패 (%s): %v", movie.Title, err)
		return
	}

	posterImage, err := p.poster.DownloadPoster(ctx, posterURL, movie.Title)
	if err != nil {
		log.Printf("[Ingest] 포스터 다운로드 실패 (%s): %v", movie.Title, err)
		// URL 만이라도 반영한다
	}

	quality := p.EvaluateDataQuality(qualityInput{
		Title:     movie.Title,
		Year:      movie.ReleaseYear,
		Director:  movie.Director,
		Dialogue:  raw.Text,
		VideoURL:  raw.VideoURL,
		PosterURL: posterURL,
	})
	if err := movies.UpdateEnrichment(movie.ID, posterURL, posterImage, quality); err != nil {
		log.Printf("[Ingest] 보강 결과 저장 실패 (%s): %v", movie.Title, err)
		return
	}
	movie.PosterURL = posterURL
	movie.PosterImage = posterImage
	movie.DataQuality = quality
}

// invalidateSearchCache 검색 결과 캐시 무효화
func (p *IngestionPipeline) invalidateSearchCache(phrases ...string) {
	if p.cache == nil {
		return
	}
	for _, phrase := range phrases {
		if phrase != "" {
			p.cache.Delete("search_result_" + model.ComputeContentHash(phrase))
		}
	}
}
