package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/acskang/endless-real-clips/internal/model"
	"github.com/acskang/endless-real-clips/internal/repository"
	"github.com/acskang/endless-real-clips/internal/utils"
)

// PhraseClient 외부 구문검색 제공자 클라이언트.
// 제공자는 JSON 의 중괄호/대괄호를 특수문자 4개로 치환하고 작은따옴표와
// 파이썬식 True/False 를 쓰는 자체 인코딩으로 응답한다. 디코딩은 방어적으로
// 하며 구조 파싱이 실패하면 블록 단위 패턴 추출로 내려간다.
type PhraseClient struct {
	baseURL      string
	client       *utils.HTTPClient
	cache        *utils.TypedCache[string]
	statsCache   utils.Cache
	statsMu      sync.Mutex
	requestRepo  *repository.RequestRepository
	dialogueRepo *repository.DialogueRepository
}

func NewPhraseClient(baseURL string, timeout time.Duration, statsCache utils.Cache,
	requestRepo *repository.RequestRepository, dialogueRepo *repository.DialogueRepository) *PhraseClient {
	return &PhraseClient{
		baseURL:      baseURL,
		client:       utils.NewHTTPClient(timeout),
		cache:        utils.NewTypedCache[string](500, time.Hour),
		statsCache:   statsCache,
		requestRepo:  requestRepo,
		dialogueRepo: dialogueRepo,
	}
}

// Fetch 구문 검색 요청. 원장이나 로컬 인덱스에 이미 알려진 구문이면 호출을
// 생략한다 (비용 회피 정책). 유효한 원시 응답은 (query, limit, skip) 키로
// 1시간 캐싱된다. 응답이 없거나 검증 실패면 (빈 문자열, nil) 을 반환한다.
func (c *PhraseClient) Fetch(ctx context.Context, queryText string, limit, skip int) (string, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return "", nil
	}

	cacheKey := fmt.Sprintf("%s|%d|%d", queryText, limit, skip)
	if cached, ok := c.cache.Get(cacheKey); ok {
		log.Printf("[PhraseClient] 원시 응답 캐시 조회: %s", queryText)
		return cached, nil
	}

	if c.hasExistingData(queryText) {
		log.Printf("[PhraseClient] 기존 데이터 존재, API 호출 생략: %s", queryText)
		return "", nil
	}

	reqURL := fmt.Sprintf("%s?q=%s&limit=%d&skip=%d&language=en",
		c.baseURL, url.QueryEscape(queryText), limit, skip)

	body, err := c.client.GetWithRetry(ctx, reqURL, map[string]string{
		"accept":  "json",
		"referer": "https://www.playphrase.me/",
	})
	if err != nil {
		c.bumpStat("failed_requests", 0)
		log.Printf("[PhraseClient] API 요청 최종 실패: %s (%v)", queryText, err)
		return "", err
	}

	raw := string(body)
	if !ValidatePayload(raw) {
		// 검증된 "데이터 없음" 응답은 재시도 대상이 아니다
		c.bumpStat("failed_requests", 0)
		log.Printf("[PhraseClient] 응답 검증 실패: %s", queryText)
		return "", nil
	}

	c.cache.Set(cacheKey, raw)
	c.bumpStat("successful_requests", len(raw))
	return raw, nil
}

// hasExistingData 이전 검색이 실제 결과를 남긴 구문인지 확인.
// 원장 기록 자체는 호출 전에 이미 남으므로 결과 수가 판단 기준이다.
// 확인 자체가 실패하면 호출을 막지 않는다.
func (c *PhraseClient) hasExistingData(text string) bool {
	if c.requestRepo != nil {
		if rec, err := c.requestRepo.FindByPhrase(text); err == nil && rec != nil && rec.ResultCount > 0 {
			return true
		}
	}
	if c.dialogueRepo != nil {
		if count, err := c.dialogueRepo.CountMatching(text); err == nil && count > 0 {
			return true
		}
	}
	return false
}

// ValidatePayload 원시 응답 검증: 빈 응답, 에러 플래그, 50자 미만,
// 구조 마커("phrases" 또는 치환 문자) 부재를 거절한다.
func ValidatePayload(data string) bool {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "error") || strings.Contains(lower, "not found") {
		return false
	}
	if len(trimmed) < 50 {
		return false
	}
	return strings.Contains(trimmed, "phrases") || strings.Contains(trimmed, "°")
}

/// 제공자 인코딩 치환표: ° → {, ç → }, ¡ → [, ¿ → ]
var payloadReplacer = strings.NewReplacer("°", "{", "ç", "}", "¡", "[", "¿", "]")

var (
	quotedKeyRe    = regexp.MustCompile(`'([^']*?)':`)
	quotedValRe    = regexp.MustCompile(`: '([^']*?)'([,}\]])`)
	quotedListRe   = regexp.MustCompile(`\['([^']*?)'\]`)
	quotedItemRe   = regexp.MustCompile(`, '([^']*?)'([,\]])`)
	searchedKeyRe  = regexp.MustCompile(`"searched\?": (True|False)`)
	timestampRe    = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2})\]`)
	infoFieldRe    = regexp.MustCompile(`'info':\s*'([^']*)'`)
	sourceURLRe    = regexp.MustCompile(`'source[-_]url':\s*'([^']*)'`)
	videoURLRe     = regexp.MustCompile(`'video[-_]url':\s*'([^']*)'`)
	textFieldRe    = regexp.MustCompile(`'text':\s*'([^']*)'`)
)

// DecodePayload 특수 인코딩을 표준 JSON 으로 복원
func DecodePayload(raw string) string {
	if raw == "" {
		return ""
	}
	text := payloadReplacer.Replace(raw)
	text = quotedKeyRe.ReplaceAllString(text, `"$1":`)
	text = quotedValRe.ReplaceAllString(text, `: "$1"$2`)
	text = quotedListRe.ReplaceAllString(text, `["$1"]`)
	text = quotedItemRe.ReplaceAllString(text, `, "$1"$2`)
	text = searchedKeyRe.ReplaceAllString(text, `"searched": $1`)
	text = strings.ReplaceAll(text, "True", "true")
	text = strings.ReplaceAll(text, "False", "false")
	return text
}

// phrasePayload 디코딩된 JSON 구조
type phrasePayload struct {
	Phrases []phraseEntry `json:"phrases"`
}

type phraseEntry struct {
	VideoInfo *struct {
		Info      string `json:"info"`
		SourceURL string `json:"source-url"`
	} `json:"video-info"`
	VideoURL string `json:"video-url"`
	Text     string `json:"text"`
}

// Decode 원시 응답을 RawClipRecord 목록으로 변환. 구조 파싱이 실패하면
// 정규식 추출로 폴백하며, 어느 경로든 검증 실패 레코드는 버린다.
func (c *PhraseClient) Decode(raw string) []model.RawClipRecord {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	decoded := DecodePayload(raw)

	var payload phrasePayload
	if err := json.Unmarshal([]byte(decoded), &payload); err != nil {
		log.Printf("[PhraseClient] JSON 파싱 실패, 정규식 추출 사용: %v", err)
		return DecodeLoose(raw)
	}

	records := make([]model.RawClipRecord, 0, len(payload.Phrases))
	for _, entry := range payload.Phrases {
		rec := model.RawClipRecord{
			StartTime: "00:00:00",
			VideoURL:  entry.VideoURL,
			Text:      entry.Text,
		}
		if entry.VideoInfo != nil {
			rec.Name, rec.StartTime = splitNameAndTime(entry.VideoInfo.Info)
			rec.SourceURL = entry.VideoInfo.SourceURL
		}
		if ValidateRecord(rec) {
			records = append(records, rec)
		}
	}
	return records
}

// DecodeLoose 블록 단위 정규식 추출. 일부 블록이 깨져 있어도 전체를
// 중단하지 않고 해당 블록만 건너뛴다.
func DecodeLoose(raw string) []model.RawClipRecord {
	if raw == "" {
		return nil
	}

	var records []model.RawClipRecord
	for _, loc := range clipBlockLocations(raw) {
		block := raw[loc[0]:loc[1]]

		var rec model.RawClipRecord
		rec.StartTime = "00:00:00"

		if m := infoFieldRe.FindStringSubmatch(block); m != nil {
			info := strings.NewReplacer("¡", "[", "¿", "]").Replace(m[1])
			rec.Name, rec.StartTime = splitNameAndTime(info)
		}
		if m := sourceURLRe.FindStringSubmatch(block); m != nil {
			rec.SourceURL = m[1]
		}
		if m := videoURLRe.FindStringSubmatch(block); m != nil {
			rec.VideoURL = m[1]
		}
		if m := textFieldRe.FindStringSubmatch(block); m != nil {
			rec.Text = strings.NewReplacer("¡", "[", "¿", "]").Replace(m[1])
		}

		if ValidateRecord(rec) {
			records = append(records, rec)
		}
	}
	return records
}

// clipBlockLocations 각 클립 블록의 [시작, 끝) 오프셋. 블록은 'video-info'
// 경계 마커로 구분된다.
func clipBlockLocations(raw string) [][2]int {
	marker := "°'video-info'"
	var starts []int
	for i := 0; ; {
		idx := strings.Index(raw[i:], marker)
		if idx < 0 {
			break
		}
		starts = append(starts, i+idx)
		i += idx + len(marker)
	}
	locs := make([][2]int, 0, len(starts))
	for i, s := range starts {
		end := len(raw)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		locs = append(locs, [2]int{s, end})
	}
	return locs
}

// splitNameAndTime "Movie Name (1999) [00:12:34]" → 이름과 타임스탬프 분리.
// 타임스탬프가 없으면 00:00:00.
func splitNameAndTime(info string) (string, string) {
	info = strings.TrimSpace(info)
	if m := timestampRe.FindStringSubmatch(info); m != nil {
		name := strings.TrimSpace(strings.Replace(info, " ["+m[1]+"]", "", 1))
		name = strings.TrimSpace(timestampRe.ReplaceAllString(name, ""))
		return name, m[1]
	}
	return info, "00:00:00"
}

// ValidateRecord 레코드 검증: 이름/대사 공백, 대사 길이 [2,1000] 이탈,
// http 또는 // 로 시작하지 않는 비디오 URL 은 버린다.
func ValidateRecord(rec model.RawClipRecord) bool {
	if strings.TrimSpace(rec.Name) == "" || strings.TrimSpace(rec.Text) == "" {
		return false
	}
	textLen := len([]rune(rec.Text))
	if textLen < 2 || textLen > 1000 {
		return false
	}
	if rec.VideoURL != "" && !strings.HasPrefix(rec.VideoURL, "http") && !strings.HasPrefix(rec.VideoURL, "//") {
		return false
	}
	return true
}

// bumpStat 일일 API 사용 통계.
// 캐시는 맵을 참조로 들고 있으므로 갱신은 뮤텍스로 직렬화한다.
func (c *PhraseClient) bumpStat(kind string, responseSize int) {
	if c.statsCache == nil {
		return
	}
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	key := "api_usage_stats_" + time.Now().Format("2006-01-02")
	stats := map[string]int{}
	if cached, ok := c.statsCache.Get(key); ok {
		if m, ok := cached.(map[string]int); ok {
			stats = m
		}
	}
	stats[kind]++
	stats["total_requests"]++
	stats["total_response_size"] += responseSize
	c.statsCache.Set(key, stats, 24*time.Hour)
}

// DailyStats 당일 API 사용 통계 조회. 집계 중에도 안전하도록 복사본 반환.
func (c *PhraseClient) DailyStats() map[string]int {
	out := map[string]int{}
	if c.statsCache == nil {
		return out
	}
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	key := "api_usage_stats_" + time.Now().Format("2006-01-02")
	if cached, ok := c.statsCache.Get(key); ok {
		if m, ok := cached.(map[string]int); ok {
			for k, v := range m {
				out[k] = v
			}
		}
	}
	return out
}
