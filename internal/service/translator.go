package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/acskang/endless-real-clips/internal/utils"
)

// Direction 번역 방향
type Direction string

const (
	KoToEn Direction = "ko|en"
	EnToKo Direction = "en|ko"
)

// Translator 외부 번역 제공자 클라이언트. 번역은 best-effort 보강이며
// 어떤 실패에서도 원문을 그대로 반환한다.
type Translator struct {
	apiURL     string
	client     *utils.HTTPClient
	cache      *utils.TypedCache[string]
	statsCache utils.Cache
	statsMu    sync.Mutex
}

// NewTranslator timeout 은 요청 단위 (문서 기본 ~10초)
func NewTranslator(apiURL string, timeout time.Duration, statsCache utils.Cache) *Translator {
	return &Translator{
		apiURL:     apiURL,
		client:     utils.NewHTTPClient(timeout),
		cache:      utils.NewTypedCache[string](2000, time.Hour),
		statsCache: statsCache,
	}
}

// mymemoryResponse 번역 API 응답 구조
type mymemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.Number `json:"responseStatus"`
	ResponseDetails string      `json:"responseDetails"`
}

// Translate 번역 수행. 성공한 (원문, 방향) 결과는 1시간 캐싱된다.
func (t *Translator) Translate(ctx context.Context, text string, direction Direction) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < 2 {
		return text
	}

	// 번역할 필요가 없는 입력은 그대로 반환
	if direction == KoToEn && !IsKorean(text) {
		return text
	}
	if direction == EnToKo && !IsEnglish(text) {
		return text
	}

	cacheKey := string(direction) + ":" + text
	if cached, ok := t.cache.Get(cacheKey); ok {
		return cached
	}

	t.bumpStat("attempted")

	reqURL := fmt.Sprintf("%s?q=%s&langpair=%s",
		t.apiURL, url.QueryEscape(text), url.QueryEscape(string(direction)))

	body, err := t.client.GetWithRetry(ctx, reqURL, map[string]string{
		"User-Agent": "EndlessRealClips/1.0",
	})
	if err != nil {
		log.Printf("[Translator] 번역 요청 실패 (%s): %v", direction, err)
		t.bumpStat("failed")
		return text
	}

	var result mymemoryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		log.Printf("[Translator] 응답 파싱 실패: %v", err)
		t.bumpStat("failed")
		return text
	}
	if status, _ := result.ResponseStatus.Int64(); status != 200 {
		log.Printf("[Translator] API 응답 오류: %s", result.ResponseDetails)
		t.bumpStat("failed")
		return text
	}

	translated := strings.TrimSpace(result.ResponseData.TranslatedText)
	if !IsValidTranslation(text, translated, direction) {
		log.Printf("[Translator] 번역 품질 낮음: %q → %q", truncate(text, 30), truncate(translated, 30))
		t.bumpStat("rejected")
		return text
	}

	t.cache.Set(cacheKey, translated)
	t.bumpStat("succeeded")
	return translated
}

// IsValidTranslation 번역 품질 검증:
// 원문과 동일, 대상 스크립트 부재, 소스 스크립트 30% 초과 잔존,
// 길이 비율 [0.3, 3.0] 이탈, 동일 단어 3연속 반복이면 거절.
func IsValidTranslation(original, translated string, direction Direction) bool {
	if translated == "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(original), translated) {
		return false
	}

	switch direction {
	case KoToEn:
		if !IsEnglish(translated) {
			return false
		}
		if IsKorean(translated) {
			return false
		}
	case EnToKo:
		if !IsKorean(translated) {
			return false
		}
		if latinRatio(translated) > 0.3 {
			return false
		}
	}

	ratio := float64(len([]rune(translated))) / float64(len([]rune(original)))
	if ratio < 0.3 || ratio > 3.0 {
		return false
	}

	return !hasTripleRepetition(translated)
}

func latinRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	latin := 0
	for _, r := range runes {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			latin++
		}
	}
	return float64(latin) / float64(len(runes))
}

// hasTripleRepetition 같은 단어 3연속 반복 (퇴화 출력 패턴)
func hasTripleRepetition(text string) bool {
	words := strings.Fields(text)
	for i := 0; i+2 < len(words); i++ {
		if words[i] == words[i+1] && words[i+1] == words[i+2] {
			return true
		}
	}
	return false
}

// Confidence 번역 신뢰도 [0,1]. 응답 요약용이며 정확성 요구 없음.
func Confidence(original, translated string, direction Direction) float64 {
	if translated == "" || original == translated {
		return 0.0
	}
	confidence := 0.5

	ratio := float64(len([]rune(translated))) / float64(len([]rune(original)))
	if ratio >= 0.5 && ratio <= 2.0 {
		confidence += 0.2
	}
	switch direction {
	case KoToEn:
		if IsEnglish(translated) && !IsKorean(translated) {
			confidence += 0.2
		}
	case EnToKo:
		if IsKorean(translated) {
			confidence += 0.2
		}
	}
	if specialCharRatio(translated) < 0.3 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func specialCharRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	special := 0
	for _, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r >= 0xAC00 && r <= 0xD7A3:
		default:
			special++
		}
	}
	return float64(special) / float64(len(runes))
}

// bumpStat 일일 번역 통계 (관측용, 정확성 요구 없음).
// 캐시는 맵을 참조로 들고 있으므로 갱신은 뮤텍스로 직렬화한다.
func (t *Translator) bumpStat(kind string) {
	if t.statsCache == nil {
		return
	}
	t.statsMu.Lock()
	defer t.statsMu.Unlock()

	key := "translation_stats_" + time.Now().Format("2006-01-02")
	stats := map[string]int{}
	if cached, ok := t.statsCache.Get(key); ok {
		if m, ok := cached.(map[string]int); ok {
			stats = m
		}
	}
	stats[kind]++
	stats["total"]++
	t.statsCache.Set(key, stats, 24*time.Hour)
}

// DailyStats 당일 번역 통계 조회. 호출자가 들고 있는 동안에도 집계가
// 계속되므로 복사본을 돌려준다.
func (t *Translator) DailyStats() map[string]int {
	out := map[string]int{}
	if t.statsCache == nil {
		return out
	}
	t.statsMu.Lock()
	defer t.statsMu.Unlock()

	key := "translation_stats_" + time.Now().Format("2006-01-02")
	if cached, ok := t.statsCache.Get(key); ok {
		if m, ok := cached.(map[string]int); ok {
			for k, v := range m {
				out[k] = v
			}
		}
	}
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
