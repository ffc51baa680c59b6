package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/acskang/endless-real-clips/internal/storage"
	"github.com/acskang/endless-real-clips/internal/utils"
)

// PosterService 영화 메타데이터 페이지에서 포스터를 추출해 자산 저장소에
// 내려받는다. 실패는 모두 비치명적이며 파이프라인은 포스터 없이 진행한다.
type PosterService struct {
	client *utils.HTTPClient
	store  *storage.AssetStore
	cache  utils.Cache
}

func NewPosterService(timeout time.Duration, store *storage.AssetStore, cache utils.Cache) *PosterService {
	return &PosterService{
		client: utils.NewHTTPClient(timeout),
		store:  store,
		cache:  cache,
	}
}

// posterSelectors 우선순위 순서의 추출 패턴. 위에서부터 시도해 처음
// 찾은 것을 쓴다.
var posterSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="og:image"]`, "content"},
	{`div.ipc-poster img`, "src"},
	{`img.poster`, "src"},
	{`div.poster img`, "src"},
	{`img[class*="poster"]`, "src"},
}

var imageURLRe = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)(\?|$)|image|poster`)

// ExtractPosterURL 참조 페이지에서 포스터 URL 추출. 결과는 24시간 캐싱.
func (s *PosterService) ExtractPosterURL(ctx context.Context, pageURL string) (string, error) {
	if !strings.HasPrefix(pageURL, "http") {
		return "", fmt.Errorf("잘못된 참조 URL: %s", pageURL)
	}

	cacheKey := "poster_url_" + pageURL
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			if u, ok := cached.(string); ok {
				return u, nil
			}
		}
	}

	body, err := s.client.GetWithRetry(ctx, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("참조 페이지 요청 실패: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("HTML 파싱 실패: %w", err)
	}

	for _, p := range posterSelectors {
		if val, exists := doc.Find(p.selector).First().Attr(p.attr); exists {
			posterURL := normalizePosterURL(val, pageURL)
			if posterURL != "" && imageURLRe.MatchString(posterURL) {
				if s.cache != nil {
					s.cache.Set(cacheKey, posterURL, 24*time.Hour)
				}
				return posterURL, nil
			}
		}
	}

	return "", fmt.Errorf("포스터를 찾지 못함: %s", pageURL)
}

func normalizePosterURL(posterURL, pageURL string) string {
	posterURL = strings.TrimSpace(posterURL)
	switch {
	case posterURL == "":
		return ""
	case strings.HasPrefix(posterURL, "//"):
		return "https:" + posterURL
	case strings.HasPrefix(posterURL, "http"):
		return posterURL
	case strings.HasPrefix(posterURL, "/"):
		if idx := strings.Index(pageURL, "://"); idx > 0 {
			if slash := strings.Index(pageURL[idx+3:], "/"); slash > 0 {
				return pageURL[:idx+3+slash] + posterURL
			}
			return pageURL + posterURL
		}
		return ""
	default:
		return ""
	}
}

// DownloadPoster 포스터 이미지를 내려받아 저장하고 조회 경로를 반환.
// 크기 상한 초과는 실패가 아니라 생략이다.
func (s *PosterService) DownloadPoster(ctx context.Context, posterURL, movieTitle string) (string, error) {
	resp, err := s.client.Get(ctx, posterURL, nil)
	if err != nil {
		return "", fmt.Errorf("포스터 다운로드 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("포스터 응답 상태 코드 %d", resp.StatusCode)
	}

	name := storage.SanitizeFilename(movieTitle)
	if name == "" {
		name = "poster"
	}
	path, err := s.store.SaveImage(resp.Body, name+".jpg")
	if err == storage.ErrTooLarge {
		log.Printf("[PosterService] 포스터 크기 초과, 생략: %s", posterURL)
		return "", nil
	}
	return path, err
}
