package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPClient 외부 API 호출용 공용 클라이언트
type HTTPClient struct {
	httpClient *http.Client
	userAgent  string
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPClient timeout 은 요청 단위 타임아웃
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Get 단건 GET 요청
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8,ko;q=0.6")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpClient.Do(req)
}

// GetWithRetry GET 요청 + 재시도. 네트워크 오류, 5xx, 429 는 지수 백오프로
// 재시도하고 그 외 4xx 는 즉시 실패로 반환한다. 성공 시 본문을 읽어 반환.
func (c *HTTPClient) GetWithRetry(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	delay := c.retryDelay

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.Get(ctx, url, headers)
		if err != nil {
			lastErr = err
			log.Printf("[HTTPClient] 요청 실패 (시도 %d/%d): %v", attempt, c.maxRetries, err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				if readErr != nil {
					return nil, fmt.Errorf("응답 읽기 실패: %w", readErr)
				}
				return body, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("상태 코드 %d", resp.StatusCode)
				log.Printf("[HTTPClient] 재시도 대상 응답 %d (시도 %d/%d): %s", resp.StatusCode, attempt, c.maxRetries, url)
			default:
				// 영구 실패: 재시도하지 않음
				return nil, fmt.Errorf("상태 코드 %d", resp.StatusCode)
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("재시도 모두 실패: %w", lastErr)
}
