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

	"github.com/acskang/endless-real-clips/internal/utils"
)

func TestTranslateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"responseData":{"translatedText":"안녕하세요 세상"},"responseStatus":200}`)
	}))
	defer srv.Close()

	tr := NewTranslator(srv.URL, time.Second, nil)
	got := tr.Translate(context.Background(), "hello world", EnToKo)
	assert.Equal(t, "안녕하세요 세상", got)
}

func TestTranslateFallsBackToOriginalOnFailure(t *testing.T) {
	// 닫힌 서버 주소로 요청하면 네트워크 오류
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	tr := NewTranslator(srv.URL, 100*time.Millisecond, nil)
	got := tr.Translate(context.Background(), "hello world", EnToKo)
	assert.Equal(t, "hello world", got, "실패 시 원문 그대로")
}

func TestTranslateRejectsLowQuality(t *testing.T) {
	// 원문을 그대로 돌려주는 퇴화 응답
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"responseData":{"translatedText":"hello world"},"responseStatus":200}`)
	}))
	defer srv.Close()

	tr := NewTranslator(srv.URL, time.Second, nil)
	got := tr.Translate(context.Background(), "hello world", EnToKo)
	assert.Equal(t, "hello world", got)
}

func TestTranslateSkipsWrongScript(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	tr := NewTranslator(srv.URL, time.Second, nil)
	// 이미 영어인 입력을 ko→en 으로 요청하면 호출 없이 반환
	got := tr.Translate(context.Background(), "already english", KoToEn)
	assert.Equal(t, "already english", got)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestTranslateCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"responseData":{"translatedText":"안녕하세요"},"responseStatus":200}`)
	}))
	defer srv.Close()

	tr := NewTranslator(srv.URL, time.Second, nil)
	tr.Translate(context.Background(), "hello", EnToKo)
	tr.Translate(context.Background(), "hello", EnToKo)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIsValidTranslation(t *testing.T) {
	cases := []struct {
		name       string
		original   string
		translated string
		direction  Direction
		want       bool
	}{
		{"정상 en→ko", "hello world", "안녕하세요 세상", EnToKo, true},
		{"정상 ko→en", "안녕하세요", "hello there", KoToEn, true},
		{"빈 결과", "hello", "", EnToKo, false},
		{"원문 동일", "hello", "HELLO", EnToKo, false},
		{"대상 스크립트 없음", "hello world", "bonjour monde", EnToKo, false},
		{"소스 스크립트 잔존", "hello world and more", "hello world 안녕", EnToKo, false},
		{"너무 짧음", "this is a long sentence here", "넵", EnToKo, false},
		{"단어 3연속 반복", "안녕하세요 여러분", "hello hello hello", KoToEn, false},
		{"한글 섞인 영어 출력", "안녕하세요", "hello 안녕", KoToEn, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidTranslation(tc.original, tc.translated, tc.direction))
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence("hello", "", EnToKo))
	assert.Equal(t, 0.0, Confidence("hello", "hello", EnToKo))

	good := Confidence("hello world", "안녕하세요 세상", EnToKo)
	assert.GreaterOrEqual(t, good, 0.9)
	assert.LessOrEqual(t, good, 1.0)

	// 대상 스크립트가 틀리면 낮아진다
	bad := Confidence("hello world", "bonjour monde", EnToKo)
	assert.Less(t, bad, good)
}

func TestTranslatorStatsConcurrentBumps(t *testing.T) {
	tr := NewTranslator("http://127.0.0.1:0", time.Second, utils.NewMemoryCache())

	const workers = 16
	const perWorker = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				tr.bumpStat("attempted")
			}
		}()
	}
	wg.Wait()

	stats := tr.DailyStats()
	assert.Equal(t, workers*perWorker, stats["attempted"])
	assert.Equal(t, workers*perWorker, stats["total"])
}

func TestTranslatorDailyStatsReturnsCopy(t *testing.T) {
	tr := NewTranslator("http://127.0.0.1:0", time.Second, utils.NewMemoryCache())
	tr.bumpStat("attempted")

	stats := tr.DailyStats()
	stats["attempted"] = 99

	assert.Equal(t, 1, tr.DailyStats()["attempted"])
}
