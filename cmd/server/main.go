package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 경량 이미지에서도 시간대 인식 보장

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/acskang/endless-real-clips/internal/config"
	"github.com/acskang/endless-real-clips/internal/handler"
	"github.com/acskang/endless-real-clips/internal/middleware"
	"github.com/acskang/endless-real-clips/internal/repository"
	"github.com/acskang/endless-real-clips/internal/router"
	"github.com/acskang/endless-real-clips/internal/service"
	"github.com/acskang/endless-real-clips/internal/storage"
	"github.com/acskang/endless-real-clips/internal/utils"
)

func main() {
	// 환경변수 로드
	if err := godotenv.Load(); err != nil {
		log.Println(".env 파일 없음, 시스템 환경변수 사용")
	}

	// 설정 로드
	cfg := config.Load()

	// 데이터베이스 초기화
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("데이터베이스 연결 실패: %v", err)
	}

	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	// 저장소 초기화
	repos := repository.NewRepositories(db)

	// 캐시 초기화
	cache := utils.NewMemoryCache()

	// 자산 저장소 초기화
	assets, err := storage.NewAssetStore(cfg.MediaDir, cfg.MaxImageBytes, cfg.MaxVideoBytes)
	if err != nil {
		log.Fatalf("미디어 저장소 초기화 실패: %v", err)
	}

	// 서비스 구성
	translator := service.NewTranslator(cfg.TranslateURL, cfg.TranslateTimeout, cache)
	phraseClient := service.NewPhraseClient(cfg.PhraseSearchURL, cfg.PhraseTimeout, cache,
		repos.Request, repos.Dialogue)
	posterSvc := service.NewPosterService(cfg.PosterTimeout, assets, cache)
	ingest := service.NewIngestionPipeline(db, translator, posterSvc, cache, cfg)
	search := service.NewSearchOrchestrator(cfg, repos, translator, phraseClient, ingest, cache)

	// Gin 초기화
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// gzip 압축, 기본 압축 레벨
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 미들웨어
	r.Use(middleware.Logger())

	// Handler 초기화
	h := handler.NewHandler(repos, cfg, search, translator, phraseClient, assets)

	// 정리 서비스 시작
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()
	cleanupSvc := service.NewCleanupService(repos.Request, cfg.RequestRetentionDays)
	cleanupSvc.Start(appCtx)

	// 라우트 등록
	router.RegisterRoutes(r, h)

	// HTTP 서버 구성
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	srv := &http.Server{
		Addr:           ":" + port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second, // 외부 수집 경유 검색은 오래 걸릴 수 있다
		MaxHeaderBytes: 1 << 20,
	}

	// 시그널을 기다리기 위해 고루틴에서 서버 기동
	go func() {
		log.Printf("서버 시작: http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("서버 시작 실패: %v", err)
		}
	}()

	// 인터럽트 시그널을 기다려 우아하게 종료
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("서버 종료 중...")

	cleanupSvc.Stop()
	appCancel()

	// 종료 과정에 5초 타임아웃
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("서버 강제 종료:", err)
	}

	log.Println("서버 종료 완료")
}
