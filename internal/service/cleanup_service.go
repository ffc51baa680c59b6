package service

import (
	"context"
	"log"
	"time"

	"github.com/acskang/endless-real-clips/internal/repository"
)

// CleanupService 비활성 원장 레코드를 보존 기간 이후 주기적으로 정리한다.
// 활성 레코드는 건드리지 않는다.
type CleanupService struct {
	requestRepo   *repository.RequestRepository
	retentionDays int
	interval      time.Duration
	stop          chan struct{}
}

func NewCleanupService(requestRepo *repository.RequestRepository, retentionDays int) *CleanupService {
	return &CleanupService{
		requestRepo:   requestRepo,
		retentionDays: retentionDays,
		interval:      24 * time.Hour,
		stop:          make(chan struct{}),
	}
}

// Start 정리 루프 시작. 기동 직후 한 번 돌고 이후 매일 반복한다.
func (s *CleanupService) Start(ctx context.Context) {
	go func() {
		s.runOnce()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Printf("[Cleanup] 정리 서비스 시작 (보존 %d일)", s.retentionDays)
}

// Stop 정리 루프 중단
func (s *CleanupService) Stop() {
	close(s.stop)
}

func (s *CleanupService) runOnce() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.requestRepo.DeleteDeactivatedBefore(cutoff)
	if err != nil {
		log.Printf("[Cleanup] 원장 정리 실패: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[Cleanup] 비활성 원장 %d건 삭제 (기준 %s 이전)", deleted, cutoff.Format("2006-01-02"))
	}
}
