package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/acskang/endless-real-clips/internal/model"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// RecordSearch 구문 원장 기록. 없으면 생성, 있으면 search_count 를 원자적으로
// 증가시키고 last_searched_at 을 갱신한다. 기존 레코드에 한글형이 비어 있고
// 새로 들어온 값이 있으면 채워 넣는다. 증가는 읽고-수정-쓰기가 아니라
// 스토리지 레벨 표현식으로 수행한다.
func (r *RequestRepository) RecordSearch(phrase, koreanForm string) (*model.RequestRecord, error) {
	now := time.Now()
	rec := &model.RequestRecord{
		Phrase:         phrase,
		KoreanForm:     koreanForm,
		ContentHash:    model.ComputeContentHash(phrase),
		SearchCount:    1,
		LastSearchedAt: now,
		IsActive:       true,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phrase"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"search_count":     gorm.Expr("search_count + 1"),
			"last_searched_at": now,
			"korean_form":      gorm.Expr("CASE WHEN korean_form = '' THEN excluded.korean_form ELSE korean_form END"),
		}),
	}).Create(rec).Error
	if err != nil {
		return nil, err
	}

	return r.FindByPhrase(phrase)
}

// FindByPhrase 구문으로 조회, 없으면 (nil, nil)
func (r *RequestRepository) FindByPhrase(phrase string) (*model.RequestRecord, error) {
	var rec model.RequestRecord
	err := r.db.Where("phrase = ?", phrase).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateResultCount 마지막 검색의 결과 수 기록. 레코드가 없으면 no-op.
func (r *RequestRepository) UpdateResultCount(phrase string, count int) error {
	return r.db.Model(&model.RequestRecord{}).
		Where("phrase = ?", phrase).
		Update("result_count", count).Error
}

// Popular 검색 횟수 상위 n개
func (r *RequestRepository) Popular(n int) ([]model.RequestRecord, error) {
	var recs []model.RequestRecord
	err := r.db.Where("is_active = ?", true).
		Order("search_count DESC").
		Limit(n).
		Find(&recs).Error
	return recs, err
}

// Recent 최근 검색 상위 n개
func (r *RequestRepository) Recent(n int) ([]model.RequestRecord, error) {
	var recs []model.RequestRecord
	err := r.db.Where("is_active = ?", true).
		Order("last_searched_at DESC").
		Limit(n).
		Find(&recs).Error
	return recs, err
}

// FindByPrefix 앞부분이 같은 구문 조회 (제안 용도), exclude 구문은 제외
func (r *RequestRepository) FindByPrefix(prefix, exclude string, n int) ([]model.RequestRecord, error) {
	var recs []model.RequestRecord
	err := r.db.Where("phrase LIKE ? AND phrase <> ? AND is_active = ?", prefix+"%", exclude, true).
		Order("search_count DESC").
		Limit(n).
		Find(&recs).Error
	return recs, err
}

// Deactivate 소프트 비활성화. 원장은 물리 삭제하지 않는다.
func (r *RequestRepository) Deactivate(phrase string) error {
	return r.db.Model(&model.RequestRecord{}).
		Where("phrase = ?", phrase).
		Update("is_active", false).Error
}

// DeleteDeactivatedBefore 비활성화된 레코드 중 보존 기간이 지난 것 정리
func (r *RequestRepository) DeleteDeactivatedBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("is_active = ? AND last_searched_at < ?", false, cutoff).
		Delete(&model.RequestRecord{})
	return result.RowsAffected, result.Error
}
