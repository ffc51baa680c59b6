package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/acskang/endless-real-clips/internal/model"
)

type DialogueRepository struct {
	db *gorm.DB
}

func NewDialogueRepository(db *gorm.DB) *DialogueRepository {
	return &DialogueRepository{db: db}
}

// SearchFilters 로컬 검색 필터
type SearchFilters struct {
	MinQuality      model.TranslationQuality // 최소 번역 품질 (빈 값이면 전체)
	MovieTitle      string                   // 영화 제목 부분 일치
	ReleaseYear     string                   // 개봉 연도 정확 일치
	Sort            string                   // relevance(기본) | popular | recent
	IncludeInactive bool
	Limit           int
}

// qualityRank 품질 등급 서열 (excellent 가 최상)
var qualityRank = map[model.TranslationQuality]int{
	model.TransQualityExcellent: 4,
	model.TransQualityGood:      3,
	model.TransQualityFair:      2,
	model.TransQualityPoor:      1,
	model.TransQualityUnknown:   0,
}

func qualitiesAtLeast(min model.TranslationQuality) []model.TranslationQuality {
	floor, ok := qualityRank[min]
	if !ok {
		return nil
	}
	var out []model.TranslationQuality
	for q, rank := range qualityRank {
		if rank >= floor {
			out = append(out, q)
		}
	}
	return out
}

// Search 로컬 대사 검색. 구문/한글구문/검색벡터에 대한 대소문자 무시 부분
// 일치, 재생수 내림차순 → 생성일 내림차순 정렬. 빈 결과는 오류가 아니라
// "외부 소스로 넘어가라"는 신호다.
func (r *DialogueRepository) Search(queryText string, filters SearchFilters) ([]model.Dialogue, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, nil
	}

	pattern := "%" + strings.ToLower(queryText) + "%"
	vectorPattern := "%" + model.NormalizeSearchText(queryText) + "%"

	q := r.db.Model(&model.Dialogue{}).
		Joins("Movie").
		Where("(LOWER(dialogues.phrase) LIKE ? OR LOWER(dialogues.phrase_ko) LIKE ? OR dialogues.search_vector LIKE ?)",
			pattern, pattern, vectorPattern)

	if !filters.IncludeInactive {
		q = q.Where("dialogues.is_active = ?", true)
	}
	if filters.MinQuality != "" {
		if allowed := qualitiesAtLeast(filters.MinQuality); allowed != nil {
			q = q.Where("dialogues.translation_quality IN ?", allowed)
		}
	}
	if filters.MovieTitle != "" {
		q = q.Where("LOWER(\"Movie\".title) LIKE ?", "%"+strings.ToLower(filters.MovieTitle)+"%")
	}
	if filters.ReleaseYear != "" {
		q = q.Where("\"Movie\".release_year = ?", filters.ReleaseYear)
	}
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}

	order := "dialogues.play_count DESC, dialogues.created_at DESC"
	if filters.Sort == "recent" {
		order = "dialogues.created_at DESC"
	}

	var dialogues []model.Dialogue
	err := q.Order(order).Find(&dialogues).Error
	return dialogues, err
}

// CountMatching 구문 부분 일치 대사 수 (외부 호출 생략 판단용)
func (r *DialogueRepository) CountMatching(phrase string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Dialogue{}).
		Where("LOWER(phrase) LIKE ?", "%"+strings.ToLower(phrase)+"%").
		Count(&count).Error
	return count, err
}

// FindByID ID 조회, 없으면 (nil, nil)
func (r *DialogueRepository) FindByID(id uint) (*model.Dialogue, error) {
	var d model.Dialogue
	err := r.db.First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindByHash 대사 해시로 조회, 없으면 (nil, nil)
func (r *DialogueRepository) FindByHash(hash string) (*model.Dialogue, error) {
	var d model.Dialogue
	err := r.db.Where("dialogue_hash = ?", hash).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertIfAbsent dialogue_hash 기준 insert-if-absent. 같은 클립이 반복
// 수집되어도 행이 중복되지 않는다.
func (r *DialogueRepository) InsertIfAbsent(d *model.Dialogue) (*model.Dialogue, bool, error) {
	d.EnsureHash()
	d.RefreshSearchVector()

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dialogue_hash"}},
		DoNothing: true,
	}).Create(d).Error
	if err != nil {
		return nil, false, err
	}

	if d.ID == 0 {
		existing, err := r.FindByHash(d.DialogueHash)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return d, true, nil
}

// UpdateTranslation 한글 번역 결과 저장 + 검색벡터 재계산
func (r *DialogueRepository) UpdateTranslation(id uint, phraseKo string, method model.TranslationMethod) error {
	var d model.Dialogue
	if err := r.db.First(&d, id).Error; err != nil {
		return err
	}
	d.PhraseKo = phraseKo
	d.TranslationMethod = method
	d.RefreshSearchVector()
	return r.db.Model(&model.Dialogue{}).Where("id = ?", id).Updates(map[string]interface{}{
		"phrase_ko":          d.PhraseKo,
		"translation_method": d.TranslationMethod,
		"search_vector":      d.SearchVector,
	}).Error
}

// IncrementPlayCount 재생수 원자 증가 (동시 접근에서도 업데이트 유실 없음)
func (r *DialogueRepository) IncrementPlayCount(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&model.Dialogue{}).Where("id IN ?", ids).
		UpdateColumn("play_count", gorm.Expr("play_count + 1")).Error
}
