package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/acskang/endless-real-clips/internal/model"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByTriples (title, release_year, director) 삼중키 배치 조회.
// 들어온 키 조합과 정확히 일치하는 기존 영화들을 한 번의 쿼리로 찾아
// TripleKey → Movie 맵으로 돌려준다.
func (r *MovieRepository) FindByTriples(movies []model.Movie) (map[string]*model.Movie, error) {
	result := make(map[string]*model.Movie)
	if len(movies) == 0 {
		return result, nil
	}

	titles := make([]string, 0, len(movies))
	years := make([]string, 0, len(movies))
	directors := make([]string, 0, len(movies))
	wanted := make(map[string]bool, len(movies))
	for i := range movies {
		titles = append(titles, movies[i].Title)
		years = append(years, movies[i].ReleaseYear)
		directors = append(directors, movies[i].Director)
		wanted[movies[i].TripleKey()] = true
	}

	// 컬럼별 IN 조회 후 삼중키 완전 일치만 채택 (교차 조합 오탐 제거)
	var found []model.Movie
	err := r.db.Where("title IN ? AND release_year IN ? AND director IN ?", titles, years, directors).
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	for i := range found {
		key := found[i].TripleKey()
		if wanted[key] {
			result[key] = &found[i]
		}
	}
	return result, nil
}

// FindByTriple 단건 삼중키 조회, 없으면 (nil, nil)
func (r *MovieRepository) FindByTriple(title, year, director string) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("title = ? AND release_year = ? AND director = ?", title, year, director).
		First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// InsertIfAbsent 삼중키 기준 insert-if-absent. 이미 있으면 기존 행을 그대로
// 반환한다 (영화는 dedup 대상이지 갱신 대상이 아니다). 동시 삽입 경합은
// 유니크 인덱스가 중재한다.
func (r *MovieRepository) InsertIfAbsent(movie *model.Movie) (*model.Movie, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title"}, {Name: "release_year"}, {Name: "director"}},
		DoNothing: true,
	}).Create(movie).Error
	if err != nil {
		return nil, err
	}

	// 충돌로 삽입이 무시된 경우 ID가 비어 있으므로 다시 조회
	if movie.ID == 0 {
		return r.FindByTriple(movie.Title, movie.ReleaseYear, movie.Director)
	}
	return movie, nil
}

// UpdateEnrichment 포스터/품질 보강 결과 반영
func (r *MovieRepository) UpdateEnrichment(id uint, posterURL, posterImage string, quality model.DataQuality) error {
	updates := map[string]interface{}{"data_quality": quality}
	if posterURL != "" {
		updates["poster_url"] = posterURL
	}
	if posterImage != "" {
		updates["poster_image"] = posterImage
	}
	return r.db.Model(&model.Movie{}).Where("id = ?", id).Updates(updates).Error
}

// IncrementViewCount 조회수 원자 증가
func (r *MovieRepository) IncrementViewCount(id uint) error {
	return r.db.Model(&model.Movie{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// Delete 영화 및 소유 대사 삭제 (관리 전용). 포스터 자산 경로를 반환해
// 호출자가 파일도 함께 지울 수 있게 한다.
func (r *MovieRepository) Delete(id uint) (string, error) {
	var movie model.Movie
	if err := r.db.First(&movie, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if err := r.db.Where("movie_id = ?", id).Delete(&model.Dialogue{}).Error; err != nil {
		return "", err
	}
	if err := r.db.Delete(&model.Movie{}, id).Error; err != nil {
		return "", err
	}
	return movie.PosterImage, nil
}
