package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acskang/endless-real-clips/internal/model"
)

// InitDB 데이터베이스 연결 초기화
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("데이터베이스 연결 실패: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("데이터베이스 ping 실패: %w", err)
	}

	// 연결 풀 설정
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 스키마 마이그레이션. dialogue_hash / content_hash / 영화 삼중키의
// 유니크 제약은 여기서 만들어지는 인덱스가 보장한다. 사전 검사가 아니라
// 스토리지 제약이 중복의 최종 중재자다.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.RequestRecord{},
		&model.Movie{},
		&model.Dialogue{},
	)
}

// Repositories 저장소 모음
type Repositories struct {
	DB       *gorm.DB
	Request  *RequestRepository
	Movie    *MovieRepository
	Dialogue *DialogueRepository
}

// NewRepositories 저장소 모음 생성
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:       db,
		Request:  NewRequestRepository(db),
		Movie:    NewMovieRepository(db),
		Dialogue: NewDialogueRepository(db),
	}
}
