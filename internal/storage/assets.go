package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// AssetStore 바이트 스트림을 받아 조회 가능한 상대 경로를 돌려주는 로컬
// 디스크 저장소. 크기 상한을 넘는 페이로드는 손상 없이 거절한다.
type AssetStore struct {
	baseDir       string
	maxImageBytes int64
	maxVideoBytes int64
}

// ErrTooLarge 크기 상한 초과
var ErrTooLarge = fmt.Errorf("payload exceeds size ceiling")

func NewAssetStore(baseDir string, maxImageBytes, maxVideoBytes int64) (*AssetStore, error) {
	for _, sub := range []string{"posters", "videos"} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("미디어 디렉터리 생성 실패: %w", err)
		}
	}
	return &AssetStore{baseDir: baseDir, maxImageBytes: maxImageBytes, maxVideoBytes: maxVideoBytes}, nil
}

// SaveImage 포스터 이미지 저장 (상한 기본 10MB)
func (s *AssetStore) SaveImage(r io.Reader, suggestedName string) (string, error) {
	return s.save(r, "posters", suggestedName, s.maxImageBytes)
}

// SaveVideo 비디오 클립 저장 (상한 기본 100MB)
func (s *AssetStore) SaveVideo(r io.Reader, suggestedName string) (string, error) {
	return s.save(r, "videos", suggestedName, s.maxVideoBytes)
}

func (s *AssetStore) save(r io.Reader, subdir, suggestedName string, maxBytes int64) (string, error) {
	name := SanitizeFilename(suggestedName)
	if name == "" {
		name = fmt.Sprintf("asset_%d", time.Now().UnixNano())
	}
	relPath := filepath.Join(subdir, name)
	fullPath := filepath.Join(s.baseDir, relPath)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("파일 생성 실패: %w", err)
	}

	// 상한 + 1 바이트까지 읽어 초과 여부를 판정하고, 초과 시 파일을 남기지
	// 않는다.
	written, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	closeErr := f.Close()
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("파일 쓰기 실패: %w", err)
	}
	if closeErr != nil {
		os.Remove(fullPath)
		return "", closeErr
	}
	if written > maxBytes {
		os.Remove(fullPath)
		return "", ErrTooLarge
	}

	return "/media/" + filepath.ToSlash(relPath), nil
}

// Delete 저장된 자산 제거 (영화 삭제 시 소유 포스터 정리용)
func (s *AssetStore) Delete(storedPath string) error {
	rel := strings.TrimPrefix(storedPath, "/media/")
	if rel == "" || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// BaseDir 정적 서빙용 루트 디렉터리
func (s *AssetStore) BaseDir() string {
	return s.baseDir
}

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9._-]+`)

// SanitizeFilename 소문자/언더스코어 파일명 정규화
func SanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeNameRe.ReplaceAllString(name, "")
	name = strings.Trim(name, "._-")
	if len(name) > 120 {
		name = name[:120]
	}
	return name
}
