package service

// 입력 언어 판별. 혼합 스크립트는 둘 다 true 가 되며 처리 방법은 호출자가
// 정한다.

// IsKorean 한글 음절이 하나라도 있으면 true
func IsKorean(text string) bool {
	for _, r := range text {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return true
		}
	}
	return false
}

// IsEnglish 라틴 문자가 하나라도 있으면 true
func IsEnglish(text string) bool {
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// DetectedLanguage 판별 결과
type DetectedLanguage string

const (
	LangKorean  DetectedLanguage = "korean"
	LangEnglish DetectedLanguage = "english"
	LangMixed   DetectedLanguage = "mixed"
	LangUnknown DetectedLanguage = "unknown"
)

// DetectLanguage 단일 언어 분류
func DetectLanguage(text string) DetectedLanguage {
	ko := IsKorean(text)
	en := IsEnglish(text)
	switch {
	case ko && en:
		return LangMixed
	case ko:
		return LangKorean
	case en:
		return LangEnglish
	default:
		return LangUnknown
	}
}
