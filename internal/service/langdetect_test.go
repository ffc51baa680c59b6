package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		input string
		want  DetectedLanguage
	}{
		{"hello world", LangEnglish},
		{"안녕하세요", LangKorean},
		{"hello 세상", LangMixed},
		{"12345 !!!", LangUnknown},
		{"", LangUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectLanguage(tc.input), "input=%q", tc.input)
	}
}

func TestIsKoreanIsEnglish(t *testing.T) {
	assert.True(t, IsKorean("안녕"))
	assert.False(t, IsKorean("hello"))
	assert.True(t, IsEnglish("hello"))
	assert.False(t, IsEnglish("안녕 123"))

	// 혼합 입력은 둘 다 true
	assert.True(t, IsKorean("hello 안녕"))
	assert.True(t, IsEnglish("hello 안녕"))
}
