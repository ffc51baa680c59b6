package handler

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/acskang/endless-real-clips/internal/config"
	"github.com/acskang/endless-real-clips/internal/repository"
	"github.com/acskang/endless-real-clips/internal/service"
	"github.com/acskang/endless-real-clips/internal/storage"
)

// 공백만으로 이뤄진 검색어는 required 를 통과하므로 별도 규칙으로 거른다.
// sortmode 는 검색 정렬 파라미터 허용값 검사.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		v.RegisterValidation("sortmode", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "", "relevance", "popular", "recent":
				return true
			default:
				return false
			}
		})
	}
}

// Handler HTTP 처리기
type Handler struct {
	Repos        *repository.Repositories
	Config       *config.Config
	Search       *service.SearchOrchestrator
	Translator   *service.Translator
	PhraseClient *service.PhraseClient
	Assets       *storage.AssetStore
}

func NewHandler(repos *repository.Repositories, cfg *config.Config,
	search *service.SearchOrchestrator, translator *service.Translator,
	phraseClient *service.PhraseClient, assets *storage.AssetStore) *Handler {
	return &Handler{
		Repos:        repos,
		Config:       cfg,
		Search:       search,
		Translator:   translator,
		PhraseClient: phraseClient,
		Assets:       assets,
	}
}
