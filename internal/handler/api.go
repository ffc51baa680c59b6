package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acskang/endless-real-clips/internal/model"
	"github.com/acskang/endless-real-clips/internal/repository"
	"github.com/acskang/endless-real-clips/internal/service"
	"github.com/acskang/endless-real-clips/internal/utils"
)

func toTranslationQuality(s string) model.TranslationQuality {
	switch s {
	case "excellent":
		return model.TransQualityExcellent
	case "good":
		return model.TransQualityGood
	case "fair":
		return model.TransQualityFair
	case "poor":
		return model.TransQualityPoor
	default:
		return ""
	}
}

// searchParams 검색 요청 바인딩. GET 은 쿼리스트링, POST 는 JSON 본문.
type searchParams struct {
	Query           string `form:"q" json:"q" binding:"required,notblank"`
	MovieTitle      string `form:"movie" json:"movie" binding:"omitempty,max=200"`
	ReleaseYear     string `form:"year" json:"year" binding:"omitempty,len=4,numeric"`
	MinQuality      string `form:"min_quality" json:"min_quality" binding:"omitempty,oneof=excellent good fair poor"`
	Sort            string `form:"sort" json:"sort" binding:"sortmode"`
	IncludeInactive bool   `form:"include_inactive" json:"include_inactive"`
	Limit           int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=50"`
}

// SearchGet GET /api/search?q=...
func (h *Handler) SearchGet(c *gin.Context) {
	var params searchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		utils.BadRequest(c, "잘못된 검색 파라미터: "+err.Error())
		return
	}
	h.runSearch(c, params)
}

// SearchPost POST /api/search
func (h *Handler) SearchPost(c *gin.Context) {
	var params searchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		utils.BadRequest(c, "잘못된 검색 요청: "+err.Error())
		return
	}
	h.runSearch(c, params)
}

func (h *Handler) runSearch(c *gin.Context, params searchParams) {
	filters := repository.SearchFilters{
		MovieTitle:      params.MovieTitle,
		ReleaseYear:     params.ReleaseYear,
		Sort:            params.Sort,
		IncludeInactive: params.IncludeInactive,
		Limit:           params.Limit,
	}
	if params.MinQuality != "" {
		filters.MinQuality = toTranslationQuality(params.MinQuality)
	}

	outcome, err := h.Search.Search(c.Request.Context(), params.Query, filters)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			utils.BadRequest(c, ve.Reason)
			return
		}
		log.Printf("[API] 검색 실패 (%s): %v", params.Query, err)
		utils.InternalServerError(c, "검색 처리 중 오류가 발생했습니다")
		return
	}
	utils.Success(c, outcome)
}

// Trending GET /api/trending
func (h *Handler) Trending(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if n <= 0 || n > 50 {
		n = 10
	}
	popular, err := h.Search.Trending(n)
	if err != nil {
		log.Printf("[API] 인기 검색어 조회 실패: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	recent, err := h.Repos.Request.Recent(n)
	if err != nil {
		log.Printf("[API] 최근 검색어 조회 실패: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, gin.H{"popular": popular, "recent": recent})
}

// PlayClip POST /api/clips/:id/play
// 재생수 증가만 하는 가벼운 기록 엔드포인트
func (h *Handler) PlayClip(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, "잘못된 클립 ID")
		return
	}
	d, err := h.Repos.Dialogue.FindByID(uint(id))
	if err != nil {
		log.Printf("[API] 클립 조회 실패 (id=%d): %v", id, err)
		utils.InternalServerError(c, "")
		return
	}
	if d == nil {
		utils.NotFound(c, "클립을 찾을 수 없습니다")
		return
	}
	if err := h.Repos.Dialogue.IncrementPlayCount([]uint{d.ID}); err != nil {
		log.Printf("[API] 재생수 기록 실패 (id=%d): %v", id, err)
		utils.InternalServerError(c, "")
		return
	}
	// 소속 영화의 조회수도 함께 올린다
	if err := h.Repos.Movie.IncrementViewCount(d.MovieID); err != nil {
		log.Printf("[API] 영화 조회수 기록 실패 (movie=%d): %v", d.MovieID, err)
	}
	utils.Success(c, gin.H{"clip_id": d.ID})
}

// Stats GET /api/stats
// 당일 번역/외부 API 사용 통계와 최근 검색 요약
func (h *Handler) Stats(c *gin.Context) {
	recent, err := h.Repos.Request.Recent(10)
	if err != nil {
		log.Printf("[API] 최근 검색 조회 실패: %v", err)
	}
	utils.Success(c, gin.H{
		"translation":    h.Translator.DailyStats(),
		"api_usage":      h.PhraseClient.DailyStats(),
		"recent_queries": recent,
	})
}
