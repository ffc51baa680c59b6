package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acskang/endless-real-clips/internal/handler"
)

// RegisterRoutes 모든 라우트 등록
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 헬스체크
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 검색 API ====================
	api := r.Group("/api")
	{
		api.GET("/search", h.SearchGet)
		api.POST("/search", h.SearchPost)
		api.GET("/trending", h.Trending)
		api.POST("/clips/:id/play", h.PlayClip)
		api.GET("/stats", h.Stats)
	}

	// ==================== 정적 미디어 ====================
	// 내려받은 포스터/클립 서빙
	r.Static("/media", h.Assets.BaseDir())
}
