package utils

import (
	"github.com/gin-gonic/gin"
)

// Response 통일 API 응답 구조
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Success bool        `json:"success"`
}

// Success 성공 응답
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 200, Message: "success", Data: data, Success: true})
}

// Error 오류 응답
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Code: code, Message: message, Data: nil, Success: false})
}

// BadRequest 400 오류
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, message)
}

// NotFound 404 오류
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "resource not found"
	}
	Error(c, 404, message)
}

// InternalServerError 500 오류
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	Error(c, 500, message)
}
