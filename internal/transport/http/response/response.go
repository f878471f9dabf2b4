package response

import "github.com/gin-gonic/gin"

// ErrorBody 所有失败响应统一 {"error": "..."}，状态码走真实 HTTP 语义
type ErrorBody struct {
	Error string `json:"error"`
}

func Err(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorBody{Error: msg})
}

func AbortErr(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg})
}
