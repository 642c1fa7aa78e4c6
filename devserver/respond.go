package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Meta 分页信息
type Meta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// RespondSuccess 统一成功信封 {data, meta}
func RespondSuccess(c *gin.Context, data interface{}, meta *Meta) {
	body := gin.H{"data": data}
	if meta != nil {
		body["meta"] = meta
	}
	c.JSON(http.StatusOK, body)
}

// RespondError 统一错误信封 {error, code}
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}
