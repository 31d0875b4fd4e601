package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/logger"
)

// RecordArticleAccess 记录一次文章访问。记录失败不影响阅读，总是返回 200。
func (a *API) RecordArticleAccess(c *gin.Context) {
	articleID, err := parseUintParam(c, "articleId")
	if err != nil {
		a.log.Warn(c.Request.Context(), "access log skipped", logger.F("article_id", c.Param("articleId")))
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
		return
	}

	var userID *uint
	if id, ok := currentUserID(c); ok {
		userID = &id
	}

	a.access.Record(c.Request.Context(), articleID, userID, c.Request)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
