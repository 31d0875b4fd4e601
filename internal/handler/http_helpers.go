package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/logger"
	"github.com/quillpost/internal/service"
)

const (
	sessionUserID   = "user_id"
	sessionUsername = "username"
	sessionIsAdmin  = "is_admin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBind(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// respondServiceError 把业务错误的类别映射为 HTTP 状态码，内部错误不向客户端暴露细节。
func (a *API) respondServiceError(c *gin.Context, err error, fallback string) {
	var svcErr *service.Error
	message := fallback
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		message = svcErr.Message
	}

	switch service.KindOf(err) {
	case service.KindNotFound:
		respondError(c, http.StatusNotFound, message)
	case service.KindConflict:
		respondError(c, http.StatusConflict, message)
	case service.KindValidation:
		respondError(c, http.StatusBadRequest, message)
	default:
		a.log.Error(c.Request.Context(), "request failed",
			logger.F("path", c.FullPath()),
			logger.Err(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

// sessionUint 读取会话中的无符号整数，兼容 gob 解码后的不同数值类型。
func sessionUint(session sessions.Session, key string) (uint, bool) {
	switch v := session.Get(key).(type) {
	case uint:
		return v, v != 0
	case uint64:
		return uint(v), v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	}
	return 0, false
}

// currentUserID 返回已登录用户的 ID，匿名访问时 ok 为 false。
func currentUserID(c *gin.Context) (uint, bool) {
	return sessionUint(sessions.Default(c), sessionUserID)
}

func isAdmin(c *gin.Context) bool {
	admin, _ := sessions.Default(c).Get(sessionIsAdmin).(bool)
	return admin
}
