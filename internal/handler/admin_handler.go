package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/logger"
	"github.com/quillpost/internal/service"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login 校验用户名密码并写入会话。
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if !bindJSON(c, &payload, "请输入用户名和密码") {
		return
	}

	user, err := a.auth.Authenticate(c.Request.Context(), payload.Username, payload.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
		return
	}
	if err != nil {
		a.respondServiceError(c, err, "登录失败")
		return
	}

	// 设置会话
	session := sessions.Default(c)
	session.Set(sessionUserID, user.ID)
	session.Set(sessionUsername, user.Username)
	session.Set(sessionIsAdmin, user.IsAdmin)
	if err := session.Save(); err != nil {
		a.log.Error(c.Request.Context(), "save session failed", logger.Err(err))
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"nickname": user.Nickname,
			"isAdmin":  user.IsAdmin,
		},
	})
}

// Logout 清空会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.log.Warn(c.Request.Context(), "clear session failed", logger.Err(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "已退出登录"})
}

// AuthRequired 要求请求携带已登录的会话。
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired 要求当前会话属于管理员，需放在 AuthRequired 之后。
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			respondError(c, http.StatusForbidden, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}
