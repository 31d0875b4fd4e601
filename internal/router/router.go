package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/handler"
	"github.com/quillpost/internal/logger"
)

// SessionName 是会话 cookie 的名称。
const SessionName = "quillpost_session"

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestLogger(log))

	// 配置会话中间件
	if sessionSecret == "" {
		sessionSecret = "quillpost-dev-secret"
	}
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(SessionName, store))

	r.GET("/ping", handler.Ping)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.HealthCheck)

		apiGroup.POST("/auth/login", api.Login)
		apiGroup.POST("/auth/logout", api.Logout)

		// 访问记录允许匿名
		apiGroup.POST("/access-log/article/:articleId", api.RecordArticleAccess)

		// 需要登录的互动路由
		auth := apiGroup.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.POST("/like-collect/like/:articleId", api.ToggleLike)
			auth.POST("/like-collect/collect/:articleId", api.ToggleCollect)
			auth.GET("/like-collect/liked-articles", api.ListLikedArticles)
			auth.GET("/like-collect/collected-articles", api.ListCollectedArticles)

			auth.GET("/articles/:articleId/engagement", api.EngagementStatus)
			auth.POST("/articles/:articleId/like", api.LikeArticle)
			auth.DELETE("/articles/:articleId/like", api.UnlikeArticle)
			auth.POST("/articles/:articleId/collect", api.CollectArticle)
			auth.DELETE("/articles/:articleId/collect", api.UncollectArticle)
		}

		// 后台管理路由
		admin := apiGroup.Group("/admin")
		admin.Use(handler.AuthRequired(), handler.AdminRequired())
		{
			admin.GET("/statistics", api.GetStatistics)
			admin.POST("/statistics/refresh", api.RefreshStatistics)
			admin.POST("/articles/:articleId/reconcile", api.ReconcileArticle)
		}
	}

	return r
}
