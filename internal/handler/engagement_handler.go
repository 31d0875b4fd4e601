package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/db"
)

type articleSummary struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	LikeCount    int64     `json:"likeCount"`
	CollectCount int64     `json:"collectCount"`
	ViewCount    int64     `json:"viewCount"`
	CommentCount int64     `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newArticleSummary(article db.Article) articleSummary {
	return articleSummary{
		ID:           article.ID,
		Title:        article.Title,
		Summary:      article.Summary,
		LikeCount:    article.LikeCount,
		CollectCount: article.CollectCount,
		ViewCount:    article.ViewCount,
		CommentCount: article.CommentCount,
		CreatedAt:    article.CreatedAt,
	}
}

// ToggleLike 切换点赞状态，返回切换后的状态。
func (a *API) ToggleLike(c *gin.Context) {
	a.toggle(c, db.RelationLike, "isLiked", "点赞成功", "取消点赞成功")
}

// ToggleCollect 切换收藏状态，返回切换后的状态。
func (a *API) ToggleCollect(c *gin.Context) {
	a.toggle(c, db.RelationCollect, "isCollected", "收藏成功", "取消收藏成功")
}

func (a *API) toggle(c *gin.Context, relation db.Relation, field, onMessage, offMessage string) {
	articleID, err := parseUintParam(c, "articleId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}
	userID, _ := currentUserID(c)

	engaged, err := a.engagement.Toggle(c.Request.Context(), relation, articleID, userID)
	if err != nil {
		a.respondServiceError(c, err, "操作失败")
		return
	}

	message := offMessage
	if engaged {
		message = onMessage
	}
	c.JSON(http.StatusOK, gin.H{field: engaged, "message": message})
}

// LikeArticle 点赞文章，重复点赞返回 409。
func (a *API) LikeArticle(c *gin.Context) {
	a.strict(c, a.engagement.Like, "点赞成功")
}

// UnlikeArticle 取消点赞，未点赞时返回 404。
func (a *API) UnlikeArticle(c *gin.Context) {
	a.strict(c, a.engagement.Unlike, "取消点赞成功")
}

// CollectArticle 收藏文章，重复收藏返回 409。
func (a *API) CollectArticle(c *gin.Context) {
	a.strict(c, a.engagement.Collect, "收藏成功")
}

// UncollectArticle 取消收藏，未收藏时返回 404。
func (a *API) UncollectArticle(c *gin.Context) {
	a.strict(c, a.engagement.Uncollect, "取消收藏成功")
}

func (a *API) strict(c *gin.Context, action func(ctx context.Context, articleID, userID uint) error, message string) {
	articleID, err := parseUintParam(c, "articleId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}
	userID, _ := currentUserID(c)

	if err := action(c.Request.Context(), articleID, userID); err != nil {
		a.respondServiceError(c, err, "操作失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// EngagementStatus 返回当前用户对文章的点赞、收藏状态。
func (a *API) EngagementStatus(c *gin.Context) {
	articleID, err := parseUintParam(c, "articleId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}
	userID, _ := currentUserID(c)

	status, err := a.engagement.Status(c.Request.Context(), articleID, userID)
	if err != nil {
		a.respondServiceError(c, err, "获取互动状态失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"isLiked": status.Liked, "isCollected": status.Collected})
}

// ListLikedArticles 返回当前用户点赞过的文章。
func (a *API) ListLikedArticles(c *gin.Context) {
	a.listEngaged(c, db.RelationLike)
}

// ListCollectedArticles 返回当前用户收藏过的文章。
func (a *API) ListCollectedArticles(c *gin.Context) {
	a.listEngaged(c, db.RelationCollect)
}

func (a *API) listEngaged(c *gin.Context, relation db.Relation) {
	userID, _ := currentUserID(c)

	articles, err := a.engagement.ListEngaged(c.Request.Context(), relation, userID)
	if err != nil {
		a.respondServiceError(c, err, "获取文章列表失败")
		return
	}

	items := make([]articleSummary, 0, len(articles))
	for _, article := range articles {
		items = append(items, newArticleSummary(article))
	}
	c.JSON(http.StatusOK, gin.H{"articles": items, "total": len(items)})
}

// ReconcileArticle 按边的数量重算文章计数。
func (a *API) ReconcileArticle(c *gin.Context) {
	articleID, err := parseUintParam(c, "articleId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	article, err := a.engagement.ReconcileCounters(c.Request.Context(), articleID)
	if err != nil {
		a.respondServiceError(c, err, "重算计数失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": newArticleSummary(*article)})
}
