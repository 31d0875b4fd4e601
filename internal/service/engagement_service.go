package service

import (
	"context"
	"errors"

	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
	"gorm.io/gorm"
)

// EngagementService 维护点赞/收藏边与文章冗余计数的一致性。
// 边的增删与计数调整总在同一个事务里完成；并发下防止重复边依赖唯一索引，
// 事务开头的存在性查询只是为了选择分支。
type EngagementService struct {
	db  *gorm.DB
	log logger.Logger
}

// EngagementStatus 描述用户与某篇文章当前的互动状态。
type EngagementStatus struct {
	Liked     bool
	Collected bool
}

// NewEngagementService 创建 EngagementService。
func NewEngagementService(gdb *gorm.DB, log logger.Logger) *EngagementService {
	if log == nil {
		log = logger.NewNop()
	}
	return &EngagementService{db: gdb, log: log}
}

// Toggle 翻转用户与文章之间的关系，返回翻转后的状态（true 表示已点赞/已收藏）。
func (s *EngagementService) Toggle(ctx context.Context, relation db.Relation, articleID, userID uint) (bool, error) {
	const op = "engagement.toggle"
	if err := validateEdge(op, relation, articleID, userID); err != nil {
		return false, err
	}

	var engaged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		articles := dao.NewArticleDAO(tx)
		edges := dao.NewEngagementDAO(tx)

		_, err := edges.Find(ctx, relation, userID, articleID)
		switch {
		case err == nil:
			engaged = false
			_, err = removeEdge(ctx, articles, edges, relation, articleID, userID)
			return err
		case errors.Is(err, dao.ErrNotFound):
			// 插入冲突说明并发请求已经建立了这条边，最终状态同样是已互动。
			engaged = true
			_, err = addEdge(ctx, op, articles, edges, relation, articleID, userID)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return false, wrapInternal(op, err)
	}

	s.log.Debug(ctx, "engagement toggled",
		logger.F("relation", relation),
		logger.F("article_id", articleID),
		logger.F("user_id", userID),
		logger.F("engaged", engaged))
	return engaged, nil
}

// Like 点赞文章，已点赞时返回 Conflict。
func (s *EngagementService) Like(ctx context.Context, articleID, userID uint) error {
	return s.engage(ctx, "engagement.like", db.RelationLike, articleID, userID)
}

// Unlike 取消点赞，未点赞时返回 NotFound。
func (s *EngagementService) Unlike(ctx context.Context, articleID, userID uint) error {
	return s.disengage(ctx, "engagement.unlike", db.RelationLike, articleID, userID)
}

// Collect 收藏文章，已收藏时返回 Conflict。
func (s *EngagementService) Collect(ctx context.Context, articleID, userID uint) error {
	return s.engage(ctx, "engagement.collect", db.RelationCollect, articleID, userID)
}

// Uncollect 取消收藏，未收藏时返回 NotFound。
func (s *EngagementService) Uncollect(ctx context.Context, articleID, userID uint) error {
	return s.disengage(ctx, "engagement.uncollect", db.RelationCollect, articleID, userID)
}

func (s *EngagementService) engage(ctx context.Context, op string, relation db.Relation, articleID, userID uint) error {
	if err := validateEdge(op, relation, articleID, userID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := addEdge(ctx, op, dao.NewArticleDAO(tx), dao.NewEngagementDAO(tx), relation, articleID, userID)
		if err != nil {
			return err
		}
		if !inserted {
			return &Error{
				Kind:      KindConflict,
				Op:        op,
				Message:   "article already " + engagedWord(relation),
				ArticleID: articleID,
				UserID:    userID,
				Relation:  relation,
			}
		}
		return nil
	})
	return wrapInternal(op, err)
}

func (s *EngagementService) disengage(ctx context.Context, op string, relation db.Relation, articleID, userID uint) error {
	if err := validateEdge(op, relation, articleID, userID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := removeEdge(ctx, dao.NewArticleDAO(tx), dao.NewEngagementDAO(tx), relation, articleID, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return &Error{
				Kind:      KindNotFound,
				Op:        op,
				Message:   "article not " + engagedWord(relation),
				ArticleID: articleID,
				UserID:    userID,
				Relation:  relation,
			}
		}
		return nil
	})
	return wrapInternal(op, err)
}

// addEdge 要求文章存在且未删除，随后插入边并在插入成功时计数加一。
func addEdge(ctx context.Context, op string, articles dao.ArticleDAO, edges dao.EngagementDAO, relation db.Relation, articleID, userID uint) (bool, error) {
	article, err := articles.GetForUpdate(ctx, articleID)
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return false, err
	}
	if !article.IsLive() {
		return false, &Error{
			Kind:      KindNotFound,
			Op:        op,
			Message:   "article not found",
			ArticleID: articleID,
			UserID:    userID,
			Relation:  relation,
		}
	}

	inserted, err := edges.Insert(ctx, &db.Engagement{UserID: userID, ArticleID: articleID, Relation: relation})
	if err != nil || !inserted {
		return false, err
	}

	if _, err := articles.AdjustCounter(ctx, articleID, relation.CounterColumn(), 1); err != nil {
		return false, err
	}
	return true, nil
}

// removeEdge 删除边，仅在确实删除了一行时计数减一（下限为 0）。
func removeEdge(ctx context.Context, articles dao.ArticleDAO, edges dao.EngagementDAO, relation db.Relation, articleID, userID uint) (bool, error) {
	deleted, err := edges.Delete(ctx, relation, userID, articleID)
	if err != nil || !deleted {
		return false, err
	}

	if _, err := articles.AdjustCounter(ctx, articleID, relation.CounterColumn(), -1); err != nil {
		return false, err
	}
	return true, nil
}

// Status 返回用户对文章的点赞、收藏状态。
func (s *EngagementService) Status(ctx context.Context, articleID, userID uint) (EngagementStatus, error) {
	const op = "engagement.status"
	if articleID == 0 || userID == 0 {
		return EngagementStatus{}, validationError(op, "article id and user id are required")
	}

	edges := dao.NewEngagementDAO(s.db)
	var status EngagementStatus
	for _, relation := range []db.Relation{db.RelationLike, db.RelationCollect} {
		_, err := edges.Find(ctx, relation, userID, articleID)
		switch {
		case err == nil:
			if relation == db.RelationLike {
				status.Liked = true
			} else {
				status.Collected = true
			}
		case !errors.Is(err, dao.ErrNotFound):
			return EngagementStatus{}, internalError(op, err)
		}
	}
	return status, nil
}

// ListEngaged 返回用户点赞或收藏过的文章，最近的互动在前，已删除的文章会被跳过。
func (s *EngagementService) ListEngaged(ctx context.Context, relation db.Relation, userID uint) ([]db.Article, error) {
	const op = "engagement.list"
	if !relation.Valid() {
		return nil, validationError(op, "unknown relation %q", relation)
	}
	if userID == 0 {
		return nil, validationError(op, "user id is required")
	}

	edges, err := dao.NewEngagementDAO(s.db).ListByUser(ctx, relation, userID)
	if err != nil {
		return nil, internalError(op, err)
	}

	ids := make([]uint, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.ArticleID)
	}

	found, err := dao.NewArticleDAO(s.db).ListByIDs(ctx, ids)
	if err != nil {
		return nil, internalError(op, err)
	}

	byID := make(map[uint]db.Article, len(found))
	for _, article := range found {
		byID[article.ID] = article
	}

	articles := make([]db.Article, 0, len(found))
	for _, id := range ids {
		if article, ok := byID[id]; ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

// ReconcileCounters 按边的数量重算文章的点赞与收藏计数，用于修复计数漂移。
func (s *EngagementService) ReconcileCounters(ctx context.Context, articleID uint) (*db.Article, error) {
	const op = "engagement.reconcile"
	if articleID == 0 {
		return nil, validationError(op, "article id is required")
	}

	var reconciled *db.Article
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		articles := dao.NewArticleDAO(tx)
		edges := dao.NewEngagementDAO(tx)

		article, err := articles.GetForUpdate(ctx, articleID)
		if errors.Is(err, dao.ErrNotFound) {
			return &Error{Kind: KindNotFound, Op: op, Message: "article not found", ArticleID: articleID}
		}
		if err != nil {
			return err
		}

		likes, err := edges.Count(ctx, db.RelationLike, articleID)
		if err != nil {
			return err
		}
		collects, err := edges.Count(ctx, db.RelationCollect, articleID)
		if err != nil {
			return err
		}

		if likes != article.LikeCount || collects != article.CollectCount {
			s.log.Warn(ctx, "engagement counter drift repaired",
				logger.F("article_id", articleID),
				logger.F("like_count", article.LikeCount),
				logger.F("like_edges", likes),
				logger.F("collect_count", article.CollectCount),
				logger.F("collect_edges", collects))
		}

		if err := articles.SetEngagementCounts(ctx, articleID, likes, collects); err != nil {
			return err
		}
		article.LikeCount = likes
		article.CollectCount = collects
		reconciled = article
		return nil
	})
	if err != nil {
		return nil, wrapInternal(op, err)
	}
	return reconciled, nil
}

func validateEdge(op string, relation db.Relation, articleID, userID uint) error {
	if !relation.Valid() {
		return validationError(op, "unknown relation %q", relation)
	}
	if articleID == 0 {
		return validationError(op, "article id is required")
	}
	if userID == 0 {
		return validationError(op, "user id is required")
	}
	return nil
}

// wrapInternal 保留已分类的业务错误，其余错误归为内部错误。
func wrapInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return internalError(op, err)
}

func engagedWord(relation db.Relation) string {
	if relation == db.RelationCollect {
		return "collected"
	}
	return "liked"
}
