package dao

import (
	"context"
	"errors"
	"time"

	"github.com/quillpost/internal/db"
	"gorm.io/gorm"
)

type userDAO struct {
	db *gorm.DB
}

// NewUserDAO 创建用户DAO实例
func NewUserDAO(gdb *gorm.DB) UserDAO {
	return &userDAO{db: gdb}
}

func (d *userDAO) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	if err := d.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CountCreatedBetween 统计注册时间落在 [start, end) 且未被删除的用户。
func (d *userDAO) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&db.User{}).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Count(&count).Error
	return count, err
}

func (d *userDAO) Count(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&db.User{}).Count(&count).Error
	return count, err
}
