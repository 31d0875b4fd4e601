package dao

import "errors"

// ErrNotFound 表示记录不存在，DAO 层统一把 gorm.ErrRecordNotFound 翻译为它。
var ErrNotFound = errors.New("record not found")
