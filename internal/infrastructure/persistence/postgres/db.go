package postgres

import (
	"context"

	"gorm.io/gorm"
)

// getDB 绑定请求上下文，取消与超时传递到查询
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx)
}
