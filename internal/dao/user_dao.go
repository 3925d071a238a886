package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"amity-social/internal/model"
	"amity-social/pkg/database"
)

// userDAO 用户数据访问对象
type userDAO struct {
	db *database.PostgreSQL
}

// NewUserDAO 创建用户DAO实例
func NewUserDAO(db *database.PostgreSQL) UserDAO {
	return &userDAO{db: db}
}

// Create 创建用户
func (d *userDAO) Create(ctx context.Context, user *model.User) error {
	db := d.db.GetDB()
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %v", err)
	}
	return nil
}

// GetByID 按ID查询用户
func (d *userDAO) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	db := d.db.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return &user, nil
}

// GetByUsername 按用户名查询用户
func (d *userDAO) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	db := d.db.GetDB()
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %v", err)
	}
	return &user, nil
}

// GetByIDs 批量查询用户，返回id到用户的映射
func (d *userDAO) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	result := make(map[int64]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []*model.User
	db := d.db.GetDB()
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %v", err)
	}

	for _, user := range users {
		result[user.ID] = user
	}
	return result, nil
}
