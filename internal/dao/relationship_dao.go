package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"amity-social/internal/model"
	"amity-social/pkg/database"
)

// relationshipDAO 好友关系数据访问对象
type relationshipDAO struct {
	db *database.PostgreSQL
}

// NewRelationshipDAO 创建好友关系DAO实例
func NewRelationshipDAO(db *database.PostgreSQL) RelationshipDAO {
	return &relationshipDAO{db: db}
}

// Create 创建关系记录，用户对唯一索引冲突时返回ErrDuplicatePair
func (d *relationshipDAO) Create(ctx context.Context, friendship *model.Friendship) error {
	db := d.db.GetDB()
	if err := db.WithContext(ctx).Create(friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePair
		}
		return fmt.Errorf("failed to create friendship: %v", err)
	}
	return nil
}

// GetByPair 按用户对查询，参数顺序无关
func (d *relationshipDAO) GetByPair(ctx context.Context, userA, userB int64) (*model.Friendship, error) {
	low, high := model.CanonicalPair(userA, userB)

	var friendship model.Friendship
	db := d.db.GetDB()
	err := db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		First(&friendship).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get friendship by pair: %v", err)
	}
	return &friendship, nil
}

// GetByID 按ID查询
func (d *relationshipDAO) GetByID(ctx context.Context, id int64) (*model.Friendship, error) {
	var friendship model.Friendship
	db := d.db.GetDB()
	err := db.WithContext(ctx).Where("id = ?", id).First(&friendship).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get friendship: %v", err)
	}
	return &friendship, nil
}

// UpdateStatusIfPending 仅当status仍为pending时更新状态和actionUser
// RowsAffected==0 表示记录已被并发处理
func (d *relationshipDAO) UpdateStatusIfPending(ctx context.Context, id int64, status string, actionUserID int64) (bool, error) {
	db := d.db.GetDB()
	result := db.WithContext(ctx).Model(&model.Friendship{}).
		Where("id = ? AND status = ?", id, model.FriendshipStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"action_user_id": actionUserID,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update friendship status: %v", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteIfPending 仅当status仍为pending时删除
func (d *relationshipDAO) DeleteIfPending(ctx context.Context, id int64) (bool, error) {
	return d.deleteIfStatus(ctx, id, model.FriendshipStatusPending)
}

// DeleteIfAccepted 仅当status仍为accepted时删除
func (d *relationshipDAO) DeleteIfAccepted(ctx context.Context, id int64) (bool, error) {
	return d.deleteIfStatus(ctx, id, model.FriendshipStatusAccepted)
}

func (d *relationshipDAO) deleteIfStatus(ctx context.Context, id int64, status string) (bool, error) {
	db := d.db.GetDB()
	result := db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&model.Friendship{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete friendship: %v", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListAccepted 获取已接受的好友关系，按updated_at倒序分页
func (d *relationshipDAO) ListAccepted(ctx context.Context, userID int64, page, pageSize int) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	db := d.db.GetDB()
	err := db.WithContext(ctx).
		Where("(user_low = ? OR user_high = ?) AND status = ?", userID, userID, model.FriendshipStatusAccepted).
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&friendships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted friendships: %v", err)
	}
	return friendships, nil
}

// CountAccepted 统计已接受的好友数
func (d *relationshipDAO) CountAccepted(ctx context.Context, userID int64) (int64, error) {
	var count int64
	db := d.db.GetDB()
	err := db.WithContext(ctx).Model(&model.Friendship{}).
		Where("(user_low = ? OR user_high = ?) AND status = ?", userID, userID, model.FriendshipStatusAccepted).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count accepted friendships: %v", err)
	}
	return count, nil
}

// ListPending 获取待处理的申请，按created_at倒序
func (d *relationshipDAO) ListPending(ctx context.Context, userID int64) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	db := d.db.GetDB()
	err := db.WithContext(ctx).
		Where("(user_low = ? OR user_high = ?) AND status = ?", userID, userID, model.FriendshipStatusPending).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending friendships: %v", err)
	}
	return friendships, nil
}
