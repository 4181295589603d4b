package conversationrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"glowchat/internal/domain/conversation"
	"glowchat/internal/domain/query"
	"glowchat/internal/infrastructure/database/dbschema"
	"glowchat/internal/utils/platformerrors"
)

type ConversationGormRepository struct {
	db *gorm.DB
}

var _ conversation.ConversationRepository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *gorm.DB) conversation.ConversationRepository {
	return &ConversationGormRepository{db: db}
}

func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	entity := dbschema.NewSchemaConversation(conv)
	if err := repo.db.WithContext(ctx).Create(entity).Error; err != nil {
		return repo.dbError(ctx, err, "failed to create conversation", "4d7a2f18-9c5e-4b36-8f1d-6a3b9e5c2d84")
	}
	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

func (repo *ConversationGormRepository) FindByFilter(ctx context.Context, filter conversation.ConversationFilter, pagination *query.Pagination) ([]*conversation.Conversation, error) {
	sql := repo.applyFilter(repo.db.WithContext(ctx), filter)
	sql = applyPagination(sql, pagination)

	var entities []dbschema.Conversation
	if err := sql.Find(&entities).Error; err != nil {
		return nil, repo.dbError(ctx, err, "failed to list conversations", "8e1c5a72-3f9d-4e28-b6a4-2d7f8c1e5b93")
	}

	conversations := make([]*conversation.Conversation, 0, len(entities))
	for i := range entities {
		conversations = append(conversations, entities[i].EtoD())
	}
	return conversations, nil
}

func (repo *ConversationGormRepository) Count(ctx context.Context, filter conversation.ConversationFilter) (int64, error) {
	var total int64
	sql := repo.applyFilter(repo.db.WithContext(ctx).Model(&dbschema.Conversation{}), filter)
	if err := sql.Count(&total).Error; err != nil {
		return 0, repo.dbError(ctx, err, "failed to count conversations", "6b9d4e27-1a8c-4f53-9e2b-7c5a3d8f1e46")
	}
	return total, nil
}

func (repo *ConversationGormRepository) FindByID(ctx context.Context, id uint) (*conversation.Conversation, error) {
	var entity dbschema.Conversation
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "3a6f8d25-7e1b-4c94-a5d8-9b2e6f4c1a73")
	}
	if err != nil {
		return nil, repo.dbError(ctx, err, "failed to find conversation by ID", "1f4b7c92-5d3a-4e68-b9f2-8a6c1d5e3b47")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	var entity dbschema.Conversation
	err := repo.db.WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "9d2e6a48-3b7f-4c15-8e9a-5f1d7b3c6e82")
	}
	if err != nil {
		return nil, repo.dbError(ctx, err, "failed to find conversation by public ID", "7c5f1b84-9e2d-4a36-b7c1-3d8e5f2a9b64")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) Update(ctx context.Context, conv *conversation.Conversation) error {
	entity := dbschema.NewSchemaConversation(conv)
	err := repo.db.WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(map[string]any{
			"title":      entity.Title,
			"status":     entity.Status,
			"metadata":   entity.Metadata,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
	if err != nil {
		return repo.dbError(ctx, err, "failed to update conversation", "5e8a3d17-2c6f-4b92-a1e5-7d9b4f6c2a38")
	}
	return nil
}

// Delete marks the conversation deleted; the retention sweep removes the row
// later.
func (repo *ConversationGormRepository) Delete(ctx context.Context, id uint) error {
	err := repo.db.WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     conversation.ConversationStatusDeleted,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
	if err != nil {
		return repo.dbError(ctx, err, "failed to delete conversation", "2a7d5f93-8b1e-4c64-9f3a-6e2c8d5b1f47")
	}
	return nil
}

func (repo *ConversationGormRepository) AddMessage(ctx context.Context, conversationID uint, message *conversation.Message) error {
	entity := dbschema.NewSchemaMessage(conversationID, message)
	if err := repo.db.WithContext(ctx).Create(entity).Error; err != nil {
		return repo.dbError(ctx, err, "failed to add message", "8f3c6b15-4e9a-4d27-b8f6-1a5d3e7c9b42")
	}
	message.ID = entity.ID
	message.ConversationID = conversationID
	message.CreatedAt = entity.CreatedAt
	return nil
}

func (repo *ConversationGormRepository) ListMessages(ctx context.Context, conversationID uint, pagination *query.Pagination) ([]*conversation.Message, error) {
	sql := repo.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	sql = applyPagination(sql, pagination)

	var entities []dbschema.ConversationMessage
	if err := sql.Find(&entities).Error; err != nil {
		return nil, repo.dbError(ctx, err, "failed to list messages", "6d1a8e43-7f2b-4c59-a3d7-9e5b1f8c4a26")
	}

	messages := make([]*conversation.Message, 0, len(entities))
	for i := range entities {
		messages = append(messages, entities[i].EtoD())
	}
	return messages, nil
}

func (repo *ConversationGormRepository) GetMessageByPublicID(ctx context.Context, conversationID uint, publicID string) (*conversation.Message, error) {
	var entity dbschema.ConversationMessage
	err := repo.db.WithContext(ctx).
		Where("conversation_id = ? AND public_id = ?", conversationID, publicID).
		First(&entity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "message not found", nil, "4b9e2c76-1d8f-4a35-b6e9-3c7a5d1f8e64")
	}
	if err != nil {
		return nil, repo.dbError(ctx, err, "failed to find message", "9a5d7f21-6c3e-4b84-a9d2-5e8f1b4c7a36")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) DeleteMessage(ctx context.Context, conversationID uint, messageID uint) error {
	err := repo.db.WithContext(ctx).
		Where("conversation_id = ? AND id = ?", conversationID, messageID).
		Delete(&dbschema.ConversationMessage{}).Error
	if err != nil {
		return repo.dbError(ctx, err, "failed to delete message", "1e6c4a89-3b5d-4f72-8a1c-9d3e6b2f5a84")
	}
	return nil
}

func (repo *ConversationGormRepository) CountMessages(ctx context.Context, conversationID uint) (int64, error) {
	var total int64
	err := repo.db.WithContext(ctx).
		Model(&dbschema.ConversationMessage{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error
	if err != nil {
		return 0, repo.dbError(ctx, err, "failed to count messages", "7f2a9c54-8e1b-4d36-b5f8-2c6d9a3e1b75")
	}
	return total, nil
}

func (repo *ConversationGormRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var ids []uint
	err := repo.db.WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("status = ? AND updated_at < ?", conversation.ConversationStatusDeleted, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, repo.dbError(ctx, err, "failed to find purgeable conversations", "3c8f5b27-9a4d-4e61-b2c8-6f1e4d7a9c53")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err = repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id IN ?", ids).Delete(&dbschema.ConversationMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&dbschema.Conversation{}).Error
	})
	if err != nil {
		return 0, repo.dbError(ctx, err, "failed to purge conversations", "5a1d9e63-2f7c-4b48-a6e1-8d3b5c9f2e74")
	}

	return int64(len(ids)), nil
}

func (repo *ConversationGormRepository) applyFilter(sql *gorm.DB, filter conversation.ConversationFilter) *gorm.DB {
	if filter.ID != nil {
		sql = sql.Where("id = ?", *filter.ID)
	}
	if filter.PublicID != nil {
		sql = sql.Where("public_id = ?", *filter.PublicID)
	}
	if filter.UserID != nil {
		sql = sql.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		sql = sql.Where("status = ?", *filter.Status)
	}
	return sql
}

func applyPagination(sql *gorm.DB, p *query.Pagination) *gorm.DB {
	if p == nil {
		return sql.Order("id ASC")
	}

	if p.After != nil {
		if p.Order == "desc" {
			sql = sql.Where("id < ?", *p.After)
		} else {
			sql = sql.Where("id > ?", *p.After)
		}
	}

	if p.Order == "desc" {
		sql = sql.Order("id DESC")
	} else {
		sql = sql.Order("id ASC")
	}

	if p.Limit != nil && *p.Limit > 0 {
		sql = sql.Limit(*p.Limit)
	}

	return sql
}

func (repo *ConversationGormRepository) dbError(ctx context.Context, err error, message, uuid string) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		message,
		err,
		uuid,
	)
}
