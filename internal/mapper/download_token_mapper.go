package mapper

import (
	"planhub-be/internal/entity"
	"planhub-be/internal/model"
)

type DownloadTokenMapper struct{}

func NewDownloadTokenMapper() *DownloadTokenMapper {
	return &DownloadTokenMapper{}
}

func (m *DownloadTokenMapper) ToEntity(t *model.DownloadToken) *entity.DownloadToken {
	if t == nil {
		return nil
	}
	return &entity.DownloadToken{
		Id:            t.Id,
		Token:         t.Token,
		UserId:        t.UserId,
		PlanId:        t.PlanId,
		PurchaseId:    t.PurchaseId,
		IsUsed:        t.IsUsed,
		DownloadCount: t.DownloadCount,
		MaxDownloads:  t.MaxDownloads,
		ExpiresAt:     t.ExpiresAt,
		UsedAt:        t.UsedAt,
		CreatedAt:     t.CreatedAt,
	}
}

func (m *DownloadTokenMapper) ToModel(t *entity.DownloadToken) *model.DownloadToken {
	if t == nil {
		return nil
	}
	return &model.DownloadToken{
		Id:            t.Id,
		Token:         t.Token,
		UserId:        t.UserId,
		PlanId:        t.PlanId,
		PurchaseId:    t.PurchaseId,
		IsUsed:        t.IsUsed,
		DownloadCount: t.DownloadCount,
		MaxDownloads:  t.MaxDownloads,
		ExpiresAt:     t.ExpiresAt,
		UsedAt:        t.UsedAt,
		CreatedAt:     t.CreatedAt,
	}
}

func (m *DownloadTokenMapper) ToEntities(tokens []*model.DownloadToken) []*entity.DownloadToken {
	entities := make([]*entity.DownloadToken, len(tokens))
	for i, t := range tokens {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
