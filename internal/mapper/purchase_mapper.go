package mapper

import (
	"encoding/json"
	"fmt"

	"planhub-be/internal/entity"
	"planhub-be/internal/model"

	"gorm.io/datatypes"
)

type PurchaseMapper struct{}

func NewPurchaseMapper() *PurchaseMapper {
	return &PurchaseMapper{}
}

// DecodeSelection reads the nullable selected_deliverables column.
// NULL, JSON null and an empty list all mean the full plan.
func DecodeSelection(raw datatypes.JSON) (entity.Entitlement, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return entity.FullPlan(), nil
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return entity.Entitlement{}, err
	}
	if len(keys) == 0 {
		return entity.FullPlan(), nil
	}
	return entity.Deliverables(keys...), nil
}

// EncodeSelection writes NULL for the full plan and a sorted key list otherwise.
func EncodeSelection(sel entity.Entitlement) (datatypes.JSON, error) {
	if sel.IsFull() || sel.IsEmpty() {
		return nil, nil
	}
	raw, err := json.Marshal(sel.Keys())
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func DecodeMetadata(raw datatypes.JSON) (entity.PurchaseMetadata, error) {
	var meta entity.PurchaseMetadata
	if len(raw) == 0 || string(raw) == "null" {
		return meta, nil
	}
	err := json.Unmarshal(raw, &meta)
	return meta, err
}

func EncodeMetadata(meta entity.PurchaseMetadata) (datatypes.JSON, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (m *PurchaseMapper) ToEntity(p *model.Purchase) (*entity.Purchase, error) {
	if p == nil {
		return nil, nil
	}
	selection, err := DecodeSelection(p.SelectedDeliverables)
	if err != nil {
		return nil, fmt.Errorf("decode selection of purchase %s: %w", p.Id, err)
	}
	meta, err := DecodeMetadata(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("decode metadata of purchase %s: %w", p.Id, err)
	}

	return &entity.Purchase{
		Id:            p.Id,
		UserId:        p.UserId,
		PlanId:        p.PlanId,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: entity.PaymentStatus(p.PaymentStatus),
		TransactionId: p.TransactionId,
		Selection:     selection,
		Metadata:      meta,
		CompletedAt:   p.CompletedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

func (m *PurchaseMapper) ToModel(p *entity.Purchase) (*model.Purchase, error) {
	if p == nil {
		return nil, nil
	}
	selection, err := EncodeSelection(p.Selection)
	if err != nil {
		return nil, fmt.Errorf("encode selection: %w", err)
	}
	meta, err := EncodeMetadata(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	return &model.Purchase{
		Id:                   p.Id,
		UserId:               p.UserId,
		PlanId:               p.PlanId,
		Amount:               p.Amount,
		PaymentMethod:        p.PaymentMethod,
		PaymentStatus:        string(p.PaymentStatus),
		TransactionId:        p.TransactionId,
		SelectedDeliverables: selection,
		Metadata:             meta,
		CompletedAt:          p.CompletedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}, nil
}

func (m *PurchaseMapper) ToEntities(purchases []*model.Purchase) ([]*entity.Purchase, error) {
	entities := make([]*entity.Purchase, len(purchases))
	for i, p := range purchases {
		e, err := m.ToEntity(p)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}
