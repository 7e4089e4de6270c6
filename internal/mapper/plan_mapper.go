package mapper

import (
	"encoding/json"
	"fmt"

	"planhub-be/internal/entity"
	"planhub-be/internal/model"

	"gorm.io/datatypes"
)

type PlanMapper struct{}

func NewPlanMapper() *PlanMapper {
	return &PlanMapper{}
}

func (m *PlanMapper) ToEntity(p *model.Plan) (*entity.Plan, error) {
	if p == nil {
		return nil, nil
	}

	var prices map[string]float64
	if len(p.DeliverablePrices) > 0 && string(p.DeliverablePrices) != "null" {
		if err := json.Unmarshal(p.DeliverablePrices, &prices); err != nil {
			return nil, fmt.Errorf("decode deliverable prices of plan %s: %w", p.Id, err)
		}
	}

	files := make([]*entity.PlanFile, len(p.Files))
	for i := range p.Files {
		files[i] = m.FileToEntity(&p.Files[i])
	}

	return &entity.Plan{
		Id:                p.Id,
		DesignerId:        p.DesignerId,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Price:             p.Price,
		DeliverablePrices: prices,
		Status:            entity.PlanStatus(p.Status),
		SalesCount:        p.SalesCount,
		Files:             files,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}, nil
}

// ToModel leaves Files empty; files are written through their own table.
func (m *PlanMapper) ToModel(p *entity.Plan) (*model.Plan, error) {
	if p == nil {
		return nil, nil
	}

	var prices datatypes.JSON
	if len(p.DeliverablePrices) > 0 {
		raw, err := json.Marshal(p.DeliverablePrices)
		if err != nil {
			return nil, fmt.Errorf("encode deliverable prices: %w", err)
		}
		prices = datatypes.JSON(raw)
	}

	return &model.Plan{
		Id:                p.Id,
		DesignerId:        p.DesignerId,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Price:             p.Price,
		DeliverablePrices: prices,
		Status:            string(p.Status),
		SalesCount:        p.SalesCount,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}, nil
}

func (m *PlanMapper) ToEntities(plans []*model.Plan) ([]*entity.Plan, error) {
	entities := make([]*entity.Plan, len(plans))
	for i, p := range plans {
		e, err := m.ToEntity(p)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}

func (m *PlanMapper) FileToEntity(f *model.PlanFile) *entity.PlanFile {
	if f == nil {
		return nil
	}
	return &entity.PlanFile{
		Id:        f.Id,
		PlanId:    f.PlanId,
		FileType:  entity.FileType(f.FileType),
		FileName:  f.FileName,
		FileURL:   f.FileURL,
		FileSize:  f.FileSize,
		CreatedAt: f.CreatedAt,
	}
}

func (m *PlanMapper) FileToModel(f *entity.PlanFile) *model.PlanFile {
	if f == nil {
		return nil
	}
	return &model.PlanFile{
		Id:        f.Id,
		PlanId:    f.PlanId,
		FileType:  string(f.FileType),
		FileName:  f.FileName,
		FileURL:   f.FileURL,
		FileSize:  f.FileSize,
		CreatedAt: f.CreatedAt,
	}
}
