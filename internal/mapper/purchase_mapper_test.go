package mapper

import (
	"testing"
	"time"

	"planhub-be/internal/entity"
	"planhub-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDecodeSelection(t *testing.T) {
	tests := []struct {
		name string
		raw  datatypes.JSON
		full bool
		keys []string
	}{
		{name: "null column", raw: nil, full: true},
		{name: "json null", raw: datatypes.JSON("null"), full: true},
		{name: "empty list", raw: datatypes.JSON("[]"), full: true},
		{name: "keys", raw: datatypes.JSON(`["mep","boq"]`), keys: []string{"boq", "mep"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSelection(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.full, got.IsFull())
			assert.Equal(t, tt.keys, got.Keys())
		})
	}

	_, err := DecodeSelection(datatypes.JSON(`{"mep":true}`))
	assert.Error(t, err)
}

func TestEncodeSelection(t *testing.T) {
	raw, err := EncodeSelection(entity.FullPlan())
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = EncodeSelection(entity.Deliverables("structural", "architectural"))
	require.NoError(t, err)
	assert.JSONEq(t, `["architectural","structural"]`, string(raw))
}

func TestPurchaseMapper_ToModelKeepsReferenceHistory(t *testing.T) {
	m := NewPurchaseMapper()
	completedAt := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	purchase := &entity.Purchase{
		Id:            uuid.New(),
		UserId:        uuid.New(),
		PlanId:        uuid.New(),
		Amount:        120.5,
		PaymentMethod: entity.PaymentMethodMidtrans,
		PaymentStatus: entity.PaymentStatusCompleted,
		TransactionId: "PH-2",
		Selection:     entity.Deliverables("mep"),
		Metadata: entity.PurchaseMetadata{
			References:    []string{"PH-1", "PH-2"},
			LastReference: "PH-2",
			OrderID:       "ORD-20260504-ABCDEF12",
		},
		CompletedAt: &completedAt,
	}

	row, err := m.ToModel(purchase)
	require.NoError(t, err)
	assert.JSONEq(t, `["mep"]`, string(row.SelectedDeliverables))
	assert.JSONEq(t, `{"references":["PH-1","PH-2"],"last_reference":"PH-2","order_id":"ORD-20260504-ABCDEF12"}`, string(row.Metadata))

	back, err := m.ToEntity(row)
	require.NoError(t, err)
	assert.Equal(t, purchase.Metadata, back.Metadata)
	assert.True(t, purchase.Selection.Equal(back.Selection))
	assert.Equal(t, purchase.CompletedAt, back.CompletedAt)
}

func TestPurchaseMapper_BadMetadata(t *testing.T) {
	_, err := NewPurchaseMapper().ToEntity(&model.Purchase{Id: uuid.New(), Metadata: datatypes.JSON("[1,2]")})
	assert.Error(t, err)
}

func TestPlanMapper_Prices(t *testing.T) {
	m := NewPlanMapper()
	plan := &entity.Plan{
		Id:                uuid.New(),
		Name:              "Loft",
		DeliverablePrices: map[string]float64{"architectural": 100, "renders": 0},
		Status:            entity.PlanStatusAvailable,
	}

	row, err := m.ToModel(plan)
	require.NoError(t, err)

	back, err := m.ToEntity(row)
	require.NoError(t, err)
	assert.Equal(t, plan.DeliverablePrices, back.DeliverablePrices)
	assert.Equal(t, entity.PlanStatusAvailable, back.Status)
	assert.Empty(t, back.Files)

	row.DeliverablePrices = nil
	back, err = m.ToEntity(row)
	require.NoError(t, err)
	assert.False(t, back.HasDeliverablePricing())
}
