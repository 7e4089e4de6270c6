package entity

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PlanStatus string

const (
	PlanStatusAvailable PlanStatus = "Available"
	PlanStatusDraft     PlanStatus = "Draft"
)

// FileType is the discipline tag a designer attaches to an uploaded file.
type FileType string

const (
	FileTypeArchitectural    FileType = "ARCHITECTURAL"
	FileTypeStructural       FileType = "STRUCTURAL"
	FileTypeMEP              FileType = "MEP"
	FileTypeCivil            FileType = "CIVIL"
	FileTypeFireSafety       FileType = "FIRE_SAFETY"
	FileTypeInterior         FileType = "INTERIOR"
	FileTypeBOQArchitectural FileType = "BOQ_ARCHITECTURAL"
	FileTypeBOQStructural    FileType = "BOQ_STRUCTURAL"
	FileTypeBOQMEP           FileType = "BOQ_MEP"
	FileTypeRender           FileType = "RENDER"
	FileTypeThumbnail        FileType = "THUMBNAIL"
	FileTypeCompliance       FileType = "COMPLIANCE"
)

// Deliverable keys used in price maps and partial purchases.
const (
	DeliverableArchitectural = "architectural"
	DeliverableStructural    = "structural"
	DeliverableMEP           = "mep"
	DeliverableCivil         = "civil"
	DeliverableFireSafety    = "fire_safety"
	DeliverableInterior      = "interior"
	DeliverableBOQ           = "boq"
	DeliverableRenders       = "renders"
)

var deliverableKeys = map[string]bool{
	DeliverableArchitectural: true,
	DeliverableStructural:    true,
	DeliverableMEP:           true,
	DeliverableCivil:         true,
	DeliverableFireSafety:    true,
	DeliverableInterior:      true,
	DeliverableBOQ:           true,
	DeliverableRenders:       true,
}

func IsDeliverableKey(key string) bool {
	return deliverableKeys[key]
}

func (t FileType) Valid() bool {
	switch t {
	case FileTypeArchitectural, FileTypeStructural, FileTypeMEP, FileTypeCivil, FileTypeFireSafety,
		FileTypeInterior, FileTypeBOQArchitectural, FileTypeBOQStructural, FileTypeBOQMEP,
		FileTypeRender, FileTypeThumbnail, FileTypeCompliance:
		return true
	}
	return false
}

// DeliverableKey maps a discipline tag to its deliverable key. Thumbnails and
// compliance documents belong to no deliverable.
func (t FileType) DeliverableKey() (string, bool) {
	switch {
	case t == FileTypeArchitectural:
		return DeliverableArchitectural, true
	case t == FileTypeStructural:
		return DeliverableStructural, true
	case t == FileTypeMEP:
		return DeliverableMEP, true
	case t == FileTypeCivil:
		return DeliverableCivil, true
	case t == FileTypeFireSafety:
		return DeliverableFireSafety, true
	case t == FileTypeInterior:
		return DeliverableInterior, true
	case strings.HasPrefix(string(t), "BOQ_"):
		return DeliverableBOQ, true
	case t == FileTypeRender:
		return DeliverableRenders, true
	}
	return "", false
}

type Plan struct {
	Id                uuid.UUID
	DesignerId        uuid.UUID
	Name              string
	Description       string
	Category          string
	Price             float64
	DeliverablePrices map[string]float64
	Status            PlanStatus
	SalesCount        int
	Files             []*PlanFile
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type PlanFile struct {
	Id        uuid.UUID
	PlanId    uuid.UUID
	FileType  FileType
	FileName  string
	FileURL   string
	FileSize  int64
	CreatedAt time.Time
}

func (p *Plan) HasDeliverablePricing() bool {
	return len(p.DeliverablePrices) > 0
}

// FreeDeliverables lists keys whose configured price is exactly zero.
func (p *Plan) FreeDeliverables() []string {
	var keys []string
	for key, price := range p.DeliverablePrices {
		if price == 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// SumDeliverables adds up the prices of keys, rounded to cents.
func (p *Plan) SumDeliverables(keys []string) float64 {
	var total float64
	for _, key := range keys {
		total += p.DeliverablePrices[key]
	}
	return math.Round(total*100) / 100
}

// DeliverableKeys returns the priced keys in a stable order.
func (p *Plan) DeliverableKeys() []string {
	keys := make([]string, 0, len(p.DeliverablePrices))
	for key := range p.DeliverablePrices {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (p *Plan) IsOwnedBy(userID uuid.UUID) bool {
	return p.DesignerId == userID
}
