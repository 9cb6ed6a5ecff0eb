package domain

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// PortalConfig is a shared configuration referenced by zero or more portals.
type PortalConfig struct {
	ID          string `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
	Destination string `json:"destination" bson:"destination"`
	Enabled     bool   `json:"enabled" bson:"enabled"`
}

// NewPortalConfigID generates a new random portal config identifier
func NewPortalConfigID() string {
	return uuid.NewString()
}

// Normalize validates the config and canonicalises its ID.
func (c *PortalConfig) Normalize() error {
	id, err := ParseID("id", c.ID)
	if err != nil {
		return err
	}
	c.ID = id

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return NewValidationError("name", "is required")
	}
	if len(c.Name) > MaxNameLength {
		return NewValidationError("name", "must not exceed %d characters", MaxNameLength)
	}
	return nil
}

// Portal is a placement record with visual attributes, bound to a PortalConfig.
// The index is the portal's identity.
type Portal struct {
	Index           uint32 `json:"index" bson:"_id"`
	FrameBlockID    int    `json:"frameBlockId" bson:"frame_block_id"`
	LightWithItemID int    `json:"lightWithItemId" bson:"light_with_item_id"`
	ColorB          uint8  `json:"color_b" bson:"color_b"`
	ColorG          uint8  `json:"color_g" bson:"color_g"`
	ColorR          uint8  `json:"color_r" bson:"color_r"`
	ConfigID        string `json:"configId" bson:"config_id"`
}

// Normalize validates the portal's config reference and canonicalises it.
func (p *Portal) Normalize() error {
	id, err := ParseID("configId", p.ConfigID)
	if err != nil {
		return err
	}
	p.ConfigID = id
	return nil
}

// PortalIndexFromInt converts a decoded JSON index into a uint32.
func PortalIndexFromInt(index int64) (uint32, error) {
	if index < 0 || index > math.MaxUint32 {
		return 0, NewValidationError("index", "must be between 0 and %d, got %d", uint32(math.MaxUint32), index)
	}
	return uint32(index), nil
}

// ColorFromInt converts a decoded JSON color component into a uint8.
func ColorFromInt(field string, v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, NewValidationError(field, "must be between 0 and 255, got %d", v)
	}
	return uint8(v), nil
}
