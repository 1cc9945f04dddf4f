package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Flag is a named boolean switch, such as collect_tax_ch.
type Flag struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_feature_flags_name"`
	Description *string      `gorm:"type:text"`
	Active      bool         `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Flag) TableName() string { return "feature_flags" }

// NormalizeName lower-cases a flag name and trims whitespace.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
