// internal/models/admin.go
package models

import (
	"strconv"

	"github.com/google/uuid"
)

const (
	SettingCategoryPlatform   = "platform"
	SettingPlatformFeePercent = "PLATFORM_FEE_PERCENT"
)

type PlatformSetting struct {
	BaseModel
	Category    string     `json:"category" gorm:"size:50;not null;uniqueIndex:idx_platform_settings_key"`
	Key         string     `json:"key" gorm:"size:100;not null;uniqueIndex:idx_platform_settings_key"`
	Value       JSONB      `json:"value" gorm:"type:jsonb;not null"`
	DataType    string     `json:"data_type" gorm:"size:20;not null"`
	Description string     `json:"description" gorm:"type:text"`
	UpdatedBy   *uuid.UUID `json:"updated_by" gorm:"type:uuid"`
}

// StringValue returns the "value" member rendered as a string, the form the
// fee resolver parses into a decimal.
func (s *PlatformSetting) StringValue() (string, bool) {
	if s == nil || s.Value == nil {
		return "", false
	}
	switch v := s.Value["value"].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}
