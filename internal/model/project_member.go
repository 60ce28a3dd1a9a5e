package model

import (
	"time"

	"github.com/google/uuid"
)

// ProjectMember grants a user access to one project's data.
type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      string    `gorm:"type:varchar(30);not null;default:'viewer'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
