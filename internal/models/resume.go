package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type Resume struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"created_at"`
}

func (Resume) TableName() string {
	return "resumes"
}

type ResumeVector struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ResumeID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"resume_id"`
	Embedding pgvector.Vector `gorm:"type:vector(384);not null" json:"-"`
	CreatedAt time.Time       `gorm:"type:timestamptz;default:now()" json:"created_at"`

	Resume Resume `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ResumeVector) TableName() string {
	return "resume_vectors"
}

func joinNonEmpty(parts []string, sep string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
