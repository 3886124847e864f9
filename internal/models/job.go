package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingDimension is the length of vectors stored in vector columns.
const EmbeddingDimension = 384

type JobDescription struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"uuid"`
	Title           string    `gorm:"type:text;not null" json:"title"`
	Company         string    `gorm:"type:text;not null" json:"company"`
	Domain          string    `gorm:"type:text;not null;index" json:"domain"`
	Description     string    `gorm:"type:text;not null" json:"description"`
	Requirements    string    `gorm:"type:text" json:"requirements,omitempty"`
	Location        string    `gorm:"type:text" json:"location,omitempty"`
	Salary          float64   `gorm:"type:double precision;not null;default:0" json:"salary"`
	ContactInfo     string    `gorm:"type:text;not null;default:''" json:"contact_info"`
	ApplicationLink string    `gorm:"type:text;not null;default:''" json:"application_link"`
	CreatedAt       time.Time `gorm:"type:timestamptz;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;default:now()" json:"updated_at"`
}

func (JobDescription) TableName() string {
	return "job_description"
}

// EmbeddingText is the text a job's vector is derived from.
func (j *JobDescription) EmbeddingText() string {
	parts := []string{j.Title, j.Domain, j.Description}
	if j.Requirements != "" {
		parts = append(parts, j.Requirements)
	}
	return joinNonEmpty(parts, "\n")
}

// JobVector holds the embedding of exactly one job. Rows go away with their job.
type JobVector struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	JobID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"job_id"`
	Embedding pgvector.Vector `gorm:"type:vector(384);not null" json:"-"`
	CreatedAt time.Time       `gorm:"type:timestamptz;default:now()" json:"created_at"`

	Job JobDescription `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

func (JobVector) TableName() string {
	return "vector_table"
}
