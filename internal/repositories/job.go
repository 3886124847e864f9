package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/jobsync/internal/models"
)

var ErrNotFound = errors.New("record not found")

type JobRepository interface {
	Create(job *models.JobDescription) error
	FindByID(id uuid.UUID) (*models.JobDescription, error)
	FindByDomain(domain string) ([]models.JobDescription, error)
	ListDomains() ([]string, error)
	Delete(id uuid.UUID) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// Create implements JobRepository.
func (r *jobRepository) Create(job *models.JobDescription) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// FindByID implements JobRepository.
func (r *jobRepository) FindByID(id uuid.UUID) (*models.JobDescription, error) {
	var job models.JobDescription
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

// FindByDomain implements JobRepository. Matching is case-insensitive.
func (r *jobRepository) FindByDomain(domain string) ([]models.JobDescription, error) {
	var jobs []models.JobDescription
	err := r.db.
		Where("LOWER(domain) = LOWER(?)", domain).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find jobs by domain: %w", err)
	}
	return jobs, nil
}

// ListDomains implements JobRepository.
func (r *jobRepository) ListDomains() ([]string, error) {
	var domains []string
	err := r.db.Model(&models.JobDescription{}).
		Distinct("domain").
		Order("domain ASC").
		Pluck("domain", &domains).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	return domains, nil
}

// Delete implements JobRepository. The job's vector_table row is removed by
// the foreign key cascade.
func (r *jobRepository) Delete(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&models.JobDescription{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}
