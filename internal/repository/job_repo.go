package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/mealplan/internal/domain"
	"gorm.io/gorm"
)

var (
	// ErrJobNotFound is returned when no job has the requested ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrPhaseConflict is returned when the job moved on since it was read.
	ErrPhaseConflict = errors.New("job phase changed concurrently")
	// ErrJobNotActionable is returned when a status update targets a missing or terminal job.
	ErrJobNotActionable = errors.New("job is missing or already terminal")
)

// StatusFields are the optional columns written alongside a status change.
type StatusFields struct {
	ProgressMessage string
	DocumentURL     string
	RecipeCount     *int
	ErrorMessage    string
	Accumulated     []domain.Recipe
}

// JobRepository handles meal-plan job persistence.
type JobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new job in status pending, phase 1.
func (r *JobRepository) Create(ctx context.Context, job *domain.MealPlanJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = domain.JobStatusPending
	job.CurrentPhase = domain.PhaseDinnersFirst
	if job.Accumulated == nil {
		job.Accumulated = domain.RecipeList{}
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job ID.
//
// Returns:
//   - *domain.MealPlanJob: job record if found.
//   - error: ErrJobNotFound when missing.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.MealPlanJob, error) {
	var job domain.MealPlanJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FetchActionable returns up to limit pending or processing jobs that no
// other invocation currently holds, oldest first.
func (r *JobRepository) FetchActionable(ctx context.Context, limit int) ([]domain.MealPlanJob, error) {
	var jobs []domain.MealPlanJob
	err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing}).
		Where("lease_expires_at IS NULL OR lease_expires_at < ?", r.now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Claim is a compare-and-swap on (id, expected status) -> next status. It
// also takes a lease so a processing job cannot be claimed twice; the lease is
// released by AdvancePhase or SetStatus.
// Returns:
//   - bool: true if this caller now owns the job.
//   - error: non-nil on database failure.
func (r *JobRepository) Claim(ctx context.Context, id string, expected, next domain.JobStatus, lease time.Duration) (bool, error) {
	now := r.now()
	updates := map[string]interface{}{
		"status":           next,
		"lease_expires_at": now.Add(lease),
	}
	if expected == domain.JobStatusPending {
		updates["started_at"] = now
	}

	res := r.db.WithContext(ctx).Model(&domain.MealPlanJob{}).
		Where("id = ? AND status = ?", id, expected).
		Where("lease_expires_at IS NULL OR lease_expires_at < ?", now).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AdvancePhase moves a processing job from one phase to the next and stores
// the new accumulator, releasing the lease.
// Returns ErrPhaseConflict when the job is no longer at fromPhase.
func (r *JobRepository) AdvancePhase(ctx context.Context, id string, fromPhase, nextPhase domain.Phase, message string, accumulated []domain.Recipe) error {
	res := r.db.WithContext(ctx).Model(&domain.MealPlanJob{}).
		Where("id = ? AND status = ? AND current_phase = ?", id, domain.JobStatusProcessing, fromPhase).
		Updates(map[string]interface{}{
			"current_phase":    nextPhase,
			"progress_message": message,
			"accumulated":      domain.RecipeList(accumulated),
			"lease_expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPhaseConflict
	}
	return nil
}

// SetStatus writes a status change plus any extra fields. Terminal jobs are
// never touched again.
func (r *JobRepository) SetStatus(ctx context.Context, id string, status domain.JobStatus, fields StatusFields) error {
	updates := map[string]interface{}{
		"status":           status,
		"lease_expires_at": nil,
	}
	if fields.ProgressMessage != "" {
		updates["progress_message"] = fields.ProgressMessage
	}
	if fields.DocumentURL != "" {
		updates["document_url"] = fields.DocumentURL
	}
	if fields.RecipeCount != nil {
		updates["recipe_count"] = *fields.RecipeCount
	}
	if fields.ErrorMessage != "" {
		updates["error_message"] = fields.ErrorMessage
	}
	if fields.Accumulated != nil {
		updates["accumulated"] = domain.RecipeList(fields.Accumulated)
	}
	if status.IsTerminal() {
		updates["completed_at"] = r.now()
	}

	res := r.db.WithContext(ctx).Model(&domain.MealPlanJob{}).
		Where("id = ? AND status NOT IN ?", id, []domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusFailed}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotActionable
	}
	return nil
}
