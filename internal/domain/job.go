package domain

import "time"

// JobStatus represents the status of a meal-plan job.
// Values include JobStatusPending, JobStatusProcessing, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Phase is the 1-based unit of work a processing job is currently on.
type Phase int

const (
	PhaseDinnersFirst  Phase = 1
	PhaseDinnersSecond Phase = 2
	PhaseBreakfasts    Phase = 3
	PhaseDesserts      Phase = 4
	PhaseFinalize      Phase = 5
)

// Valid reports whether p is one of the five known phases.
func (p Phase) Valid() bool {
	return p >= PhaseDinnersFirst && p <= PhaseFinalize
}

// MealPlanJob is the persisted unit of resumable work. It is created elsewhere in
// status pending / phase 1 and mutated only by the orchestrator.
type MealPlanJob struct {
	ID string `gorm:"type:text;primaryKey" json:"id"`

	// Customer context
	CustomerEmail string      `gorm:"type:text;not null;index" json:"customer_email"`
	FamilySize    int         `gorm:"default:1" json:"family_size"`
	DietType      string      `gorm:"type:text;not null" json:"diet_type"`
	Allergies     string      `gorm:"type:text" json:"allergies"`
	Preferences   string      `gorm:"type:text" json:"preferences"`
	DietaryNeeds  StringArray `gorm:"type:text" json:"dietary_needs"`
	ProductType   string      `gorm:"type:text" json:"product_type"`
	PaymentRef    string      `gorm:"type:text;index" json:"payment_ref"`
	DietPlanID    string      `gorm:"type:text" json:"diet_plan_id,omitempty"`

	// Progress
	Status          JobStatus  `gorm:"type:text;index:idx_meal_plan_jobs_status;default:pending" json:"status"`
	CurrentPhase    Phase      `gorm:"default:1" json:"current_phase"`
	ProgressMessage string     `gorm:"type:text" json:"progress_message"`
	LeaseExpiresAt  *time.Time `json:"-"`

	// Accumulator
	Accumulated RecipeList `gorm:"type:text" json:"accumulated_recipes"`

	// Terminal fields
	DocumentURL  string     `gorm:"type:text" json:"document_url,omitempty"`
	RecipeCount  int        `gorm:"default:0" json:"recipe_count"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for MealPlanJob.
func (MealPlanJob) TableName() string {
	return "meal_plan_jobs"
}
