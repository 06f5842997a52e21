package benefits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Repository defines the interface for benefit program data access.
type Repository interface {
	CreateProgram(ctx context.Context, program *Program) error
	GetProgram(ctx context.Context, id uuid.UUID) (*Program, error)
	SaveProgram(ctx context.Context, program *Program) error
	ListPrograms(ctx context.Context, activeOnly bool) ([]Program, error)

	CreateApplication(ctx context.Context, app *Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*Application, error)
	SaveApplication(ctx context.Context, app *Application) error
	FindOpenApplication(ctx context.Context, programID uuid.UUID, applicant ledger.Address) (*Application, error)
	ListApplications(ctx context.Context, programID uuid.UUID) ([]Application, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateProgram(ctx context.Context, program *Program) error {
	return r.db.WithContext(ctx).Create(program).Error
}

func (r *gormRepository) GetProgram(ctx context.Context, id uuid.UUID) (*Program, error) {
	var program Program
	err := r.db.WithContext(ctx).First(&program, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *gormRepository) SaveProgram(ctx context.Context, program *Program) error {
	return r.db.WithContext(ctx).Save(program).Error
}

func (r *gormRepository) ListPrograms(ctx context.Context, activeOnly bool) ([]Program, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var programs []Program
	err := query.Find(&programs).Error
	return programs, err
}

func (r *gormRepository) CreateApplication(ctx context.Context, app *Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *gormRepository) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	var app Application
	err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *gormRepository) SaveApplication(ctx context.Context, app *Application) error {
	return r.db.WithContext(ctx).Save(app).Error
}

// FindOpenApplication returns the applicant's non-terminal application for a
// program, if any.
func (r *gormRepository) FindOpenApplication(ctx context.Context, programID uuid.UUID, applicant ledger.Address) (*Application, error) {
	var app Application
	err := r.db.WithContext(ctx).
		Where("program_id = ? AND applicant = ? AND status IN ?", programID, applicant.String(),
			[]ApplicationStatus{ApplicationPending, ApplicationApproved, ApplicationDisbursed}).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *gormRepository) ListApplications(ctx context.Context, programID uuid.UUID) ([]Application, error) {
	var apps []Application
	err := r.db.WithContext(ctx).
		Where("program_id = ?", programID).
		Order("applied_at ASC").
		Find(&apps).Error
	return apps, err
}
