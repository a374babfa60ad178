package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// CourseRepository persists courses, classes and class enrollments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, code, stream, principal_lecturer_id, program_leader_id, created_at, updated_at
FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses matching the filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.PrincipalLecturerID != "" {
		where = append(where, fmt.Sprintf("principal_lecturer_id = $%d", len(args)+1))
		args = append(args, filter.PrincipalLecturerID)
	}
	if filter.ProgramLeaderID != "" {
		where = append(where, fmt.Sprintf("program_leader_id = $%d", len(args)+1))
		args = append(args, filter.ProgramLeaderID)
	}
	if filter.Stream != "" {
		where = append(where, fmt.Sprintf("stream = $%d", len(args)+1))
		args = append(args, filter.Stream)
	}
	query := fmt.Sprintf(`SELECT id, name, code, stream, principal_lecturer_id, program_leader_id, created_at, updated_at
FROM courses WHERE %s ORDER BY name ASC`, strings.Join(where, " AND "))
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, code, stream, principal_lecturer_id, program_leader_id, created_at, updated_at)
VALUES (:id, :name, :code, :stream, :principal_lecturer_id, :program_leader_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindClassByID returns a class by identifier.
func (r *CourseRepository) FindClassByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, course_id, venue, scheduled_time, total_registered_students, created_at
FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListClasses returns the classes of a course.
func (r *CourseRepository) ListClasses(ctx context.Context, courseID string) ([]models.Class, error) {
	const query = `SELECT id, name, course_id, venue, scheduled_time, total_registered_students, created_at
FROM classes WHERE course_id = $1 ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, courseID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// CreateClass inserts a new class.
func (r *CourseRepository) CreateClass(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, name, course_id, venue, scheduled_time, total_registered_students, created_at)
VALUES (:id, :name, :course_id, :venue, :scheduled_time, :total_registered_students, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Enroll records a student in a class. Re-enrolling is a no-op.
func (r *CourseRepository) Enroll(ctx context.Context, studentID, classID string) error {
	const query = `INSERT INTO class_enrollments (id, student_id, class_id, created_at)
VALUES ($1, $2, $3, $4) ON CONFLICT (student_id, class_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), studentID, classID, time.Now().UTC()); err != nil {
		return fmt.Errorf("enroll student: %w", err)
	}
	return nil
}

// IsStudentEnrolled checks membership of a student in a class.
func (r *CourseRepository) IsStudentEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	const query = `SELECT 1 FROM class_enrollments WHERE student_id = $1 AND class_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// StudentSharesLecturer checks whether the student is enrolled in any class
// the lecturer holds an active assignment for.
func (r *CourseRepository) StudentSharesLecturer(ctx context.Context, studentID, lecturerID string) (bool, error) {
	const query = `SELECT 1
FROM class_enrollments ce
JOIN lecturer_assignments la ON la.class_id = ce.class_id AND la.status = 'active'
WHERE ce.student_id = $1 AND la.lecturer_id = $2
LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, lecturerID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student lecturer relation: %w", err)
	}
	return true, nil
}
