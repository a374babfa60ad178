package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type assignmentRepoStub struct {
	rows map[string]*models.Assignment
}

func newAssignmentRepoStub() *assignmentRepoStub {
	return &assignmentRepoStub{rows: map[string]*models.Assignment{}}
}

func (s *assignmentRepoStub) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = "assign-1"
	}
	cp := *assignment
	s.rows[assignment.ID] = &cp
	return nil
}

func (s *assignmentRepoStub) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	if assignment, ok := s.rows[id]; ok {
		cp := *assignment
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentRepoStub) Revoke(ctx context.Context, id string) (bool, error) {
	assignment, ok := s.rows[id]
	if !ok || assignment.Status != models.AssignmentStatusActive {
		return false, nil
	}
	assignment.Status = models.AssignmentStatusRevoked
	return true, nil
}

func (s *assignmentRepoStub) HasActive(ctx context.Context, lecturerID, courseID, classID string) (bool, error) {
	for _, assignment := range s.rows {
		if assignment.LecturerID == lecturerID && assignment.CourseID == courseID &&
			assignment.ClassID == classID && assignment.Status == models.AssignmentStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *assignmentRepoStub) ListActiveByLecturer(ctx context.Context, lecturerID string) ([]models.Assignment, error) {
	return nil, nil
}

func (s *assignmentRepoStub) ListByAssigner(ctx context.Context, plID string) ([]models.Assignment, error) {
	return nil, nil
}

func assignmentFixture() (*assignmentRepoStub, *eventRecorder, *AssignmentService) {
	repo := newAssignmentRepoStub()
	courses := &courseReaderStub{
		courses: map[string]*models.Course{
			"course-1": {ID: "course-1", Name: "Networking", PrincipalLecturerID: "prl-1", ProgramLeaderID: "pl-1"},
		},
		classes: map[string]*models.Class{
			"class-1": {ID: "class-1", Name: "BSCSM-A", CourseID: "course-1"},
		},
	}
	users := &userReaderStub{users: map[string]*models.User{
		"lect-1": {ID: "lect-1", Role: models.RoleLecturer, Active: true},
		"stud-1": {ID: "stud-1", Role: models.RoleStudent, Active: true},
	}}
	events := &eventRecorder{}
	svc := NewAssignmentService(repo, courses, users, events, nil, nil)
	return repo, events, svc
}

func validAssignmentRequest() CreateAssignmentRequest {
	return CreateAssignmentRequest{LecturerID: "lect-1", CourseID: "course-1", ClassID: "class-1"}
}

func TestAssignmentServiceCreateNotifiesLecturer(t *testing.T) {
	repo, events, svc := assignmentFixture()

	assignment, err := svc.Create(context.Background(), plClaims(), validAssignmentRequest())
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusActive, assignment.Status)
	assert.Equal(t, "pl-1", assignment.AssignedByID)
	assert.Len(t, repo.rows, 1)

	require.Len(t, events.events, 1)
	assert.Equal(t, notify.EventAssignmentCreated, events.events[0].Type)
	assert.Equal(t, []string{"lect-1"}, events.events[0].RecipientIDs)
}

func TestAssignmentServiceCreateDeniedForOtherProgramLeader(t *testing.T) {
	_, _, svc := assignmentFixture()

	outsider := &models.JWTClaims{UserID: "pl-2", Role: models.RoleProgramLeader}
	_, err := svc.Create(context.Background(), outsider, validAssignmentRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAssignmentServiceCreateRejectsNonLecturer(t *testing.T) {
	_, _, svc := assignmentFixture()

	req := validAssignmentRequest()
	req.LecturerID = "stud-1"
	_, err := svc.Create(context.Background(), plClaims(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAssignmentServiceCreateDuplicateActive(t *testing.T) {
	_, _, svc := assignmentFixture()

	_, err := svc.Create(context.Background(), plClaims(), validAssignmentRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), plClaims(), validAssignmentRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestAssignmentServiceRevokeKeepsRow(t *testing.T) {
	repo, events, svc := assignmentFixture()
	assignment, err := svc.Create(context.Background(), plClaims(), validAssignmentRequest())
	require.NoError(t, err)

	revoked, err := svc.Revoke(context.Background(), plClaims(), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusRevoked, revoked.Status)

	// the row survives for the audit trail
	require.Len(t, repo.rows, 1)
	assert.Equal(t, models.AssignmentStatusRevoked, repo.rows[assignment.ID].Status)

	// revocation is silent, only the create emitted an event
	assert.Len(t, events.events, 1)
}

func TestAssignmentServiceRevokeTwice(t *testing.T) {
	_, _, svc := assignmentFixture()
	assignment, err := svc.Create(context.Background(), plClaims(), validAssignmentRequest())
	require.NoError(t, err)

	_, err = svc.Revoke(context.Background(), plClaims(), assignment.ID)
	require.NoError(t, err)

	_, err = svc.Revoke(context.Background(), plClaims(), assignment.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}
