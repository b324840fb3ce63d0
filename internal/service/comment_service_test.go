package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

type commentFixture struct {
	svc        *CommentService
	comments   *fakeCommentRepo
	incidents  *fakeIncidentRepo
	users      *fakeUserRepo
	dispatcher *captureDispatcher

	dept     domain.Department
	reporter domain.User
	staff    domain.User
	incident domain.Incident
}

func newCommentFixture() *commentFixture {
	f := &commentFixture{
		comments:   &fakeCommentRepo{},
		incidents:  newFakeIncidentRepo(),
		users:      newFakeUserRepo(),
		dispatcher: &captureDispatcher{},
	}
	f.svc = NewCommentService(f.comments, f.incidents, f.users, f.dispatcher)

	deptID := "dept-1"
	f.dept = domain.Department{ID: deptID, Name: "IT"}
	f.reporter = f.users.put(domain.User{
		Email: "reporter@example.com", Role: domain.RoleReporter,
		DepartmentID: &deptID, Active: true,
	})
	f.staff = f.users.put(domain.User{
		Email: "staff@example.com", Role: domain.RoleStaff,
		DepartmentID: &deptID, Active: true,
	})
	f.incident = f.incidents.put(domain.Incident{
		IncidentKey:  "INC-2026-007",
		Title:        "Mail queue stuck",
		Status:       domain.IncidentStatusInProgress,
		ReporterID:   f.reporter.ID,
		DepartmentID: &deptID,
	})
	return f
}

func TestAddComment(t *testing.T) {
	f := newCommentFixture()

	comment, err := f.svc.AddComment(context.Background(), &f.reporter, f.incident.ID, "  still broken  ", false)
	require.NoError(t, err)
	assert.Equal(t, "still broken", comment.Content)
	assert.False(t, comment.IsInternal)

	published := f.dispatcher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventIncidentCommentAdded, published[0].Type)
	payload, ok := published[0].Payload.(events.IncidentCommentAddedPayload)
	require.True(t, ok)
	assert.Equal(t, f.reporter.ID, payload.AuthorID)
	assert.Equal(t, "reporter@example.com", payload.ReporterEmail)
}

func TestAddComment_Internal(t *testing.T) {
	f := newCommentFixture()

	_, err := f.svc.AddComment(context.Background(), &f.reporter, f.incident.ID, "note to self", true)
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)

	comment, err := f.svc.AddComment(context.Background(), &f.staff, f.incident.ID, "root cause is DNS", true)
	require.NoError(t, err)
	assert.True(t, comment.IsInternal)
}

func TestAddComment_BlankContent(t *testing.T) {
	f := newCommentFixture()

	_, err := f.svc.AddComment(context.Background(), &f.reporter, f.incident.ID, "   ", false)
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", de.Code)
}

func TestListComments_InternalVisibility(t *testing.T) {
	f := newCommentFixture()

	_, err := f.svc.AddComment(context.Background(), &f.reporter, f.incident.ID, "public note", false)
	require.NoError(t, err)
	_, err = f.svc.AddComment(context.Background(), &f.staff, f.incident.ID, "internal note", true)
	require.NoError(t, err)

	visible, err := f.svc.ListComments(context.Background(), &f.reporter, f.incident.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "public note", visible[0].Content)

	all, err := f.svc.ListComments(context.Background(), &f.staff, f.incident.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
