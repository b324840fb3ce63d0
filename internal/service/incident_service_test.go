package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func ptr[T any](v T) *T { return &v }

type incidentFixture struct {
	svc         *IncidentService
	incidents   *fakeIncidentRepo
	users       *fakeUserRepo
	departments *fakeDepartmentRepo
	categories  *fakeCategoryRepo
	slas        *fakeSLARepo
	dispatcher  *captureDispatcher

	dept     domain.Department
	category domain.Category
	admin    domain.User
	staff    domain.User
	reporter domain.User
}

func newIncidentFixture() *incidentFixture {
	f := &incidentFixture{
		incidents:   newFakeIncidentRepo(),
		users:       newFakeUserRepo(),
		departments: newFakeDepartmentRepo(),
		categories:  newFakeCategoryRepo(),
		slas:        newFakeSLARepo(),
		dispatcher:  &captureDispatcher{},
	}
	f.svc = NewIncidentService(IncidentDependencies{
		IncidentRepo:   f.incidents,
		UserRepo:       f.users,
		DepartmentRepo: f.departments,
		CategoryRepo:   f.categories,
		SLARepo:        f.slas,
		Dispatcher:     f.dispatcher,
	})

	f.dept = f.departments.put(domain.Department{Name: "IT Operations"})
	f.category = f.categories.put(domain.Category{Name: "Hardware", IsActive: true})
	f.admin = f.users.put(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin, Active: true})
	f.staff = f.users.put(domain.User{
		Email: "staff@example.com", Role: domain.RoleStaff,
		DepartmentID: &f.dept.ID, Active: true,
	})
	f.reporter = f.users.put(domain.User{
		Email: "reporter@example.com", Role: domain.RoleReporter,
		DepartmentID: &f.dept.ID, Active: true,
	})
	return f
}

func (f *incidentFixture) seedIncident(status domain.IncidentStatus, reporterID string) domain.Incident {
	return f.incidents.put(domain.Incident{
		IncidentKey:  "INC-2026-001",
		Title:        "Printer on fire",
		Status:       status,
		Priority:     domain.PriorityMedium,
		ReporterID:   reporterID,
		DepartmentID: &f.dept.ID,
		CategoryID:   f.category.ID,
		CreatedAt:    time.Now().UTC(),
	})
}

func TestCreateIncident(t *testing.T) {
	f := newIncidentFixture()
	f.slas.policies[domain.PriorityCritical] = domain.SLAPolicy{
		ID: "sla-1", Name: "Critical", Priority: domain.PriorityCritical,
		ResponseTimeMinutes: 15, ResolutionTimeMinutes: 60,
	}

	incident, err := f.svc.CreateIncident(context.Background(), &f.reporter, IncidentCreateInput{
		Title:      "  Database down  ",
		Priority:   domain.PriorityCritical,
		CategoryID: f.category.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("INC-%d-001", time.Now().UTC().Year()), incident.IncidentKey)
	assert.Equal(t, "Database down", incident.Title)
	assert.Equal(t, domain.IncidentStatusOpen, incident.Status)
	assert.Equal(t, f.reporter.ID, incident.ReporterID)
	// Department defaults to the reporter's.
	require.NotNil(t, incident.DepartmentID)
	assert.Equal(t, f.dept.ID, *incident.DepartmentID)

	require.NotNil(t, incident.SLABreachAt)
	assert.WithinDuration(t, time.Now().UTC().Add(60*time.Minute), *incident.SLABreachAt, 2*time.Second)

	require.Len(t, f.incidents.audits, 1)
	entry := f.incidents.audits[0]
	assert.Equal(t, domain.AuditActionCreated, entry.Action)
	assert.Equal(t, f.reporter.ID, entry.ActorID)
	require.NotNil(t, entry.NewValue)
	assert.Equal(t, "OPEN", *entry.NewValue)

	assert.Equal(t, []events.EventType{events.EventIncidentCreated}, f.dispatcher.typesPublished())
}

func TestCreateIncident_NoSLAPolicy(t *testing.T) {
	f := newIncidentFixture()

	incident, err := f.svc.CreateIncident(context.Background(), &f.reporter, IncidentCreateInput{
		Title:      "Keyboard broken",
		CategoryID: f.category.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, incident.Priority)
	assert.Nil(t, incident.SLABreachAt)
}

func TestCreateIncident_Validation(t *testing.T) {
	f := newIncidentFixture()
	inactive := f.categories.put(domain.Category{Name: "Retired", IsActive: false})
	other := f.categories.put(domain.Category{Name: "Software", IsActive: true})
	sub := f.categories.putSub(domain.Subcategory{CategoryID: other.ID, Name: "Email", IsActive: true})

	tests := []struct {
		name  string
		input IncidentCreateInput
		code  string
	}{
		{"blank title", IncidentCreateInput{Title: "   ", CategoryID: f.category.ID}, "MISSING_REQUIRED_FIELD"},
		{"unknown category", IncidentCreateInput{Title: "x", CategoryID: "nope"}, "NOT_FOUND"},
		{"inactive category", IncidentCreateInput{Title: "x", CategoryID: inactive.ID}, "VALIDATION_FAILED"},
		{"invalid priority", IncidentCreateInput{Title: "x", CategoryID: f.category.ID, Priority: "URGENT"}, "VALIDATION_FAILED"},
		{"subcategory of other category", IncidentCreateInput{Title: "x", CategoryID: f.category.ID, SubcategoryID: &sub.ID}, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateIncident(context.Background(), &f.reporter, tt.input)
			var de *errorutil.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestUpdateIncident_TransitionTable(t *testing.T) {
	tests := []struct {
		from    domain.IncidentStatus
		to      domain.IncidentStatus
		allowed bool
	}{
		{domain.IncidentStatusOpen, domain.IncidentStatusInProgress, true},
		{domain.IncidentStatusOpen, domain.IncidentStatusCancelled, true},
		{domain.IncidentStatusOpen, domain.IncidentStatusResolved, false},
		{domain.IncidentStatusOpen, domain.IncidentStatusClosed, false},
		{domain.IncidentStatusInProgress, domain.IncidentStatusResolved, true},
		{domain.IncidentStatusInProgress, domain.IncidentStatusOpen, true},
		{domain.IncidentStatusInProgress, domain.IncidentStatusCancelled, true},
		{domain.IncidentStatusInProgress, domain.IncidentStatusClosed, false},
		{domain.IncidentStatusResolved, domain.IncidentStatusClosed, true},
		{domain.IncidentStatusResolved, domain.IncidentStatusInProgress, true},
		{domain.IncidentStatusResolved, domain.IncidentStatusOpen, false},
		{domain.IncidentStatusClosed, domain.IncidentStatusOpen, false},
		{domain.IncidentStatusClosed, domain.IncidentStatusInProgress, false},
		{domain.IncidentStatusCancelled, domain.IncidentStatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			f := newIncidentFixture()
			incident := f.seedIncident(tt.from, f.reporter.ID)

			comment := "closing note"
			_, err := f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
				Status:        ptr(tt.to),
				StatusComment: &comment,
			})
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			var de *errorutil.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "INVALID_TRANSITION", de.Code)
		})
	}
}

func TestUpdateIncident_StatusPermissions(t *testing.T) {
	t.Run("reporter cannot resolve own incident", func(t *testing.T) {
		f := newIncidentFixture()
		incident := f.seedIncident(domain.IncidentStatusInProgress, f.reporter.ID)

		_, err := f.svc.UpdateIncident(context.Background(), &f.reporter, incident.ID, IncidentUpdateInput{
			Status: ptr(domain.IncidentStatusResolved),
		})
		var de *errorutil.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "FORBIDDEN", de.Code)

		// A rejected update leaves no trace.
		stored, _ := f.incidents.GetByID(context.Background(), incident.ID)
		assert.Equal(t, domain.IncidentStatusInProgress, stored.Status)
		assert.Empty(t, f.incidents.audits)
		assert.Empty(t, f.dispatcher.published())
	})

	t.Run("staff resolves within department", func(t *testing.T) {
		f := newIncidentFixture()
		incident := f.seedIncident(domain.IncidentStatusInProgress, f.reporter.ID)

		updated, err := f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
			Status: ptr(domain.IncidentStatusResolved),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.IncidentStatusResolved, updated.Status)
		require.NotNil(t, updated.ResolvedAt)
	})

	t.Run("staff cannot resolve outside department", func(t *testing.T) {
		f := newIncidentFixture()
		otherDept := f.departments.put(domain.Department{Name: "Finance"})
		incident := f.incidents.put(domain.Incident{
			Title: "x", Status: domain.IncidentStatusInProgress,
			Priority: domain.PriorityMedium, ReporterID: f.reporter.ID,
			DepartmentID: &otherDept.ID, CategoryID: f.category.ID,
		})

		_, err := f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
			Status: ptr(domain.IncidentStatusResolved),
		})
		var de *errorutil.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "FORBIDDEN", de.Code)
	})

	t.Run("reporter closes own resolved incident", func(t *testing.T) {
		f := newIncidentFixture()
		incident := f.seedIncident(domain.IncidentStatusResolved, f.reporter.ID)

		comment := "works again, thanks"
		updated, err := f.svc.UpdateIncident(context.Background(), &f.reporter, incident.ID, IncidentUpdateInput{
			Status:        ptr(domain.IncidentStatusClosed),
			StatusComment: &comment,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.IncidentStatusClosed, updated.Status)
	})
}

func TestUpdateIncident_PermissionCheckedBeforeTransition(t *testing.T) {
	f := newIncidentFixture()
	incident := f.seedIncident(domain.IncidentStatusOpen, f.reporter.ID)
	stranger := f.users.put(domain.User{Email: "stranger@example.com", Role: domain.RoleReporter, Active: true})

	// OPEN to RESOLVED is off the lifecycle table, but a reporter who may
	// not resolve at all is turned away before the table is consulted.
	_, err := f.svc.UpdateIncident(context.Background(), &stranger, incident.ID, IncidentUpdateInput{
		Status: ptr(domain.IncidentStatusResolved),
	})
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)

	// An admin making the same request hits the lifecycle table.
	_, err = f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
		Status: ptr(domain.IncidentStatusResolved),
	})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_TRANSITION", de.Code)
}

func TestUpdateIncident_CloseRequiresComment(t *testing.T) {
	f := newIncidentFixture()
	incident := f.seedIncident(domain.IncidentStatusResolved, f.reporter.ID)

	_, err := f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
		Status: ptr(domain.IncidentStatusClosed),
	})
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", de.Code)

	comment := "verified with the reporter"
	_, err = f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
		Status:        ptr(domain.IncidentStatusClosed),
		StatusComment: &comment,
	})
	require.NoError(t, err)
	require.Len(t, f.incidents.comments, 1)
	assert.Equal(t, "verified with the reporter", f.incidents.comments[0].Content)
	assert.Equal(t, f.admin.ID, f.incidents.comments[0].AuthorID)
}

func TestUpdateIncident_AuditEntryPerChangedField(t *testing.T) {
	f := newIncidentFixture()
	incident := f.seedIncident(domain.IncidentStatusOpen, f.reporter.ID)

	updated, err := f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
		Title:       ptr("Printer smoking"),
		Description: ptr("smoke, no flames yet"),
		Priority:    ptr(domain.PriorityHigh),
	})
	require.NoError(t, err)
	assert.Equal(t, "Printer smoking", updated.Title)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)

	require.Len(t, f.incidents.audits, 3)
	actions := map[domain.AuditAction]bool{}
	for _, entry := range f.incidents.audits {
		actions[entry.Action] = true
	}
	assert.True(t, actions[domain.AuditActionTitleUpdate])
	assert.True(t, actions[domain.AuditActionDescriptionUpdate])
	assert.True(t, actions[domain.AuditActionPriorityChange])
}

func TestUpdateIncident_EmptyPatchIsNoOp(t *testing.T) {
	f := newIncidentFixture()
	incident := f.seedIncident(domain.IncidentStatusOpen, f.reporter.ID)

	updated, err := f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
		Title:    ptr(incident.Title),
		Priority: ptr(incident.Priority),
	})
	require.NoError(t, err)
	assert.Equal(t, incident.Title, updated.Title)
	assert.Empty(t, f.incidents.audits)
	assert.Empty(t, f.dispatcher.published())
}

func TestUpdateIncident_AssignmentAutoAdvances(t *testing.T) {
	f := newIncidentFixture()
	incident := f.seedIncident(domain.IncidentStatusOpen, f.reporter.ID)

	updated, err := f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
		AssigneeID:  &f.staff.ID,
		AssigneeSet: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInProgress, updated.Status)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, f.staff.ID, *updated.AssigneeID)

	require.Len(t, f.incidents.audits, 2)
	assert.Equal(t, domain.AuditActionAssignment, f.incidents.audits[0].Action)
	assert.Equal(t, domain.AuditActionStatusChange, f.incidents.audits[1].Action)

	types := f.dispatcher.typesPublished()
	assert.Contains(t, types, events.EventIncidentAssigned)
	assert.Contains(t, types, events.EventIncidentStatusChanged)
}

func TestUpdateIncident_AssignmentKeepsExplicitStatus(t *testing.T) {
	f := newIncidentFixture()
	incident := f.seedIncident(domain.IncidentStatusInProgress, f.reporter.ID)

	updated, err := f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
		Status:      ptr(domain.IncidentStatusOpen),
		AssigneeID:  &f.staff.ID,
		AssigneeSet: true,
	})
	require.NoError(t, err)
	// Explicit transition wins over the auto-advance.
	assert.Equal(t, domain.IncidentStatusOpen, updated.Status)
}

func TestUpdateIncident_Unassign(t *testing.T) {
	f := newIncidentFixture()
	incident := f.incidents.put(domain.Incident{
		Title: "x", Status: domain.IncidentStatusInProgress,
		Priority: domain.PriorityMedium, ReporterID: f.reporter.ID,
		AssigneeID: &f.staff.ID, DepartmentID: &f.dept.ID, CategoryID: f.category.ID,
	})

	updated, err := f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
		AssigneeID:  nil,
		AssigneeSet: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	// Unassigning never flips the status.
	assert.Equal(t, domain.IncidentStatusInProgress, updated.Status)
}

func TestUpdateIncident_TerminalStateOperations(t *testing.T) {
	for _, status := range []domain.IncidentStatus{domain.IncidentStatusClosed, domain.IncidentStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newIncidentFixture()
			incident := f.seedIncident(status, f.reporter.ID)

			_, err := f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
				AssigneeID:  &f.staff.ID,
				AssigneeSet: true,
			})
			var de *errorutil.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "ILLEGAL_STATE_OPERATION", de.Code)

			_, err = f.svc.UpdateIncident(context.Background(), &f.admin, incident.ID, IncidentUpdateInput{
				Priority: ptr(domain.PriorityCritical),
			})
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "ILLEGAL_STATE_OPERATION", de.Code)
		})
	}
}

func TestUpdateIncident_ReopenKeepsResolvedAt(t *testing.T) {
	f := newIncidentFixture()
	resolvedAt := time.Now().UTC().Add(-time.Hour)
	incident := f.incidents.put(domain.Incident{
		Title: "x", Status: domain.IncidentStatusResolved,
		Priority: domain.PriorityMedium, ReporterID: f.reporter.ID,
		DepartmentID: &f.dept.ID, CategoryID: f.category.ID, ResolvedAt: &resolvedAt,
	})

	updated, err := f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
		Status: ptr(domain.IncidentStatusInProgress),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInProgress, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, resolvedAt, *updated.ResolvedAt)

	// Resolving again after a reopen keeps the first resolution time.
	_, err = f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
		Status: ptr(domain.IncidentStatusResolved),
	})
	require.NoError(t, err)
	again, err := f.incidents.GetByID(context.Background(), incident.ID)
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedAt)
	assert.Equal(t, resolvedAt, *again.ResolvedAt)
}

func TestUpdateIncident_InactiveAssigneeRejected(t *testing.T) {
	f := newIncidentFixture()
	disabled := f.users.put(domain.User{
		Email: "gone@example.com", Role: domain.RoleStaff,
		DepartmentID: &f.dept.ID, Active: false,
	})
	incident := f.seedIncident(domain.IncidentStatusOpen, f.reporter.ID)

	_, err := f.svc.UpdateIncident(context.Background(), &f.staff, incident.ID, IncidentUpdateInput{
		AssigneeID:  &disabled.ID,
		AssigneeSet: true,
	})
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestGetIncident_ViewScoping(t *testing.T) {
	f := newIncidentFixture()
	incident := f.seedIncident(domain.IncidentStatusOpen, f.reporter.ID)
	stranger := f.users.put(domain.User{Email: "other@example.com", Role: domain.RoleReporter, Active: true})

	detail, err := f.svc.GetIncident(context.Background(), &f.reporter, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, "reporter@example.com", detail.ReporterName)
	assert.Equal(t, "Hardware", detail.CategoryName)

	_, err = f.svc.GetIncident(context.Background(), &stranger, incident.ID)
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)
}

func TestListIncidents_RoleScoping(t *testing.T) {
	f := newIncidentFixture()

	_, err := f.svc.ListIncidents(context.Background(), &f.reporter, IncidentListInput{})
	require.NoError(t, err)
	require.NotNil(t, f.incidents.lastFilter.ReporterID)
	assert.Equal(t, f.reporter.ID, *f.incidents.lastFilter.ReporterID)

	_, err = f.svc.ListIncidents(context.Background(), &f.staff, IncidentListInput{})
	require.NoError(t, err)
	assert.Nil(t, f.incidents.lastFilter.ReporterID)
	require.NotNil(t, f.incidents.lastFilter.DepartmentID)
	assert.Equal(t, f.dept.ID, *f.incidents.lastFilter.DepartmentID)

	_, err = f.svc.ListIncidents(context.Background(), &f.admin, IncidentListInput{})
	require.NoError(t, err)
	assert.Nil(t, f.incidents.lastFilter.ReporterID)
	assert.Nil(t, f.incidents.lastFilter.DepartmentID)
}

func TestListIncidents_CallerFilters(t *testing.T) {
	f := newIncidentFixture()

	// Admins pass reporter and department filters straight through.
	otherDept := "dept-2"
	_, err := f.svc.ListIncidents(context.Background(), &f.admin, IncidentListInput{
		ReporterID:   &f.reporter.ID,
		DepartmentID: &otherDept,
	})
	require.NoError(t, err)
	require.NotNil(t, f.incidents.lastFilter.ReporterID)
	assert.Equal(t, f.reporter.ID, *f.incidents.lastFilter.ReporterID)
	require.NotNil(t, f.incidents.lastFilter.DepartmentID)
	assert.Equal(t, otherDept, *f.incidents.lastFilter.DepartmentID)

	// Staff keep their department scope but may narrow by reporter.
	_, err = f.svc.ListIncidents(context.Background(), &f.staff, IncidentListInput{
		ReporterID: &f.reporter.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, f.incidents.lastFilter.ReporterID)
	assert.Equal(t, f.reporter.ID, *f.incidents.lastFilter.ReporterID)
	require.NotNil(t, f.incidents.lastFilter.DepartmentID)
	assert.Equal(t, f.dept.ID, *f.incidents.lastFilter.DepartmentID)

	// A department filter outside the staff scope yields nothing.
	f.seedIncident(domain.IncidentStatusOpen, f.reporter.ID)
	incidents, err := f.svc.ListIncidents(context.Background(), &f.staff, IncidentListInput{
		DepartmentID: &otherDept,
	})
	require.NoError(t, err)
	assert.Empty(t, incidents)

	// Reporters cannot read another reporter's incidents through the filter.
	stranger := f.users.put(domain.User{Email: "someone@example.com", Role: domain.RoleReporter, Active: true})
	incidents, err = f.svc.ListIncidents(context.Background(), &f.reporter, IncidentListInput{
		ReporterID: &stranger.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, incidents)
}
