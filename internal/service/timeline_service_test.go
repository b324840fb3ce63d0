package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func TestTimeline(t *testing.T) {
	incidents := newFakeIncidentRepo()
	audits := &fakeAuditRepo{}
	users := newFakeUserRepo()
	svc := NewTimelineService(incidents, audits, users)

	reporter := users.put(domain.User{Email: "reporter@example.com", FullName: "Rae Porter", Role: domain.RoleReporter, Active: true})
	assignee := users.put(domain.User{Email: "staff@example.com", FullName: "Sam Taff", Role: domain.RoleStaff, Active: true})

	incident := incidents.put(domain.Incident{
		Title:      "VPN flapping",
		Status:     domain.IncidentStatusInProgress,
		ReporterID: reporter.ID,
	})

	require.NoError(t, audits.Append(context.Background(), &domain.AuditLogEntry{
		IncidentID: incident.ID,
		ActorID:    reporter.ID,
		Action:     domain.AuditActionCreated,
		NewValue:   ptr("OPEN"),
	}))
	// Assignment entries store raw user IDs.
	require.NoError(t, audits.Append(context.Background(), &domain.AuditLogEntry{
		IncidentID: incident.ID,
		ActorID:    assignee.ID,
		Action:     domain.AuditActionAssignment,
		NewValue:   &assignee.ID,
	}))
	require.NoError(t, audits.Append(context.Background(), &domain.AuditLogEntry{
		IncidentID: incident.ID,
		ActorID:    assignee.ID,
		Action:     domain.AuditActionStatusChange,
		OldValue:   ptr("OPEN"),
		NewValue:   ptr("IN_PROGRESS"),
	}))

	entries, err := svc.Timeline(context.Background(), &reporter, incident.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Rae Porter", entries[0].ActorName)
	assert.Equal(t, "Sam Taff", entries[1].ActorName)

	// The assignee ID is rendered as a display name.
	require.NotNil(t, entries[1].NewValue)
	assert.Equal(t, "Sam Taff", *entries[1].NewValue)

	// Plain status values pass through untouched.
	require.NotNil(t, entries[2].NewValue)
	assert.Equal(t, "IN_PROGRESS", *entries[2].NewValue)
}

func TestTimeline_UnknownActorAndValue(t *testing.T) {
	incidents := newFakeIncidentRepo()
	audits := &fakeAuditRepo{}
	users := newFakeUserRepo()
	svc := NewTimelineService(incidents, audits, users)

	reporter := users.put(domain.User{Email: "reporter@example.com", Role: domain.RoleReporter, Active: true})
	incident := incidents.put(domain.Incident{Title: "x", ReporterID: reporter.ID})

	deletedUser := "6b1b4d1e-0000-4000-8000-000000000000"
	require.NoError(t, audits.Append(context.Background(), &domain.AuditLogEntry{
		IncidentID: incident.ID,
		ActorID:    deletedUser,
		Action:     domain.AuditActionAssignment,
		NewValue:   &deletedUser,
	}))

	entries, err := svc.Timeline(context.Background(), &reporter, incident.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Unknown", entries[0].ActorName)
	require.NotNil(t, entries[0].NewValue)
	assert.Equal(t, "Unknown", *entries[0].NewValue)
}

func TestTimeline_ViewForbidden(t *testing.T) {
	incidents := newFakeIncidentRepo()
	audits := &fakeAuditRepo{}
	users := newFakeUserRepo()
	svc := NewTimelineService(incidents, audits, users)

	reporter := users.put(domain.User{Email: "reporter@example.com", Role: domain.RoleReporter, Active: true})
	stranger := users.put(domain.User{Email: "other@example.com", Role: domain.RoleReporter, Active: true})
	incident := incidents.put(domain.Incident{Title: "x", ReporterID: reporter.ID})

	_, err := svc.Timeline(context.Background(), &stranger, incident.ID)
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)
}
