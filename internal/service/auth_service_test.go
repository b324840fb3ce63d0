package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func newAuthFixture() (*AuthService, *fakeUserRepo, *captureDispatcher) {
	users := newFakeUserRepo()
	dispatcher := &captureDispatcher{}
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
		},
	}
	return NewAuthService(cfg, users, dispatcher), users, dispatcher
}

func TestRegister(t *testing.T) {
	svc, _, dispatcher := newAuthFixture()

	user, token, _, err := svc.Register(context.Background(), "Ada Admin", "  Ada@Example.COM ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, domain.RoleReporter, user.Role)
	assert.True(t, user.Active)
	assert.NotEmpty(t, token)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleReporter, claims.Role)

	assert.Equal(t, []events.EventType{events.EventUserRegistered}, dispatcher.typesPublished())
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, _, _, err := svc.Register(context.Background(), "", "  ", "hunter2hunter2")
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", de.Code)

	_, _, _, err = svc.Register(context.Background(), "", "a@b.com", "short")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)

	_, _, _, err = svc.Register(context.Background(), "", "dup@example.com", "hunter2hunter2")
	require.NoError(t, err)
	_, _, _, err = svc.Register(context.Background(), "", "dup@example.com", "hunter2hunter2")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CONFLICT", de.Code)
}

func TestLogin(t *testing.T) {
	svc, users, _ := newAuthFixture()

	registered, _, _, err := svc.Register(context.Background(), "Rae", "rae@example.com", "hunter2hunter2")
	require.NoError(t, err)

	user, token, _, err := svc.Login(context.Background(), "RAE@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	_, _, _, err = svc.Login(context.Background(), "rae@example.com", "wrong-password")
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "UNAUTHORIZED", de.Code)

	_, _, _, err = svc.Login(context.Background(), "nobody@example.com", "hunter2hunter2")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "UNAUTHORIZED", de.Code)

	disabled := users.users[registered.ID]
	disabled.Active = false
	users.users[registered.ID] = disabled
	_, _, _, err = svc.Login(context.Background(), "rae@example.com", "hunter2hunter2")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "UNAUTHORIZED", de.Code)
}

func TestSetRole(t *testing.T) {
	svc, users, _ := newAuthFixture()
	admin := users.put(domain.User{Email: "admin@example.com", Role: domain.RoleAdmin, Active: true})
	staff := users.put(domain.User{Email: "staff@example.com", Role: domain.RoleStaff, Active: true})
	target := users.put(domain.User{Email: "new@example.com", Role: domain.RoleReporter, Active: true})

	_, err := svc.SetRole(context.Background(), &staff, target.ID, domain.RoleStaff, nil)
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)

	_, err = svc.SetRole(context.Background(), &admin, target.ID, domain.UserRole("WIZARD"), nil)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)

	deptID := "dept-1"
	updated, err := svc.SetRole(context.Background(), &admin, target.ID, domain.RoleStaff, &deptID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, updated.Role)
	require.NotNil(t, updated.DepartmentID)
	assert.Equal(t, deptID, *updated.DepartmentID)

	_, err = svc.SetRole(context.Background(), &admin, "missing", domain.RoleStaff, nil)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NOT_FOUND", de.Code)
}
