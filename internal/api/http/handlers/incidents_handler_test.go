package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/service"
)

func queryToListInput(t *testing.T, target string) service.IncidentListInput {
	t.Helper()
	app := fiber.New()
	var got service.IncidentListInput
	app.Get("/incidents", func(c *fiber.Ctx) error {
		got = parseIncidentQuery(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return got
}

func TestParseIncidentQuery_Filters(t *testing.T) {
	input := queryToListInput(t, "/incidents?reporter_id=user-1&department_id=dept-1&assignee_id=user-2&category_id=cat-1")

	require.NotNil(t, input.ReporterID)
	assert.Equal(t, "user-1", *input.ReporterID)
	require.NotNil(t, input.DepartmentID)
	assert.Equal(t, "dept-1", *input.DepartmentID)
	require.NotNil(t, input.AssigneeID)
	assert.Equal(t, "user-2", *input.AssigneeID)
	require.NotNil(t, input.CategoryID)
	assert.Equal(t, "cat-1", *input.CategoryID)
}

func TestParseIncidentQuery_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantOffset int
		wantLimit  int
	}{
		{"defaults", "/incidents", 0, 20},
		{"skip and limit", "/incidents?skip=40&limit=10", 40, 10},
		{"skip zero is honored", "/incidents?skip=0&limit=5", 0, 5},
		{"page alias still works", "/incidents?page=3&page_size=10", 20, 10},
		{"skip wins over page", "/incidents?skip=7&page=3&limit=10", 7, 10},
		{"negative skip falls back", "/incidents?skip=-1", 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := queryToListInput(t, tt.target)
			assert.Equal(t, tt.wantOffset, input.Offset)
			assert.Equal(t, tt.wantLimit, input.Limit)
		})
	}
}
