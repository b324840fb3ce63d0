package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/service"
)

// StatsHandler exposes reporting endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Overview GET /stats/incidents.
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.Overview(c.UserContext(), principal.User)
	if err != nil {
		return err
	}

	response := dto.StatsResponse{
		ByStatus:       map[string]int64{},
		ByDepartment:   map[string]int64{},
		ByPriority:     map[string]int64{},
		MTTRSeconds:    stats.MTTRSeconds,
		MTTRByPriority: map[string]float64{},
	}
	for _, sc := range stats.ByStatus {
		response.ByStatus[string(sc.Status)] = sc.Count
	}
	for _, nc := range stats.ByDepartment {
		response.ByDepartment[nc.Name] = nc.Count
	}
	for _, pc := range stats.ByPriority {
		response.ByPriority[string(pc.Priority)] = pc.Count
	}
	for _, pm := range stats.MTTRByPriority {
		response.MTTRByPriority[string(pm.Priority)] = pm.AvgSeconds
	}
	for _, dm := range stats.DailyTrend {
		response.DailyTrend = append(response.DailyTrend, dto.DailyTrendPoint{
			Day:        dm.Day,
			AvgSeconds: dm.AvgSeconds,
			Resolved:   dm.Resolved,
		})
	}
	return c.JSON(fiber.Map{"data": response})
}

// Workload GET /stats/workload.
func (h *StatsHandler) Workload(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.stats.Workload(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkloadResponse(entries)})
}
