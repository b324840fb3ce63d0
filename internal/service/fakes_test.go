package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
)

// captureDispatcher records published events synchronously so tests can
// assert on them without racing goroutines.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

func (d *captureDispatcher) typesPublished() []events.EventType {
	var types []events.EventType
	for _, e := range d.published() {
		types = append(types, e.Type)
	}
	return types
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]domain.User{}}
}

func (r *fakeUserRepo) put(user domain.User) domain.User {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		result = append(result, user)
	}
	return result, nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id string, role domain.UserRole, departmentID *string) error {
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Role = role
	user.DepartmentID = departmentID
	r.users[id] = user
	return nil
}

type fakeIncidentRepo struct {
	incidents  map[string]domain.Incident
	audits     []domain.AuditLogEntry
	comments   []domain.Comment
	lastFilter repository.IncidentFilter
}

func newFakeIncidentRepo() *fakeIncidentRepo {
	return &fakeIncidentRepo{incidents: map[string]domain.Incident{}}
}

func (r *fakeIncidentRepo) put(incident domain.Incident) domain.Incident {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	r.incidents[incident.ID] = incident
	return incident
}

func (r *fakeIncidentRepo) CreateWithAudit(_ context.Context, incident *domain.Incident, entry *domain.AuditLogEntry) error {
	incident.ID = uuid.NewString()
	r.incidents[incident.ID] = *incident
	if entry != nil {
		entry.IncidentID = incident.ID
		entry.ID = uuid.NewString()
		r.audits = append(r.audits, *entry)
	}
	return nil
}

func (r *fakeIncidentRepo) UpdateWithAudit(_ context.Context, incident *domain.Incident, entries []domain.AuditLogEntry, comments []domain.Comment) error {
	if _, ok := r.incidents[incident.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.incidents[incident.ID] = *incident
	for i := range entries {
		entries[i].IncidentID = incident.ID
		entries[i].ID = uuid.NewString()
		r.audits = append(r.audits, entries[i])
	}
	r.comments = append(r.comments, comments...)
	return nil
}

func (r *fakeIncidentRepo) GetByID(_ context.Context, id string) (*domain.Incident, error) {
	incident, ok := r.incidents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &incident, nil
}

func (r *fakeIncidentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.incidents)), nil
}

func (r *fakeIncidentRepo) ListWithFilter(_ context.Context, filter repository.IncidentFilter) ([]domain.Incident, error) {
	r.lastFilter = filter
	var result []domain.Incident
	for _, incident := range r.incidents {
		if filter.ReporterID != nil && incident.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.DepartmentID != nil &&
			(incident.DepartmentID == nil || *incident.DepartmentID != *filter.DepartmentID) {
			continue
		}
		result = append(result, incident)
	}
	return result, nil
}

func (r *fakeIncidentRepo) SetProblem(_ context.Context, incidentID, problemID string) error {
	incident, ok := r.incidents[incidentID]
	if !ok {
		return pgx.ErrNoRows
	}
	incident.ProblemID = &problemID
	r.incidents[incidentID] = incident
	return nil
}

func (r *fakeIncidentRepo) ListByProblem(_ context.Context, problemID string) ([]domain.Incident, error) {
	var result []domain.Incident
	for _, incident := range r.incidents {
		if incident.ProblemID != nil && *incident.ProblemID == problemID {
			result = append(result, incident)
		}
	}
	return result, nil
}

func (r *fakeIncidentRepo) CountsByStatus(context.Context) ([]repository.StatusCount, error) {
	counts := map[domain.IncidentStatus]int64{}
	for _, incident := range r.incidents {
		counts[incident.Status]++
	}
	var result []repository.StatusCount
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	return result, nil
}

func (r *fakeIncidentRepo) CountsByDepartment(context.Context) ([]repository.NameCount, error) {
	return nil, nil
}

func (r *fakeIncidentRepo) CountsByPriority(context.Context) ([]repository.PriorityCount, error) {
	return nil, nil
}

func (r *fakeIncidentRepo) MTTRSeconds(context.Context) (float64, error) { return 0, nil }

func (r *fakeIncidentRepo) MTTRSecondsByPriority(context.Context) ([]repository.PriorityMTTR, error) {
	return nil, nil
}

func (r *fakeIncidentRepo) MTTRDailyTrend(context.Context, int) ([]repository.DailyMTTR, error) {
	return nil, nil
}

func (r *fakeIncidentRepo) OpenWorkload(context.Context, string) ([]repository.WorkloadEntry, error) {
	return nil, nil
}

type fakeDepartmentRepo struct {
	departments map[string]domain.Department
}

func newFakeDepartmentRepo() *fakeDepartmentRepo {
	return &fakeDepartmentRepo{departments: map[string]domain.Department{}}
}

func (r *fakeDepartmentRepo) put(department domain.Department) domain.Department {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	r.departments[department.ID] = department
	return department
}

func (r *fakeDepartmentRepo) Create(_ context.Context, department *domain.Department) error {
	department.ID = uuid.NewString()
	r.departments[department.ID] = *department
	return nil
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	department, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &department, nil
}

func (r *fakeDepartmentRepo) List(context.Context) ([]domain.Department, error) {
	var result []domain.Department
	for _, department := range r.departments {
		result = append(result, department)
	}
	return result, nil
}

type fakeCategoryRepo struct {
	categories    map[string]domain.Category
	subcategories map[string]domain.Subcategory
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{
		categories:    map[string]domain.Category{},
		subcategories: map[string]domain.Subcategory{},
	}
}

func (r *fakeCategoryRepo) put(category domain.Category) domain.Category {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	r.categories[category.ID] = category
	return category
}

func (r *fakeCategoryRepo) putSub(sub domain.Subcategory) domain.Subcategory {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	r.subcategories[sub.ID] = sub
	return sub
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	category.ID = uuid.NewString()
	r.categories[category.ID] = *category
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r *fakeCategoryRepo) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	var result []domain.Category
	for _, category := range r.categories {
		if activeOnly && !category.IsActive {
			continue
		}
		result = append(result, category)
	}
	return result, nil
}

func (r *fakeCategoryRepo) CreateSubcategory(_ context.Context, sub *domain.Subcategory) error {
	sub.ID = uuid.NewString()
	r.subcategories[sub.ID] = *sub
	return nil
}

func (r *fakeCategoryRepo) GetSubcategoryByID(_ context.Context, id string) (*domain.Subcategory, error) {
	sub, ok := r.subcategories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &sub, nil
}

func (r *fakeCategoryRepo) ListSubcategories(_ context.Context, categoryID string) ([]domain.Subcategory, error) {
	var result []domain.Subcategory
	for _, sub := range r.subcategories {
		if sub.CategoryID == categoryID {
			result = append(result, sub)
		}
	}
	return result, nil
}

type fakeSLARepo struct {
	policies map[domain.IncidentPriority]domain.SLAPolicy
}

func newFakeSLARepo() *fakeSLARepo {
	return &fakeSLARepo{policies: map[domain.IncidentPriority]domain.SLAPolicy{}}
}

func (r *fakeSLARepo) Create(_ context.Context, policy *domain.SLAPolicy) error {
	policy.ID = uuid.NewString()
	r.policies[policy.Priority] = *policy
	return nil
}

func (r *fakeSLARepo) Update(_ context.Context, policy *domain.SLAPolicy) error {
	r.policies[policy.Priority] = *policy
	return nil
}

func (r *fakeSLARepo) List(context.Context) ([]domain.SLAPolicy, error) {
	var result []domain.SLAPolicy
	for _, policy := range r.policies {
		result = append(result, policy)
	}
	return result, nil
}

func (r *fakeSLARepo) GetByPriority(_ context.Context, priority domain.IncidentPriority) (*domain.SLAPolicy, error) {
	policy, ok := r.policies[priority]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &policy, nil
}

type fakeAuditRepo struct {
	entries []domain.AuditLogEntry
}

func (r *fakeAuditRepo) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	entry.ID = uuid.NewString()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ListByIncident(_ context.Context, incidentID string) ([]domain.AuditLogEntry, error) {
	var result []domain.AuditLogEntry
	for _, entry := range r.entries {
		if entry.IncidentID == incidentID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeProblemRepo struct {
	problems map[string]domain.Problem
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{problems: map[string]domain.Problem{}}
}

func (r *fakeProblemRepo) Create(_ context.Context, problem *domain.Problem) error {
	problem.ID = uuid.NewString()
	r.problems[problem.ID] = *problem
	return nil
}

func (r *fakeProblemRepo) Update(_ context.Context, problem *domain.Problem) error {
	if _, ok := r.problems[problem.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.problems[problem.ID] = *problem
	return nil
}

func (r *fakeProblemRepo) GetByID(_ context.Context, id string) (*domain.Problem, error) {
	problem, ok := r.problems[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &problem, nil
}

func (r *fakeProblemRepo) List(_ context.Context, status *domain.ProblemStatus) ([]domain.Problem, error) {
	var result []domain.Problem
	for _, problem := range r.problems {
		if status != nil && problem.Status != *status {
			continue
		}
		result = append(result, problem)
	}
	return result, nil
}

type fakeActionRepo struct {
	actions map[string]domain.ProblemAction
}

func newFakeActionRepo() *fakeActionRepo {
	return &fakeActionRepo{actions: map[string]domain.ProblemAction{}}
}

func (r *fakeActionRepo) Create(_ context.Context, action *domain.ProblemAction) error {
	action.ID = uuid.NewString()
	r.actions[action.ID] = *action
	return nil
}

func (r *fakeActionRepo) Update(_ context.Context, action *domain.ProblemAction) error {
	if _, ok := r.actions[action.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.actions[action.ID] = *action
	return nil
}

func (r *fakeActionRepo) GetByID(_ context.Context, problemID, id string) (*domain.ProblemAction, error) {
	action, ok := r.actions[id]
	if !ok || action.ProblemID != problemID {
		return nil, pgx.ErrNoRows
	}
	return &action, nil
}

func (r *fakeActionRepo) ListByProblem(_ context.Context, problemID string) ([]domain.ProblemAction, error) {
	var result []domain.ProblemAction
	for _, action := range r.actions {
		if action.ProblemID == problemID {
			result = append(result, action)
		}
	}
	return result, nil
}

func (r *fakeActionRepo) List(_ context.Context, filter repository.ProblemActionFilter) ([]domain.ProblemAction, error) {
	var result []domain.ProblemAction
	for _, action := range r.actions {
		if filter.AssigneeID != nil && action.AssigneeID != *filter.AssigneeID {
			continue
		}
		if filter.Status != nil && action.Status != *filter.Status {
			continue
		}
		result = append(result, action)
	}
	return result, nil
}

type fakeCommentRepo struct {
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	comment.ID = uuid.NewString()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByIncident(_ context.Context, incidentID string, includeInternal bool) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, comment := range r.comments {
		if comment.IncidentID != incidentID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

type fakeChangeRepo struct {
	changes []domain.ChangeRequest
}

func (r *fakeChangeRepo) Create(_ context.Context, change *domain.ChangeRequest) error {
	change.ID = uuid.NewString()
	r.changes = append(r.changes, *change)
	return nil
}

func (r *fakeChangeRepo) ListByProblem(_ context.Context, problemID string) ([]domain.ChangeRequest, error) {
	var result []domain.ChangeRequest
	for _, change := range r.changes {
		if change.ProblemID == problemID {
			result = append(result, change)
		}
	}
	return result, nil
}
