package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/putra-agung/hrms-api/internal/models"
	"github.com/putra-agung/hrms-api/internal/repository"
	appErrors "github.com/putra-agung/hrms-api/pkg/errors"
)

// mockProvisionStore backs both the user and employee repository interfaces
// with an in-memory map guarded by a mutex, enforcing login-ID uniqueness the
// way the database index does. Suitable for exercising concurrent provisions.
type mockProvisionStore struct {
	mu        sync.Mutex
	loginIDs  map[string]bool
	emails    map[string]bool
	employees map[string]*models.EmployeeDetail
	users     map[string]*models.User
	audits    []*models.AuditLog
	seq       int
}

func newMockProvisionStore() *mockProvisionStore {
	return &mockProvisionStore{
		loginIDs:  map[string]bool{},
		emails:    map[string]bool{},
		employees: map[string]*models.EmployeeDetail{},
		users:     map[string]*models.User{},
	}
}

func (m *mockProvisionStore) LoginIDsByYear(ctx context.Context, year string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.loginIDs {
		if len(id) == 14 && id[6:10] == year {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockProvisionStore) SetActive(ctx context.Context, id string, active bool) error { return nil }

func (m *mockProvisionStore) SetRefreshToken(ctx context.Context, id string, token *string) error {
	return nil
}

func (m *mockProvisionStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, log)
	return nil
}

func (m *mockProvisionStore) CreateWithUser(ctx context.Context, user *models.User, employee *models.Employee, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loginIDs[user.LoginID] {
		return repository.ErrDuplicateLoginID
	}
	if m.emails[employee.Email] {
		return repository.ErrDuplicateEmail
	}
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	employee.ID = fmt.Sprintf("emp-%d", m.seq)
	employee.UserID = user.ID
	m.loginIDs[user.LoginID] = true
	m.emails[employee.Email] = true
	userCopy := *user
	m.users[user.ID] = &userCopy
	m.employees[employee.ID] = &models.EmployeeDetail{
		Employee: *employee,
		LoginID:  user.LoginID,
		Role:     user.Role,
		IsActive: true,
	}
	return nil
}

func (m *mockProvisionStore) FindByID(ctx context.Context, id string) (*models.EmployeeDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.employees[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProvisionStore) FindByUserID(ctx context.Context, userID string) (*models.EmployeeDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.employees {
		if d.UserID == userID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockProvisionStore) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emails[email], nil
}

func (m *mockProvisionStore) List(ctx context.Context, filter models.EmployeeFilter) ([]models.EmployeeDetail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.EmployeeDetail
	for _, d := range m.employees {
		rows = append(rows, *d)
	}
	return rows, len(rows), nil
}

func (m *mockProvisionStore) Update(ctx context.Context, employee *models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.employees[employee.ID]; ok {
		d.Employee = *employee
	}
	return nil
}

type mockDepartmentRepo struct {
	departments map[string]*models.Department
	createErr   error
}

func newMockDepartmentRepo(ids ...string) *mockDepartmentRepo {
	m := &mockDepartmentRepo{departments: map[string]*models.Department{}}
	for _, id := range ids {
		m.departments[id] = &models.Department{ID: id, Name: "Dept " + id}
	}
	return m
}

func (m *mockDepartmentRepo) List(ctx context.Context) ([]models.Department, error) {
	var rows []models.Department
	for _, d := range m.departments {
		rows = append(rows, *d)
	}
	return rows, nil
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) Create(ctx context.Context, dept *models.Department) error {
	if m.createErr != nil {
		return m.createErr
	}
	dept.ID = "dept-new"
	m.departments[dept.ID] = dept
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, dept *models.Department) error {
	if _, ok := m.departments[dept.ID]; !ok {
		return sql.ErrNoRows
	}
	m.departments[dept.ID] = dept
	return nil
}

const testDeptID = "7b4a1f62-9c1e-4f7a-8a6e-0f3d2b1c5e9a"

func provisionRequest(first, last, email string) models.CreateEmployeeRequest {
	return models.CreateEmployeeRequest{
		FirstName:     first,
		LastName:      last,
		Email:         email,
		Designation:   "Engineer",
		DepartmentID:  testDeptID,
		DateOfJoining: "2024-03-15",
		Role:          models.RoleEmployee,
		BasicSalary:   5000,
	}
}

func newTestEmployeeService(store *mockProvisionStore) *EmployeeService {
	return NewEmployeeService(store, store, newMockDepartmentRepo(testDeptID), validator.New(), zap.NewNop(),
		ProvisionConfig{CompanyCode: "OI", TempPasswordLength: 10, MaxRetries: 3})
}

func TestEmployeeServiceProvisionFirstEmployee(t *testing.T) {
	store := newMockProvisionStore()
	svc := newTestEmployeeService(store)

	res, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john@example.com"))

	require.NoError(t, err)
	assert.Equal(t, "OIJOAN20240001", res.LoginID)
	assert.Len(t, res.TempPassword, 10)
	assert.Equal(t, models.RoleEmployee, res.Role)
	assert.NotEmpty(t, res.EmployeeID)
}

func TestEmployeeServiceProvisionSequentialSerials(t *testing.T) {
	store := newMockProvisionStore()
	svc := newTestEmployeeService(store)

	first, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john@example.com"))
	require.NoError(t, err)
	second, err := svc.Provision(context.Background(), "actor-1", provisionRequest("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)

	assert.Equal(t, "OIJOAN20240001", first.LoginID)
	assert.Equal(t, "OIJADO20240002", second.LoginID)
}

func TestEmployeeServiceProvisionDuplicateEmail(t *testing.T) {
	store := newMockProvisionStore()
	svc := newTestEmployeeService(store)

	_, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john@example.com"))
	require.NoError(t, err)

	_, err = svc.Provision(context.Background(), "actor-1", provisionRequest("Jane", "Doe", "john@example.com"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceProvisionUnknownDepartment(t *testing.T) {
	store := newMockProvisionStore()
	svc := newTestEmployeeService(store)

	req := provisionRequest("John", "Anderson", "john@example.com")
	req.DepartmentID = "0d9f6c2a-1b3e-4d5f-9a8b-7c6d5e4f3a2b"

	_, err := svc.Provision(context.Background(), "actor-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceProvisionRetriesLostRace(t *testing.T) {
	store := newMockProvisionStore()
	attempts := 0
	racing := &raceLosingStore{mockProvisionStore: store, attempts: &attempts}
	svc := NewEmployeeService(racing, racing, newMockDepartmentRepo(testDeptID), validator.New(), zap.NewNop(),
		ProvisionConfig{CompanyCode: "OI", TempPasswordLength: 10, MaxRetries: 3})

	res, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john2@example.com"))

	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "first attempt loses the race, second wins")
	assert.Equal(t, "OIJOAN20240002", res.LoginID)
}

// raceLosingStore makes the first CreateWithUser lose the login-ID race by
// inserting a competing row just before delegating.
type raceLosingStore struct {
	*mockProvisionStore
	attempts *int
}

func (r *raceLosingStore) CreateWithUser(ctx context.Context, user *models.User, employee *models.Employee, actorID string) error {
	*r.attempts++
	if *r.attempts == 1 {
		r.mu.Lock()
		r.loginIDs[user.LoginID] = true
		r.mu.Unlock()
		return repository.ErrDuplicateLoginID
	}
	return r.mockProvisionStore.CreateWithUser(ctx, user, employee, actorID)
}

func TestEmployeeServiceProvisionExhaustsRetries(t *testing.T) {
	store := newMockProvisionStore()
	always := &alwaysConflictStore{mockProvisionStore: store}
	svc := NewEmployeeService(always, always, newMockDepartmentRepo(testDeptID), validator.New(), zap.NewNop(),
		ProvisionConfig{CompanyCode: "OI", TempPasswordLength: 10, MaxRetries: 3})

	_, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john@example.com"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 3, always.calls)
}

type alwaysConflictStore struct {
	*mockProvisionStore
	calls int
}

func (a *alwaysConflictStore) CreateWithUser(ctx context.Context, user *models.User, employee *models.Employee, actorID string) error {
	a.calls++
	return repository.ErrDuplicateLoginID
}

func TestEmployeeServiceProvisionConcurrentUniqueIDs(t *testing.T) {
	store := newMockProvisionStore()
	svc := NewEmployeeService(store, store, newMockDepartmentRepo(testDeptID), validator.New(), zap.NewNop(),
		ProvisionConfig{CompanyCode: "OI", TempPasswordLength: 10, MaxRetries: 10})

	const workers = 8
	results := make(chan string, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Provision(context.Background(), "actor-1",
				provisionRequest("John", "Anderson", fmt.Sprintf("john%d@example.com", i)))
			if err != nil {
				errs <- err
				return
			}
			results <- res.LoginID
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("provision failed: %v", err)
	}
	seen := map[string]bool{}
	for id := range results {
		assert.False(t, seen[id], "duplicate login ID issued: %s", id)
		seen[id] = true
		assert.Len(t, id, 14)
	}
	assert.Len(t, seen, workers)
}

func TestEmployeeServiceProvisionPasswordIsHashed(t *testing.T) {
	store := newMockProvisionStore()
	svc := newTestEmployeeService(store)

	res, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john@example.com"))
	require.NoError(t, err)

	var stored *models.User
	for _, u := range store.users {
		stored = u
	}
	require.NotNil(t, stored)
	assert.NotEqual(t, res.TempPassword, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(res.TempPassword)))
	assert.True(t, stored.IsFirstLogin)
	assert.True(t, stored.IsActive)
}

func TestEmployeeServiceDeactivate(t *testing.T) {
	store := newMockProvisionStore()
	svc := newTestEmployeeService(store)

	res, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john@example.com"))
	require.NoError(t, err)

	err = svc.Deactivate(context.Background(), "actor-1", res.EmployeeID)
	require.NoError(t, err)

	var found bool
	for _, log := range store.audits {
		if log.Action == models.AuditActionEmployeeDisable {
			found = true
		}
	}
	assert.True(t, found, "deactivation must be audited")
}

func TestEmployeeServiceUpdatePartialFields(t *testing.T) {
	store := newMockProvisionStore()
	svc := newTestEmployeeService(store)

	res, err := svc.Provision(context.Background(), "actor-1", provisionRequest("John", "Anderson", "john@example.com"))
	require.NoError(t, err)

	designation := "Senior Engineer"
	salary := 7500.0
	updated, err := svc.Update(context.Background(), "actor-1", res.EmployeeID, models.UpdateEmployeeRequest{
		Designation: &designation,
		BasicSalary: &salary,
	})

	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", updated.Designation)
	assert.Equal(t, 7500.0, updated.BasicSalary)
	assert.Equal(t, "John", updated.FirstName, "unspecified fields stay unchanged")
}

func TestEmployeeServiceGetNotFound(t *testing.T) {
	svc := newTestEmployeeService(newMockProvisionStore())

	_, err := svc.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceProvisionShortFirstName(t *testing.T) {
	svc := newTestEmployeeService(newMockProvisionStore())

	req := provisionRequest("J", "Anderson", "j@example.com")
	_, err := svc.Provision(context.Background(), "actor-1", req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceListDepartments(t *testing.T) {
	svc := newTestEmployeeService(newMockProvisionStore())

	rows, err := svc.ListDepartments(context.Background())

	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestEmployeeServiceUpdateDepartment(t *testing.T) {
	svc := newTestEmployeeService(newMockProvisionStore())

	dept, err := svc.UpdateDepartment(context.Background(), testDeptID, "People Operations")

	require.NoError(t, err)
	assert.Equal(t, "People Operations", dept.Name)
}

func TestEmployeeServiceUpdateDepartmentNotFound(t *testing.T) {
	svc := newTestEmployeeService(newMockProvisionStore())

	_, err := svc.UpdateDepartment(context.Background(), "missing-dept", "People Operations")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
