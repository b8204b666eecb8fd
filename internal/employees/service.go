package employees

import (
	"context"
	"errors"
	"strings"
)

// Service handles employee and department business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListEmployees returns all employees.
func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.repo.ListEmployees(ctx)
}

// GetEmployee fetches a single employee.
func (s *Service) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// CreateEmployee validates and inserts an employee.
func (s *Service) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.TrimSpace(e.Email)
	if e.Name == "" || e.Email == "" {
		return Employee{}, errors.New("employees: name and email required")
	}
	return s.repo.CreateEmployee(ctx, e)
}

// UpdateEmployee validates and updates an employee.
func (s *Service) UpdateEmployee(ctx context.Context, e Employee) (Employee, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return Employee{}, errors.New("employees: name required")
	}
	return s.repo.UpdateEmployee(ctx, e)
}

// ListDepartments returns all departments.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

// CreateDepartment validates and inserts a department.
func (s *Service) CreateDepartment(ctx context.Context, name string) (Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Department{}, errors.New("employees: department name required")
	}
	return s.repo.CreateDepartment(ctx, name)
}

// DeleteDepartment removes a department with no members.
func (s *Service) DeleteDepartment(ctx context.Context, id int64) error {
	return s.repo.DeleteDepartment(ctx, id)
}
