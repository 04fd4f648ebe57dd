// Package categories manages categories and their links to transactions.
package categories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cuentas-dev/cuentas/internal/model"
	"github.com/cuentas-dev/cuentas/internal/store"
)

var (
	// ErrAlreadyAssigned is returned when a transaction already carries the category.
	ErrAlreadyAssigned = errors.New("category already assigned to this transaction")
	// ErrAssignmentNotFound is returned when removing a link that does not exist.
	ErrAssignmentNotFound = errors.New("category assignment not found")
	// ErrEmptyName is returned for a blank category name.
	ErrEmptyName = errors.New("category name is required")
)

// Repository is the category persistence the Service needs.
type Repository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (model.Transaction, error)
	HasAssignment(ctx context.Context, transactionID, categoryID int64) (bool, error)
	Assign(ctx context.Context, transactionID, categoryID int64) error
	Unassign(ctx context.Context, transactionID, categoryID int64) error
}

// Service provides category CRUD and tagging.
type Service struct {
	repo Repository
}

// NewService creates a categories Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all categories ordered by name, ignoring case.
func (s *Service) List(ctx context.Context) ([]model.Category, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	if cats == nil {
		cats = []model.Category{}
	}
	lower := cases.Lower(language.Spanish)
	sort.SliceStable(cats, func(i, j int) bool {
		return lower.String(cats[i].Name) < lower.String(cats[j].Name)
	})
	return cats, nil
}

// Get returns one category.
func (s *Service) Get(ctx context.Context, id int64) (model.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// Create adds a category. The name is trimmed and must not be blank.
func (s *Service) Create(ctx context.Context, name, description string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, ErrEmptyName
	}
	return s.repo.CreateCategory(ctx, name, strings.TrimSpace(description))
}

// Update renames an existing category and replaces its description.
func (s *Service) Update(ctx context.Context, id int64, name, description string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, ErrEmptyName
	}
	c := model.Category{ID: id, Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// Delete removes a category along with its transaction links.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

// Assign tags a transaction with a category and returns the category.
func (s *Service) Assign(ctx context.Context, transactionID, categoryID int64) (model.Category, error) {
	if _, err := s.repo.GetTransaction(ctx, transactionID); err != nil {
		return model.Category{}, err
	}
	c, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return model.Category{}, err
	}

	has, err := s.repo.HasAssignment(ctx, transactionID, categoryID)
	if err != nil {
		return model.Category{}, err
	}
	if has {
		return model.Category{}, ErrAlreadyAssigned
	}
	if err := s.repo.Assign(ctx, transactionID, categoryID); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// Remove untags a transaction.
func (s *Service) Remove(ctx context.Context, transactionID, categoryID int64) error {
	err := s.repo.Unassign(ctx, transactionID, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAssignmentNotFound
	}
	return err
}

// ImportResult counts what Import did.
type ImportResult struct {
	Created int
	Skipped int
}

// Import creates every category whose name is not taken yet. IDs in cats
// are ignored; names are compared case-insensitively.
func (s *Service) Import(ctx context.Context, cats []model.Category) (ImportResult, error) {
	existing, err := s.repo.ListCategories(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("listing categories: %w", err)
	}

	fold := cases.Fold()
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[fold.String(c.Name)] = true
	}

	var res ImportResult
	for _, c := range cats {
		name := strings.TrimSpace(c.Name)
		key := fold.String(name)
		if name == "" || taken[key] {
			res.Skipped++
			continue
		}
		if _, err := s.repo.CreateCategory(ctx, name, strings.TrimSpace(c.Description)); err != nil {
			return res, fmt.Errorf("creating %q: %w", name, err)
		}
		taken[key] = true
		res.Created++
	}
	return res, nil
}
