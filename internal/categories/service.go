package categories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

var (
	// ErrCycle is returned when a parent link would make a category its own ancestor.
	ErrCycle = errors.New("category hierarchy cycle")
	// ErrDuplicateName is returned when the user already has a category with the name.
	ErrDuplicateName = errors.New("category name already exists")
	// ErrInvalidColor is returned for colors that are not #rrggbb.
	ErrInvalidColor = errors.New("color must be #rrggbb")
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service creates and links a user's categories.
type Service struct {
	store store.Store
}

// NewService creates a Service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// List returns the user's categories ordered by name.
func (s *Service) List(ctx context.Context, userID int64) ([]model.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

// Seed creates whichever default categories the user is missing and
// returns how many were created.
func (s *Service) Seed(ctx context.Context, userID int64) (int, error) {
	created := 0
	err := s.store.InTx(ctx, func(st store.Store) error {
		existing, err := st.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, c := range existing {
			have[strings.ToLower(c.Name)] = true
		}
		for _, d := range Defaults() {
			if have[strings.ToLower(d.Name)] {
				continue
			}
			c := d
			c.UserID = userID
			if _, err := st.InsertCategory(ctx, &c); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seeding categories: %w", err)
	}
	return created, nil
}

// Create adds a category. Names are unique per user, ignoring case. An
// empty color means DefaultColor; parentID, when set, must be the user's.
func (s *Service) Create(ctx context.Context, userID int64, name, color string, parentID *int64) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("category name is empty")
	}
	if color == "" {
		color = DefaultColor
	}
	if !hexColor.MatchString(color) {
		return nil, fmt.Errorf("%q: %w", color, ErrInvalidColor)
	}

	var c *model.Category
	err := s.store.InTx(ctx, func(st store.Store) error {
		existing, err := st.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if strings.EqualFold(e.Name, name) {
				return fmt.Errorf("%q: %w", name, ErrDuplicateName)
			}
		}
		if parentID != nil {
			if _, err := st.GetCategory(ctx, userID, *parentID); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}
		c = &model.Category{UserID: userID, Name: name, Color: color, ParentID: parentID}
		_, err = st.InsertCategory(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetParent links a category under parentID, or detaches it when parentID
// is nil. Links that would form a cycle, including self-parenting, are
// rejected with ErrCycle.
func (s *Service) SetParent(ctx context.Context, userID, id int64, parentID *int64) error {
	return s.store.InTx(ctx, func(st store.Store) error {
		if _, err := st.GetCategory(ctx, userID, id); err != nil {
			return err
		}
		if parentID == nil {
			return st.UpdateCategoryParent(ctx, userID, id, nil)
		}
		if err := checkAncestors(ctx, st, userID, id, *parentID); err != nil {
			return err
		}
		return st.UpdateCategoryParent(ctx, userID, id, parentID)
	})
}

// checkAncestors walks up from parentID and fails if it reaches id.
func checkAncestors(ctx context.Context, st store.Store, userID, id, parentID int64) error {
	seen := map[int64]bool{}
	cur := parentID
	for {
		if cur == id {
			return fmt.Errorf("category %d under %d: %w", id, parentID, ErrCycle)
		}
		if seen[cur] {
			// Pre-existing loop that does not include id.
			return nil
		}
		seen[cur] = true
		c, err := st.GetCategory(ctx, userID, cur)
		if err != nil {
			return fmt.Errorf("ancestor %d: %w", cur, err)
		}
		if c.ParentID == nil {
			return nil
		}
		cur = *c.ParentID
	}
}

// Find resolves a category reference: a numeric ID or a name, ignoring case.
func (s *Service) Find(ctx context.Context, userID int64, ref string) (*model.Category, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.store.GetCategory(ctx, userID, id)
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		if strings.EqualFold(cats[i].Name, ref) {
			return &cats[i], nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", ref, store.ErrNotFound)
}
