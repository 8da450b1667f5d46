package cashcard

import (
	"context"
	"errors"
	"fmt"

	"github.com/alovak/cashcard-service/cashcard/models"
	"github.com/shopspring/decimal"
)

// Service is the ownership-scoped access layer. Every operation takes the
// authenticated principal explicitly; nothing is recovered from ambient
// state. Except for FindByAmountRange, which is read-only and guarded at
// the HTTP boundary, no operation can reach another principal's records.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// FindByIDAndOwner returns the card with the given id when it belongs to
// owner. A card that exists under a different owner is indistinguishable
// from one that does not exist: both return ErrNotFound.
func (s *Service) FindByIDAndOwner(ctx context.Context, id int64, owner string) (*models.CashCard, error) {
	card, err := s.repo.FindByIDAndOwner(ctx, id, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("finding cash card: %w", err)
	}
	return card, nil
}

// Create persists a new card owned by owner and returns it with its
// store-assigned id.
func (s *Service) Create(ctx context.Context, amount decimal.Decimal, owner string) (*models.CashCard, error) {
	card, err := s.repo.Insert(ctx, amount, owner)
	if err != nil {
		return nil, fmt.Errorf("creating cash card: %w", err)
	}
	return card, nil
}

// FindByOwner lists the owner's cards, ordered and paginated per page.
func (s *Service) FindByOwner(ctx context.Context, owner string, page Page) ([]models.CashCard, error) {
	cards, err := s.repo.FindByOwner(ctx, owner, page)
	if err != nil {
		return nil, fmt.Errorf("listing cash cards: %w", err)
	}
	return cards, nil
}

// Update replaces the amount of the owner's card. It reports false, with
// no side effects, when the card is absent or owned by someone else.
func (s *Service) Update(ctx context.Context, id int64, amount decimal.Decimal, owner string) (bool, error) {
	ok, err := s.repo.UpdateAmount(ctx, id, amount, owner)
	if err != nil {
		return false, fmt.Errorf("updating cash card: %w", err)
	}
	return ok, nil
}

// BulkUpdate applies all updates or none. When any target is absent or
// not owned it returns ErrNotFound and no record in the batch is touched.
func (s *Service) BulkUpdate(ctx context.Context, items []models.BulkUpdateItem, owner string) error {
	err := s.repo.UpdateAmounts(ctx, items, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("bulk updating cash cards: %w", err)
	}
	return nil
}

// Delete hard-deletes the owner's card. It reports false, with no side
// effects, when the card is absent or owned by someone else.
func (s *Service) Delete(ctx context.Context, id int64, owner string) (bool, error) {
	ok, err := s.repo.DeleteByIDAndOwner(ctx, id, owner)
	if err != nil {
		return false, fmt.Errorf("deleting cash card: %w", err)
	}
	return ok, nil
}

// BulkDelete deletes all targets or none, with the same contract as
// BulkUpdate.
func (s *Service) BulkDelete(ctx context.Context, ids []int64, owner string) error {
	err := s.repo.DeleteByIDs(ctx, ids, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("bulk deleting cash cards: %w", err)
	}
	return nil
}

// FindByAmountRange lists cards across all owners with amount in
// [min, max] inclusive. Callers must enforce the admin privilege before
// invoking it.
func (s *Service) FindByAmountRange(ctx context.Context, min, max decimal.Decimal, page Page) ([]models.CashCard, error) {
	cards, err := s.repo.FindByAmountRange(ctx, min, max, page)
	if err != nil {
		return nil, fmt.Errorf("filtering cash cards: %w", err)
	}
	return cards, nil
}
