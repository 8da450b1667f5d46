package cashcard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alovak/cashcard-service/cashcard/models"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var ErrNotFound = fmt.Errorf("not found")

// ErrInvalidAmount is returned when the store rejects an amount that
// violates the amount > 0 constraint.
var ErrInvalidAmount = fmt.Errorf("invalid amount")

// Repository stores cash cards. With a nil db it keeps records in memory,
// which is the backend used by unit tests; otherwise it runs against
// PostgreSQL.
type Repository struct {
	mu     sync.RWMutex
	cards  []models.CashCard
	nextID int64

	db *sql.DB
}

func NewRepository() *Repository {
	return &Repository{nextID: 1}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert persists a new card and returns it with its assigned id.
func (r *Repository) Insert(ctx context.Context, amount decimal.Decimal, owner string) (*models.CashCard, error) {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		card := models.CashCard{ID: r.nextID, Amount: amount, Owner: owner}
		r.nextID++
		r.cards = append(r.cards, card)
		return &card, nil
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO cash_cards(amount, owner) VALUES ($1, $2) RETURNING id
    `, amount, owner).Scan(&id)
	if isCheckViolation(err) {
		return nil, ErrInvalidAmount
	}
	if err != nil {
		return nil, err
	}
	return &models.CashCard{ID: id, Amount: amount, Owner: owner}, nil
}

// FindByIDAndOwner returns the card only when it exists and belongs to owner.
func (r *Repository) FindByIDAndOwner(ctx context.Context, id int64, owner string) (*models.CashCard, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, c := range r.cards {
			if c.ID == id && c.Owner == owner {
				card := c
				return &card, nil
			}
		}
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT id, amount, owner FROM cash_cards WHERE id=$1 AND owner=$2`, id, owner)
	var card models.CashCard
	if err := row.Scan(&card.ID, &card.Amount, &card.Owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

// ExistsByIDAndOwner reports whether owner has a card with the given id.
func (r *Repository) ExistsByIDAndOwner(ctx context.Context, id int64, owner string) (bool, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, c := range r.cards {
			if c.ID == id && c.Owner == owner {
				return true, nil
			}
		}
		return false, nil
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cash_cards WHERE id=$1 AND owner=$2)`, id, owner).Scan(&exists)
	return exists, err
}

// FindByOwner returns the owner's cards ordered and paginated per page.
func (r *Repository) FindByOwner(ctx context.Context, owner string, page Page) ([]models.CashCard, error) {
	if r.db == nil {
		r.mu.RLock()
		matched := make([]models.CashCard, 0)
		for _, c := range r.cards {
			if c.Owner == owner {
				matched = append(matched, c)
			}
		}
		r.mu.RUnlock()
		return paginate(matched, page), nil
	}
	query := fmt.Sprintf(`SELECT id, amount, owner FROM cash_cards WHERE owner=$1 ORDER BY %s LIMIT $2 OFFSET $3`, page.orderBy())
	rows, err := r.db.QueryContext(ctx, query, owner, page.Size, page.offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

// FindByAmountRange returns cards across all owners with amount in
// [min, max] inclusive, ordered and paginated per page.
func (r *Repository) FindByAmountRange(ctx context.Context, min, max decimal.Decimal, page Page) ([]models.CashCard, error) {
	if r.db == nil {
		r.mu.RLock()
		matched := make([]models.CashCard, 0)
		for _, c := range r.cards {
			if c.Amount.GreaterThanOrEqual(min) && c.Amount.LessThanOrEqual(max) {
				matched = append(matched, c)
			}
		}
		r.mu.RUnlock()
		return paginate(matched, page), nil
	}
	query := fmt.Sprintf(`SELECT id, amount, owner FROM cash_cards WHERE amount BETWEEN $1 AND $2 ORDER BY %s LIMIT $3 OFFSET $4`, page.orderBy())
	rows, err := r.db.QueryContext(ctx, query, min, max, page.Size, page.offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

// UpdateAmount replaces the amount of the owner's card in place. It returns
// false without side effects when no card with that id belongs to owner.
func (r *Repository) UpdateAmount(ctx context.Context, id int64, amount decimal.Decimal, owner string) (bool, error) {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range r.cards {
			if r.cards[i].ID == id && r.cards[i].Owner == owner {
				r.cards[i].Amount = amount
				return true, nil
			}
		}
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE cash_cards SET amount=$2 WHERE id=$1 AND owner=$3`, id, amount, owner)
	if isCheckViolation(err) {
		return false, ErrInvalidAmount
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateAmounts applies a batch of amount updates in one transaction.
// Every target must exist and belong to owner; when any does not, no
// record is modified and ErrNotFound is returned. Duplicate ids in the
// batch apply in order, so the last write wins.
func (r *Repository) UpdateAmounts(ctx context.Context, items []models.BulkUpdateItem, owner string) error {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		index, err := r.verifyOwnedLocked(ids, owner)
		if err != nil {
			return err
		}
		for _, it := range items {
			r.cards[index[it.ID]].Amount = it.Amount
		}
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `set local statement_timeout = '3s'`); err != nil {
		return err
	}
	if err := verifyOwned(ctx, tx, ids, owner); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `UPDATE cash_cards SET amount=$2 WHERE id=$1`, it.ID, it.Amount); err != nil {
			if isCheckViolation(err) {
				return ErrInvalidAmount
			}
			return err
		}
	}
	return tx.Commit()
}

// DeleteByIDAndOwner hard-deletes the owner's card. It returns false
// without side effects when no card with that id belongs to owner.
func (r *Repository) DeleteByIDAndOwner(ctx context.Context, id int64, owner string) (bool, error) {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range r.cards {
			if r.cards[i].ID == id && r.cards[i].Owner == owner {
				r.cards = append(r.cards[:i], r.cards[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM cash_cards WHERE id=$1 AND owner=$2`, id, owner)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByIDs hard-deletes a batch of the owner's cards in one transaction,
// with the same all-or-nothing contract as UpdateAmounts.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []int64, owner string) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, err := r.verifyOwnedLocked(ids, owner); err != nil {
			return err
		}
		keep := r.cards[:0]
		drop := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			drop[id] = struct{}{}
		}
		for _, c := range r.cards {
			if _, ok := drop[c.ID]; !ok {
				keep = append(keep, c)
			}
		}
		r.cards = keep
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `set local statement_timeout = '3s'`); err != nil {
		return err
	}
	if err := verifyOwned(ctx, tx, ids, owner); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cash_cards WHERE id = ANY($1)`, pq.Array(uniqueIDs(ids))); err != nil {
		return err
	}
	return tx.Commit()
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

// verifyOwned checks inside the transaction that every id belongs to owner.
func verifyOwned(ctx context.Context, tx *sql.Tx, ids []int64, owner string) error {
	unique := uniqueIDs(ids)
	var count int
	err := tx.QueryRowContext(ctx, `SELECT count(*) FROM cash_cards WHERE id = ANY($1) AND owner=$2`, pq.Array(unique), owner).Scan(&count)
	if err != nil {
		return err
	}
	if count != len(unique) {
		return ErrNotFound
	}
	return nil
}

// verifyOwnedLocked is the memory-backend verification pass; the caller
// holds the write lock. It returns an id -> slice index map for the
// mutation pass.
func (r *Repository) verifyOwnedLocked(ids []int64, owner string) (map[int64]int, error) {
	index := make(map[int64]int, len(ids))
	for i, c := range r.cards {
		if c.Owner == owner {
			index[c.ID] = i
		}
	}
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			return nil, ErrNotFound
		}
	}
	return index, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func paginate(cards []models.CashCard, page Page) []models.CashCard {
	sortCards(cards, page.Sort)
	start := page.offset()
	if start >= len(cards) {
		return []models.CashCard{}
	}
	end := start + page.Size
	if end > len(cards) {
		end = len(cards)
	}
	return cards[start:end]
}

func sortCards(cards []models.CashCard, s Sort) {
	sort.SliceStable(cards, func(i, j int) bool {
		var cmp int
		switch s.Field {
		case "id":
			switch {
			case cards[i].ID < cards[j].ID:
				cmp = -1
			case cards[i].ID > cards[j].ID:
				cmp = 1
			}
		default:
			cmp = cards[i].Amount.Cmp(cards[j].Amount)
		}
		if s.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func scanCards(rows *sql.Rows) ([]models.CashCard, error) {
	out := make([]models.CashCard, 0)
	for rows.Next() {
		var card models.CashCard
		if err := rows.Scan(&card.ID, &card.Amount, &card.Owner); err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

func isCheckViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23514" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23514" {
		return true
	}
	return false
}
