package tax

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/masterdata/shared"
)

// Repository persists tax rates.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Rate, int, error)
	Get(ctx context.Context, id int64) (Rate, error)
	GetByCode(ctx context.Context, code string) (Rate, error)
	Create(ctx context.Context, rate Rate) (Rate, error)
	Update(ctx context.Context, id int64, rate Rate) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Rate, int, error) {
	filters = filters.Normalize()

	query := `SELECT id, code, name, rate, kind FROM tax_rates WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM tax_rates WHERE 1=1`
	countArgs := []any{}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (name ILIKE $1 OR code ILIKE $1)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var t Rate
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Rate, &t.Kind); err != nil {
			return nil, 0, err
		}
		rates = append(rates, t)
	}
	return rates, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Rate, error) {
	var t Rate
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, rate, kind FROM tax_rates WHERE id = $1`, id).
		Scan(&t.ID, &t.Code, &t.Name, &t.Rate, &t.Kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, shared.ErrNotFound
		}
		return Rate{}, err
	}
	return t, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (Rate, error) {
	var t Rate
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, rate, kind FROM tax_rates WHERE code = $1`, code).
		Scan(&t.ID, &t.Code, &t.Name, &t.Rate, &t.Kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, shared.ErrNotFound
		}
		return Rate{}, err
	}
	return t, nil
}

func (r *repository) Create(ctx context.Context, rate Rate) (Rate, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tax_rates (code, name, rate, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rate.Code, rate.Name, rate.Rate, string(rate.Kind)).Scan(&rate.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Rate{}, shared.ErrDuplicate
		}
		return Rate{}, err
	}
	return rate, nil
}

func (r *repository) Update(ctx context.Context, id int64, rate Rate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tax_rates SET code = $2, name = $3, rate = $4, kind = $5 WHERE id = $1`,
		id, rate.Code, rate.Name, rate.Rate, string(rate.Kind))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tax_rates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "rate":
		return "rate " + dir
	case "kind":
		return "kind " + dir
	default:
		return "name " + dir
	}
}
