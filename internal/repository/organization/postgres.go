package organization

import (
	"context"
	"errors"

	"billing-checkout/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT id::text, slug, name, created_at
FROM organizations
WHERE id = $1
`
	return r.fetch(ctx, q, id)
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	const q = `
SELECT id::text, slug, name, created_at
FROM organizations
WHERE slug = $1
`
	return r.fetch(ctx, q, slug)
}

func (r *postgresRepo) Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	const q = `
INSERT INTO organizations (slug, name)
VALUES ($1, $2)
RETURNING id::text, created_at
`
	out := domain.Organization{Slug: org.Slug, Name: org.Name}
	err := r.pool.QueryRow(ctx, q, org.Slug, org.Name).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) fetch(ctx context.Context, q string, arg string) (*domain.Organization, error) {
	var o domain.Organization
	err := r.pool.QueryRow(ctx, q, arg).Scan(&o.ID, &o.Slug, &o.Name, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
