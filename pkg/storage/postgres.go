package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresLinkStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresLinkStorage(pool *pgxpool.Pool) *PostgresLinkStorage {
	return &PostgresLinkStorage{pool: pool}
}

func (s *PostgresLinkStorage) Create(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (id, address, target, expired_at) VALUES ($1, $2, $3, $4) RETURNING visited, created_at`
	row := s.pool.QueryRow(ctx, query, link.ID, link.Address, link.Target, link.ExpiredAt)
	err := row.Scan(&link.Visited, &link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAddressTaken
		}
		return err
	}
	link.ExpiredAt = link.ExpiredAt.UTC()
	link.CreatedAt = link.CreatedAt.UTC()
	return nil
}

func (s *PostgresLinkStorage) GetByAddress(ctx context.Context, address string) (*Link, error) {
	query := `SELECT id, address, target, visited, expired_at, created_at FROM links WHERE address = $1 AND expired_at >= now()`
	return s.scanLink(s.pool.QueryRow(ctx, query, address))
}

func (s *PostgresLinkStorage) MarkVisited(ctx context.Context, address string) (*Link, error) {
	query := `UPDATE links SET visited = TRUE WHERE address = $1 AND expired_at >= now() RETURNING id, address, target, visited, expired_at, created_at`
	return s.scanLink(s.pool.QueryRow(ctx, query, address))
}

func (s *PostgresLinkStorage) GetByID(ctx context.Context, id uuid.UUID) (*Link, error) {
	query := `SELECT id, address, target, visited, expired_at, created_at FROM links WHERE id = $1`
	return s.scanLink(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresLinkStorage) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM links WHERE expired_at < now()`
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresLinkStorage) scanLink(row pgx.Row) (*Link, error) {
	var link Link
	err := row.Scan(&link.ID, &link.Address, &link.Target, &link.Visited, &link.ExpiredAt, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	link.ExpiredAt = link.ExpiredAt.UTC()
	link.CreatedAt = link.CreatedAt.UTC()
	return &link, nil
}
