package artwork

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

var (
	ErrNotFound  = errors.New("artwork not found")
	ErrUIDExists = errors.New("artwork with this uid already exists")
)

type Repository interface {
	Create(ctx context.Context, artwork *Artwork) error
	List(ctx context.Context, filter Filter) ([]Artwork, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Artwork, error)
	GetByUIDs(ctx context.Context, uids []string) ([]Artwork, error)
	UIDsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Artwork, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkSold(ctx context.Context, uid, orderID string, soldAt time.Time) (MarkOutcome, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

const artworkColumns = `id, uid, src, title, artist, type_code, price, status, state,
	materials, duration, type, inspiration, sold_date, order_id, created_at, updated_at`

func scanArtwork(row pgx.Row) (*Artwork, error) {
	var a Artwork
	var orderID *string
	err := row.Scan(
		&a.ID,
		&a.UID,
		&a.Src,
		&a.Title,
		&a.Artist,
		&a.TypeCode,
		&a.Price,
		&a.Status,
		&a.State,
		&a.Materials,
		&a.Duration,
		&a.Type,
		&a.Inspiration,
		&a.SoldDate,
		&orderID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if orderID != nil {
		a.OrderID = *orderID
	}
	return &a, nil
}

func collectArtworks(rows pgx.Rows) ([]Artwork, error) {
	defer rows.Close()

	artworks := make([]Artwork, 0)
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan artwork: %w", err)
		}
		artworks = append(artworks, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating artworks: %w", err)
	}
	return artworks, nil
}

func (r *postgresRepository) Create(ctx context.Context, a *Artwork) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate artwork ID: %w", err)
		}
		a.ID = id
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO artworks (id, uid, src, title, artist, type_code, price, status, state,
			materials, duration, type, inspiration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := db.Conn(ctx, r.db).Exec(ctx, query,
		a.ID, a.UID, a.Src, a.Title, a.Artist, a.TypeCode, a.Price, a.Status, a.State,
		a.Materials, a.Duration, a.Type, a.Inspiration, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUIDExists
		}
		return fmt.Errorf("repository: failed to insert artwork %s: %w", a.UID, err)
	}

	return nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Artwork, error) {
	query := `
		SELECT ` + artworkColumns + `
		FROM artworks
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR state = $2)
		ORDER BY created_at DESC
	`
	rows, err := db.Conn(ctx, r.db).Query(ctx, query, string(filter.Status), string(filter.State))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query artworks: %w", err)
	}
	return collectArtworks(rows)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Artwork, error) {
	query := `SELECT ` + artworkColumns + ` FROM artworks WHERE id = $1`

	a, err := scanArtwork(db.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select artwork by id %s: %w", id, err)
	}
	return a, nil
}

func (r *postgresRepository) GetByUIDs(ctx context.Context, uids []string) ([]Artwork, error) {
	if len(uids) == 0 {
		return []Artwork{}, nil
	}

	query := `SELECT ` + artworkColumns + ` FROM artworks WHERE uid = ANY($1)`
	rows, err := db.Conn(ctx, r.db).Query(ctx, query, uids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query artworks by uid: %w", err)
	}
	return collectArtworks(rows)
}

func (r *postgresRepository) UIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `SELECT uid FROM artworks WHERE uid LIKE $1 || '-%'`, prefix)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query uids for prefix %s: %w", prefix, err)
	}
	uids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("repository: failed to collect uids for prefix %s: %w", prefix, err)
	}
	return uids, nil
}

// Update applies p. Setting Sold stamps sold_date unless the artwork was already
// Sold; setting any other status clears sold_date and order_id.
func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Artwork, error) {
	query := `
		UPDATE artworks SET
			src         = COALESCE($2, src),
			title       = COALESCE($3, title),
			price       = COALESCE($4, price),
			status      = COALESCE($5::text, status),
			sold_date   = CASE
				WHEN $5::text IS NULL THEN sold_date
				WHEN $5::text = 'Sold' AND status <> 'Sold' THEN $11
				WHEN $5::text = 'Sold' THEN sold_date
				ELSE NULL
			END,
			order_id    = CASE
				WHEN $5::text IS NULL OR $5::text = 'Sold' THEN order_id
				ELSE NULL
			END,
			state       = COALESCE($6, state),
			materials   = COALESCE($7, materials),
			duration    = COALESCE($8, duration),
			type        = COALESCE($9, type),
			inspiration = COALESCE($10, inspiration),
			updated_at  = $11
		WHERE id = $1
		RETURNING ` + artworkColumns

	a, err := scanArtwork(db.Conn(ctx, r.db).QueryRow(ctx, query,
		id, p.Src, p.Title, p.Price, p.Status, p.State,
		p.Materials, p.Duration, p.Type, p.Inspiration, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("artwork_id", id).Msg("repository: failed to update artwork")
		return nil, fmt.Errorf("repository: failed to update artwork %s: %w", id, err)
	}
	return a, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM artworks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete artwork %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSold flips an artwork to Sold only if it is not Sold already, so concurrent
// orders for the same uid have exactly one winner.
func (r *postgresRepository) MarkSold(ctx context.Context, uid, orderID string, soldAt time.Time) (MarkOutcome, error) {
	conn := db.Conn(ctx, r.db)

	query := `
		UPDATE artworks
		SET status = $2, sold_date = $3, order_id = $4, updated_at = $3
		WHERE uid = $1 AND status <> $2
	`
	cmdTag, err := conn.Exec(ctx, query, uid, StatusSold, soldAt.UTC(), orderID)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to mark artwork %s sold: %w", uid, err)
	}
	if cmdTag.RowsAffected() == 1 {
		return MarkedSold, nil
	}

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM artworks WHERE uid = $1)`, uid).Scan(&exists); err != nil {
		return 0, fmt.Errorf("repository: failed to check artwork %s: %w", uid, err)
	}
	if exists {
		return AlreadySold, nil
	}
	return NotInCatalog, nil
}
