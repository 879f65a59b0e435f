package artwork

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
)

// filterAll is what the storefront sends when no filter is selected.
const filterAll = "all"

const uidGenerateAttempts = 3

type Service interface {
	CreateArtwork(ctx context.Context, input *Artwork) (*Artwork, error)
	ListArtworks(ctx context.Context, status, state string) ([]Artwork, error)
	GetArtwork(ctx context.Context, id uuid.UUID) (*Artwork, error)
	UpdateArtwork(ctx context.Context, id uuid.UUID, patch Patch) (*Artwork, error)
	DeleteArtwork(ctx context.Context, id uuid.UUID) error
}

type Option func(*service)

// WithClock replaces time.Now, used for the year part of generated uids.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, opts ...Option) Service {
	s := &service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateArtwork(ctx context.Context, input *Artwork) (*Artwork, error) {
	a := *input
	a.ID = uuid.Nil
	a.SoldDate = nil
	a.OrderID = ""
	a.UID = strings.TrimSpace(a.UID)
	a.Title = strings.TrimSpace(a.Title)
	a.Price = strings.TrimSpace(a.Price)

	if a.Status == "" {
		a.Status = StatusAvailable
	}
	if a.State == "" {
		a.State = StateInProgress
	}

	if err := validateNew(&a); err != nil {
		log.Warn().Err(err).Str("uid", a.UID).Msg("service: rejected artwork")
		return nil, err
	}

	if a.UID != "" {
		if err := s.repo.Create(ctx, &a); err != nil {
			if errors.Is(err, ErrUIDExists) {
				return nil, ErrUIDExists
			}
			log.Error().Err(err).Str("uid", a.UID).Msg("service: failed to create artwork in repository")
			return nil, fmt.Errorf("service: failed to create artwork: %w", err)
		}
		log.Info().Str("uid", a.UID).Stringer("artwork_id", a.ID).Msg("service: artwork created")
		return &a, nil
	}

	prefix, ok := UIDPrefix(a.Artist, a.TypeCode, s.now().Year())
	if !ok {
		return nil, apperr.Invalid("uid", "is required unless artist and typeCode are given")
	}

	// Another admin may grab the same serial between the read and the insert.
	for attempt := 1; attempt <= uidGenerateAttempts; attempt++ {
		uid, err := s.nextUID(ctx, prefix)
		if err != nil {
			return nil, err
		}
		a.UID = uid

		err = s.repo.Create(ctx, &a)
		if err == nil {
			log.Info().Str("uid", a.UID).Stringer("artwork_id", a.ID).Msg("service: artwork created with generated uid")
			return &a, nil
		}
		if !errors.Is(err, ErrUIDExists) {
			log.Error().Err(err).Str("uid", a.UID).Msg("service: failed to create artwork in repository")
			return nil, fmt.Errorf("service: failed to create artwork: %w", err)
		}
		log.Warn().Str("uid", uid).Int("attempt", attempt).Msg("service: generated uid taken, retrying")
	}

	return nil, ErrUIDExists
}

func (s *service) nextUID(ctx context.Context, prefix string) (string, error) {
	uids, err := s.repo.UIDsWithPrefix(ctx, prefix)
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("service: failed to read existing uids")
		return "", fmt.Errorf("service: failed to generate uid: %w", err)
	}

	highest := 0
	for _, uid := range uids {
		if n, ok := SerialOf(uid, prefix); ok && n > highest {
			highest = n
		}
	}
	return FormatUID(prefix, highest+1), nil
}

func validateNew(a *Artwork) error {
	switch {
	case a.Title == "":
		return apperr.Missing("title")
	case a.Price == "":
		return apperr.Missing("price")
	case a.Src == "":
		return apperr.Missing("src")
	case !a.Status.Valid():
		return apperr.Invalid("status", fmt.Sprintf("unknown status %q", a.Status))
	case !a.State.Valid():
		return apperr.Invalid("state", fmt.Sprintf("unknown state %q", a.State))
	case a.UID != "" && !ValidUID(a.UID):
		return apperr.Invalid("uid", "must look like artist-type-year-serial")
	}
	return nil
}

func (s *service) ListArtworks(ctx context.Context, status, state string) ([]Artwork, error) {
	var filter Filter

	if status != "" && !strings.EqualFold(status, filterAll) {
		filter.Status = Status(status)
		if !filter.Status.Valid() {
			return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	if state != "" && !strings.EqualFold(state, filterAll) {
		filter.State = State(state)
		if !filter.State.Valid() {
			return nil, apperr.Invalid("state", fmt.Sprintf("unknown state %q", state))
		}
	}

	artworks, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list artworks")
		return nil, fmt.Errorf("service: failed to list artworks: %w", err)
	}
	return artworks, nil
}

func (s *service) GetArtwork(ctx context.Context, id uuid.UUID) (*Artwork, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("artwork_id", id).Msg("service: failed to get artwork")
		return nil, fmt.Errorf("service: failed to get artwork: %w", err)
	}
	return a, nil
}

func (s *service) UpdateArtwork(ctx context.Context, id uuid.UUID, p Patch) (*Artwork, error) {
	if p.IsEmpty() {
		return nil, apperr.Invalid("", "no fields to update")
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", *p.Status))
	}
	if p.State != nil && !p.State.Valid() {
		return nil, apperr.Invalid("state", fmt.Sprintf("unknown state %q", *p.State))
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, apperr.Missing("title")
	}
	if p.Price != nil && strings.TrimSpace(*p.Price) == "" {
		return nil, apperr.Missing("price")
	}
	if p.Src != nil && *p.Src == "" {
		return nil, apperr.Missing("src")
	}

	a, err := s.repo.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Stringer("artwork_id", id).Msg("service: artwork not found for update")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to update artwork: %w", err)
	}

	log.Info().Stringer("artwork_id", id).Str("uid", a.UID).Stringer("status", a.Status).Msg("service: artwork updated")
	return a, nil
}

func (s *service) DeleteArtwork(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("artwork_id", id).Msg("service: failed to delete artwork")
		return fmt.Errorf("service: failed to delete artwork: %w", err)
	}

	log.Info().Stringer("artwork_id", id).Msg("service: artwork deleted")
	return nil
}
