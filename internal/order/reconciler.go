package order

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/artwork"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
)

// Catalog is the part of the artwork store the order workflow depends on.
type Catalog interface {
	GetByUIDs(ctx context.Context, uids []string) ([]artwork.Artwork, error)
	MarkSold(ctx context.Context, uid, orderID string, soldAt time.Time) (artwork.MarkOutcome, error)
}

// Reconciler moves the artworks of a paid order to Sold.
type Reconciler struct {
	catalog Catalog
	tx      db.Transactor
}

func NewReconciler(catalog Catalog, tx db.Transactor) *Reconciler {
	return &Reconciler{catalog: catalog, tx: tx}
}

// MarkItemsSold marks every item of o as sold by o. Each item runs in its own
// savepoint; failures are logged and the remaining items are still attempted.
// Items are visited in uid order so concurrent orders lock rows in the same order.
func (r *Reconciler) MarkItemsSold(ctx context.Context, o *Order, soldAt time.Time) map[string]artwork.MarkOutcome {
	uids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		uids = append(uids, it.UID)
	}
	slices.Sort(uids)
	uids = slices.Compact(uids)

	outcomes := make(map[string]artwork.MarkOutcome, len(uids))
	for _, uid := range uids {
		var outcome artwork.MarkOutcome
		err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			outcome, err = r.catalog.MarkSold(ctx, uid, o.OrderID, soldAt)
			return err
		})
		if err != nil {
			log.Warn().Err(err).Str("order_id", o.OrderID).Str("uid", uid).Msg("reconciler: failed to mark artwork sold, continuing")
			continue
		}

		outcomes[uid] = outcome
		switch outcome {
		case artwork.MarkedSold:
			log.Info().Str("order_id", o.OrderID).Str("uid", uid).Msg("reconciler: artwork marked sold")
		case artwork.AlreadySold:
			log.Warn().Str("order_id", o.OrderID).Str("uid", uid).Msg("reconciler: artwork already sold, skipping")
		case artwork.NotInCatalog:
			log.Warn().Str("order_id", o.OrderID).Str("uid", uid).Msg("reconciler: artwork not in catalog, skipping")
		}
	}
	return outcomes
}

// saleCounts splits outcomes into artworks this order sold and ones it skipped.
func saleCounts(outcomes map[string]artwork.MarkOutcome) (sold, skipped int) {
	for _, o := range outcomes {
		if o == artwork.MarkedSold {
			sold++
		} else {
			skipped++
		}
	}
	return sold, skipped
}
