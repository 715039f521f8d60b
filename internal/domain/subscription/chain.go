package subscription

import (
	"context"

	ierr "github.com/ladiaria/utopia-billing/internal/errors"
)

// MaxChainDepth caps permanency chain traversal. The chain is written by
// upgrade workflows and should be short; hitting the cap means the data
// has a cycle or runaway growth and the walk must not loop forever.
const MaxChainDepth = 100

// WalkPermanencyChain returns the lineage of a subscription, newest first,
// following updated_from links. Read-only reporting utility, not part of
// the billing hot path.
func WalkPermanencyChain(ctx context.Context, repo Repository, id string) ([]*Subscription, error) {
	var chain []*Subscription
	seen := make(map[string]bool)

	current := id
	for depth := 0; ; depth++ {
		if depth >= MaxChainDepth {
			return nil, ierr.NewErrorf("permanency chain for subscription %s exceeds %d links", id, MaxChainDepth).
				WithHint("the updated_from chain likely contains a cycle").
				Mark(ierr.ErrInvalidOperation)
		}
		if seen[current] {
			return nil, ierr.NewErrorf("permanency chain for subscription %s contains a cycle at %s", id, current).
				Mark(ierr.ErrInvalidOperation)
		}
		seen[current] = true

		sub, err := repo.Get(ctx, current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, sub)

		if sub.UpdatedFromID == nil {
			return chain, nil
		}
		current = *sub.UpdatedFromID
	}
}
