package service

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/ladiaria/utopia-billing/internal/domain/catalog"
	"github.com/ladiaria/utopia-billing/internal/types"
)

// ProductMap maps a product id to its copies count
type ProductMap map[string]int

// BundleService rewrites a subscription's raw product map by applying the
// active price rules in priority order. Resolution has no side effects
// beyond reading catalog state.
type BundleService interface {
	Resolve(ctx context.Context, input ProductMap) (ProductMap, error)
}

type bundleService struct {
	ServiceParams
	catalog CatalogService
}

func NewBundleService(params ServiceParams, catalogService CatalogService) BundleService {
	return &bundleService{
		ServiceParams: params,
		catalog:       catalogService,
	}
}

// Resolve applies each active rule, in ascending priority, to a working
// copy of the input. Rules that replace products shrink the working set,
// so later rules see the reduced mix; everything a rule writes lands in
// the output map, and whatever survives untouched is copied through at
// the end. A rule's output never re-enters matching: pools are checked
// against the input-derived working set only, so chains of rules cannot
// rewrite each other's results.
//
// "First product" anywhere below means lowest product id: the original
// rule language never defined a tie-break, and resolution must be
// deterministic for invoices to be reproducible.
func (s *bundleService) Resolve(ctx context.Context, input ProductMap) (ProductMap, error) {
	rules, err := s.catalog.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	output := make(ProductMap)
	working := make(map[string]bool, len(input))
	for id := range input {
		working[id] = true
	}

	inputIDs := sortedIDs(input)
	inputCount := len(inputIDs)

	for _, rule := range rules {
		if s.vetoedByNotPool(rule, working, output) {
			continue
		}

		skip, err := s.vetoedByBundle(ctx, rule, working)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}

		// intersection of the current working set and the rule's pool,
		// lowest id first
		inPool := lo.Filter(sortedSet(working), func(id string, _ int) bool {
			return rule.InPool(id)
		})

		if rule.WildcardMode == types.WildcardModePoolAndAny {
			// must match at least one pool product and must not be the
			// only product in the mix; amount_to_pick is bypassed
			if inputCount > 1 && len(inPool) > 0 {
				output[*rule.ResultingProductID] = input[inputIDs[0]]
			}
			continue
		}

		if !rule.AmountToPickCondition.Matches(len(inPool), rule.AmountToPick) {
			continue
		}

		switch rule.Mode {
		case types.RuleModeReplaceAll:
			// pool members carry equal copies by convention, take the first
			output[*rule.ResultingProductID] = input[inPool[0]]
			for _, id := range inPool {
				delete(working, id)
			}

		case types.RuleModeReplaceOne:
			choose := *rule.ChooseOneProductID
			if !working[choose] {
				continue
			}
			if rule.LegacyModeTwo {
				// historical bookkeeping: the chosen product's id keeps the
				// first matched pool product's copies
				output[choose] = input[inPool[0]]
			} else {
				output[*rule.ResultingProductID] = input[choose]
			}
			delete(working, choose)

		case types.RuleModeAddOne:
			output[*rule.ResultingProductID] = input[inputIDs[0]]
		}
	}

	// whatever no rule consumed passes through unchanged; added last so an
	// untargeted percentage discount from the input supersedes one a rule
	// introduced, matching how the calculator picks the last one found
	for id := range working {
		output[id] = input[id]
	}

	return output, nil
}

// vetoedByNotPool skips a rule when any not-pool product is present in the
// current working set or was already written by a prior rule
func (s *bundleService) vetoedByNotPool(rule *catalog.PriceRule, working map[string]bool, output ProductMap) bool {
	for _, id := range rule.ProductsNotPool {
		if working[id] {
			return true
		}
		if _, ok := output[id]; ok {
			return true
		}
	}
	return false
}

// vetoedByBundle skips a rule when the working set matches one of its
// exempted bundles exactly
func (s *bundleService) vetoedByBundle(ctx context.Context, rule *catalog.PriceRule, working map[string]bool) (bool, error) {
	if len(rule.IgnoreBundleIDs) == 0 {
		return false, nil
	}

	bundles, err := s.catalog.GetBundles(ctx, rule.IgnoreBundleIDs)
	if err != nil {
		return false, err
	}

	current := sortedSet(working)
	for _, bundle := range bundles {
		if bundle.MatchesExactly(current) {
			return true, nil
		}
	}
	return false, nil
}

func sortedIDs(m ProductMap) []string {
	ids := lo.Keys(m)
	sort.Strings(ids)
	return ids
}

func sortedSet(m map[string]bool) []string {
	ids := lo.Keys(m)
	sort.Strings(ids)
	return ids
}
