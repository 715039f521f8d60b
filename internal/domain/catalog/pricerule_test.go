package catalog

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	ierr "github.com/ladiaria/utopia-billing/internal/errors"
	"github.com/ladiaria/utopia-billing/internal/types"
)

func TestPriceRuleValidate(t *testing.T) {
	testCases := []struct {
		name    string
		rule    PriceRule
		wantErr bool
	}{
		{
			name: "valid_replace_all",
			rule: PriceRule{
				ID:                    "rule_1",
				Mode:                  types.RuleModeReplaceAll,
				AmountToPick:          1,
				AmountToPickCondition: types.AmountConditionEquals,
				ResultingProductID:    lo.ToPtr("prod_x"),
			},
		},
		{
			name: "replace_all_missing_resulting",
			rule: PriceRule{
				ID:                    "rule_2",
				Mode:                  types.RuleModeReplaceAll,
				AmountToPick:          1,
				AmountToPickCondition: types.AmountConditionEquals,
			},
			wantErr: true,
		},
		{
			name: "replace_one_missing_chosen",
			rule: PriceRule{
				ID:                    "rule_3",
				Mode:                  types.RuleModeReplaceOne,
				AmountToPick:          1,
				AmountToPickCondition: types.AmountConditionEquals,
				ResultingProductID:    lo.ToPtr("prod_x"),
			},
			wantErr: true,
		},
		{
			name: "replace_one_missing_resulting",
			rule: PriceRule{
				ID:                    "rule_4",
				Mode:                  types.RuleModeReplaceOne,
				AmountToPick:          1,
				AmountToPickCondition: types.AmountConditionEquals,
				ChooseOneProductID:    lo.ToPtr("prod_a"),
			},
			wantErr: true,
		},
		{
			name: "legacy_replace_one_without_resulting",
			rule: PriceRule{
				ID:                    "rule_5",
				Mode:                  types.RuleModeReplaceOne,
				LegacyModeTwo:         true,
				AmountToPick:          1,
				AmountToPickCondition: types.AmountConditionEquals,
				ChooseOneProductID:    lo.ToPtr("prod_a"),
			},
		},
		{
			name: "wildcard_missing_resulting",
			rule: PriceRule{
				ID:           "rule_6",
				Mode:         types.RuleModeReplaceAll,
				WildcardMode: types.WildcardModePoolAndAny,
			},
			wantErr: true,
		},
		{
			name: "wildcard_needs_no_amount_condition",
			rule: PriceRule{
				ID:                 "rule_7",
				Mode:               types.RuleModeReplaceAll,
				WildcardMode:       types.WildcardModePoolAndAny,
				ResultingProductID: lo.ToPtr("prod_x"),
			},
		},
		{
			name: "missing_amount_condition",
			rule: PriceRule{
				ID:                 "rule_8",
				Mode:               types.RuleModeAddOne,
				ResultingProductID: lo.ToPtr("prod_x"),
			},
			wantErr: true,
		},
		{
			// a rule saved with a zero amount_to_pick would match an empty
			// pool intersection and leave replace modes nothing to pick
			name: "zero_amount_to_pick_with_equality",
			rule: PriceRule{
				ID:                    "rule_10",
				Mode:                  types.RuleModeReplaceAll,
				AmountToPick:          0,
				AmountToPickCondition: types.AmountConditionEquals,
				ResultingProductID:    lo.ToPtr("prod_x"),
			},
			wantErr: true,
		},
		{
			name: "zero_amount_to_pick_with_greater_than",
			rule: PriceRule{
				ID:                    "rule_11",
				Mode:                  types.RuleModeReplaceAll,
				AmountToPick:          0,
				AmountToPickCondition: types.AmountConditionGreaterThan,
				ResultingProductID:    lo.ToPtr("prod_x"),
			},
		},
		{
			name: "invalid_mode",
			rule: PriceRule{
				ID:   "rule_9",
				Mode: types.RuleMode(7),
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				assert.True(t, ierr.IsRuleDefinition(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPriceRuleInPool(t *testing.T) {
	rule := PriceRule{ProductsPool: []string{"prod_a", "prod_b"}}

	assert.True(t, rule.InPool("prod_a"))
	assert.False(t, rule.InPool("prod_c"))
}
