package types

import (
	"fmt"

	"github.com/samber/lo"
)

// RuleMode is the rewrite behavior of a price rule once it matches
type RuleMode int

const (
	// RuleModeReplaceAll replaces every matched pool product with the resulting product
	RuleModeReplaceAll RuleMode = 1
	// RuleModeReplaceOne replaces only the chosen product with the resulting product
	RuleModeReplaceOne RuleMode = 2
	// RuleModeAddOne adds the resulting product without removing anything
	RuleModeAddOne RuleMode = 3
)

func (m RuleMode) Validate() error {
	allowed := []RuleMode{RuleModeReplaceAll, RuleModeReplaceOne, RuleModeAddOne}
	if !lo.Contains(allowed, m) {
		return fmt.Errorf("invalid price rule mode: %d", m)
	}
	return nil
}

// WildcardMode relaxes the exact amount-to-pick match of a rule
type WildcardMode string

const (
	// WildcardModeNone means the rule matches on the exact amount-to-pick count
	WildcardModeNone WildcardMode = ""
	// WildcardModePoolAndAny matches when at least one pool product is present
	// and it is not the only product in the mix
	WildcardModePoolAndAny WildcardMode = "pool_and_any"
)

func (m WildcardMode) Validate() error {
	if m != WildcardModeNone && m != WildcardModePoolAndAny {
		return fmt.Errorf("invalid wildcard mode: %s", m)
	}
	return nil
}

// AmountCondition compares the pool-intersection size against amount_to_pick
type AmountCondition string

const (
	AmountConditionEquals      AmountCondition = "eq"
	AmountConditionGreaterThan AmountCondition = "gt"
)

func (c AmountCondition) Validate() error {
	if c != AmountConditionEquals && c != AmountConditionGreaterThan {
		return fmt.Errorf("invalid amount to pick condition: %s", c)
	}
	return nil
}

// Matches reports whether the given pool-intersection size satisfies the condition
func (c AmountCondition) Matches(got, want int) bool {
	switch c {
	case AmountConditionEquals:
		return got == want
	case AmountConditionGreaterThan:
		return got > want
	default:
		return false
	}
}
