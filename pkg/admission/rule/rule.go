package rule

import "github.com/joripage/exposure-gate/pkg/admission/model"

// Rule is a stateless check over a single order. A nil error means the order
// passes the rule.
type Rule interface {
	Check(order *model.OrderRequest) error
}

// CheckAll runs rules in order and returns the first violation.
func CheckAll(rules []Rule, order *model.OrderRequest) error {
	for _, r := range rules {
		if err := r.Check(order); err != nil {
			return err
		}
	}
	return nil
}
