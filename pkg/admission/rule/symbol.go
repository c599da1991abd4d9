package rule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joripage/exposure-gate/pkg/admission/model"
)

// SymbolRule rejects empty symbols and, when an allow-list is configured,
// symbols outside it.
type SymbolRule struct {
	allowed map[string]struct{}
	listing string
}

func NewSymbolRule(allowed []string) *SymbolRule {
	r := &SymbolRule{}
	if len(allowed) == 0 {
		return r
	}

	r.allowed = make(map[string]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, s := range allowed {
		if _, dup := r.allowed[s]; dup {
			continue
		}
		r.allowed[s] = struct{}{}
		names = append(names, s)
	}
	sort.Strings(names)
	r.listing = strings.Join(names, ", ")
	return r
}

func (r *SymbolRule) Check(order *model.OrderRequest) error {
	if strings.TrimSpace(order.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidSymbol)
	}

	if r.allowed == nil {
		return nil
	}
	if _, ok := r.allowed[order.Symbol]; !ok {
		return fmt.Errorf("%w: %q, valid symbols are %s", ErrInvalidSymbol, order.Symbol, r.listing)
	}
	return nil
}
