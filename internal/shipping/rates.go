package shipping

import (
	"errors"
	"strings"
)

// ErrInvalidRegion is returned in strict mode for blank or malformed region codes.
var ErrInvalidRegion = errors.New("invalid region code")

// Flat shipping fees in cents by tier.
const (
	NearFeeCents int64 = 15000
	FarFeeCents  int64 = 30000
)

// nearStates holds the Sul/Sudeste states that get the lower flat fee.
var nearStates = map[string]struct{}{
	"SP": {}, "RJ": {}, "MG": {}, "ES": {}, "PR": {}, "SC": {}, "RS": {},
}

// Resolver maps a two-letter state code to a flat shipping fee.
//
// With Strict unset, a blank or wrong-length code resolves to a zero fee,
// meaning "shipping not yet known". With Strict set it is rejected instead.
type Resolver struct {
	Strict bool
}

// Resolve returns the shipping fee in cents for the given state code.
func (r Resolver) Resolve(uf string) (int64, error) {
	code := strings.ToUpper(strings.TrimSpace(uf))
	if len(code) != 2 {
		if r.Strict {
			return 0, ErrInvalidRegion
		}
		return 0, nil
	}
	if _, ok := nearStates[code]; ok {
		return NearFeeCents, nil
	}
	return FarFeeCents, nil
}

// IsNear reports whether the state belongs to the lower-fee tier.
func IsNear(uf string) bool {
	_, ok := nearStates[strings.ToUpper(strings.TrimSpace(uf))]
	return ok
}

// EstimateDelivery returns the human-readable delivery window for a state.
func EstimateDelivery(uf string) string {
	code := strings.ToUpper(strings.TrimSpace(uf))
	if len(code) != 2 {
		return "Informe o CEP"
	}
	if IsNear(code) {
		return "10-15 dias úteis"
	}
	return "15-20 dias úteis"
}
