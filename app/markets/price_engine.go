package markets

import (
	"math"

	"github.com/joefazee/marketcore/models"
)

// pricingEngine prices options with the logarithmic market scoring rule.
type pricingEngine struct{}

// NewPricingEngine creates a new pricing engine
func NewPricingEngine() PricingEngine {
	return pricingEngine{}
}

// PriceVector returns price(o) = 1 / (1 + exp((total - 2*p_o) / liquidity))
// for every option. Pools for unknown options are ignored and missing
// options count as zero. With no stake at all the vector is uniform.
// Values are not renormalized.
func (pricingEngine) PriceVector(market *models.Market, pools map[string]int64) models.PriceVector {
	n := len(market.Options)
	out := make(models.PriceVector, n)
	if n == 0 {
		return out
	}

	var total int64
	for _, opt := range market.Options {
		total += pools[opt]
	}

	if total == 0 {
		uniform := 1 / float64(n)
		if market.Type == models.MarketTypeBinary && n == 2 {
			uniform = 0.5
		}
		for _, opt := range market.Options {
			out[opt] = uniform
		}
		return out
	}

	for _, opt := range market.Options {
		own := float64(pools[opt])
		other := float64(total) - own
		out[opt] = 1 / (1 + math.Exp((other-own)/market.Liquidity))
	}
	return out
}

// Quote prices a hypothetical stake without persisting anything.
func (pe pricingEngine) Quote(market *models.Market, pools map[string]int64, option string, amount int64) (*Quote, error) {
	if !market.Options.Contains(option) {
		return nil, models.ErrInvalidOption
	}
	if amount < 1 {
		return nil, models.ErrInvalidBetAmount
	}

	before := pe.PriceVector(market, pools)
	odds := before[option]
	if odds <= 0 {
		return nil, models.ErrPriceUnavailable
	}

	after := make(map[string]int64, len(pools)+1)
	for k, v := range pools {
		after[k] = v
	}
	after[option] += amount

	return &Quote{
		MarketID:        market.ID,
		Option:          option,
		Amount:          amount,
		Odds:            odds,
		PotentialPayout: models.PotentialPayoutFor(amount, odds),
		PricesBefore:    before,
		PricesAfter:     pe.PriceVector(market, after),
	}, nil
}
