package services

import (
	"errors"
	"fmt"

	"github.com/freshcatch/api/internal/domain"
)

var (
	// ErrOrderSummaryInvalidInput signals the engine was constructed with a
	// threshold ladder that violates its contract.
	ErrOrderSummaryInvalidInput = errors.New("order summary engine: invalid input")
)

// TierThresholds holds the cumulative-kilogram breakpoints that select a
// pricing tier. Values are fixed for the lifetime of the process but injected
// so the engine can be exercised against alternative ladders in tests.
type TierThresholds struct {
	Silver   float64
	Gold     float64
	Platinum float64
	Diamond  float64
}

// DefaultTierThresholds returns the production tier ladder.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{
		Silver:   domain.SilverThresholdKg,
		Gold:     domain.GoldThresholdKg,
		Platinum: domain.PlatinumThresholdKg,
		Diamond:  domain.DiamondThresholdKg,
	}
}

// OrderSummaryEngineDeps bundles the configuration required to construct the
// engine. Zero values fall back to the production defaults.
type OrderSummaryEngineDeps struct {
	Thresholds     TierThresholds
	MinOrderWeight float64
}

// OrderSummaryEngine derives the priced view of a cart: the active tier, the
// distance to the next tier, per-line unit prices and savings, and the
// aggregate totals. It is pure and owns no state; callers recompute on every
// cart, catalog, or eligibility change and treat the result as immutable.
type OrderSummaryEngine struct {
	thresholds     TierThresholds
	minOrderWeight float64
}

// NewOrderSummaryEngine constructs the engine after validating that the
// threshold ladder is strictly increasing.
func NewOrderSummaryEngine(deps OrderSummaryEngineDeps) (*OrderSummaryEngine, error) {
	thresholds := deps.Thresholds
	if thresholds == (TierThresholds{}) {
		thresholds = DefaultTierThresholds()
	}
	if thresholds.Silver <= 0 {
		return nil, fmt.Errorf("%w: silver threshold must be positive", ErrOrderSummaryInvalidInput)
	}
	if thresholds.Gold <= thresholds.Silver || thresholds.Platinum <= thresholds.Gold || thresholds.Diamond <= thresholds.Platinum {
		return nil, fmt.Errorf("%w: thresholds must be strictly increasing", ErrOrderSummaryInvalidInput)
	}

	minOrder := deps.MinOrderWeight
	if minOrder <= 0 {
		minOrder = domain.MinOrderWeightKg
	}

	return &OrderSummaryEngine{
		thresholds:     thresholds,
		minOrderWeight: minOrder,
	}, nil
}

// TierResolution is the outcome of resolving a total weight against the tier
// ladder. NextTier is nil at the top of the ladder, with KgToNextTier zero.
type TierResolution struct {
	Tier         domain.PricingTier
	NextTier     *domain.PricingTier
	KgToNextTier float64
}

// ResolveTier resolves the active tier for a total order weight. Rules are
// evaluated in order and the first match wins; weights exactly on a threshold
// resolve to the higher tier. Bronze applies only while the customer is
// flagged eligible and the order is still below the silver threshold.
func (e *OrderSummaryEngine) ResolveTier(totalWeight float64, bronzeEligible bool) TierResolution {
	if totalWeight < 0 {
		totalWeight = 0
	}

	t := e.thresholds
	switch {
	case bronzeEligible && totalWeight < t.Silver:
		return TierResolution{Tier: domain.TierBronze, NextTier: tierPtr(domain.TierSilver), KgToNextTier: t.Silver - totalWeight}
	case totalWeight >= t.Diamond:
		return TierResolution{Tier: domain.TierDiamond}
	case totalWeight >= t.Platinum:
		return TierResolution{Tier: domain.TierPlatinum, NextTier: tierPtr(domain.TierDiamond), KgToNextTier: t.Diamond - totalWeight}
	case totalWeight >= t.Gold:
		return TierResolution{Tier: domain.TierGold, NextTier: tierPtr(domain.TierPlatinum), KgToNextTier: t.Platinum - totalWeight}
	case totalWeight >= t.Silver:
		return TierResolution{Tier: domain.TierSilver, NextTier: tierPtr(domain.TierGold), KgToNextTier: t.Gold - totalWeight}
	default:
		return TierResolution{Tier: domain.TierBase, NextTier: tierPtr(domain.TierSilver), KgToNextTier: t.Silver - totalWeight}
	}
}

// PriceLine prices one cart line at the resolved tier. The savings anchor
// follows the customer's bronze eligibility, not the tier the cart resolved
// to: it is the bronze price whenever the customer is flagged eligible and
// the product defines one, otherwise the silver price, regardless of the
// price actually charged. Savings can come out negative when a tier price
// exceeds the anchor; that is surfaced as-is, never clamped.
func (e *OrderSummaryEngine) PriceLine(product domain.Product, quantity float64, tier domain.PricingTier, bronzeEligible bool) domain.PricedLine {
	if quantity < 0 {
		quantity = 0
	}

	price := unitPriceForTier(product, tier)

	basePrice := product.PriceSilver
	if bronzeEligible && product.PriceBronze != nil {
		basePrice = *product.PriceBronze
	}

	return domain.PricedLine{
		Product:     product,
		Quantity:    quantity,
		UnitPrice:   price,
		LineTotal:   price * quantity,
		LineSavings: (basePrice - price) * quantity,
	}
}

// SummarizeCartCommand carries the inputs for one summary computation.
// Catalog is the active product list, already resolved to whichever pricing
// package applies to the customer.
type SummarizeCartCommand struct {
	Lines          []domain.CartLine
	Catalog        []domain.Product
	BronzeEligible bool
}

// Summarize computes the order summary for a cart. Total weight sums every
// line quantity, including lines whose product is missing from the catalog;
// such lines are excluded from the priced items and the monetary totals but
// still count toward the tier decision.
func (e *OrderSummaryEngine) Summarize(cmd SummarizeCartCommand) domain.OrderSummary {
	var totalWeight float64
	for _, line := range cmd.Lines {
		if line.Quantity > 0 {
			totalWeight += line.Quantity
		}
	}

	resolution := e.ResolveTier(totalWeight, cmd.BronzeEligible)

	byID := make(map[string]domain.Product, len(cmd.Catalog))
	for _, product := range cmd.Catalog {
		byID[product.ID] = product
	}

	items := make([]domain.PricedLine, 0, len(cmd.Lines))
	var subtotal, totalSavings float64
	for _, line := range cmd.Lines {
		product, ok := byID[line.ProductID]
		if !ok {
			continue
		}
		priced := e.PriceLine(product, line.Quantity, resolution.Tier, cmd.BronzeEligible)
		items = append(items, priced)
		subtotal += priced.LineTotal
		totalSavings += priced.LineSavings
	}

	return domain.OrderSummary{
		TotalWeight:  totalWeight,
		Tier:         resolution.Tier,
		NextTier:     resolution.NextTier,
		KgToNextTier: resolution.KgToNextTier,
		Subtotal:     subtotal,
		TotalSavings: totalSavings,
		Items:        items,
	}
}

// EligibleForCheckout reports whether an order may proceed to checkout.
// Deliberately separate from tier resolution: bronze-flagged customers may
// order below the wholesale minimum, everyone else must reach it.
func (e *OrderSummaryEngine) EligibleForCheckout(totalWeight float64, bronzeEligible bool) bool {
	return bronzeEligible || totalWeight >= e.minOrderWeight
}

// unitPriceForTier selects the price column for the tier. A bronze order on a
// product without bronze pricing simply charges silver; base charges silver
// too, it is the undiscounted reference column.
func unitPriceForTier(product domain.Product, tier domain.PricingTier) float64 {
	switch tier {
	case domain.TierBronze:
		if product.PriceBronze != nil {
			return *product.PriceBronze
		}
		return product.PriceSilver
	case domain.TierDiamond:
		return product.PriceDiamond
	case domain.TierPlatinum:
		return product.PricePlatinum
	case domain.TierGold:
		return product.PriceGold
	case domain.TierSilver, domain.TierBase:
		return product.PriceSilver
	default:
		return product.PriceSilver
	}
}

func tierPtr(t domain.PricingTier) *domain.PricingTier {
	return &t
}
