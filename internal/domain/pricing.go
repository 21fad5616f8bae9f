package domain

// Tier thresholds in cumulative order kilograms. Orders at or above a
// threshold belong to that tier; boundaries resolve upward.
const (
	SilverThresholdKg   = 100.0
	GoldThresholdKg     = 250.0
	PlatinumThresholdKg = 500.0
	DiamondThresholdKg  = 1000.0

	// MinOrderWeightKg is the wholesale minimum below which checkout is
	// blocked unless the bronze override applies.
	MinOrderWeightKg = 100.0
	// MinItemWeightKg is the smallest quantity a single cart line may carry.
	MinItemWeightKg = 10.0
)

// PricingTier is the closed set of discount brackets. Bronze and Base are
// both sub-minimum states and mutually exclusive: Bronze is an opt-in
// override for flagged customers, Base is the default fallback under 100 kg.
type PricingTier string

const (
	// TierBronze is the opt-in sub-minimum override tier.
	TierBronze PricingTier = "bronze"
	// TierBase is the non-discounted default for orders under 100 kg.
	TierBase PricingTier = "base"
	// TierSilver applies at 100 kg and above.
	TierSilver PricingTier = "silver"
	// TierGold applies at 250 kg and above.
	TierGold PricingTier = "gold"
	// TierPlatinum applies at 500 kg and above.
	TierPlatinum PricingTier = "platinum"
	// TierDiamond applies at 1000 kg and above.
	TierDiamond PricingTier = "diamond"
)

// Valid reports whether the tier is one of the defined constants.
func (t PricingTier) Valid() bool {
	switch t {
	case TierBronze, TierBase, TierSilver, TierGold, TierPlatinum, TierDiamond:
		return true
	}
	return false
}

// PricedLine is one cart line joined with its product and priced at the
// resolved tier. LineSavings may be negative when a tier price exceeds the
// base anchor; it is surfaced as-is, never clamped.
type PricedLine struct {
	Product     Product
	Quantity    float64
	UnitPrice   float64
	LineTotal   float64
	LineSavings float64
}

// OrderSummary is the fully resolved, priced view of a cart at a point in
// time. It owns no state and is recomputed fresh on every input change.
type OrderSummary struct {
	TotalWeight  float64
	Tier         PricingTier
	NextTier     *PricingTier
	KgToNextTier float64
	Subtotal     float64
	TotalSavings float64
	Items        []PricedLine
}
