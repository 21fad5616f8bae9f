package services

import (
	"math"
	"reflect"
	"testing"

	domain "github.com/freshcatch/api/internal/domain"
)

func newTestEngine(t *testing.T) *OrderSummaryEngine {
	t.Helper()
	engine, err := NewOrderSummaryEngine(OrderSummaryEngineDeps{})
	if err != nil {
		t.Fatalf("NewOrderSummaryEngine error: %v", err)
	}
	return engine
}

func floatPtr(v float64) *float64 { return &v }

func testProduct(id string, silver, gold, platinum, diamond float64) domain.Product {
	return domain.Product{
		ID:            id,
		Code:          "F-" + id,
		EnglishName:   "Seer Fish",
		MalayalamName: "നെയ്മീൻ",
		Preparation:   "Steaks",
		Packaging:     "Thermal Box",
		SizeSpec:      "1-2 kg",
		PriceSilver:   silver,
		PriceGold:     gold,
		PricePlatinum: platinum,
		PriceDiamond:  diamond,
		Active:        true,
	}
}

func TestOrderSummaryEngine_ResolveTierBoundaries(t *testing.T) {
	engine := newTestEngine(t)

	cases := []struct {
		weight   float64
		tier     domain.PricingTier
		nextTier *domain.PricingTier
		kgToNext float64
	}{
		{99.9, domain.TierBase, tierPtr(domain.TierSilver), 0.1},
		{100, domain.TierSilver, tierPtr(domain.TierGold), 150},
		{100.1, domain.TierSilver, tierPtr(domain.TierGold), 149.9},
		{249.9, domain.TierSilver, tierPtr(domain.TierGold), 0.1},
		{250, domain.TierGold, tierPtr(domain.TierPlatinum), 250},
		{499.9, domain.TierGold, tierPtr(domain.TierPlatinum), 0.1},
		{500, domain.TierPlatinum, tierPtr(domain.TierDiamond), 500},
		{999.9, domain.TierPlatinum, tierPtr(domain.TierDiamond), 0.1},
		{1000, domain.TierDiamond, nil, 0},
		{1500, domain.TierDiamond, nil, 0},
	}

	for _, tc := range cases {
		got := engine.ResolveTier(tc.weight, false)
		if got.Tier != tc.tier {
			t.Fatalf("weight %v: expected tier %s, got %s", tc.weight, tc.tier, got.Tier)
		}
		if (got.NextTier == nil) != (tc.nextTier == nil) {
			t.Fatalf("weight %v: expected next tier %v, got %v", tc.weight, tc.nextTier, got.NextTier)
		}
		if tc.nextTier != nil && *got.NextTier != *tc.nextTier {
			t.Fatalf("weight %v: expected next tier %s, got %s", tc.weight, *tc.nextTier, *got.NextTier)
		}
		if math.Abs(got.KgToNextTier-tc.kgToNext) > 1e-9 {
			t.Fatalf("weight %v: expected %v kg to next tier, got %v", tc.weight, tc.kgToNext, got.KgToNextTier)
		}
	}
}

func TestOrderSummaryEngine_BronzeOnlyBelowSilverThreshold(t *testing.T) {
	engine := newTestEngine(t)

	got := engine.ResolveTier(50, true)
	if got.Tier != domain.TierBronze {
		t.Fatalf("expected bronze at 50kg with eligibility, got %s", got.Tier)
	}
	if got.NextTier == nil || *got.NextTier != domain.TierSilver {
		t.Fatalf("expected silver as next tier, got %v", got.NextTier)
	}
	if math.Abs(got.KgToNextTier-50) > 1e-9 {
		t.Fatalf("expected 50kg to next tier, got %v", got.KgToNextTier)
	}

	got = engine.ResolveTier(150, true)
	if got.Tier != domain.TierSilver {
		t.Fatalf("expected silver at 150kg regardless of bronze flag, got %s", got.Tier)
	}

	got = engine.ResolveTier(100, true)
	if got.Tier != domain.TierSilver {
		t.Fatalf("expected silver exactly at 100kg regardless of bronze flag, got %s", got.Tier)
	}
}

func TestOrderSummaryEngine_SavingsNonNegativeUnderMonotonicPrices(t *testing.T) {
	engine := newTestEngine(t)

	catalog := []domain.Product{
		testProduct("p1", 10, 8, 7, 6),
		testProduct("p2", 24.5, 22, 20, 18.5),
	}

	for _, weight := range []float64{120, 300, 600, 1200} {
		summary := engine.Summarize(SummarizeCartCommand{
			Lines: []domain.CartLine{
				{ProductID: "p1", Quantity: weight / 2},
				{ProductID: "p2", Quantity: weight / 2},
			},
			Catalog: catalog,
		})
		if summary.TotalSavings < 0 {
			t.Fatalf("weight %v: expected non-negative savings, got %v", weight, summary.TotalSavings)
		}
		for _, item := range summary.Items {
			if item.LineSavings < 0 {
				t.Fatalf("weight %v: expected non-negative line savings for %s, got %v", weight, item.Product.ID, item.LineSavings)
			}
		}
	}
}

func TestOrderSummaryEngine_SavingsNotClampedWhenTierPriceExceedsSilver(t *testing.T) {
	engine := newTestEngine(t)

	// Unusual catalog where gold is priced above silver.
	product := testProduct("p1", 10, 12, 9, 8)
	summary := engine.Summarize(SummarizeCartCommand{
		Lines:   []domain.CartLine{{ProductID: "p1", Quantity: 300}},
		Catalog: []domain.Product{product},
	})

	if summary.Tier != domain.TierGold {
		t.Fatalf("expected gold tier, got %s", summary.Tier)
	}
	want := (10.0 - 12.0) * 300
	if math.Abs(summary.TotalSavings-want) > 1e-9 {
		t.Fatalf("expected savings %v surfaced as-is, got %v", want, summary.TotalSavings)
	}
}

func TestOrderSummaryEngine_SummarizeIdempotent(t *testing.T) {
	engine := newTestEngine(t)

	cmd := SummarizeCartCommand{
		Lines: []domain.CartLine{
			{ProductID: "p1", Quantity: 120},
			{ProductID: "p2", Quantity: 80},
			{ProductID: "missing", Quantity: 30},
		},
		Catalog: []domain.Product{
			testProduct("p1", 10, 8, 7, 6),
			testProduct("p2", 24.5, 22, 20, 18.5),
		},
		BronzeEligible: false,
	}

	first := engine.Summarize(cmd)
	second := engine.Summarize(cmd)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical summaries for identical inputs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestOrderSummaryEngine_MissingProductExcludedFromPricingButWeighed(t *testing.T) {
	engine := newTestEngine(t)

	summary := engine.Summarize(SummarizeCartCommand{
		Lines: []domain.CartLine{
			{ProductID: "p1", Quantity: 200},
			{ProductID: "gone", Quantity: 60},
		},
		Catalog: []domain.Product{testProduct("p1", 10, 8, 7, 6)},
	})

	if math.Abs(summary.TotalWeight-260) > 1e-9 {
		t.Fatalf("expected total weight 260 including the dangling line, got %v", summary.TotalWeight)
	}
	if summary.Tier != domain.TierGold {
		t.Fatalf("expected gold tier from the combined weight, got %s", summary.Tier)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected 1 priced item, got %d", len(summary.Items))
	}
	if summary.Items[0].Product.ID != "p1" {
		t.Fatalf("expected surviving item p1, got %s", summary.Items[0].Product.ID)
	}
	if math.Abs(summary.Subtotal-8*200) > 1e-9 {
		t.Fatalf("expected subtotal %v from priced lines only, got %v", 8.0*200, summary.Subtotal)
	}
}

func TestOrderSummaryEngine_CheckoutGate(t *testing.T) {
	engine := newTestEngine(t)

	summary := engine.Summarize(SummarizeCartCommand{
		Lines:   []domain.CartLine{{ProductID: "p1", Quantity: 90}},
		Catalog: []domain.Product{testProduct("p1", 10, 8, 7, 6)},
	})
	if summary.Tier != domain.TierBase {
		t.Fatalf("expected base tier at 90kg, got %s", summary.Tier)
	}
	if engine.EligibleForCheckout(summary.TotalWeight, false) {
		t.Fatalf("expected 90kg without bronze to be ineligible for checkout")
	}
	if math.Abs(summary.KgToNextTier-10) > 1e-9 {
		t.Fatalf("expected 10kg needed to reach silver, got %v", summary.KgToNextTier)
	}

	bronze := engine.Summarize(SummarizeCartCommand{
		Lines:          []domain.CartLine{{ProductID: "p1", Quantity: 90}},
		Catalog:        []domain.Product{testProduct("p1", 10, 8, 7, 6)},
		BronzeEligible: true,
	})
	if bronze.Tier != domain.TierBronze {
		t.Fatalf("expected bronze tier at 90kg with eligibility, got %s", bronze.Tier)
	}
	if !engine.EligibleForCheckout(bronze.TotalWeight, true) {
		t.Fatalf("expected bronze-eligible 90kg order to pass the checkout gate")
	}
}

func TestOrderSummaryEngine_GoldScenario(t *testing.T) {
	engine := newTestEngine(t)

	summary := engine.Summarize(SummarizeCartCommand{
		Lines:   []domain.CartLine{{ProductID: "p1", Quantity: 260}},
		Catalog: []domain.Product{testProduct("p1", 10, 8, 7, 6)},
	})

	if math.Abs(summary.TotalWeight-260) > 1e-9 {
		t.Fatalf("expected total weight 260, got %v", summary.TotalWeight)
	}
	if summary.Tier != domain.TierGold {
		t.Fatalf("expected gold tier, got %s", summary.Tier)
	}
	if len(summary.Items) != 1 {
		t.Fatalf("expected 1 priced item, got %d", len(summary.Items))
	}
	if math.Abs(summary.Items[0].UnitPrice-8) > 1e-9 {
		t.Fatalf("expected unit price 8, got %v", summary.Items[0].UnitPrice)
	}
	if math.Abs(summary.Subtotal-2080) > 1e-9 {
		t.Fatalf("expected subtotal 2080, got %v", summary.Subtotal)
	}
	if math.Abs(summary.TotalSavings-520) > 1e-9 {
		t.Fatalf("expected savings 520, got %v", summary.TotalSavings)
	}
}

func TestOrderSummaryEngine_NextTierArithmetic(t *testing.T) {
	engine := newTestEngine(t)

	got := engine.ResolveTier(240, false)
	if got.Tier != domain.TierSilver {
		t.Fatalf("expected silver at 240kg, got %s", got.Tier)
	}
	if got.NextTier == nil || *got.NextTier != domain.TierGold {
		t.Fatalf("expected gold as next tier, got %v", got.NextTier)
	}
	if math.Abs(got.KgToNextTier-10) > 1e-9 {
		t.Fatalf("expected 10kg to gold, got %v", got.KgToNextTier)
	}

	got = engine.ResolveTier(250, false)
	if got.Tier != domain.TierGold {
		t.Fatalf("expected gold after adding 10kg, got %s", got.Tier)
	}
	if got.NextTier == nil || *got.NextTier != domain.TierPlatinum {
		t.Fatalf("expected platinum as next tier, got %v", got.NextTier)
	}
	if math.Abs(got.KgToNextTier-250) > 1e-9 {
		t.Fatalf("expected 250kg to platinum, got %v", got.KgToNextTier)
	}
}

func TestOrderSummaryEngine_BronzePriceSelection(t *testing.T) {
	engine := newTestEngine(t)

	withBronze := testProduct("p1", 10, 8, 7, 6)
	withBronze.PriceBronze = floatPtr(11)
	withoutBronze := testProduct("p2", 20, 18, 16, 15)

	summary := engine.Summarize(SummarizeCartCommand{
		Lines: []domain.CartLine{
			{ProductID: "p1", Quantity: 30},
			{ProductID: "p2", Quantity: 20},
		},
		Catalog:        []domain.Product{withBronze, withoutBronze},
		BronzeEligible: true,
	})

	if summary.Tier != domain.TierBronze {
		t.Fatalf("expected bronze tier, got %s", summary.Tier)
	}
	if math.Abs(summary.Items[0].UnitPrice-11) > 1e-9 {
		t.Fatalf("expected bronze price 11 for p1, got %v", summary.Items[0].UnitPrice)
	}
	// No bronze column: charged silver, anchored to silver, zero savings.
	if math.Abs(summary.Items[1].UnitPrice-20) > 1e-9 {
		t.Fatalf("expected silver fallback price 20 for p2, got %v", summary.Items[1].UnitPrice)
	}
	if math.Abs(summary.Items[1].LineSavings) > 1e-9 {
		t.Fatalf("expected zero savings for p2 under bronze fallback, got %v", summary.Items[1].LineSavings)
	}
	// Bronze column present: both charge and anchor are the bronze price.
	if math.Abs(summary.Items[0].LineSavings) > 1e-9 {
		t.Fatalf("expected zero savings for p1 when bronze is the anchor, got %v", summary.Items[0].LineSavings)
	}
}

func TestOrderSummaryEngine_BronzeAnchorAboveSilverThreshold(t *testing.T) {
	engine := newTestEngine(t)

	withBronze := testProduct("p1", 10, 8, 7, 6)
	withBronze.PriceBronze = floatPtr(12)

	summary := engine.Summarize(SummarizeCartCommand{
		Lines:          []domain.CartLine{{ProductID: "p1", Quantity: 260}},
		Catalog:        []domain.Product{withBronze},
		BronzeEligible: true,
	})

	// Volume pushed the cart past bronze, but the savings anchor stays on
	// the bronze column for as long as the customer carries the flag.
	if summary.Tier != domain.TierGold {
		t.Fatalf("expected gold tier at 260kg, got %s", summary.Tier)
	}
	if math.Abs(summary.Items[0].UnitPrice-8) > 1e-9 {
		t.Fatalf("expected gold unit price 8, got %v", summary.Items[0].UnitPrice)
	}
	if math.Abs(summary.TotalSavings-(12-8)*260) > 1e-9 {
		t.Fatalf("expected bronze-anchored savings %v, got %v", (12.0-8)*260, summary.TotalSavings)
	}
}

func TestOrderSummaryEngine_ZeroWeightStillResolves(t *testing.T) {
	engine := newTestEngine(t)

	summary := engine.Summarize(SummarizeCartCommand{})
	if summary.Tier != domain.TierBase {
		t.Fatalf("expected base tier for an empty cart, got %s", summary.Tier)
	}
	if summary.NextTier == nil || *summary.NextTier != domain.TierSilver {
		t.Fatalf("expected silver as next tier, got %v", summary.NextTier)
	}
	if math.Abs(summary.KgToNextTier-100) > 1e-9 {
		t.Fatalf("expected 100kg to silver, got %v", summary.KgToNextTier)
	}
	if engine.EligibleForCheckout(0, false) {
		t.Fatalf("expected empty cart to be ineligible for checkout")
	}
}

func TestNewOrderSummaryEngine_RejectsBadLadder(t *testing.T) {
	_, err := NewOrderSummaryEngine(OrderSummaryEngineDeps{
		Thresholds: TierThresholds{Silver: 100, Gold: 90, Platinum: 500, Diamond: 1000},
	})
	if err == nil {
		t.Fatalf("expected error for non-increasing thresholds")
	}
}
