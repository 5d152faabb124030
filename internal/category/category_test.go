package category

import "testing"

func TestCategories_SharedPrefix(t *testing.T) {
	names := map[string]string{
		"T1": "orders.created",
		"T2": "orders.cancelled",
		"T3": "billing.invoice",
	}
	cats := PairwiseLCP{}.Categories(names)

	if cats["T1"] != "orders" || cats["T2"] != "orders" {
		t.Errorf("orders topics: got %q / %q, want orders", cats["T1"], cats["T2"])
	}
	// No peer shares a prefix, so the topic is its own category.
	if cats["T3"] != "billing.invoice" {
		t.Errorf("singleton category = %q, want billing.invoice", cats["T3"])
	}
}

func TestCategories_SegmentBoundary(t *testing.T) {
	// Raw character LCP would be "sensor.temp" + "erature"/"o" overlap;
	// segment comparison must stop at the last fully shared segment.
	names := map[string]string{
		"T1": "sensor.temperature.cabin",
		"T2": "sensor.tempo",
	}
	cats := PairwiseLCP{}.Categories(names)
	if cats["T1"] != "sensor" {
		t.Errorf("category = %q, want sensor", cats["T1"])
	}
}

func TestCategories_LongestQualifyingWins(t *testing.T) {
	names := map[string]string{
		"T1": "fleet.telemetry.gps",
		"T2": "fleet.telemetry.speed",
		"T3": "fleet.ops",
	}
	cats := PairwiseLCP{}.Categories(names)
	if cats["T1"] != "fleet.telemetry" {
		t.Errorf("T1 category = %q, want fleet.telemetry", cats["T1"])
	}
	// T3 only shares "fleet" with the others.
	if cats["T3"] != "fleet" {
		t.Errorf("T3 category = %q, want fleet", cats["T3"])
	}
}

func TestCategories_MinLength(t *testing.T) {
	names := map[string]string{
		"T1": "ab.x",
		"T2": "ab.y",
	}
	// Shared prefix "ab" is below the default minimum of 3.
	cats := PairwiseLCP{}.Categories(names)
	if cats["T1"] != "ab.x" || cats["T2"] != "ab.y" {
		t.Errorf("below-threshold prefixes must yield singletons, got %v", cats)
	}

	cats = PairwiseLCP{MinLength: 2}.Categories(names)
	if cats["T1"] != "ab" || cats["T2"] != "ab" {
		t.Errorf("MinLength=2 should accept prefix ab, got %v", cats)
	}
}

func TestCategories_Symmetry(t *testing.T) {
	names := map[string]string{
		"T1": "orders.created",
		"T2": "orders.cancelled",
		"T3": "orders.created.audit",
	}
	cats := PairwiseLCP{}.Categories(names)
	// T1's best candidate comes from T3 ("orders.created"); T3 must see
	// the same prefix against T1.
	if cats["T1"] != "orders.created" {
		t.Errorf("T1 category = %q, want orders.created", cats["T1"])
	}
	if cats["T3"] != "orders.created" {
		t.Errorf("T3 category = %q, want orders.created", cats["T3"])
	}
}

func TestCategories_Deterministic(t *testing.T) {
	names := map[string]string{
		"T1": "aaa.one",
		"T2": "aaa.two",
		"T3": "bbb.one",
		"T4": "bbb.two",
	}
	first := PairwiseLCP{}.Categories(names)
	for i := 0; i < 20; i++ {
		again := PairwiseLCP{}.Categories(names)
		for id, cat := range first {
			if again[id] != cat {
				t.Fatalf("run %d: category of %s changed: %q vs %q", i, id, cat, again[id])
			}
		}
	}
}
