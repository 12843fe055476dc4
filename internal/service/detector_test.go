package service

import (
	"reflect"
	"testing"
)

func TestDomainDetector_HealthcareOverview(t *testing.T) {
	d := NewDomainDetector()

	matches := d.Detect(
		"A telemedicine platform for patient scheduling with hipaa compliant records",
		"", "")

	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1 (%v)", len(matches), matches)
	}
	m := matches[0]
	if m.Domain != "healthcare" {
		t.Errorf("Domain = %s, want healthcare", m.Domain)
	}
	if m.AgentID != "healthcare_expert" {
		t.Errorf("AgentID = %s, want healthcare_expert", m.AgentID)
	}
	// 3 of 16 keywords: 3 / (16 * 0.3) rounded to two decimals.
	if m.Score != 0.63 {
		t.Errorf("Score = %v, want 0.63", m.Score)
	}
}

func TestDomainDetector_WordBoundaries(t *testing.T) {
	d := NewDomainDetector(WithThreshold(0.1))

	if matches := d.Detect("embankment", "", ""); len(matches) != 0 {
		t.Errorf("embankment matched %v, want nothing", matches)
	}
	matches := d.Detect("bank", "", "")
	if len(matches) != 1 || matches[0].Domain != "finance" {
		t.Errorf("bank matched %v, want finance only", matches)
	}
}

func TestDomainDetector_BelowThresholdExcluded(t *testing.T) {
	d := NewDomainDetector()

	// One finance keyword scores 0.2, under the 0.3 default.
	if matches := d.Detect("a digital wallet", "", ""); len(matches) != 0 {
		t.Errorf("single keyword activated %v, want nothing", matches)
	}
	// Two keywords score 0.39 and clear it.
	matches := d.Detect("a digital wallet for payment links", "", "")
	if len(matches) != 1 || matches[0].Domain != "finance" {
		t.Fatalf("matches = %v, want finance only", matches)
	}
	if matches[0].Score != 0.39 {
		t.Errorf("Score = %v, want 0.39", matches[0].Score)
	}
}

func TestDomainDetector_CapsAtMaxExperts(t *testing.T) {
	d := NewDomainDetector()

	// Four domains qualify; only the three strongest may activate.
	matches := d.Detect(
		"sensor telemetry over mqtt from every device",
		"patient medical records, hipaa audit, clinical notes",
		"checkout cart and inventory sync, payment banking ledger")

	if len(matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3 (%v)", len(matches), matches)
	}
	wantOrder := []string{"iot", "healthcare", "ecommerce"}
	for i, domain := range wantOrder {
		if matches[i].Domain != domain {
			t.Errorf("matches[%d].Domain = %s, want %s", i, matches[i].Domain, domain)
		}
	}
	if matches[0].Score != 1.0 {
		t.Errorf("iot Score = %v, want capped 1.0", matches[0].Score)
	}
	for _, m := range matches {
		if m.Domain == "finance" {
			t.Error("finance is the weakest signal and must be cut by the cap")
		}
	}
}

func TestDomainDetector_TiesKeepTaxonomyOrder(t *testing.T) {
	d := NewDomainDetector()

	// Both domains saturate at 1.0; gaming precedes social in the taxonomy.
	matches := d.Detect("multiplayer game lobby with social feed post comment", "", "")

	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2 (%v)", len(matches), matches)
	}
	if matches[0].Domain != "gaming" || matches[1].Domain != "social" {
		t.Errorf("order = [%s %s], want [gaming social]", matches[0].Domain, matches[1].Domain)
	}
	if matches[0].Score != matches[1].Score {
		t.Fatalf("scores differ (%v vs %v), tie expected", matches[0].Score, matches[1].Score)
	}
}

func TestDomainDetector_Deterministic(t *testing.T) {
	d := NewDomainDetector()
	text := "patient payment portal for hospital billing and credit checks"

	first := d.Detect(text, "", "")
	for i := 0; i < 5; i++ {
		if again := d.Detect(text, "", ""); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged: %v vs %v", i, again, first)
		}
	}
}

func TestDomainDetector_ScansAllThreeFields(t *testing.T) {
	d := NewDomainDetector()

	matches := d.Detect("", "patient records for clinics", "hipaa")
	if len(matches) != 1 || matches[0].Domain != "healthcare" {
		t.Fatalf("matches = %v, want healthcare from features and constraints", matches)
	}
	if matches[0].Score != 0.42 {
		t.Errorf("Score = %v, want 0.42", matches[0].Score)
	}
}

func TestDomainDetector_EmptyText(t *testing.T) {
	d := NewDomainDetector()
	if matches := d.Detect("", "", ""); len(matches) != 0 {
		t.Errorf("matches = %v, want none for empty text", matches)
	}
}

func TestDomainDetector_CaseInsensitive(t *testing.T) {
	d := NewDomainDetector()

	lower := d.Detect("telemedicine hipaa patient", "", "")
	upper := d.Detect("TELEMEDICINE HIPAA Patient", "", "")
	if !reflect.DeepEqual(lower, upper) {
		t.Errorf("case changed the result: %v vs %v", upper, lower)
	}
}

func TestDomains_FixedTaxonomy(t *testing.T) {
	domains := Domains()
	if len(domains) != 10 {
		t.Fatalf("len(Domains()) = %d, want 10", len(domains))
	}
	if domains[0] != "healthcare" || domains[9] != "hrtech" {
		t.Errorf("taxonomy order changed: %v", domains)
	}

	// The returned slice is a copy.
	domains[0] = "mutated"
	if Domains()[0] != "healthcare" {
		t.Error("Domains() exposed internal state")
	}
}

func TestExpertAgentID(t *testing.T) {
	if got := ExpertAgentID("fintech"); got != "fintech_expert" {
		t.Errorf("ExpertAgentID = %s, want fintech_expert", got)
	}
}
