package service

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// Detector defaults.
const (
	DefaultConfidenceThreshold = 0.3
	DefaultMaxExperts          = 3
)

// domainOrder fixes the taxonomy ordering used for tie-breaking.
var domainOrder = []string{
	"healthcare",
	"finance",
	"ecommerce",
	"edtech",
	"iot",
	"gaming",
	"social",
	"legaltech",
	"logistics",
	"hrtech",
}

var domainKeywords = map[string][]string{
	"healthcare": {
		"health", "medical", "patient", "clinical", "hospital",
		"diagnosis", "treatment", "hipaa", "ehr", "emr", "healthcare",
		"doctor", "nurse", "prescription", "pharmacy", "telemedicine",
	},
	"finance": {
		"bank", "banking", "payment", "transaction", "trading",
		"stock", "investment", "loan", "credit", "debit", "fintech",
		"pci", "sox", "financial", "money", "wallet", "ledger",
	},
	"ecommerce": {
		"shop", "shopping", "cart", "checkout", "product", "catalog",
		"order", "inventory", "ecommerce", "store", "merchant",
		"customer", "purchase", "retail",
	},
	"edtech": {
		"learning", "course", "student", "education", "school",
		"university", "lms", "training", "curriculum", "assessment",
		"grade", "classroom", "teacher", "ferpa",
	},
	"iot": {
		"sensor", "device", "embedded", "telemetry", "iot",
		"connected", "smart", "mqtt", "edge", "firmware",
		"gateway", "actuator",
	},
	"gaming": {
		"game", "gaming", "player", "multiplayer", "score",
		"level", "match", "leaderboard", "realtime", "lobby",
	},
	"social": {
		"social", "feed", "post", "community", "follow",
		"like", "share", "comment", "friend", "network",
		"timeline", "notification",
	},
	"legaltech": {
		"contract", "legal", "compliance", "document", "attorney",
		"law", "signature", "esign", "clause", "agreement", "regulation",
	},
	"logistics": {
		"shipping", "tracking", "warehouse", "delivery", "logistics",
		"supply chain", "fleet", "route", "carrier", "freight", "package",
	},
	"hrtech": {
		"employee", "hiring", "payroll", "hr", "recruitment",
		"onboarding", "benefits", "performance", "applicant",
		"workforce", "talent",
	},
}

// DomainDetector scores project text against domain keyword sets and
// returns the strongest matches for expert activation.
type DomainDetector struct {
	threshold  float64
	maxExperts int
	patterns   map[string][]*regexp.Regexp
}

// DetectorOption configures a DomainDetector.
type DetectorOption func(*DomainDetector)

// WithThreshold overrides the minimum confidence score.
func WithThreshold(t float64) DetectorOption {
	return func(d *DomainDetector) {
		if t > 0 {
			d.threshold = t
		}
	}
}

// WithMaxExperts overrides how many experts may activate.
func WithMaxExperts(n int) DetectorOption {
	return func(d *DomainDetector) {
		if n > 0 {
			d.maxExperts = n
		}
	}
}

// NewDomainDetector creates a detector with patterns compiled once.
func NewDomainDetector(opts ...DetectorOption) *DomainDetector {
	d := &DomainDetector{
		threshold:  DefaultConfidenceThreshold,
		maxExperts: DefaultMaxExperts,
		patterns:   make(map[string][]*regexp.Regexp, len(domainKeywords)),
	}
	for domain, keywords := range domainKeywords {
		compiled := make([]*regexp.Regexp, len(keywords))
		for i, kw := range keywords {
			// Word-boundary matching: a keyword inside a longer word must
			// not count ("bank" in "embankment").
			compiled[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
		d.patterns[domain] = compiled
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect analyzes the project text and returns activated domains ordered by
// confidence, strongest first, truncated to the expert limit. Ties keep the
// fixed taxonomy order.
func (d *DomainDetector) Detect(overview, features, constraints string) []core.ExpertMatch {
	combined := strings.ToLower(overview + " " + features + " " + constraints)

	matches := make([]core.ExpertMatch, 0, d.maxExperts)
	for _, domain := range domainOrder {
		score := d.score(combined, domain)
		if score >= d.threshold {
			matches = append(matches, core.ExpertMatch{
				Domain:  domain,
				AgentID: ExpertAgentID(domain),
				Score:   score,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > d.maxExperts {
		matches = matches[:d.maxExperts]
	}
	return matches
}

// score counts word-boundary keyword hits and normalizes so that matching
// 30% of a domain's keywords already yields full confidence.
func (d *DomainDetector) score(text, domain string) float64 {
	patterns := d.patterns[domain]
	if len(patterns) == 0 {
		return 0
	}

	hits := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			hits++
		}
	}

	score := math.Min(float64(hits)/(float64(len(patterns))*0.3), 1.0)
	return math.Round(score*100) / 100
}

// ExpertAgentID maps a domain to its expert agent id.
func ExpertAgentID(domain string) string {
	return domain + "_expert"
}

// Domains returns the known domain taxonomy in fixed order.
func Domains() []string {
	return append([]string(nil), domainOrder...)
}
