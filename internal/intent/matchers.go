// Package intent classifies raw chat messages with deterministic keyword and
// pattern predicates. Nothing here is statistical: the same text always
// produces the same answer.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Result-count bounds for location searches.
const (
	DefaultResultCount = 10
	MinResultCount     = 1
	MaxResultCount     = 20
)

var (
	pharmacyPattern = regexp.MustCompile(`(?i)\b(pharmac(y|ies|ist|ists)|drug\s?stores?|chemists?|apothecar(y|ies))\b`)
	followupPattern = regexp.MustCompile(`(?i)\b(closest|nearest|nearby|more)\b`)
	postalPattern   = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	countPattern    = regexp.MustCompile(`\b\d{1,2}\b`)
)

// healthTerms covers medications, symptoms and conditions. Multi-word terms
// tolerate any run of whitespace between words.
var healthTerms = []string{
	// medications
	`acetaminophen`, `tylenol`, `ibuprofen`, `advil`, `motrin`, `naproxen`, `aleve`, `aspirin`,
	`amoxicillin`, `azithromycin`, `penicillin`, `antibiotics?`, `antihistamines?`, `benadryl`,
	`claritin`, `zyrtec`, `loratadine`, `cetirizine`, `metformin`, `insulin`, `lisinopril`,
	`atorvastatin`, `statins?`, `omeprazole`, `prilosec`, `levothyroxine`, `prednisone`,
	`sertraline`, `zoloft`, `melatonin`, `vaccines?`, `medications?`, `medicines?`, `dosage`, `dose`,
	`side\s+effects?`,
	// symptoms
	`fever`, `headaches?`, `migraines?`, `cough(ing)?`, `sore\s+throat`, `nausea`, `vomiting`,
	`diarrh(o)?ea`, `rash(es)?`, `dizz(y|iness)`, `fatigue`, `chest\s+pain`, `shortness\s+of\s+breath`,
	`congestion`, `runny\s+nose`, `itch(y|ing)?`, `swelling`, `insomnia`, `pain`,
	// conditions
	`diabetes`, `hypertension`, `high\s+blood\s+pressure`, `asthma`, `flu`, `influenza`, `covid(-19)?`,
	`cold`, `allerg(y|ies)`, `infections?`, `arthritis`, `depression`, `anxiety`, `cholesterol`,
	`eczema`, `strep`, `pneumonia`, `bronchitis`, `uti`,
}

var healthPattern = compileTerms(healthTerms)

func compileTerms(terms []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(terms, "|") + `)\b`)
}

// HasPharmacyIntent reports whether text names a pharmacy or one of its synonyms.
func HasPharmacyIntent(text string) bool {
	return pharmacyPattern.MatchString(text)
}

// HasFollowupIntent reports whether text continues a location search without
// repeating the keyword ("nearest?", "show me more").
func HasFollowupIntent(text string) bool {
	return followupPattern.MatchString(text)
}

// HasLocationIntent is the union used by the router for the POI branches.
func HasLocationIntent(text string) bool {
	return HasPharmacyIntent(text) || HasFollowupIntent(text)
}

// ExtractPostalCode returns the first US ZIP (5 digits, optionally ZIP+4).
func ExtractPostalCode(text string) (string, bool) {
	match := postalPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// ExtractRequestedCount returns the first standalone 1-2 digit number clamped
// to [MinResultCount, MaxResultCount], or def when none is present.
func ExtractRequestedCount(text string, def int) int {
	match := countPattern.FindString(text)
	if match == "" {
		return def
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return def
	}
	return ClampCount(n)
}

// ClampCount bounds n to the supported result range.
func ClampCount(n int) int {
	if n < MinResultCount {
		return MinResultCount
	}
	if n > MaxResultCount {
		return MaxResultCount
	}
	return n
}

// HasHealthIntent reports a medication, symptom or condition mention.
// Pharmacy intent wins: "which pharmacy has flu shots" is a location question.
func HasHealthIntent(text string) bool {
	if HasPharmacyIntent(text) {
		return false
	}
	return healthPattern.MatchString(text)
}

// MatchedHealthTerms lists the distinct health vocabulary hits, in order.
func MatchedHealthTerms(text string) []string {
	matches := healthPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
