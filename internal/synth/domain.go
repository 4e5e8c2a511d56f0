package synth

import (
	"sort"
	"strings"

	"github.com/bobmatnyc/edgar-sub010/internal/patterns"
)

// DomainProfile carries the section-locating markers and content
// validation rules for domains whose documents embed the target data
// inside a larger body (a 10-K item inside a full filing, a line-item
// table inside an invoice).
type DomainProfile struct {
	Name string
	// SectionMarkers are literal strings whose first occurrence anchors
	// the relevant sub-section.
	SectionMarkers []string
	// RequiredKeywords must appear in a candidate document for the
	// artifact to accept it.
	RequiredKeywords []string
	// RejectedKeywords disqualify a candidate document outright.
	RejectedKeywords []string
}

// builtinProfiles returns the shipped domain profiles. Unknown domains
// fall back to the generic profile, which carries no markers.
func builtinProfiles() map[string]DomainProfile {
	return map[string]DomainProfile{
		"generic": {Name: "generic"},
		"filing": {
			Name: "filing",
			SectionMarkers: []string{
				"ITEM 1.",
				"ITEM 1A.",
				"ITEM 7.",
				"ITEM 8.",
				"MANAGEMENT'S DISCUSSION AND ANALYSIS",
			},
			RequiredKeywords: []string{
				"SECURITIES AND EXCHANGE COMMISSION",
			},
			RejectedKeywords: []string{
				"CONFIDENTIAL TREATMENT REQUESTED",
			},
		},
		"invoice": {
			Name:           "invoice",
			SectionMarkers: []string{"Invoice Number", "Bill To", "Total Due"},
			RequiredKeywords: []string{
				"invoice",
			},
			RejectedKeywords: []string{"estimate", "quotation"},
		},
	}
}

// deriveValidation extends a profile's keyword rules with structural
// hints from the examples: constant output strings are strong content
// signals for documents of the same kind.
func deriveValidation(profile DomainProfile, parsed *patterns.ParsedExamples) (required, rejected []string) {
	required = append(required, profile.RequiredKeywords...)
	rejected = append(rejected, profile.RejectedKeywords...)

	seen := make(map[string]bool, len(required))
	for _, k := range required {
		seen[k] = true
	}
	for _, p := range parsed.Patterns {
		if p.Kind != patterns.KindConstant {
			continue
		}
		for _, ex := range p.Examples {
			// Pattern examples render as "* -> value".
			if i := strings.Index(ex, "-> "); i >= 0 {
				v := strings.TrimSpace(ex[i+3:])
				if len(v) >= 4 && !seen[v] {
					seen[v] = true
					required = append(required, v)
				}
			}
		}
	}
	sort.Strings(required[len(profile.RequiredKeywords):])
	return required, rejected
}
