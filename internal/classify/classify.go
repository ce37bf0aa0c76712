// Package classify evaluates a chat message against a rule set and returns a
// single verdict. Evaluation is stateless: the same rule set and message
// always produce the same verdict, so classification is safe to run from any
// number of goroutines concurrently.
package classify

import "github.com/chatguard/moderation/internal/rules"

// Tier is the severity level assigned to a message. Exactly one tier applies
// per message.
type Tier int

const (
	TierAllowed Tier = iota
	TierFiltered
	TierSevere
	TierCritical
)

// String returns the tier name used in logs, metrics labels, and audit rows.
func (t Tier) String() string {
	switch t {
	case TierAllowed:
		return "allowed"
	case TierFiltered:
		return "filtered"
	case TierSevere:
		return "severe"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Verdict is the classification outcome for one message.
type Verdict struct {
	Tier   Tier
	Text   string // original text, or the redacted text for TierFiltered
	Reason string // human-readable reason for severe/critical verdicts
	Term   string // the matched word or keyword, empty for allowed/address hits
}

// Flags controls which tiers are evaluated. Each tier is independently
// toggleable; a disabled Moderation flag short-circuits everything.
type Flags struct {
	Moderation bool
	Critical   bool
	Severe     bool
	Profanity  bool
}

// Classify evaluates text against set in fixed tier order:
// critical (address, then doxing keywords), severe, profanity, allowed.
// The first matching tier wins; critical and severe checks run before any
// profanity redaction so a message carrying both a severe word and profanity
// is blocked outright rather than partially redacted.
func Classify(set *rules.Set, text string, flags Flags) Verdict {
	if !flags.Moderation {
		return Verdict{Tier: TierAllowed, Text: text}
	}

	if flags.Critical {
		if set.MatchAddress(text) {
			return Verdict{
				Tier:   TierCritical,
				Text:   text,
				Reason: "address detected",
			}
		}
		if kw := set.MatchDoxing(text); kw != "" {
			return Verdict{
				Tier:   TierCritical,
				Text:   text,
				Reason: "keyword detected: " + kw,
				Term:   kw,
			}
		}
	}

	if flags.Severe {
		for _, rule := range set.Severe {
			if rule.Match(text) {
				return Verdict{
					Tier:   TierSevere,
					Text:   text,
					Reason: "word: " + rule.Word,
					Term:   rule.Word,
				}
			}
		}
	}

	if flags.Profanity {
		redacted := text
		any := false
		for _, rule := range set.Profanity {
			var changed bool
			redacted, changed = rule.Redact(redacted, set.Replacement)
			any = any || changed
		}
		if any {
			return Verdict{Tier: TierFiltered, Text: redacted}
		}
	}

	return Verdict{Tier: TierAllowed, Text: text}
}
