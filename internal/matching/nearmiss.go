package matching

import (
	"sort"
	"strings"
)

// NearMiss is a route rule that came close to matching a path.
type NearMiss struct {
	Rule  string `json:"rule"`
	Score int    `json:"score"`
	// Reason says what did not match.
	Reason string `json:"reason"`
}

// Scores used to rank near misses. A literal segment counts more than a
// dynamic one so that /user/<name> beats /<page>/<name> for /user/.
const (
	scoreLiteralSegment = 3
	scoreDynamicSegment = 1
	scoreMethodOnly     = 100
)

// NearMisses returns up to limit patterns that almost match path, best first.
// A pattern whose path matches but whose method did not is reported with the
// highest score. Patterns that share no segment with path are skipped.
func NearMisses(path string, patterns []*Pattern, methodMismatch func(*Pattern) bool, limit int) []NearMiss {
	parts := splitPath(path)

	var misses []NearMiss
	for _, p := range patterns {
		if _, ok := p.Match(path); ok {
			if methodMismatch != nil && methodMismatch(p) {
				misses = append(misses, NearMiss{Rule: p.rule, Score: scoreMethodOnly, Reason: "method not allowed"})
			}
			continue
		}

		score, reason := p.closeness(parts)
		if score > 0 {
			misses = append(misses, NearMiss{Rule: p.rule, Score: score, Reason: reason})
		}
	}

	sort.SliceStable(misses, func(i, j int) bool {
		return misses[i].Score > misses[j].Score
	})
	if limit > 0 && len(misses) > limit {
		misses = misses[:limit]
	}
	return misses
}

// closeness scores how many leading path segments the pattern accepts.
func (p *Pattern) closeness(parts []string) (int, string) {
	rules := splitPath(p.rule)
	score := 0
	for i, rule := range rules {
		if i >= len(parts) {
			return score, "path is shorter than the rule"
		}
		if strings.ContainsRune(rule, '<') {
			// A single dynamic segment can be checked on its own.
			seg, err := Compile("/" + rule)
			if err != nil {
				return score, "segment " + rule + " differs"
			}
			if _, ok := seg.Match("/" + parts[i]); !ok {
				return score, "segment " + parts[i] + " does not fit " + rule
			}
			score += scoreDynamicSegment
			continue
		}
		if rule != parts[i] {
			return score, "segment " + parts[i] + " differs from " + rule
		}
		score += scoreLiteralSegment
	}
	if len(parts) > len(rules) {
		return score, "path is longer than the rule"
	}
	return score, "trailing slash differs"
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
