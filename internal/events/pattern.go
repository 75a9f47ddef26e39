// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"strings"
)

// Pattern selects event types. A pattern is one or more comma separated
// alternatives; each alternative is a dotted type where "*" stands for one
// segment, or for all remaining segments when it comes last. A lone "*"
// matches every type.
//
//	sync.*                 sync.confirmed, sync.rolled_back
//	*.purged               case.purged
//	case.deleted,notice.*  either
type Pattern struct {
	alts [][]string
}

// ParsePattern compiles s.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	if strings.TrimSpace(s) == "" {
		return p, fmt.Errorf("empty pattern")
	}
	for _, alt := range strings.Split(s, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			return Pattern{}, fmt.Errorf("pattern %q has an empty alternative", s)
		}
		segs := strings.Split(alt, ".")
		for _, seg := range segs {
			if seg == "" {
				return Pattern{}, fmt.Errorf("pattern %q has an empty segment", s)
			}
			if seg != "*" && strings.Contains(seg, "*") {
				return Pattern{}, fmt.Errorf("pattern %q: wildcard must fill a whole segment", s)
			}
		}
		p.alts = append(p.alts, segs)
	}
	return p, nil
}

// Match reports whether eventType is selected.
func (p Pattern) Match(eventType string) bool {
	if eventType == "" {
		return false
	}
	segs := strings.Split(eventType, ".")
	for _, alt := range p.alts {
		if matchSegments(alt, segs) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, segs []string) bool {
	for i, want := range pattern {
		if i >= len(segs) {
			return false
		}
		if want == "*" && i == len(pattern)-1 {
			return true
		}
		if want != "*" && want != segs[i] {
			return false
		}
	}
	return len(pattern) == len(segs)
}

// MatchPattern reports whether eventType is selected by pattern. An invalid
// pattern selects nothing.
func MatchPattern(eventType, pattern string) bool {
	p, err := ParsePattern(pattern)
	if err != nil {
		return false
	}
	return p.Match(eventType)
}
