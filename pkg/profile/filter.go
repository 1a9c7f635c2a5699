package profile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/framer/pkg/types"
)

// FilterConfig specifies include and exclude patterns for profile filtering.
type FilterConfig struct {
	Include []string // Regex patterns - only matching profiles included
	Exclude []string // Regex patterns - matching profiles excluded
}

// ParsePatterns splits a comma-separated string into individual patterns.
// Patterns are trimmed of whitespace.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include and exclude patterns to profile IDs.
// Include is applied first, then exclude. Empty include means "include all".
func Filter(profiles []*types.Profile, config FilterConfig) ([]*types.Profile, error) {
	if len(profiles) == 0 {
		return profiles, nil
	}

	include, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	result := make([]*types.Profile, 0, len(profiles))
	for _, p := range profiles {
		if len(include) > 0 && !matchesAny(p.ID, include) {
			continue
		}
		if matchesAny(p.ID, exclude) {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

// Select returns the profiles named by set, in set order.
func Select(profiles []*types.Profile, set *types.ProfileSet) ([]*types.Profile, error) {
	byID := make(map[string]*types.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	result := make([]*types.Profile, 0, len(set.ProfileIDs))
	for _, id := range set.ProfileIDs {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("profile set %s references unknown profile ID: %s", set.ID, id)
		}
		result = append(result, p)
	}
	return result, nil
}

// Find returns the profile whose ID equals id, or whose ID ends in "."+id,
// so "jt808" finds "framer.jt808".
func Find(profiles []*types.Profile, id string) (*types.Profile, bool) {
	for _, p := range profiles {
		if p.ID == id {
			return p, true
		}
	}
	for _, p := range profiles {
		if strings.HasSuffix(p.ID, "."+id) {
			return p, true
		}
	}
	return nil, false
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var regexes []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

func matchesAny(id string, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}
