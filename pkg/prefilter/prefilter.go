// Package prefilter detects which framing profile a captured stream speaks,
// using Aho-Corasick over the profiles' keywords.
package prefilter

import (
	"github.com/cloudflare/ahocorasick"
	"github.com/praetorian-inc/framer/pkg/types"
)

// Prefilter uses Aho-Corasick for efficient keyword matching. It is safe
// for concurrent use once built.
type Prefilter struct {
	matcher           *ahocorasick.Matcher
	keywords          [][]byte                    // keyword at each index
	keywordProfiles   map[string][]*types.Profile // keyword -> profiles announcing it
	noKeywordProfiles []*types.Profile            // profiles without keywords (always candidates)
	order             map[*types.Profile]int
}

// New creates a prefilter from profiles.
func New(profiles []*types.Profile) *Prefilter {
	pf := &Prefilter{
		keywordProfiles:   make(map[string][]*types.Profile),
		noKeywordProfiles: make([]*types.Profile, 0),
		order:             make(map[*types.Profile]int, len(profiles)),
	}

	keywordSet := make(map[string]bool)
	for i, p := range profiles {
		pf.order[p] = i
		if len(p.Keywords) == 0 {
			pf.noKeywordProfiles = append(pf.noKeywordProfiles, p)
			continue
		}
		for _, keyword := range p.Keywords {
			k := string(keyword)
			if !keywordSet[k] {
				keywordSet[k] = true
				pf.keywords = append(pf.keywords, keyword)
			}
			pf.keywordProfiles[k] = append(pf.keywordProfiles[k], p)
		}
	}

	if len(pf.keywords) > 0 {
		pf.matcher = ahocorasick.NewMatcher(pf.keywords)
	}

	return pf
}

// Filter returns the profiles that might describe content: those whose
// keywords occur in it, followed by those without keywords.
func (pf *Prefilter) Filter(content []byte) []*types.Profile {
	result := make([]*types.Profile, 0, len(pf.noKeywordProfiles))
	seen := make(map[*types.Profile]bool)

	for _, p := range pf.ranked(content) {
		seen[p] = true
		result = append(result, p)
	}
	for _, p := range pf.noKeywordProfiles {
		if !seen[p] {
			result = append(result, p)
		}
	}
	return result
}

// Detect returns the profile with the most distinct keywords present in
// content. Ties go to the profile listed first. Profiles without keywords
// are never detected.
func (pf *Prefilter) Detect(content []byte) (*types.Profile, bool) {
	ranked := pf.ranked(content)
	if len(ranked) == 0 {
		return nil, false
	}
	return ranked[0], true
}

// ranked returns keyword-matching profiles, best first.
func (pf *Prefilter) ranked(content []byte) []*types.Profile {
	if pf.matcher == nil {
		return nil
	}

	scores := make(map[*types.Profile]int)
	var hit []*types.Profile
	for _, i := range pf.matcher.MatchThreadSafe(content) {
		for _, p := range pf.keywordProfiles[string(pf.keywords[i])] {
			if scores[p] == 0 {
				hit = append(hit, p)
			}
			scores[p]++
		}
	}

	// Insertion sort: the candidate list is a handful of profiles.
	for i := 1; i < len(hit); i++ {
		for j := i; j > 0 && pf.better(hit[j], hit[j-1], scores); j-- {
			hit[j], hit[j-1] = hit[j-1], hit[j]
		}
	}
	return hit
}

func (pf *Prefilter) better(a, b *types.Profile, scores map[*types.Profile]int) bool {
	if scores[a] != scores[b] {
		return scores[a] > scores[b]
	}
	return pf.order[a] < pf.order[b]
}
