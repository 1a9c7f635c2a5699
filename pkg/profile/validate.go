package profile

import (
	"fmt"

	"github.com/praetorian-inc/framer/pkg/types"
)

// ValidateProfile checks profile consistency and required fields.
// Returns error if profile is invalid.
func ValidateProfile(p *types.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}

	if p.ID == "" {
		return fmt.Errorf("profile ID is required")
	}
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.Kind == "" {
		return fmt.Errorf("profile %s: kind is required", p.ID)
	}

	if _, err := NewFramer(p); err != nil {
		return fmt.Errorf("profile %s: %w", p.ID, err)
	}

	expectedID := p.ComputeStructuralID()
	if p.StructuralID != "" && p.StructuralID != expectedID {
		return fmt.Errorf("profile %s has inconsistent StructuralID: got %s, expected %s",
			p.ID, p.StructuralID, expectedID)
	}

	return nil
}

// CheckExamples frames each example stream in one chunk and fails unless
// every example yields at least one packet without a data error.
func CheckExamples(p *types.Profile) error {
	for i, example := range p.Examples {
		n, err := CountPackets(p, example)
		if err != nil {
			return fmt.Errorf("profile %s example %d: %w", p.ID, i, err)
		}
		if n == 0 {
			return fmt.Errorf("profile %s example %d: no packet framed", p.ID, i)
		}
	}
	return nil
}

// CountPackets frames data with a fresh framer for p and returns the
// number of packets it yields.
func CountPackets(p *types.Profile, data []byte) (int, error) {
	f, err := NewFramer(p)
	if err != nil {
		return 0, err
	}
	defer f.Dispose()

	const key = "example"
	if err := f.AddChannel(key); err != nil {
		return 0, err
	}

	n := 0
	_, err = f.Analyse(key, data, func(string, []byte) bool {
		n++
		return true
	})
	return n, err
}

// ValidateProfileSet checks profile set consistency and required fields.
// knownIDs is a map of valid profile IDs for reference checking.
func ValidateProfileSet(set *types.ProfileSet, knownIDs map[string]bool) error {
	if set == nil {
		return fmt.Errorf("profile set is nil")
	}

	if set.ID == "" {
		return fmt.Errorf("profile set ID is required")
	}
	if set.Name == "" {
		return fmt.Errorf("profile set name is required")
	}
	if len(set.ProfileIDs) == 0 {
		return fmt.Errorf("profile set %s must reference at least one profile", set.ID)
	}

	seen := make(map[string]bool)
	for _, id := range set.ProfileIDs {
		if knownIDs != nil && !knownIDs[id] {
			return fmt.Errorf("profile set %s references unknown profile ID: %s", set.ID, id)
		}
		if seen[id] {
			return fmt.Errorf("profile set %s contains duplicate profile ID: %s", set.ID, id)
		}
		seen[id] = true
	}

	return nil
}
