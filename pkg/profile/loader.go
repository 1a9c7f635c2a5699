package profile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/framer/pkg/types"
	"gopkg.in/yaml.v3"
)

// Loader handles loading profiles from YAML files.
type Loader struct {
	fs fs.FS // embedded filesystem for built-in profiles
}

// NewLoader creates a loader with built-in profiles from the embedded filesystem.
func NewLoader() *Loader {
	return &Loader{
		fs: builtinFS,
	}
}

// NewLoaderWithFS creates a loader with a custom filesystem laid out like
// the built-in one (profiles/*.yml, profilesets/*.yml).
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{
		fs: fsys,
	}
}

// LoadProfile loads a single profile from YAML bytes.
// Returns error if YAML is invalid or multiple profiles are present.
func (l *Loader) LoadProfile(data []byte) (*types.Profile, error) {
	profiles, err := l.LoadProfiles(data)
	if err != nil {
		return nil, err
	}
	if len(profiles) > 1 {
		return nil, fmt.Errorf("expected single profile, found %d", len(profiles))
	}
	return profiles[0], nil
}

// LoadProfiles loads every profile from YAML bytes.
func (l *Loader) LoadProfiles(data []byte) ([]*types.Profile, error) {
	var yamlFile yamlProfilesFile
	if err := yaml.Unmarshal(data, &yamlFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(yamlFile.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles found in YAML")
	}

	profiles := make([]*types.Profile, 0, len(yamlFile.Profiles))
	for _, yp := range yamlFile.Profiles {
		p, err := convertYAMLProfile(yp)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// LoadProfileFile loads the profiles in a YAML file.
func (l *Loader) LoadProfileFile(path string) ([]*types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	profiles, err := l.LoadProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profiles, nil
}

// LoadProfileSet loads a profile set from YAML bytes.
// Returns error if YAML is invalid or multiple sets are present.
func (l *Loader) LoadProfileSet(data []byte) (*types.ProfileSet, error) {
	var yamlFile yamlProfileSetsFile
	if err := yaml.Unmarshal(data, &yamlFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(yamlFile.ProfileSets) == 0 {
		return nil, fmt.Errorf("no profile sets found in YAML")
	}
	if len(yamlFile.ProfileSets) > 1 {
		return nil, fmt.Errorf("expected single profile set, found %d", len(yamlFile.ProfileSets))
	}

	return convertYAMLProfileSet(yamlFile.ProfileSets[0]), nil
}

// LoadBuiltinProfiles loads all built-in profiles from the embedded filesystem.
func (l *Loader) LoadBuiltinProfiles() ([]*types.Profile, error) {
	var profiles []*types.Profile

	err := l.walk("profiles", func(path string, data []byte) error {
		var yamlFile yamlProfilesFile
		if err := yaml.Unmarshal(data, &yamlFile); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		for _, yp := range yamlFile.Profiles {
			p, err := convertYAMLProfile(yp)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			profiles = append(profiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// LoadBuiltinProfileSets loads all built-in profile sets.
func (l *Loader) LoadBuiltinProfileSets() ([]*types.ProfileSet, error) {
	var sets []*types.ProfileSet

	err := l.walk("profilesets", func(path string, data []byte) error {
		var yamlFile yamlProfileSetsFile
		if err := yaml.Unmarshal(data, &yamlFile); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		for _, ys := range yamlFile.ProfileSets {
			sets = append(sets, convertYAMLProfileSet(ys))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sets, nil
}

func (l *Loader) walk(dir string, fn func(path string, data []byte) error) error {
	return fs.WalkDir(l.fs, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(l.fs, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return fn(path, data)
	})
}

// convertYAMLProfile converts yamlProfile to types.Profile and computes StructuralID.
func convertYAMLProfile(yp yamlProfile) (*types.Profile, error) {
	p := &types.Profile{
		ID:          yp.ID,
		Name:        yp.Name,
		Description: yp.Description,
		Kind:        yp.Kind,
		Algorithm:   yp.Algorithm,
		PacketSize:  yp.PacketSize,
		Capacity:    yp.Capacity,
		MaxSize:     yp.MaxSize,
		References:  yp.References,
		Categories:  yp.Categories,
	}

	var err error
	if p.Terminator, err = DecodeBytes(yp.Terminator); err != nil {
		return nil, fmt.Errorf("profile %s terminator: %w", yp.ID, err)
	}
	if p.Start, err = DecodeBytes(yp.Start); err != nil {
		return nil, fmt.Errorf("profile %s start: %w", yp.ID, err)
	}
	if p.End, err = DecodeBytes(yp.End); err != nil {
		return nil, fmt.Errorf("profile %s end: %w", yp.ID, err)
	}
	if p.Keywords, err = decodeAll(yp.Keywords); err != nil {
		return nil, fmt.Errorf("profile %s keywords: %w", yp.ID, err)
	}
	if p.Examples, err = decodeAll(yp.Examples); err != nil {
		return nil, fmt.Errorf("profile %s examples: %w", yp.ID, err)
	}

	if yh := yp.Header; yh != nil {
		magic, err := DecodeBytes(yh.Magic)
		if err != nil {
			return nil, fmt.Errorf("profile %s header magic: %w", yp.ID, err)
		}
		p.Header = &types.Header{
			Size:          yh.Size,
			MaxPacketSize: yh.MaxPacketSize,
			LengthOffset:  yh.LengthOffset,
			LengthSize:    yh.LengthSize,
			BigEndian:     yh.BigEndian,
			Adjust:        yh.Adjust,
			Magic:         magic,
			StripHeader:   yh.StripHeader,
		}
	}

	p.StructuralID = p.ComputeStructuralID()
	return p, nil
}

// convertYAMLProfileSet converts yamlProfileSet to types.ProfileSet.
func convertYAMLProfileSet(ys yamlProfileSet) *types.ProfileSet {
	return &types.ProfileSet{
		ID:          ys.ID,
		Name:        ys.Name,
		Description: ys.Description,
		ProfileIDs:  ys.ProfileIDs,
	}
}
