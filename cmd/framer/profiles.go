package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/framer/pkg/prefilter"
	"github.com/praetorian-inc/framer/pkg/profile"
	"github.com/praetorian-inc/framer/pkg/types"
)

// autoProfile selects a profile by detection keywords.
const autoProfile = "auto"

var (
	profilesPath    string
	profilesInclude string
	profilesExclude string
	profilesSet     string
	outputFormat    string
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage framing profiles",
	Long:  "Commands for listing and checking framing profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	Long:  "Display all available framing profiles with their IDs, names and strategies",
	RunE:  runProfilesList,
}

var profilesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate profiles and frame their examples",
	RunE:  runProfilesCheck,
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesCheckCmd)
	profilesCmd.PersistentFlags().StringVar(&profilesPath, "profiles", "", "Path to custom profiles file or directory")
	profilesCmd.PersistentFlags().StringVar(&profilesInclude, "profiles-include", "", "Include profiles matching regex pattern (comma-separated)")
	profilesCmd.PersistentFlags().StringVar(&profilesExclude, "profiles-exclude", "", "Exclude profiles matching regex pattern (comma-separated)")
	profilesCmd.PersistentFlags().StringVar(&profilesSet, "set", "", "Restrict to a builtin profile set")
	profilesListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	profiles, err := loadProfiles(profilesPath, profilesInclude, profilesExclude, profilesSet)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	// Output based on format
	switch outputFormat {
	case "json":
		return outputProfilesJSON(cmd, profiles)
	case "table":
		return outputProfilesTable(cmd, profiles)
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
}

func runProfilesCheck(cmd *cobra.Command, args []string) error {
	profiles, err := loadProfiles(profilesPath, profilesInclude, profilesExclude, profilesSet)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	failed := 0
	for _, p := range profiles {
		err := profile.ValidateProfile(p)
		if err == nil {
			err = profile.CheckExamples(p)
		}
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", p.ID, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d examples)\n", p.ID, len(p.Examples))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d profiles failed validation", failed, len(profiles))
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// loadProfiles loads custom or builtin profiles, then applies the profile
// set and include/exclude filters.
func loadProfiles(path, include, exclude, set string) ([]*types.Profile, error) {
	loader := profile.NewLoader()

	var profiles []*types.Profile
	var err error

	if path != "" {
		profiles, err = loader.LoadProfileFile(path)
	} else {
		profiles, err = loader.LoadBuiltinProfiles()
	}
	if err != nil {
		return nil, err
	}

	if set != "" {
		sets, err := loader.LoadBuiltinProfileSets()
		if err != nil {
			return nil, err
		}
		var selected *types.ProfileSet
		for _, s := range sets {
			if s.ID == set {
				selected = s
				break
			}
		}
		if selected == nil {
			return nil, fmt.Errorf("unknown profile set: %s", set)
		}
		profiles, err = profile.Select(profiles, selected)
		if err != nil {
			return nil, err
		}
	}

	// Apply filtering if patterns specified
	if include != "" || exclude != "" {
		config := profile.FilterConfig{
			Include: profile.ParsePatterns(include),
			Exclude: profile.ParsePatterns(exclude),
		}
		profiles, err = profile.Filter(profiles, config)
		if err != nil {
			return nil, fmt.Errorf("filtering profiles: %w", err)
		}
	}

	return profiles, nil
}

// resolveProfile finds id among the loaded profiles. The short form
// "jt808" matches "framer.jt808".
func resolveProfile(id, path string) (*types.Profile, error) {
	if id == "" {
		return nil, fmt.Errorf("a profile is required (see 'framer profiles list')")
	}
	profiles, err := loadProfiles(path, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	p, ok := profile.Find(profiles, id)
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", id)
	}
	return p, nil
}

// detectProfile picks the profile whose keywords best match head.
func detectProfile(head []byte, path string) (*types.Profile, error) {
	profiles, err := loadProfiles(path, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	p, ok := prefilter.New(profiles).Detect(head)
	if !ok {
		return nil, fmt.Errorf("no profile keywords found in the first %d bytes; pass --profile", len(head))
	}
	return p, nil
}

func outputProfilesJSON(cmd *cobra.Command, profiles []*types.Profile) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(profiles)
}

func outputProfilesTable(cmd *cobra.Command, profiles []*types.Profile) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID\tKind\tName\tCategories\n")
	fmt.Fprintf(w, "--\t----\t----\t----------\n")

	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Kind, p.Name, strings.Join(p.Categories, ","))
	}

	return nil
}
