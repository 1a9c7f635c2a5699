package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/praetorian-inc/framer/pkg/store"
	"github.com/praetorian-inc/framer/pkg/types"
)

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
	reportPackets   int
)

// styles holds color formatters for the human report
type styles struct {
	channelHeading *color.Color
	key            *color.Color
	heading        *color.Color
	count          *color.Color
	payload        *color.Color
	metadata       *color.Color
}

// newStyles creates color formatters for report output
// enabled=false respects --color=never and NO_COLOR env var
func newStyles(enabled bool) *styles {
	s := &styles{
		channelHeading: color.New(color.Bold, color.FgHiWhite),
		key:            color.New(color.FgHiGreen),
		heading:        color.New(color.Bold),
		count:          color.New(color.FgHiBlue),
		payload:        color.New(color.FgYellow),
		metadata:       color.New(color.FgHiBlack),
	}

	if !enabled {
		s.channelHeading.DisableColor()
		s.key.DisableColor()
		s.heading.DisableColor()
		s.count.DisableColor()
		s.payload.DisableColor()
		s.metadata.DisableColor()
	}

	return s
}

// channelReport is the JSON shape of one channel.
type channelReport struct {
	types.ChannelStats
	Packets []*types.Packet `json:"sample,omitempty"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise a packet database",
	Long:  "Read stored packets and output per-channel statistics with sample packets",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", getEnv("FRAMER_DB", "framer.db"), "Path to packet database (env FRAMER_DB)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
	reportCmd.Flags().IntVar(&reportPackets, "packets", 3, "Sample packets shown per channel")
}

func runReport(cmd *cobra.Command, args []string) error {
	// Check if it's :memory: (invalid for report)
	if reportDatastore == store.MemoryPath {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if _, err := os.Stat(reportDatastore); err != nil {
		return fmt.Errorf("datastore not found: %s", reportDatastore)
	}

	s, err := store.New(store.Config{Path: reportDatastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	stats, err := s.ChannelStats()
	if err != nil {
		return fmt.Errorf("retrieving channel stats: %w", err)
	}

	reports := make([]channelReport, 0, len(stats))
	for _, st := range stats {
		r := channelReport{ChannelStats: st}
		if reportPackets > 0 {
			packets, err := s.GetPackets(st.Key)
			if err != nil {
				return fmt.Errorf("retrieving packets for %s: %w", st.Key, err)
			}
			if len(packets) > reportPackets {
				packets = packets[:reportPackets]
			}
			r.Packets = packets
		}
		reports = append(reports, r)
	}

	// Output based on format
	switch reportFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(reports)
	case "human":
		return outputReportHuman(cmd, reports)
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func outputReportHuman(cmd *cobra.Command, reports []channelReport) error {
	out := cmd.OutOrStdout()

	// Determine if colors should be enabled based on --color flag
	switch reportColor {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default: // "auto"
		// Check if stdout is a TTY and NO_COLOR is not set
		if !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != "" {
			color.NoColor = true
		} else {
			color.NoColor = false
		}
	}
	s := newStyles(!color.NoColor)

	if len(reports) == 0 {
		fmt.Fprintf(out, "No packets.\n")
		return nil
	}

	var totalPackets int
	var totalBytes int64
	for i, r := range reports {
		totalPackets += r.ChannelStats.Packets
		totalBytes += r.Bytes

		fmt.Fprintf(out, "%s (%s %s)\n",
			s.channelHeading.Sprintf("Channel %d/%d", i+1, len(reports)),
			s.heading.Sprint("key"),
			s.key.Sprint(r.Key))
		fmt.Fprintf(out, "%s %s  %s %s  %s %s\n",
			s.heading.Sprint("Packets:"), s.count.Sprint(r.ChannelStats.Packets),
			s.heading.Sprint("Bytes:"), s.count.Sprint(r.Bytes),
			s.heading.Sprint("Distinct:"), s.count.Sprint(r.Distinct))
		fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Span:"),
			s.metadata.Sprintf("%s .. %s", r.First.Format(time.RFC3339), r.Last.Format(time.RFC3339)))

		if len(r.Packets) > 0 && len(r.Packets) < r.ChannelStats.Packets {
			fmt.Fprintf(out, "Showing %d/%d packets:\n", len(r.Packets), r.ChannelStats.Packets)
		}
		for _, p := range r.Packets {
			fmt.Fprintf(out, "  %s %s\n",
				s.heading.Sprintf("#%d", p.Seq),
				s.metadata.Sprintf("(%d bytes, digest %s)", len(p.Data), p.Digest.Hex()[:12]))
			for _, line := range strings.Split(strings.TrimRight(hex.Dump(p.Data), "\n"), "\n") {
				if line == "" {
					continue
				}
				fmt.Fprintf(out, "    %s\n", s.payload.Sprint(line))
			}
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d packets (%d bytes) across %d channels\n", totalPackets, totalBytes, len(reports))
	return nil
}
