// Command forensicctl is the regulator/forensic console's offline
// companion (§4.9): it drives internal/forensic directly against the
// on-disk snapshot store, without going through the gRPC regulator
// channel, for operators who need to inspect or export evidence from a
// shell rather than a connected client.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/config"
	"github.com/nlogistics/control-tower/internal/forensic"
	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// toolset bundles the forensic collaborators every subcommand needs,
// built once from the same on-disk snapshot store towerd writes to.
type toolset struct {
	store    *snapshot.Store
	detector *integrity.Detector
	replayer *forensic.Replayer
	timeline *forensic.TimelineBuilder
	exporter *forensic.Exporter
}

func buildToolset() (*toolset, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	signer, err := snapshot.NewSigner(cfg.SnapshotSigningKey, cfg.DevModeAllowed())
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}

	store, err := snapshot.Open(filepath.Join(cfg.DataDir, "snapshots"), signer, logger)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	detector := integrity.New(store, signer)
	replayer := forensic.New(store, detector)
	timeline := forensic.NewTimelineBuilder(replayer, detector)
	exporter := forensic.NewExporter(replayer, detector, timeline, store, time.Now)

	return &toolset{
		store:    store,
		detector: detector,
		replayer: replayer,
		timeline: timeline,
		exporter: exporter,
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "forensicctl",
		Short: "Inspect and export compliance snapshots directly from disk",
		Long: `forensicctl reads the same on-disk snapshot store as towerd and drives
internal/forensic's replay, timeline, and evidence export engines (§4.9)
without requiring a live gRPC regulator session.`,
	}

	root.AddCommand(newReplayCmd(), newTimelineCmd(), newExportCmd())
	return root
}

func newReplayCmd() *cobra.Command {
	var atTimestamp int64

	cmd := &cobra.Command{
		Use:   "replay <snapshot-family>",
		Short: "Replay a snapshot, refusing to proceed if it is not INTACT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := buildToolset()
			if err != nil {
				return err
			}

			var at *int64
			if atTimestamp != 0 {
				at = &atTimestamp
			}

			replay, err := tools.replayer.ReplaySnapshot(args[0], at)
			if err != nil {
				return fmt.Errorf("replay failed: %w", err)
			}

			fmt.Printf("snapshot:   %s\n", replay.Name)
			fmt.Printf("integrity:  %s\n", replay.IntegrityStatus)
			fmt.Printf("timestamp:  %d\n", replay.Timestamp)
			fmt.Printf("content:    %v\n", replay.Content)
			return nil
		},
	}

	cmd.Flags().Int64Var(&atTimestamp, "at", 0, "replay as of this unix timestamp (must be >= the snapshot's own timestamp)")
	return cmd
}

func newTimelineCmd() *cobra.Command {
	var families []string

	cmd := &cobra.Command{
		Use:   "timeline <snapshot-family>",
		Short: "Print the incident timeline for one or more snapshot families",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := buildToolset()
			if err != nil {
				return err
			}

			var entries []forensic.Entry
			switch {
			case len(families) > 0:
				entries = tools.timeline.BuildMulti(families)
			case len(args) == 1:
				entries = tools.timeline.Build(args[0], true)
			default:
				return fmt.Errorf("specify a snapshot family or --families")
			}

			fmt.Print(forensic.ExportText(entries))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&families, "families", nil, "comma-separated snapshot families to merge into one timeline")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		format          string
		includeTimeline bool
		outPath         string
		many            []string
	)

	cmd := &cobra.Command{
		Use:   "export <snapshot-family>",
		Short: "Export a legal evidence package for one or more snapshot families",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := buildToolset()
			if err != nil {
				return err
			}

			var (
				data []byte
				name string
			)
			switch {
			case len(many) > 0:
				data, err = tools.exporter.ExportMany(many, includeTimeline)
				name = "evidence-bundle"
			case len(args) == 1:
				data, err = tools.exporter.Export(args[0], forensic.Format(format), includeTimeline)
				name = args[0]
			default:
				return fmt.Errorf("specify a snapshot family or --many")
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if outPath == "" {
				outPath = defaultExportPath(name, format, len(many) > 0)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}

			fmt.Printf("wrote %d bytes to %s\n", len(data), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "zip", "export format: zip, json, or csv")
	cmd.Flags().BoolVar(&includeTimeline, "timeline", true, "include incident_timeline.txt in the export")
	cmd.Flags().StringVar(&outPath, "out", "", "output file path (default: <name>.<ext> in the current directory)")
	cmd.Flags().StringSliceVar(&many, "many", nil, "comma-separated snapshot families to export as one combined zip bundle")
	return cmd
}

func defaultExportPath(name, format string, bundle bool) string {
	if bundle {
		return name + ".zip"
	}
	return name + "." + format
}
