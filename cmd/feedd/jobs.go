package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/habbo-feed/internal/service"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
)

func newTrackCmd(cfgPath *string) *cobra.Command {
	var hotel string
	cmd := &cobra.Command{
		Use:   "track <viewer-id>...",
		Short: "Fetch friend snapshots once and record new activity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			var failed int
			for _, viewer := range args {
				res, err := a.tracker.Track(cmd.Context(), viewer, hotel)
				if err != nil {
					failed++
					logger.Error("track failed", zap.String("viewer", viewer), zap.String("hotel", hotel), zap.Error(err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s@%s friends=%d snapshots=%d invalid=%d records=%d\n",
					viewer, hotel, res.Friends, res.Snapshots, res.Invalid, res.Records)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d viewers failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hotel, "hotel", "br", "hotel code")
	return cmd
}

func newSweepCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete activity records older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			sweeper := service.NewSweeper(a.actRepo, a.cfg.Feed.ActivityRetention, a.cfg.Feed.SweepSchedule)
			n, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d activity records\n", n)
			return nil
		},
	}
}
