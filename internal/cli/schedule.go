package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/ops"
)

var pauseSchedule string

var scheduleCommand = &cobra.Command{
	Use:     "schedule",
	GroupID: "coldsnap",
	Short:   "Run coldsnap as a background service that pauses resources on a cron schedule",
	Long:    `Starts a scheduler that repeatedly discovers and pauses resources according to --pause-schedule, until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		banner := fmt.Sprintf("coldsnap - Schedule\n\nVersion: %s\nBuild Date: %s", ColdsnapVersion, ColdsnapDate)
		fmt.Println(headerStyle.Render(banner))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		slog := rt.logger.With("component", "schedule")

		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		s.Start()
		slog.Info("scheduler started", "profile", awsProfile, "regions", regionsFlag)

		var pauseJob gocron.Job
		pauseJob, err = s.NewJob(
			gocron.CronJob(pauseSchedule, false),
			gocron.NewTask(func() {
				runScheduledPause(ctx, rt)
				if pauseJob != nil {
					if nextRun, err := pauseJob.NextRun(); err == nil {
						slog.Info("pause cycle complete", "next_run", nextRun.Format(time.RFC3339))
					}
				}
			}),
			gocron.WithName("Pause Cycle"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}

		if nextRun, err := pauseJob.NextRun(); err == nil {
			slog.Info("job scheduled", "job_name", pauseJob.Name(), "schedule", pauseSchedule, "next_run", nextRun.Format(time.RFC3339))
		}

		<-ctx.Done()
		slog.Warn("shutting down scheduler due to system signal")
		return s.Shutdown()
	},
}

func runScheduledPause(ctx context.Context, rt *runtime) {
	resources, err := rt.orchestrator.DiscoverAll(ctx, parseRegions(), kindsFromStrings(parseKinds()))
	if err != nil {
		rt.logger.Error("scheduled discovery failed", "error", err)
		return
	}

	pausable := ops.Pausable(resources, func(r model.Resource) bool {
		d, err := rt.registry.Get(ctx, r.Kind, r.Region)
		if err != nil {
			return false
		}
		return d.Pausable(r)
	})
	if len(pausable) == 0 {
		rt.logger.Info("scheduled pause cycle found nothing pausable")
		return
	}

	results, snap, err := rt.orchestrator.Pause(ctx, pausable)
	if err != nil {
		rt.logger.Error("scheduled pause failed", "error", err)
		return
	}

	store, err := openDefaultStore()
	if err != nil {
		rt.logger.Error("could not open snapshot store", "error", err)
		return
	}
	if err := store.Save(snap); err != nil {
		rt.logger.Error("could not save snapshot", "error", err)
		return
	}

	printSummaryAndNotify(rt, results, snap.ID)
}

func init() {
	rootCommand.AddCommand(scheduleCommand)
	scheduleCommand.Flags().StringVar(&pauseSchedule, "pause-schedule", "*/15 * * * *", "Cron schedule for the repeated discover-and-pause cycle")
}
