package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/aiclassify"
	"github.com/cleared-dev/tally/internal/logging"
)

func newSweepCommand(opts *options) *cobra.Command {
	var (
		schedule string
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Import the inbox and run the AI fallback on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, cls, err := opts.openAI(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fb := a.fallback(cls)
			if once {
				return a.sweep(ctx, fb)
			}

			if schedule == "" {
				schedule = a.cfg.AI.Schedule
			}
			sched, err := cron.ParseStandard(schedule)
			if err != nil {
				return fmt.Errorf("parsing schedule %q: %w", schedule, err)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)
			c := cron.New(cron.WithLogger(cronLogger{log}))
			c.Schedule(sched, sweepJob(log, func() {
				if err := a.sweep(ctx, fb); err != nil {
					log.Error().Err(err).Msg("sweep failed")
				}
			}))
			c.Start()
			log.Info().Str("schedule", schedule).Time("next", sched.Next(time.Now())).Msg("sweep scheduled")
			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (default: ai.schedule in tally.yaml)")
	cmd.Flags().BoolVar(&once, "once", false, "run one sweep and exit")

	return cmd
}

// sweep imports the inbox into the default account, when one is set, then
// runs the AI fallback over whatever is still uncategorized.
func (a *app) sweep(ctx context.Context, fb *aiclassify.Fallback) error {
	if acct := a.cfg.Import.DefaultAccount; acct != 0 {
		if err := runImport(ctx, a, "", acct, a.cfg.Import.DefaultFormat); err != nil {
			return err
		}
	}
	stats, err := fb.AutoCategorize(ctx, a.user)
	if err != nil {
		return err
	}
	printStats(a, stats)
	return nil
}

// sweepJob wraps fn so a tick that fires while the previous sweep is still
// running is skipped rather than overlapping it.
func sweepJob(log zerolog.Logger, fn func()) cron.Job {
	l := cronLogger{log}
	return cron.NewChain(cron.Recover(l), cron.SkipIfStillRunning(l)).Then(cron.FuncJob(fn))
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
