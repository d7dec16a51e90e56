package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/mgfw/internal/config"
	"github.com/me/mgfw/internal/debugsrv"
	"github.com/me/mgfw/pkg/clock"
	"github.com/me/mgfw/pkg/injector"
	"github.com/me/mgfw/pkg/queue"
	"github.com/me/mgfw/pkg/scheduler"
	"github.com/me/mgfw/pkg/scriptjob"
)

// newDemoCmd wires one Injector, one Scheduler, and one QueueHive together —
// the canonical composition root the spec's data-flow section describes —
// and runs the debug server until SIGINT, the same shutdown trigger
// wilke-GoWe's cmd/server/main.go listens for.
func newDemoCmd() *cobra.Command {
	var configFile string
	var jobScript string
	var tickEvery time.Duration

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "run a demo composition root: one Injector, one Scheduler, one QueueHive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultFrameworkConfig()
			if err := config.LoadFile(&cfg, configFile); err != nil {
				return err
			}

			inj := injector.New()
			defer inj.Close()

			clk := clock.NewReal()
			sched := scheduler.New(clk, sink)

			hive := queue.NewHive(sink)
			defer hive.Close()

			events, err := queue.GetWriter[string](hive, 1)
			if err != nil {
				return err
			}

			sched.SetInterval(func() {
				events.Write(fmt.Sprintf("tick at %s", clk.Now().Format(time.RFC3339)))
			}, tickEvery, "demo tick")

			if jobScript != "" {
				src, err := os.ReadFile(jobScript)
				if err != nil {
					return err
				}
				job, err := scriptjob.Compile("demo-job", string(src))
				if err != nil {
					return err
				}
				sched.SetInterval(job.AsJobFunc(nil, func(err error) {
					sink.Error("demo job script failed: " + err.Error())
				}), tickEvery, "script: "+jobScript)
			}

			srv := debugsrv.New(inj, sched, hive, sink)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runErrs := make(chan error, 2)
			go func() { runErrs <- sched.Run(ctx) }()
			go func() { runErrs <- srv.Run(ctx, cfg.DebugServerAddr) }()

			sink.Info("demo running; debug server on " + cfg.DebugServerAddr)

			<-ctx.Done()
			reader, err := queue.GetReader[string](hive, 1)
			if err == nil {
				reader.Drain(func(msg *string) { sink.Info(*msg) })
			}

			for i := 0; i < 2; i++ {
				if err := <-runErrs; err != nil && err != context.Canceled {
					sink.Error(err.Error())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&jobScript, "job-script", "", "path to a JS snippet run as a scheduled job")
	cmd.Flags().DurationVar(&tickEvery, "tick", 2*time.Second, "interval between demo ticks")

	return cmd
}
