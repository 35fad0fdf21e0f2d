// Package worker provides the long-running worker command: periodic expiry
// sweeps plus the HTTP server with probes, metrics and the websocket feed.
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/config"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/server"
	"github.com/agentstation/lineup/internal/server/events"
	"github.com/agentstation/lineup/pkg/catalogs"
)

// AppContext defines what the worker needs from the app.
type AppContext interface {
	Client(ctx context.Context) (lineup.Client, error)
	Config() *config.Config
	Metrics() *metrics.Metrics
	Logger() *zerolog.Logger
}

// NewCommand creates the worker command.
func NewCommand(app AppContext) *cobra.Command {
	var addr string
	var noSweep bool

	cmd := &cobra.Command{
		Use:     "worker",
		GroupID: "management",
		Short:   "Run expiry sweeps and serve health, metrics and live events",
		Long: `Worker runs until interrupted. It sweeps expired events on an interval
and serves:

  /health            liveness
  /ready             database reachability
  /metrics           Prometheus metrics
  /api/v1/sync       the running sync job
  /ws                websocket feed of sync progress, merges, transitions
                     and sweeps made by this process`,
		Example: `  lineup worker
  LINEUP_SWEEP_INTERVAL=15m lineup worker --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := app.Config()
			logger := app.Logger()

			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			srvCfg := server.DefaultConfig()
			srvCfg.Addr = addr
			srvCfg.Metrics = app.Metrics().Handler()
			srv := server.New(client, srvCfg, logger)
			forward(client, srv)

			if !noSweep {
				if err := client.AutoSweepOn(); err != nil {
					return err
				}
				defer func() {
					_ = client.AutoSweepOff()
				}()
				logger.Info().Dur("interval", cfg.Sweep.Interval).Msg("Auto-sweep started")
			}

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "Do not run expiry sweeps")

	return cmd
}

// publisher is the part of the server the hooks feed.
type publisher interface {
	Publish(t events.Type, data any)
}

// forward publishes the client's hook events on the server feed.
func forward(client lineup.Hooks, p publisher) {
	var mu sync.Mutex
	seen := map[string]bool{}

	client.OnSyncProgress(func(job lineup.JobSnapshot) {
		mu.Lock()
		first := !seen[job.ID]
		seen[job.ID] = true
		mu.Unlock()
		if first {
			p.Publish(events.SyncStarted, job)
		}
		p.Publish(events.SyncProgress, job)
	})
	client.OnSyncFinished(func(job lineup.JobSnapshot) {
		mu.Lock()
		delete(seen, job.ID)
		mu.Unlock()
		p.Publish(events.SyncFinished, job)
	})
	client.OnMerged(func(m lineup.Merge) {
		p.Publish(events.Merged, m)
	})
	client.OnTransition(func(t catalogs.StateTransition) {
		p.Publish(events.Transitioned, t)
	})
	client.OnSweepFinished(func(res lineup.SweepResult) {
		p.Publish(events.SweepFinished, res)
	})
}
