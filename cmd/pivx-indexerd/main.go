// Command pivx-indexerd runs the indexer core: a cold-sync pass over
// a node's blk*.dat files followed by a live polling loop, all
// against one embedded store (spec §§4, 6). One urfave/cli app, a
// handful of subcommands, global flags for the things every
// subcommand needs (the config file).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metrics "github.com/rcrowley/go-metrics"
	cli "github.com/urfave/cli"

	"github.com/pivx-project/pivx-indexer/blockfile"
	"github.com/pivx-project/pivx-indexer/chainparams"
	"github.com/pivx-project/pivx-indexer/config"
	"github.com/pivx-project/pivx-indexer/indexwriter"
	"github.com/pivx-project/pivx-indexer/livesync"
	"github.com/pivx-project/pivx-indexer/log"
	"github.com/pivx-project/pivx-indexer/nodeindex"
	"github.com/pivx-project/pivx-indexer/notify"
	"github.com/pivx-project/pivx-indexer/rpcclient"
	"github.com/pivx-project/pivx-indexer/status"
	"github.com/pivx-project/pivx-indexer/store"
)

var logger = log.NewModuleLogger(log.Common)

// ConfigFileFlag names the TOML configuration file every subcommand
// reads from.
var ConfigFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML configuration file",
	Value: "pivx-indexerd.toml",
}

// MetricsAddrFlag is the Prometheus exporter's listen address.
var MetricsAddrFlag = cli.StringFlag{
	Name:  "metrics.addr",
	Usage: "Prometheus exporter listen address (empty disables it)",
	Value: ":9100",
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pivx-indexerd"
	app.Usage = "PIVX blockchain indexer core"
	app.Flags = []cli.Flag{ConfigFileFlag}
	app.Commands = []cli.Command{
		runCommand,
		enrichCommand,
		statusCommand,
		quarantineCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Crit("pivx-indexerd exited with error", "err", err)
	}
}

func loadConfigAndParams(ctx *cli.Context) (config.Config, chainparams.Params, error) {
	return resolveConfigAndParams(ctx.GlobalString(ConfigFileFlag.Name))
}

// resolveConfigAndParams is loadConfigAndParams's *cli.Context-free
// core, split out so it can be exercised directly in tests.
func resolveConfigAndParams(path string) (config.Config, chainparams.Params, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, chainparams.Params{}, err
	}
	params, ok := chainparams.ByName(cfg.Network)
	if !ok {
		return config.Config{}, chainparams.Params{}, fmt.Errorf("unknown network %q", cfg.Network)
	}
	return cfg, params, nil
}

func openWriter(cfg config.Config, params chainparams.Params) (*indexwriter.Writer, func(), error) {
	db, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return indexwriter.New(db, params), db.Close, nil
}

var runCommand = cli.Command{
	Name:   "run",
	Usage:  "cold-sync from the node's blk*.dat files, then follow the live tip",
	Flags:  []cli.Flag{MetricsAddrFlag},
	Action: runAction,
}

func runAction(cliCtx *cli.Context) error {
	cfg, params, err := loadConfigAndParams(cliCtx)
	if err != nil {
		return err
	}
	writer, closeDB, err := openWriter(cfg, params)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	syncHeight, hasSync, err := writer.SyncHeight()
	if err != nil {
		return err
	}
	if !hasSync {
		if err := coldSync(ctx, cfg, params, writer); err != nil {
			return fmt.Errorf("cold sync: %w", err)
		}
		syncHeight, hasSync, err = writer.SyncHeight()
		if err != nil {
			return err
		}
	}
	if hasSync {
		if err := writer.Enrich(syncHeight); err != nil {
			return fmt.Errorf("enrich: %w", err)
		}
		if err := writer.CheckInvariants(syncHeight); err != nil {
			logger.Error("invariant check failed after cold sync", "err", err)
		}
	}

	rpc := rpcclient.New(rpcclient.Config{
		Host: cfg.RPC.Host,
		User: cfg.RPC.User,
		Pass: cfg.RPC.Pass,
	})
	pub := notify.NewPublisher(64)
	tracker := status.NewTracker(metrics.NewRegistry())
	if addr := cliCtx.String(MetricsAddrFlag.Name); addr != "" {
		startMetricsServer(addr, tracker)
	}

	controller := livesync.New(rpc, writer, pub, livesync.Config{
		ReorgMaxDepth: cfg.Reorg.MaxDepth,
		LargeBatch:    uint32(cfg.Sync.RPCBatch),
		SmallBatch:    uint32(cfg.Sync.RPCBatch),
		BlkDir:        cfg.Paths.BlkDir,
	})

	go statusUpdateLoop(ctx, writer, rpc, tracker)
	go invariantAuditLoop(ctx, writer, tracker, cancel)

	logger.Info("starting live sync", "sync_height", syncHeight)
	if err := controller.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("pivx-indexerd shutting down")
	return nil
}

// coldSync runs the header resolver, then the block pipeline,
// committing each parsed block in order and persisting quarantined
// entries rather than dropping them (spec §4.1, §4.2).
func coldSync(ctx context.Context, cfg config.Config, params chainparams.Params, writer *indexwriter.Writer) error {
	records, err := nodeindex.ReadSnapshot(cfg.Paths.NodeIndexDir)
	if err != nil {
		return fmt.Errorf("read node index: %w", err)
	}
	result, err := nodeindex.Resolve(records, params.GenesisHash)
	if err != nil {
		return fmt.Errorf("resolve header dag: %w", err)
	}
	logger.Info("header resolution complete", "plan_len", len(result.Plan), "orphans", len(result.Orphans))

	pipeline := blockfile.New(cfg.Paths.BlkDir, params.Magic, blockfile.Config{
		Workers: int(cfg.Sync.ParallelFiles),
	})
	parsed, quarantined := pipeline.Run(ctx, result.Plan)

	// quarantineFloor is the lowest quarantined height seen so far.
	// blockfile.Pipeline keeps delivering later heights on parsed after
	// quarantining an earlier one, but sync_height must never advance
	// past a quarantined block (spec §4.2), so every parsed block at or
	// past the floor is drained without being applied.
	quarantineFloor := ^uint32(0)

	for parsed != nil || quarantined != nil {
		select {
		case pb, ok := <-parsed:
			if !ok {
				parsed = nil
				continue
			}
			if pb.Height >= quarantineFloor {
				continue
			}
			if err := writer.ApplyBlock(pb.Block, pb.Height); err != nil {
				return fmt.Errorf("apply block %d: %w", pb.Height, err)
			}
		case q, ok := <-quarantined:
			if !ok {
				quarantined = nil
				continue
			}
			logger.Warn("quarantined block", "height", q.Height, "hash", q.Hash, "reason", q.Reason)
			if err := writer.PutQuarantine(q.Height, q.Hash, q.Reason); err != nil {
				return fmt.Errorf("persist quarantine %d: %w", q.Height, err)
			}
			if q.Height < quarantineFloor {
				quarantineFloor = q.Height
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

var enrichCommand = cli.Command{
	Name:   "enrich",
	Usage:  "run the post-sync addr_index backfill pass standalone",
	Action: enrichAction,
}

func enrichAction(cliCtx *cli.Context) error {
	cfg, params, err := loadConfigAndParams(cliCtx)
	if err != nil {
		return err
	}
	writer, closeDB, err := openWriter(cfg, params)
	if err != nil {
		return err
	}
	defer closeDB()

	syncHeight, hasSync, err := writer.SyncHeight()
	if err != nil {
		return err
	}
	if !hasSync {
		return fmt.Errorf("enrich: no sync_height recorded, run 'run' first")
	}
	if err := writer.Enrich(syncHeight); err != nil {
		return err
	}
	fmt.Fprintf(cliCtx.App.Writer, "enrichment complete up to height %d\n", syncHeight)
	return nil
}

var statusCommand = cli.Command{
	Name:   "status",
	Usage:  "print the current sync_health summary",
	Action: statusAction,
}

func statusAction(cliCtx *cli.Context) error {
	cfg, params, err := loadConfigAndParams(cliCtx)
	if err != nil {
		return err
	}
	writer, closeDB, err := openWriter(cfg, params)
	if err != nil {
		return err
	}
	defer closeDB()

	syncHeight, hasSync, err := writer.SyncHeight()
	if err != nil {
		return err
	}
	tip, _, err := writer.TipHash()
	if err != nil {
		return err
	}
	ready, err := writer.AddrIndexReady()
	if err != nil {
		return err
	}

	out := cliCtx.App.Writer
	fmt.Fprintf(out, "network:          %s\n", cfg.Network)
	fmt.Fprintf(out, "sync_height:      %d (synced=%v)\n", syncHeight, hasSync)
	fmt.Fprintf(out, "tip_hash:         %s\n", tip)
	fmt.Fprintf(out, "addr_index_ready: %v\n", ready)

	rpc := rpcclient.New(rpcclient.Config{Host: cfg.RPC.Host, User: cfg.RPC.User, Pass: cfg.RPC.Pass})
	networkHeight, err := rpc.GetBlockCount(context.Background())
	if err != nil {
		fmt.Fprintf(out, "network_height:   unavailable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(out, "network_height:   %d\n", networkHeight)
	return nil
}

var quarantineCommand = cli.Command{
	Name:   "quarantine",
	Usage:  "list quarantined block entries and their failure reasons",
	Action: quarantineAction,
}

func quarantineAction(cliCtx *cli.Context) error {
	cfg, params, err := loadConfigAndParams(cliCtx)
	if err != nil {
		return err
	}
	writer, closeDB, err := openWriter(cfg, params)
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := writer.ListQuarantine()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cliCtx.App.Writer, "no quarantined entries")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(cliCtx.App.Writer, "%d\t%s\t%s\n", e.Height, e.Hash, e.Reason)
	}
	return nil
}

// startMetricsServer registers the tracker's collectors with a fresh
// Prometheus registry and serves /metrics over promhttp.
func startMetricsServer(addr string, tracker *status.Tracker) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(tracker.PrometheusCollectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	logger.Info("Prometheus exporter listening", "addr", addr)
}

// statusUpdateLoop periodically refreshes the tracker's snapshot from
// the writer's chain_state and the node's reported height (spec §7
// "sync_health") on its own ticker, independent of the live
// controller's poll cadence. runAction starts it once cold sync has
// finished.
func statusUpdateLoop(ctx context.Context, writer *indexwriter.Writer, rpc *rpcclient.Client, tracker *status.Tracker) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		syncHeight, hasSync, err := writer.SyncHeight()
		if err != nil {
			logger.Warn("status update: sync height lookup failed", "err", err)
			continue
		}
		tip, _, err := writer.TipHash()
		if err != nil {
			logger.Warn("status update: tip hash lookup failed", "err", err)
			continue
		}
		ready, err := writer.AddrIndexReady()
		if err != nil {
			logger.Warn("status update: addr_index_ready lookup failed", "err", err)
			continue
		}
		networkHeight, err := rpc.GetBlockCount(ctx)
		health := status.Healthy
		errSummary := ""
		if err != nil {
			health = status.Degraded
			errSummary = err.Error()
			networkHeight = syncHeight
		}

		pct := float64(100)
		if networkHeight > 0 {
			pct = float64(syncHeight) / float64(networkHeight) * 100
		}

		tracker.Update(status.Snapshot{
			SyncHeight:       syncHeight,
			NetworkHeight:    networkHeight,
			TipHash:          tip,
			SyncPercentage:   pct,
			Synced:           hasSync && syncHeight >= networkHeight,
			AddrIndexReady:   ready,
			Health:           health,
			LastErrorSummary: errSummary,
		})
	}
}

// invariantAuditLoop periodically re-derives INV-1..INV-4 over the
// whole committed chain (spec §8). A violation is a fatal,
// cross-component fault (spec §7 "Propagation policy": "surfaced to
// the supervisor via the shutdown channel"), so it cancels ctx rather
// than being retried.
func invariantAuditLoop(ctx context.Context, writer *indexwriter.Writer, tracker *status.Tracker, shutdown context.CancelFunc) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		syncHeight, hasSync, err := writer.SyncHeight()
		if err != nil || !hasSync {
			continue
		}
		if err := writer.CheckInvariants(syncHeight); err != nil {
			tracker.RecordInvariantViolation()
			logger.Crit("invariant violation detected, shutting down", "err", err)
			shutdown()
			return
		}
	}
}
