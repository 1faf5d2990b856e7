package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := LoadEnv(); err != nil {
		Logger.Errorf("failed to load env: %v", err)
	}
	ApplyLogLevel()
	defer Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		Logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sqlite-spike",
		Short: "Storage size and timing benchmarks for embedded SQLite files",
		Long: `sqlite-spike provisions fresh SQLite database files, applies a fixed schema,
bulk inserts rows and times single appends, reporting latencies and file sizes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newListCmd())
	return root
}

func newListCmd() *cobra.Command {
	config := ConfigFromEnv()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, scenario := range Scenarios(config) {
				fmt.Fprintln(cmd.OutOrStdout(), scenario.Name())
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&config.BatchSizes, "sizes", config.BatchSizes,
		"Batch sizes for BatchInsertAndSingleAppend")
	return cmd
}

func newRunCmd() *cobra.Command {
	config := ConfigFromEnv()
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios (all of them when none is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), config, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&config.BaseDir, "base-dir", config.BaseDir,
		"Directory for database files")
	flags.StringVar(&config.Engine, "engine", config.Engine,
		"Engine: sqlite3 (cgo) or sqlite (pure Go)")
	flags.IntSliceVar(&config.BatchSizes, "sizes", config.BatchSizes,
		"Batch sizes for BatchInsertAndSingleAppend, e.g. 100,1000,10000")
	flags.IntVar(&config.Samples, "samples", config.Samples,
		"Single appends measured after each bulk insert")
	flags.IntVar(&config.Iterations, "iterations", config.Iterations,
		"Repetitions of the create scenarios")
	flags.IntVar(&config.Warmup, "warmup", config.Warmup,
		"Unreported runs of every scenario before the measured one")
	flags.BoolVar(&config.UseTransaction, "use-transaction", config.UseTransaction,
		"Bulk insert inside a single transaction")
	flags.BoolVar(&config.KeepFiles, "keep-files", config.KeepFiles,
		"Keep database files after the run")
	flags.BoolVar(&config.ClearCaches, "clear-caches", config.ClearCaches,
		"Drop OS page cache before every scenario (needs sudo)")
	flags.StringVar(&config.ResultsDb, "results-db", config.ResultsDb,
		"Results database: file path, libsql URL or Turso database name")
	flags.StringVar(&config.Pushgateway, "pushgateway", config.Pushgateway,
		"Prometheus pushgateway URL")
	flags.StringVar(&config.PushJob, "push-job", config.PushJob,
		"Job name for metrics pushed to the pushgateway")
	return cmd
}

func runBenchmark(ctx context.Context, config Config, names []string) error {
	if err := config.Validate(); err != nil {
		return err
	}
	scenarios, err := SelectScenarios(Scenarios(config), names)
	if err != nil {
		return err
	}

	info := HostStat()
	Logger.Infof("host stat: %+v", info)

	reporters := []Reporter{&LogReporter{}}
	results, err := openResultsDb(config, info)
	if err != nil {
		return err
	}
	if results != nil {
		defer results.Db.Close()
		reporters = append(reporters, results)
	}
	if config.Pushgateway != "" {
		reporters = append(reporters, &PushReporter{URL: config.Pushgateway, Job: config.PushJob, Engine: config.Engine})
	}

	system, err := NewSystem(config, scenarios, NewSink(reporters...))
	if err != nil {
		return err
	}
	finished, err := system.Run(ctx)
	for _, result := range finished {
		Logger.Infof("%v: %v", result.Name, summary(result))
	}
	return err
}

func openResultsDb(config Config, info SysInfo) (*StorageReporter, error) {
	storage := &Storage{
		OrgName:   config.TursoOrgName,
		GroupName: config.TursoGroupName,
		ApiToken:  config.TursoApiToken,
		AuthToken: config.TursoAuthToken,
	}
	target := config.ResultsDb
	if target == "" && storage.ApiToken != "" && storage.OrgName != "" {
		target = fmt.Sprintf("spike-%v-%v-%v", Version, time.Now().Unix(), rand.Intn(1000))
		if err := storage.CreateDatabase(target); err != nil {
			return nil, fmt.Errorf("unable to create results db %v: %w", target, err)
		}
	}
	if target == "" {
		return nil, nil
	}

	db, err := storage.ConnectDb(target)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to the results db %v: %w", target, err)
	}
	if err := storage.InitResultsDb(db, info.Meta(config.Engine)); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to initialize results db %v: %w", target, err)
	}
	return &StorageReporter{Storage: storage, Db: db}, nil
}

func summary(result ScenarioResult) string {
	parts := []string{fmt.Sprintf("elapsed=%v", result.Elapsed.Round(time.Millisecond))}
	for _, t := range result.Snapshot.Timers {
		parts = append(parts, fmt.Sprintf("%v[n=%v mean=%.3fms p99=%.3fms]", t.Name, t.Count, t.MeanMs, t.P99Ms))
	}
	for _, g := range result.Snapshot.Gauges {
		parts = append(parts, fmt.Sprintf("%v=%vb", g.Name, g.Value))
	}
	return strings.Join(parts, " ")
}
