package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ahoi-sim/provider-sim/sim"
	"github.com/ahoi-sim/provider-sim/sim/record"
	"github.com/ahoi-sim/provider-sim/sim/stepper"
	"github.com/ahoi-sim/provider-sim/sim/trace"
	"github.com/ahoi-sim/provider-sim/sim/workload"
)

var (
	scenarioPath    string // Path to the scenario YAML
	seed            int64  // Overrides the scenario seed
	steps           int64  // Overrides the scenario step count
	logLevel        string // Log verbosity level
	traceLevel      string // Overrides the scenario trace level
	sqlitePath      string // SQLite database receiving records
	promTextfile    string // Prometheus textfile written at the end of the run
	checkInvariants bool   // Check provider invariants after every step
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "provider-sim",
	Short: "Step-based simulator for provider job scheduling and service queues",
}

// runOptions carries the output settings that do not live in the scenario.
type runOptions struct {
	SQLitePath      string
	PromTextfile    string
	CheckInvariants bool
}

// runResult is what a finished run leaves behind.
type runResult struct {
	RunID     string
	Providers []*sim.Provider
	Customers []*workload.Customer
	Metrics   *sim.Metrics
	Trace     *trace.SimulationTrace // nil unless tracing is enabled
}

// runCmd executes the simulation described by a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		opts := runOptions{
			SQLitePath:      sqlitePath,
			PromTextfile:    promTextfile,
			CheckInvariants: checkInvariants,
		}
		if _, err := runScenario(sc, opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// validateCmd loads and checks a scenario without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		sc, err := loadScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		describeScenario(cmd.OutOrStdout(), sc)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadScenario reads the scenario file, applies flag overrides and validates the result.
func loadScenario(cmd *cobra.Command) (*sim.Scenario, error) {
	if scenarioPath == "" {
		return nil, fmt.Errorf("no scenario provided, use --scenario")
	}
	sc, err := sim.LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("seed") {
		sc.Seed = seed
	}
	if cmd.Flags().Changed("steps") {
		sc.Steps = steps
	}
	if cmd.Flags().Changed("trace") {
		sc.Trace = traceLevel
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", scenarioPath, err)
	}
	return sc, nil
}

// runScenario builds the providers and sinks of a validated scenario, steps
// it to the end and writes the report to w.
func runScenario(sc *sim.Scenario, opts runOptions, w io.Writer) (*runResult, error) {
	res := &runResult{RunID: uuid.New().String()}
	log := logrus.WithField("run", res.RunID)

	var sinks record.MultiSink
	if opts.SQLitePath != "" {
		db, err := record.OpenSQLite(opts.SQLitePath, res.RunID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warnf("closing %s: %v", opts.SQLitePath, err)
			}
		}()
		sinks = append(sinks, db)
	}
	var prom *record.PrometheusSink
	if opts.PromTextfile != "" {
		var err error
		if prom, err = record.NewPrometheusSink(nil); err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	var sink record.Sink = record.Discard
	if len(sinks) > 0 {
		sink = sinks
	}

	traceCfg := trace.TraceConfig{Level: trace.TraceLevel(sc.Trace)}
	if traceCfg.Enabled() {
		res.Trace = trace.NewSimulationTrace(traceCfg)
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Seed))
	providers, err := sc.BuildProviders(rng, sink, res.Trace)
	if err != nil {
		return nil, err
	}
	res.Providers = providers

	stp := stepper.New(0, providers)
	if sc.Workload.Requesters > 0 {
		gen, err := workload.NewGenerator(sc.Workload, providers, rng.ForSubsystem(sim.SubsystemWorkload))
		if err != nil {
			return nil, err
		}
		res.Customers = gen.Customers()
		stp.Before(func(step int64) error {
			_, err := gen.Generate(step)
			return err
		})
	}
	if opts.CheckInvariants {
		stp.After(func(step int64) error {
			for _, p := range providers {
				if err := p.CheckInvariants(); err != nil {
					return err
				}
			}
			return nil
		})
	}

	log.Infof("Starting simulation: %d providers, %d steps, seed %d", len(providers), sc.Steps, sc.Seed)
	if err := stp.Run(sc.Steps); err != nil {
		return nil, err
	}

	res.Metrics = sim.CollectMetrics(providers, stp.StepsRun())
	res.Metrics.Print(w)
	if res.Trace != nil {
		printTraceSummary(w, trace.Summarize(res.Trace))
	}
	if prom != nil {
		if err := prom.WriteTextfile(opts.PromTextfile); err != nil {
			return nil, fmt.Errorf("writing %s: %w", opts.PromTextfile, err)
		}
		log.Infof("Metrics written to %s", opts.PromTextfile)
	}
	if opts.SQLitePath != "" {
		log.Infof("Records written to %s", opts.SQLitePath)
	}
	return res, nil
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Requests             : %d\n", s.TotalRequests)
	fmt.Fprintf(w, "Accepted             : %d\n", s.AcceptedCount)
	fmt.Fprintf(w, "Rejected             : %d\n", s.RejectedCount)
	fmt.Fprintf(w, "Admissions           : %d\n", s.Admissions)
	fmt.Fprintf(w, "Mean Wait            : %.2f steps\n", s.MeanWait)
	fmt.Fprintf(w, "Max Wait             : %d steps\n", s.MaxWait)
	keys := make([]string, 0, len(s.ServiceDistribution))
	for k := range s.ServiceDistribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-30s: %d\n", k, s.ServiceDistribution[k])
	}
}

func describeScenario(w io.Writer, sc *sim.Scenario) {
	fmt.Fprintf(w, "Scenario %s is valid\n", scenarioPath)
	for _, pc := range sc.Providers {
		names := make([]string, 0, len(pc.Services))
		for _, s := range pc.Services {
			names = append(names, s.ServiceName())
		}
		fmt.Fprintf(w, "  %s (group %s) x%d, capacity %d, services %v\n",
			pc.ID, pc.Group, len(pc.ProviderIDs()), *pc.Capacity, names)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().Int64Var(&seed, "seed", 0, "Seed for random demand and follow-up draws (overrides scenario)")
		c.Flags().Int64Var(&steps, "steps", 0, "Number of steps to run (overrides scenario)")
		c.Flags().StringVar(&traceLevel, "trace", "", "Trace level: none or decisions (overrides scenario)")
	}

	runCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database to write completed-job and queue-length records to")
	runCmd.Flags().StringVar(&promTextfile, "prom-textfile", "", "Write Prometheus metrics in text format to this file at the end of the run")
	runCmd.Flags().BoolVar(&checkInvariants, "check-invariants", false, "Check provider invariants after every step")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
