package loadtest

import (
	"fmt"
	"io"
	"os"

	"github.com/informalsystems/msg-load-test/internal/logging"
	"github.com/spf13/cobra"
)

// CLIConfig allows developers to customize their own simulation tool.
type CLIConfig struct {
	AppName      string
	AppShortDesc string
	AppLongDesc  string
}

func buildCLI(cli *CLIConfig, lookupEnv func(string) (string, bool), logOutput io.Writer, logger logging.Logger) *cobra.Command {
	var cfg Config
	var flagVerbose bool
	var drainPolicy string
	rootCmd := &cobra.Command{
		Use:           cli.AppName,
		Short:         cli.AppShortDesc,
		Long:          cli.AppLongDesc,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Configure(logOutput, flagVerbose)
			if flagVerbose {
				logger.Debug("Set logging level to DEBUG")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadEnvDefaults(cmd.Flags().Changed, lookupEnv); err != nil {
				return err
			}
			cfg.DrainPolicy = DrainPolicy(drainPolicy)
			if len(cfg.RunID) == 0 {
				cfg.RunID = makeRunID()
			}
			logger.Debug(fmt.Sprintf("Configuration: %s", cfg.ToJSON()))
			if err := cfg.Validate(); err != nil {
				return err
			}
			return ExecuteSimulation(&cfg)
		},
	}
	rootCmd.PersistentFlags().IntVarP(&cfg.NumMessages, "num-messages", "m", 0, fmt.Sprintf("The total number of messages to generate (default from %s)", EnvNumMessages))
	rootCmd.PersistentFlags().IntVarP(&cfg.NumSenders, "num-senders", "s", 0, fmt.Sprintf("The number of concurrent senders (default from %s)", EnvNumSenders))
	rootCmd.PersistentFlags().Float64VarP(&cfg.MeanProcessingTime, "mean-processing-time", "t", 0, fmt.Sprintf("The mean simulated send time per message, in seconds (default from %s)", EnvMeanProcessingTime))
	rootCmd.PersistentFlags().Float64VarP(&cfg.FailureRate, "failure-rate", "f", 0, fmt.Sprintf("The probability (0-1) that a simulated send fails (default from %s)", EnvFailureRate))
	rootCmd.PersistentFlags().IntVarP(&cfg.UpdateInterval, "update-interval", "u", 0, fmt.Sprintf("The period (in seconds) at which to report progress (default from %s)", EnvUpdateInterval))
	rootCmd.PersistentFlags().StringVar(&drainPolicy, "drain-policy", string(DrainUntilClosed), "When senders stop: \"until-closed\" waits for the generator to finish, \"on-empty\" stops at the first empty queue")
	rootCmd.PersistentFlags().StringVar(&cfg.StatsOutputFile, "stats-output", "", "Where to store aggregate statistics (in CSV format) at the end of the run")
	rootCmd.PersistentFlags().StringVar(&cfg.MetricsOutputFile, "metrics-output", "", "Where to store Prometheus metrics (in text exposition format) at the end of the run")
	rootCmd.PersistentFlags().StringVar(&cfg.RunID, "run-id", "", "An optional unique ID for this run. Will show up in metrics and logs. If not specified, a UUID will be generated.")
	rootCmd.PersistentFlags().Int64Var(&cfg.Seed, "seed", 0, "The random seed to use - set to 0 to seed from the current time")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Increase output logging verbosity to DEBUG level")
	return rootCmd
}

// Run must be executed from your `main` function in your Go code. It parses
// the command line (falling back to the environment for required settings),
// runs the simulation and exits the process with a code reflecting the
// outcome.
func Run(cli *CLIConfig) {
	os.Exit(execute(cli, os.Args[1:], os.LookupEnv, os.Stderr))
}

// execute runs the CLI and returns the process exit code. Every error ends up
// logged exactly once here, including panics from anywhere in the
// simulation's main goroutine.
func execute(cli *CLIConfig, args []string, lookupEnv func(string) (string, bool), logOutput io.Writer) (code int) {
	logging.Configure(logOutput, false)
	logger := logging.NewLogrusLogger("main")
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Unexpected error occurred: %v", r))
			code = int(ErrUnexpected)
		}
	}()

	cmd := buildCLI(cli, lookupEnv, logOutput, logger)
	cmd.SetArgs(args)
	cmd.SetErr(logOutput)
	err := cmd.Execute()
	switch {
	case err == nil:
	case IsErrorCode(err, ErrKilled):
		// already reported when the interrupt was caught
	default:
		logger.Error(err.Error())
	}
	return exitCodeFor(err)
}
