package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/oxij/kisstdlib/pkg/config"
	"github.com/oxij/kisstdlib/pkg/describe"
	"github.com/oxij/kisstdlib/pkg/logging"
	"github.com/oxij/kisstdlib/pkg/tty"
)

var version = "dev"

var (
	verbosity int

	showModes     bool
	showMtimes    bool
	noSizes       bool
	full          bool
	numbers       bool
	literal       bool
	relative      bool
	dereference   bool
	timePrecision int
	hashLength    int

	rootCmd = &cobra.Command{
		Use:   "describe-subtree [path...]",
		Short: "Produce a deterministic one-line-per-file description of filesystem trees",
		Long: `describe-subtree walks the given filesystem trees in deterministic order
and prints one line per file: type, optional permissions and mtime, and
for regular files size and content hash. Hardlinks within and across the
given trees render as references to the first occurrence, so two
invocations over equal trees produce byte-identical output. This makes
the result directly usable in tests and for change detection.`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE:          runDescribe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		tty.NewWriter(os.Stderr).Errorln("describe-subtree:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	flags := rootCmd.Flags()
	flags.BoolVar(&showModes, "modes", false, "Show permission bits")
	flags.BoolVar(&showMtimes, "mtimes", false, "Show modification times")
	flags.BoolVar(&noSizes, "no-sizes", false, "Hide file sizes")
	flags.BoolVar(&full, "full", false, "Shorthand for --modes --mtimes")
	flags.BoolVar(&numbers, "numbers", false, "Prefix each line with the index of the tree it came from")
	flags.BoolVar(&literal, "literal", false, "Print file names as-is, without quoting")
	flags.BoolVar(&relative, "relative", false, "Render hardlink references relative to the referencing file")
	flags.BoolVarP(&dereference, "dereference", "L", false, "Follow symlinks instead of describing them")
	flags.IntVar(&timePrecision, "time-precision", 0, "Sub-second digits to show in mtimes, up to 9 for nanoseconds")
	flags.IntVar(&hashLength, "hash-length", 0, "Truncate content hashes to this many hex digits, 0 prints them whole")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("describe-subtree version %s\n", version)
	},
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := cfg.DescribeOptions()
	if cmd.Flags().Changed("modes") {
		opts.ShowMode = showModes
	}
	if cmd.Flags().Changed("mtimes") {
		opts.ShowMtime = showMtimes
	}
	if cmd.Flags().Changed("no-sizes") {
		opts.ShowSize = !noSizes
	}
	if full {
		opts.ShowMode = true
		opts.ShowMtime = true
	}
	if cmd.Flags().Changed("time-precision") {
		opts.TimePrecision = timePrecision
	}
	if cmd.Flags().Changed("hash-length") {
		opts.HashLen = hashLength
	}
	if cmd.Flags().Changed("relative") {
		opts.RelativeHardlinks = relative
	}
	opts.FollowSymlinks = dereference
	opts.Numbers = numbers
	opts.Literal = literal

	roots := args
	if len(roots) == 0 {
		roots = []string{"."}
	}

	entries, err := describe.Walks(roots, opts)
	if err != nil {
		return err
	}

	out := tty.NewWriter(os.Stdout)
	for _, entry := range entries {
		out.Println(entry.String())
	}
	return nil
}
