// Command fdsbatch drives fds2ascii over a cross-product of variable
// groups and time points, producing one SLCF CSV per (group, time
// point) with short-window time averaging and existence-based resume.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fdsbatch/internal/cli"
	"fdsbatch/internal/logging"
)

var (
	flagTool    string
	flagResults string
	flagOut     string
	flagCHID    string
	flagTime    string
	flagVars    int
	flagGroups  string
	flagConfig  string
	flagVerbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fdsbatch",
	Short: "Batch fds2ascii SLCF extraction",
	Long: `fdsbatch scripts the interactive fds2ascii prompt sequence and repeats
it across every (group, time point) pair, writing one CSV per time
point per group under <out>/group_<g>/<t>.csv.

Values may come from flags, from a YAML config file (--config), or from
an interactive prompt for anything still missing, in that order.
Already-present output files are skipped, so an interrupted batch can
simply be re-run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(flagVerbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runBatch,
}

func init() {
	rootCmd.Flags().StringVar(&flagTool, "fds2ascii", "", "Path to the fds2ascii executable")
	rootCmd.Flags().StringVar(&flagResults, "results", "", "Results folder (where .sf/.smv live)")
	rootCmd.Flags().StringVar(&flagOut, "out", "", "Output root folder")
	rootCmd.Flags().StringVar(&flagCHID, "chid", "", "Job ID string (CHID)")
	rootCmd.Flags().StringVar(&flagTime, "time", "", "Time range, e.g. '0-200'")
	rootCmd.Flags().IntVar(&flagVars, "vars", 0, "How many variables to read per group (e.g. 9)")
	rootCmd.Flags().StringVar(&flagGroups, "groups", "", "Groups to extract, e.g. '1' or '1-5' or '1,3,10'")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Optional YAML settings file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func runBatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== fdsbatch — fds2ascii SLCF batch extraction ===")
	fmt.Fprintln(out)

	var fileCfg cli.FileConfig
	if flagConfig != "" {
		cfg, err := cli.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		fileCfg = *cfg
	}

	prompts := bufio.NewReader(cmd.InOrStdin())

	toolPath, err := resolvePath(flagTool, fileCfg.Tool, "fds2ascii path: ", prompts, out)
	if err != nil {
		return err
	}
	inputDir, err := resolvePath(flagResults, fileCfg.Input, "Results folder (where .sf/.smv live): ", prompts, out)
	if err != nil {
		return err
	}
	outputRoot, err := resolvePath(flagOut, fileCfg.Output, "Output root folder: ", prompts, out)
	if err != nil {
		return err
	}
	chid, err := resolve(flagCHID, fileCfg.CHID, "CHID: ", prompts, out)
	if err != nil {
		return err
	}
	timeSpec, err := resolve(flagTime, fileCfg.Time, "Time range (e.g. 0-200): ", prompts, out)
	if err != nil {
		return err
	}
	startT, endT, err := cli.ParseIntRange(timeSpec)
	if err != nil {
		return err
	}

	varCount := flagVars
	if varCount == 0 {
		varCount = fileCfg.Vars
	}
	if varCount == 0 {
		raw, err := resolve("", "", "How many variables to read: ", prompts, out)
		if err != nil {
			return err
		}
		varCount, err = strconv.Atoi(raw)
		if err != nil {
			return &cli.InvocationError{ExitCode: cli.ExitInvalidInvocation, Message: fmt.Sprintf("cannot parse variable count %q", raw)}
		}
	}

	groupSpec, err := resolve(flagGroups, fileCfg.Groups, "Groups to extract (e.g. '1' or '1-5' or '1,3,10'): ", prompts, out)
	if err != nil {
		return err
	}
	groups, err := cli.ParseGroups(groupSpec)
	if err != nil {
		return err
	}

	inv := cli.Invocation{
		ToolPath:   toolPath,
		InputDir:   inputDir,
		OutputRoot: outputRoot,
		CHID:       strings.TrimSpace(chid),
		StartT:     startT,
		EndT:       endT,
		VarCount:   varCount,
		Groups:     groups,
		Verbose:    flagVerbose,
	}

	_, err = cli.Execute(cmd.Context(), inv, logger, out)
	return err
}

// resolve returns the first non-empty of flag value and config value,
// otherwise prompts. Surrounding quotes are stripped so paths pasted
// from a file manager work as-is.
func resolve(flagVal, cfgVal, prompt string, in *bufio.Reader, out io.Writer) (string, error) {
	for _, v := range []string{flagVal, cfgVal} {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", &cli.InvocationError{ExitCode: cli.ExitInvalidInvocation, Message: fmt.Sprintf("missing value for %q", strings.TrimSuffix(prompt, ": "))}
	}
	return strings.Trim(strings.TrimSpace(line), `"`), nil
}

// resolvePath is resolve plus home expansion and absolutization.
func resolvePath(flagVal, cfgVal, prompt string, in *bufio.Reader, out io.Writer) (string, error) {
	v, err := resolve(flagVal, cfgVal, prompt, in, out)
	if err != nil {
		return "", err
	}
	if v == "~" || strings.HasPrefix(v, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			v = filepath.Join(home, strings.TrimPrefix(v, "~"))
		}
	}
	return filepath.Abs(v)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}
	var invErr *cli.InvocationError
	if errors.As(err, &invErr) {
		fmt.Fprintln(os.Stderr, invErr.Message)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCodeFor(err))
}
