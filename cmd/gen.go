package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/polyhop/xmapgen/errext"
	"github.com/polyhop/xmapgen/errext/exitcodes"
	"github.com/polyhop/xmapgen/lib/container"
	"github.com/polyhop/xmapgen/lib/scan"
	"github.com/polyhop/xmapgen/lib/xmap"
)

// cmdGen handles the `xmapgen gen` sub-command
type cmdGen struct {
	gs *globalState

	oldRoot       string
	newRoot       string
	referencePath string
	outPath       string
	verifyPath    string
}

//nolint:funlen
func (c *cmdGen) run(cmd *cobra.Command, _ []string) error {
	started := time.Now()
	gs := c.gs
	logger := gs.logger

	cliConf, err := getConfig(cmd.Flags())
	if err != nil {
		return err
	}
	conf, err := getConsolidatedConfig(gs, cliConf)
	if err != nil {
		return err
	}
	opts := conf.Options()

	pairs, err := scan.Pairs(gs.fs, c.oldRoot, c.newRoot)
	if err != nil {
		return errext.WithHint(
			errext.WithExitCodeIfNone(err, exitcodes.ScanFailed),
			"make sure both release trees are readable")
	}

	logger.Info("=> doing initial parsing and call count matching... this might take a little while...")
	parsed := make([]xmap.ParsedPair, 0, len(pairs))
	for _, p := range pairs {
		oldC, err := container.ParseFile(gs.fs, p.OldPath)
		if err != nil {
			logger.WithError(err).WithField("script", p.Name).Warn("skipping unparseable container pair")
			continue
		}
		newC, err := container.ParseFile(gs.fs, p.NewPath)
		if err != nil {
			logger.WithError(err).WithField("script", p.Name).Warn("skipping unparseable container pair")
			continue
		}
		parsed = append(parsed, xmap.ParsedPair{Name: p.Name, Old: oldC, New: newC})
	}

	tm := xmap.NewTranslationMap()

	ccLogger := logger.WithField("matcher", "callcount")
	xmap.MatchByCallCount(ccLogger, parsed, tm)
	ccLogger.Infof("=== translated %d natives! ===", tm.Len())

	logger.Info("=> performing dynamic pattern based translation...")
	patternLogger := logger.WithField("matcher", "pattern")
	for i, p := range parsed {
		if len(p.New.Calls) == 0 {
			continue
		}
		patternLogger.Infof("=== %s [calls: %d, table: %d] (%d/%d) ===",
			p.Name, len(p.New.Calls), len(p.New.NativeTable), i+1, len(parsed))
		xmap.MatchByPattern(patternLogger, p, tm, opts)
	}

	ref, err := xmap.LoadReference(gs.fs, c.referencePath)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.ReferenceError)
	}

	recovered := xmap.MatchByFallbackVotes(logger.WithField("matcher", "fallback"), parsed, tm, ref, opts)

	generated, err := xmap.WriteCrossmap(gs.fs, c.outPath, tm, ref)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.OutputError)
	}

	summary := xmap.NewSummary(generated, ref)
	summary.Recovered = recovered
	if c.verifyPath != "" {
		wrong, err := xmap.VerifyCrossmap(gs.fs, c.verifyPath, logger.WithField("matcher", "verifier"), generated)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.ReferenceError)
		}
		summary.Wrong, summary.Verified = wrong, true
	}

	logger.Infof("=== wrote a total of %d translations! ===", summary.Written)
	printSummary(gs, summary, time.Since(started))
	return nil
}

func getGenCmd(gs *globalState) *cobra.Command {
	c := &cmdGen{gs: gs}

	genCmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a crossmap between two releases",
		Long: `Generate a crossmap between two releases.

Parses every script container present in both release trees, infers the
old-to-new hash translations and joins them with the reference crossmap into a
universal crossmap for the new release.`,
		Example: `
  # Generate a crossmap for the current release
  xmapgen gen --old scripts/1493 --new scripts/current \
      --reference 1493_crossmap.txt --out crossmap_out.txt`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	flags := genCmd.Flags()
	flags.SortFlags = false
	flags.StringVar(&c.oldRoot, "old", "", "root of the old release's script tree")
	flags.StringVar(&c.newRoot, "new", "", "root of the new release's script tree")
	flags.StringVar(&c.referencePath, "reference", "", "crossmap mapping universal hashes to the old release")
	flags.StringVar(&c.outPath, "out", "crossmap_out.txt", "file to write the generated crossmap to")
	flags.StringVar(&c.verifyPath, "verify", "", "optional expected crossmap to check the results against")
	flags.AddFlagSet(configFlagSet())
	for _, name := range []string{"old", "new", "reference"} {
		if err := genCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return genCmd
}
