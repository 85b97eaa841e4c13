package cmd

import (
	"errors"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/polyhop/xmapgen/errext"
	"github.com/polyhop/xmapgen/errext/exitcodes"
	"github.com/polyhop/xmapgen/lib/xmap"
)

// Config holds the matcher tuning knobs. Zero-value fields fall back to the
// calibrated defaults during consolidation.
type Config struct {
	MinPatternSize     null.Int `json:"minPatternSize" envconfig:"XMAPGEN_MIN_PATTERN_SIZE"`
	PatternStartOffset null.Int `json:"patternStartOffset" envconfig:"XMAPGEN_PATTERN_START_OFFSET"`
	VoteThreshold      null.Int `json:"voteThreshold" envconfig:"XMAPGEN_VOTE_THRESHOLD"`
}

// Apply overwrites the receiver's fields with any explicitly set fields of
// the argument and returns the result.
func (c Config) Apply(cfg Config) Config {
	if cfg.MinPatternSize.Valid {
		c.MinPatternSize = cfg.MinPatternSize
	}
	if cfg.PatternStartOffset.Valid {
		c.PatternStartOffset = cfg.PatternStartOffset
	}
	if cfg.VoteThreshold.Valid {
		c.VoteThreshold = cfg.VoteThreshold
	}
	return c
}

// Validate checks the consolidated values for consistency.
func (c Config) Validate() error {
	if c.MinPatternSize.Int64 < 1 {
		return errors.New("min-pattern-size must be at least 1")
	}
	if c.PatternStartOffset.Int64 < 0 {
		return errors.New("pattern-start-offset can't be negative")
	}
	if c.VoteThreshold.Int64 < 1 {
		return errors.New("vote-threshold must be at least 1")
	}
	return nil
}

// Options converts the consolidated config into matcher options.
func (c Config) Options() xmap.Options {
	return xmap.Options{
		MinPatternSize:     int(c.MinPatternSize.Int64),
		PatternStartOffset: int(c.PatternStartOffset.Int64),
		VoteThreshold:      int(c.VoteThreshold.Int64),
	}
}

// configFlagSet returns a FlagSet with the matcher tuning flags.
func configFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.Int("min-pattern-size", int(defaultConfig().MinPatternSize.Int64),
		"minimum aligned window length accepted by pattern matching")
	flags.Int("pattern-start-offset", int(defaultConfig().PatternStartOffset.Int64),
		"how many calls to back off before the first unmapped hash when aligning")
	flags.Int("vote-threshold", int(defaultConfig().VoteThreshold.Int64),
		"votes required to accept a fallback call count candidate")
	return flags
}

// getConfig composes a Config from only the flags the user actually passed.
func getConfig(flags *pflag.FlagSet) (Config, error) {
	conf := Config{}
	for _, opt := range []struct {
		name string
		dst  *null.Int
	}{
		{"min-pattern-size", &conf.MinPatternSize},
		{"pattern-start-offset", &conf.PatternStartOffset},
		{"vote-threshold", &conf.VoteThreshold},
	} {
		if !flags.Changed(opt.name) {
			continue
		}
		val, err := flags.GetInt(opt.name)
		if err != nil {
			return conf, err
		}
		*opt.dst = null.IntFrom(int64(val))
	}
	return conf, nil
}

func defaultConfig() Config {
	defaults := xmap.DefaultOptions()
	return Config{
		MinPatternSize:     null.NewInt(int64(defaults.MinPatternSize), false),
		PatternStartOffset: null.NewInt(int64(defaults.PatternStartOffset), false),
		VoteThreshold:      null.NewInt(int64(defaults.VoteThreshold), false),
	}
}

// getConsolidatedConfig applies the default values, the environment and
// finally the CLI flags, in that order of precedence.
func getConsolidatedConfig(gs *globalState, cliConf Config) (Config, error) {
	envConf := Config{}
	if err := envconfig.Process("", &envConf, func(key string) (string, bool) {
		v, ok := gs.envVars[key]
		return v, ok
	}); err != nil {
		return Config{}, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	conf := defaultConfig().Apply(envConf).Apply(cliConf)
	if err := conf.Validate(); err != nil {
		return conf, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	return conf, nil
}
