package runner

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/logrusorgru/aurora/v4"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
	"github.com/tidwall/gjson"

	"github.com/dualpath/dualping/pkg/version"
)

var au *aurora.Aurora

var (
	DefaultConcurrency  = envutil.GetEnvOrDefault("DUALPING_CONCURRENCY", 10)
	DefaultProbeTimeout = envutil.GetEnvOrDefault("DUALPING_PROBE_TIMEOUT", 2)
	DefaultRetries      = envutil.GetEnvOrDefault("DUALPING_RETRIES", 1)
)

// Options contains the configuration options for a reachability sweep.
type Options struct {
	NetworkA   goflags.StringSlice
	NetworkB   goflags.StringSlice
	ConfigFile string

	IgnoreOctets goflags.StringSlice
	ignoreOctets []int

	ProbeTimeout int
	Retries      int
	Concurrency  int
	Deadline     int

	SourceA      string
	SourceB      string
	Unprivileged bool
	RawSocket    bool

	Paired        bool
	WatchInterval int

	JSON    bool
	Output  string
	NoColor bool

	Verbose bool
	Silent  bool
	Version bool
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`dualping probes every device address on a pair of redundant networks and reports the addresses reachable on exactly one of them`)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringSliceVarP(&options.NetworkA, "network-a", "a", nil, "CIDRs or IPs for network a (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringSliceVarP(&options.NetworkB, "network-b", "b", nil, "CIDRs or IPs for network b (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.StringVar(&options.ConfigFile, "config", "", "JSON configuration file with network definitions"),
		flagSet.StringSliceVarP(&options.IgnoreOctets, "ignore-octets", "io", nil, "skip addresses with these last octets (comma separated)", goflags.CommaSeparatedStringSliceOptions),
	)

	flagSet.CreateGroup("probe", "Probe",
		flagSet.IntVarP(&options.ProbeTimeout, "timeout", "t", DefaultProbeTimeout, "per-probe timeout in seconds"),
		flagSet.IntVar(&options.Retries, "retries", DefaultRetries, "echo retries per address (1-3)"),
		flagSet.IntVarP(&options.Concurrency, "concurrency", "c", DefaultConcurrency, "max probes in flight per network"),
		flagSet.IntVarP(&options.Deadline, "deadline", "d", 0, "wall-clock budget for the whole sweep in seconds (0 = none)"),
		flagSet.StringVarP(&options.SourceA, "source-a", "sa", "", "local source address for network a probes"),
		flagSet.StringVarP(&options.SourceB, "source-b", "sb", "", "local source address for network b probes"),
		flagSet.BoolVarP(&options.Unprivileged, "unprivileged", "up", false, "use unprivileged UDP-based pings instead of raw sockets"),
		flagSet.BoolVar(&options.RawSocket, "raw", false, "use the built-in raw socket prober (requires root)"),
	)

	flagSet.CreateGroup("mode", "Mode",
		flagSet.BoolVar(&options.Paired, "paired", false, "pair pools positionally instead of probing the union on both networks"),
		flagSet.IntVarP(&options.WatchInterval, "watch", "w", 0, "re-run the sweep every N seconds until interrupted (0 = once)"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.BoolVarP(&options.JSON, "json", "j", false, "write results as JSON"),
		flagSet.StringVarP(&options.Output, "output", "o", "", "file to write results to"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	// configure aurora for result coloring
	au = aurora.New(aurora.WithColors(true))

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if options.ConfigFile != "" {
		if err := options.loadConfigFrom(options.ConfigFile); err != nil {
			gologger.Fatal().Msgf("Could not load config file: %s\n", err)
		}
	}

	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	return options
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
		au = aurora.New(aurora.WithColors(false))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

// loadConfigFrom fills unset input options from a JSON configuration
// file. Explicit flags take precedence over file values.
func (options *Options) loadConfigFrom(location string) error {
	if !fileutil.FileExists(location) {
		return fmt.Errorf("config file %s does not exist", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", location, err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("config file %s is not valid JSON", location)
	}

	doc := gjson.ParseBytes(data)
	if len(options.NetworkA) == 0 {
		for _, value := range doc.Get("network_a").Array() {
			options.NetworkA = append(options.NetworkA, value.String())
		}
	}
	if len(options.NetworkB) == 0 {
		for _, value := range doc.Get("network_b").Array() {
			options.NetworkB = append(options.NetworkB, value.String())
		}
	}
	if len(options.IgnoreOctets) == 0 {
		for _, value := range doc.Get("ignore_octets").Array() {
			options.IgnoreOctets = append(options.IgnoreOctets, value.String())
		}
	}
	if options.SourceA == "" {
		options.SourceA = doc.Get("source_a").String()
	}
	if options.SourceB == "" {
		options.SourceB = doc.Get("source_b").String()
	}
	return nil
}

// validate checks the configuration and normalizes bounded values
func (options *Options) validate() error {
	if len(options.NetworkA) == 0 || len(options.NetworkB) == 0 {
		return fmt.Errorf("both -network-a and -network-b require at least one CIDR or IP")
	}

	octets, err := parseIgnoreOctets(options.IgnoreOctets)
	if err != nil {
		return err
	}
	options.ignoreOctets = octets

	if options.Retries < 1 || options.Retries > 3 {
		gologger.Warning().Msgf("retries must be between 1 and 3, defaulting to 1\n")
		options.Retries = 1
	}
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	if options.ProbeTimeout <= 0 {
		options.ProbeTimeout = DefaultProbeTimeout
	}
	return nil
}

// parseIgnoreOctets converts the raw flag values to integers. A non-
// integer entry is a configuration error.
func parseIgnoreOctets(raw []string) ([]int, error) {
	octets := make([]int, 0, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		octet, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("all entries in the ignore list must be integers, got %q", value)
		}
		octets = append(octets, octet)
	}
	return octets, nil
}
