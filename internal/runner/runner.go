package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/projectdiscovery/gologger"
	"github.com/rs/xid"

	"github.com/dualpath/dualping/pkg/diff"
	"github.com/dualpath/dualping/pkg/pool"
	"github.com/dualpath/dualping/pkg/probe"
	"github.com/dualpath/dualping/pkg/sweep"
)

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	prober  probe.Prober
	poolA   []net.IP
	poolB   []net.IP
}

// NewRunner resolves the address pools and prepares the prober. Only
// configuration errors can fail here; once NewRunner returns, probing
// conditions are carried as data and never abort a sweep.
func NewRunner(options *Options) (*Runner, error) {
	runner := &Runner{options: options}

	poolOptions := pool.Options{IgnoreOctets: options.ignoreOctets}
	var err error
	runner.poolA, err = pool.Resolve(options.NetworkA, poolOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve network a pool: %w", err)
	}
	runner.poolB, err = pool.Resolve(options.NetworkB, poolOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve network b pool: %w", err)
	}

	if options.RawSocket {
		runner.prober = probe.NewRawProber(probe.RawOptions{
			SourceA: options.SourceA,
			SourceB: options.SourceB,
		})
	} else {
		runner.prober = probe.NewPingProber(probe.PingOptions{
			Privileged: !options.Unprivileged,
			Retries:    options.Retries,
			SourceA:    options.SourceA,
			SourceB:    options.SourceB,
		})
	}

	return runner, nil
}

// Run executes the sweep pipeline, repeatedly when watch mode is
// enabled. Every iteration resolves nothing and persists nothing: the
// verdicts of one sweep never influence the next.
func (r *Runner) Run(ctx context.Context) error {
	if r.options.WatchInterval <= 0 {
		return r.sweepOnce(ctx)
	}

	ticker := time.NewTicker(time.Duration(r.options.WatchInterval) * time.Second)
	defer ticker.Stop()

	for {
		if err := r.sweepOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Close the runner instance
func (r *Runner) Close() {}

func (r *Runner) sweepOnce(ctx context.Context) error {
	sweepID := xid.New().String()
	start := time.Now()

	// In union mode both networks are probed for every address of either
	// pool; paired mode keeps the pools separate and zips them by
	// position
	ipsA, ipsB := r.poolA, r.poolB
	if !r.options.Paired {
		universe := pool.Union(r.poolA, r.poolB)
		ipsA, ipsB = universe, universe
	}

	sweepCtx := ctx
	if r.options.Deadline > 0 {
		var cancel context.CancelFunc
		sweepCtx, cancel = context.WithTimeout(ctx, time.Duration(r.options.Deadline)*time.Second)
		defer cancel()
	}

	gologger.Info().Msgf("[%s] sweeping %s addresses per network (concurrency %d, probe timeout %ds)",
		sweepID, humanize.Comma(int64(len(ipsA))), r.options.Concurrency, r.options.ProbeTimeout)

	verdictsA, verdictsB, err := sweep.RunBoth(sweepCtx, r.prober, ipsA, ipsB, sweep.Options{
		Concurrency:  r.options.Concurrency,
		ProbeTimeout: time.Duration(r.options.ProbeTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to sweep networks: %w", err)
	}

	var result diff.Result
	if r.options.Paired {
		result = diff.ComputePaired(ipsA, ipsB, verdictsA, verdictsB)
	} else {
		result = diff.Compute(verdictsA, verdictsB)
	}

	if err := r.writeResult(sweepID, result); err != nil {
		return err
	}

	gologger.Info().Msgf("[%s] found %s asymmetric and %s unknown addresses in %s",
		sweepID,
		humanize.Comma(int64(len(result.OnlyOnA)+len(result.OnlyOnB))),
		humanize.Comma(int64(len(result.Unknown))),
		time.Since(start).Round(time.Millisecond))

	return nil
}

func (r *Runner) writeResult(sweepID string, result diff.Result) error {
	var rendered string
	var err error
	if r.options.JSON {
		rendered, err = renderJSON(sweepID, result)
		if err != nil {
			return err
		}
		gologger.Silent().Msgf("%s\n", rendered)
	} else {
		rendered = renderText(result)
		for _, ip := range result.OnlyOnA {
			gologger.Silent().Msgf("%s [%s]\n", ip, au.Green("only on network-a"))
		}
		for _, ip := range result.OnlyOnB {
			gologger.Silent().Msgf("%s [%s]\n", ip, au.Yellow("only on network-b"))
		}
		for _, unknown := range result.Unknown {
			gologger.Silent().Msgf("%s [%s] %s\n", unknown.IP, au.Red("unknown on "+unknown.Network.String()), unknown.Reason)
		}
	}

	if r.options.Output == "" {
		return nil
	}
	file, err := os.OpenFile(r.options.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file %s: %w", r.options.Output, err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := file.WriteString(rendered + "\n"); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", r.options.Output, err)
	}
	return nil
}

// Report is the JSON document written for one sweep
type Report struct {
	SweepID   string         `json:"sweep_id"`
	Timestamp time.Time      `json:"timestamp"`
	OnlyOnA   []string       `json:"only_on_a"`
	OnlyOnB   []string       `json:"only_on_b"`
	Unknown   []diff.Unknown `json:"unknown"`
}

func renderJSON(sweepID string, result diff.Result) (string, error) {
	report := Report{
		SweepID:   sweepID,
		Timestamp: time.Now().UTC(),
		OnlyOnA:   ipStrings(result.OnlyOnA),
		OnlyOnB:   ipStrings(result.OnlyOnB),
		Unknown:   result.Unknown,
	}
	if report.Unknown == nil {
		report.Unknown = []diff.Unknown{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

func renderText(result diff.Result) string {
	var builder strings.Builder
	for _, ip := range result.OnlyOnA {
		builder.WriteString(fmt.Sprintf("%s [only on network-a]\n", ip))
	}
	for _, ip := range result.OnlyOnB {
		builder.WriteString(fmt.Sprintf("%s [only on network-b]\n", ip))
	}
	for _, unknown := range result.Unknown {
		builder.WriteString(fmt.Sprintf("%s [unknown on %s] %s\n", unknown.IP, unknown.Network, unknown.Reason))
	}
	return strings.TrimRight(builder.String(), "\n")
}

func ipStrings(ips []net.IP) []string {
	values := make([]string, 0, len(ips))
	for _, ip := range ips {
		values = append(values, ip.String())
	}
	return values
}
