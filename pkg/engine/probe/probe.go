// Package probe turns per-instance CloudWatch metrics into per-category idle
// durations.
package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/DrSkyle/reaper/pkg/config"
	"github.com/DrSkyle/reaper/pkg/idle"
)

// SeriesFetcher retrieves one metric series for one instance.
type SeriesFetcher interface {
	InstanceSeries(ctx context.Context, instanceID, metricName string, unit types.StandardUnit) ([]idle.Sample, error)
}

// Prober computes idle durations for the CPU, disk and network signals of an
// instance. Fetch failures are mapped to Unknown so a flaky metric never
// aborts the pass.
type Prober struct {
	Fetcher    SeriesFetcher
	Thresholds config.Thresholds
	Period     time.Duration
	Logger     *slog.Logger
}

func New(fetcher SeriesFetcher, thresholds config.Thresholds, logger *slog.Logger) *Prober {
	return &Prober{
		Fetcher:    fetcher,
		Thresholds: thresholds,
		Period:     config.SamplingPeriod,
		Logger:     logger,
	}
}

// Probe evaluates all metric categories for one instance.
func (p *Prober) Probe(ctx context.Context, instanceID string) idle.Categories {
	return idle.Categories{
		CPU:     p.cpuIdle(ctx, instanceID),
		Disk:    p.diskIdle(ctx, instanceID),
		Network: p.networkIdle(ctx, instanceID),
	}
}

// ProbeAll probes instances with bounded concurrency. Results are returned in
// input order, so reported output is unaffected by the parallelism.
func (p *Prober) ProbeAll(ctx context.Context, instanceIDs []string, concurrency int) []idle.Categories {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]idle.Categories, len(instanceIDs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, id := range instanceIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.Probe(ctx, id)
		}(i, id)
	}
	wg.Wait()

	return results
}

func (p *Prober) cpuIdle(ctx context.Context, instanceID string) idle.Result {
	return p.metricIdle(ctx, instanceID, "CPUUtilization", types.StandardUnitPercent, p.Thresholds.MinCPUUtilisation)
}

// diskIdle combines read and write idleness. The metric name depends on the
// instance's virtualization: EBS-only instances report EBSReadOps/EBSWriteOps,
// instance-store ones report DiskReadOps/DiskWriteOps. The primary name is
// tried first and the secondary only when the primary has no data.
func (p *Prober) diskIdle(ctx context.Context, instanceID string) idle.Result {
	readIdle := p.metricIdle(ctx, instanceID, "EBSReadOps", types.StandardUnitCount, p.Thresholds.MinDiskOps)
	if !readIdle.Known() {
		readIdle = p.metricIdle(ctx, instanceID, "DiskReadOps", types.StandardUnitCount, p.Thresholds.MinDiskOps)
	}

	writeIdle := p.metricIdle(ctx, instanceID, "EBSWriteOps", types.StandardUnitCount, p.Thresholds.MinDiskOps)
	if !writeIdle.Known() {
		writeIdle = p.metricIdle(ctx, instanceID, "DiskWriteOps", types.StandardUnitCount, p.Thresholds.MinDiskOps)
	}

	return idle.Longest(readIdle, writeIdle)
}

func (p *Prober) networkIdle(ctx context.Context, instanceID string) idle.Result {
	inIdle := p.metricIdle(ctx, instanceID, "NetworkPacketsIn", types.StandardUnitCount, p.Thresholds.MinNetworkPackets)
	outIdle := p.metricIdle(ctx, instanceID, "NetworkPacketsOut", types.StandardUnitCount, p.Thresholds.MinNetworkPackets)
	return idle.Longest(inIdle, outIdle)
}

func (p *Prober) metricIdle(ctx context.Context, instanceID, metricName string, unit types.StandardUnit, floor float64) idle.Result {
	samples, err := p.Fetcher.InstanceSeries(ctx, instanceID, metricName, unit)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn("metric fetch failed, treating as unknown",
				"instance", instanceID, "metric", metricName, "error", err)
		}
		return idle.Unknown()
	}
	return idle.Compute(samples, floor, p.Period)
}
