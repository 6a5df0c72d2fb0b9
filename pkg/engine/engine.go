// Package engine runs the evaluate-and-act pass: list resources, probe
// idleness, decide actions, notify and execute.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/reaper/pkg/config"
	awsint "github.com/DrSkyle/reaper/pkg/engine/aws"
	"github.com/DrSkyle/reaper/pkg/engine/evaluator"
	"github.com/DrSkyle/reaper/pkg/engine/notifier"
	"github.com/DrSkyle/reaper/pkg/engine/pricing"
	"github.com/DrSkyle/reaper/pkg/engine/probe"
	"github.com/DrSkyle/reaper/pkg/engine/report"
	"github.com/DrSkyle/reaper/pkg/idle"
	"github.com/DrSkyle/reaper/pkg/telemetry"
	"github.com/DrSkyle/reaper/pkg/version"
)

// ResourceLister enumerates the fleet.
type ResourceLister interface {
	ListInstances(ctx context.Context) ([]awsint.InstanceSummary, error)
	ListVolumes(ctx context.Context) ([]awsint.VolumeSummary, error)
}

// MetricProber computes per-instance idleness.
type MetricProber interface {
	ProbeAll(ctx context.Context, instanceIDs []string, concurrency int) []idle.Categories
}

// Notifier delivers chat messages.
type Notifier interface {
	Send(msg string) error
	WarnIdle(name, instanceID string, idleHours, monthlyCost float64) error
	NotifyStopped(name, instanceID string, idleHours, monthlyCost float64, dryRun bool) error
}

// InstanceStopper executes stop actions.
type InstanceStopper interface {
	StopInstance(ctx context.Context, instanceID string) error
}

// CostEstimator prices an instance type. Optional; a nil estimator degrades
// notifications to "no estimate".
type CostEstimator interface {
	InstanceMonthlyCost(ctx context.Context, region, instanceType string) (float64, error)
}

// Engine is the runtime core for one pass.
type Engine struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Out      io.Writer
	Lister   ResourceLister
	Prober   MetricProber
	Notifier Notifier
	Stopper  InstanceStopper
	Pricing  CostEstimator

	cfg      config.Config
	shutdown func(context.Context) error
}

// New wires an Engine against real AWS clients. Configuration is validated
// before any remote call is made.
func New(ctx context.Context, cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.JsonLogs)
	slog.SetDefault(logger)

	shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, "")
	if err != nil {
		logger.Warn("telemetry init failed", "error", err)
	}

	client, err := awsint.NewClient(ctx, cfg.Region, cfg.Profile, cfg.Verbose)
	if err != nil {
		return nil, err
	}

	if _, err := client.VerifyIdentity(ctx); err != nil {
		return nil, fmt.Errorf("credential check failed: %w", err)
	}
	logger.Info("authenticated", "region", cfg.Region)

	cw := awsint.NewCloudWatchClient(client.Config, config.LookbackWindow, config.SamplingPeriod)
	prober := probe.New(cw, cfg.Instances.Thresholds, logger)

	e := &Engine{
		Logger:   logger,
		Tracer:   otel.Tracer("reaper/engine"),
		Out:      os.Stdout,
		Lister:   awsint.NewLister(client.Config),
		Prober:   prober,
		Notifier: notifier.NewSlackClient(cfg.SlackWebhook, cfg.SlackChannel),
		Stopper:  awsint.NewStopper(client.Config),
		cfg:      cfg,
		shutdown: shutdown,
	}

	// Pricing is best effort; without it the messages just omit estimates.
	if pc, err := pricing.NewClient(ctx, logger, ""); err == nil {
		e.Pricing = pc
	} else {
		logger.Warn("pricing client unavailable", "error", err)
	}

	return e, nil
}

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) {
	if e.shutdown != nil {
		_ = e.shutdown(ctx)
	}
}

// RunInstances executes the instance pass and returns its counters.
func (e *Engine) RunInstances(ctx context.Context) (counters evaluator.Counters, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.RunInstances")
	defer span.End()
	defer e.recoverPanic(&err)

	instances, err := e.Lister.ListInstances(ctx)
	if err != nil {
		// Nothing to iterate; the whole pass fails.
		return evaluator.Counters{}, fmt.Errorf("instance listing failed: %w", err)
	}

	if e.cfg.Verbose {
		report.WriteInstanceTable(e.Out, instances)
		fmt.Fprintln(e.Out)
	}

	var inScope []awsint.InstanceSummary
	for _, inst := range instances {
		if inst.IsRunning() || e.cfg.Instances.IncludeStopped {
			inScope = append(inScope, inst)
		}
	}

	ids := make([]string, len(inScope))
	for i, inst := range inScope {
		ids[i] = inst.ID
	}
	idleness := e.Prober.ProbeAll(ctx, ids, e.cfg.Concurrency)

	decisions, counters := evaluator.EvaluateInstances(inScope, idleness, e.cfg.Instances)

	if e.cfg.Verbose {
		report.WriteIdleness(e.Out, decisions)
		fmt.Fprintln(e.Out)
	}

	costs := e.executeDecisions(ctx, decisions)

	if e.cfg.OutputPath != "" {
		if err := report.WriteActionsJSON(e.cfg.OutputPath, decisions, costs); err != nil {
			e.Logger.Warn("action export failed", "path", e.cfg.OutputPath, "error", err)
		}
	}

	fmt.Fprintln(e.Out, report.SummaryLine(counters))

	span.SetAttributes(
		attribute.Int("reaper.checked", counters.Checked),
		attribute.Int("reaper.warned", counters.Warned),
		attribute.Int("reaper.stopped", counters.Stopped),
	)

	return counters, nil
}

// executeDecisions delivers warnings and performs stops. Notification and
// stop failures are logged, never fatal: the decisions stand either way.
func (e *Engine) executeDecisions(ctx context.Context, decisions []evaluator.InstanceDecision) map[string]float64 {
	costs := make(map[string]float64)

	for _, d := range decisions {
		if d.Action == evaluator.ActionNone {
			continue
		}

		monthly := e.estimateCost(ctx, d.Instance.Type)
		if monthly >= 0 {
			costs[d.Instance.ID] = monthly
		}

		switch d.Action {
		case evaluator.ActionWarn:
			if err := e.Notifier.WarnIdle(d.Instance.Name(), d.Instance.ID, d.Effective.Hours(), monthly); err != nil {
				e.Logger.Warn("warning notification failed", "instance", d.Instance.ID, "error", err)
			}

		case evaluator.ActionStop:
			if e.cfg.Instances.DryRun {
				e.Logger.Info("dry run: would stop instance", "instance", d.Instance.ID, "idle_hours", d.Effective.Hours())
			} else if err := e.Stopper.StopInstance(ctx, d.Instance.ID); err != nil {
				e.Logger.Error("stop failed", "instance", d.Instance.ID, "error", err)
				continue
			}
			if err := e.Notifier.NotifyStopped(d.Instance.Name(), d.Instance.ID, d.Effective.Hours(), monthly, e.cfg.Instances.DryRun); err != nil {
				e.Logger.Warn("stop notification failed", "instance", d.Instance.ID, "error", err)
			}
		}
	}

	return costs
}

// RunVolumes executes the volume pass. Warnings go to stdout, and to Slack
// when a webhook is configured.
func (e *Engine) RunVolumes(ctx context.Context) (rep evaluator.VolumeReport, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.RunVolumes")
	defer span.End()
	defer e.recoverPanic(&err)

	volumes, err := e.Lister.ListVolumes(ctx)
	if err != nil {
		return evaluator.VolumeReport{}, fmt.Errorf("volume listing failed: %w", err)
	}

	result := evaluator.EvaluateVolumes(volumes, e.cfg.Volumes)

	report.WriteVolumeTable(e.Out, volumes, result.TotalGB)
	fmt.Fprintln(e.Out)

	for _, warning := range result.Warnings {
		fmt.Fprintln(e.Out, warning)
		if e.cfg.SlackWebhook != "" {
			if err := e.Notifier.Send(warning); err != nil {
				e.Logger.Warn("volume warning notification failed", "error", err)
			}
		}
	}

	span.SetAttributes(attribute.Int("reaper.volume_warnings", len(result.Warnings)))

	return result, nil
}

// TestNotification sends a literal message, bypassing all resource
// processing. Used for verifying the Slack integration.
func (e *Engine) TestNotification(msg string) error {
	return e.Notifier.Send(msg)
}

func (e *Engine) estimateCost(ctx context.Context, instanceType string) float64 {
	if e.Pricing == nil {
		return -1
	}
	cost, err := e.Pricing.InstanceMonthlyCost(ctx, e.cfg.Region, instanceType)
	if err != nil {
		e.Logger.Warn("cost estimate failed", "instance_type", instanceType, "error", err)
		return -1
	}
	return cost
}

// recoverPanic converts a panic mid-pass into a returned error. A swallowed
// panic would look exactly like a clean empty pass to the caller.
func (e *Engine) recoverPanic(err *error) {
	if r := recover(); r != nil {
		e.Logger.Error("critical failure", "error", r, "stack", string(debug.Stack()))
		*err = fmt.Errorf("pass aborted by panic: %v", r)
	}
}

// NewLogger builds the pass logger. JSON output is meant for scheduled runs
// whose logs are shipped; text for humans at a terminal.
func NewLogger(jsonLogs bool) *slog.Logger {
	opts := &slog.HandlerOptions{ReplaceAttr: redactSensitiveData}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"account": true, "password": true, "access_key": true, "token": true,
		"secret": true, "api_key": true, "webhook": true, "credential": true,
	}

	if sensitiveKeys[a.Key] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}
