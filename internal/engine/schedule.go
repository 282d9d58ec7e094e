package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nodebase/engine/pkg/api"
	"github.com/nodebase/engine/pkg/log"
)

// cronPresets maps the well-known schedule choices to cron expressions
var cronPresets = map[string]string{
	"every-5-min":   "*/5 * * * *",
	"hourly":        "0 * * * *",
	"daily-9am":     "0 9 * * *",
	"weekly-monday": "0 9 * * 1",
	"monthly-1st":   "0 9 1 * *",
}

// CronFromPreset resolves a preset name to its cron expression
func CronFromPreset(preset string) (string, bool) {
	expr, ok := cronPresets[preset]
	return expr, ok
}

// StartSchedule begins the schedule cycle for a workflow. Starting an
// already-running schedule replaces it, picking up edits to the trigger
func (e *Engine) StartSchedule(
	ctx context.Context, id api.WorkflowID,
) error {
	return e.runScheduleCycle(ctx, id)
}

// StopSchedule cancels any pending firing for the workflow
func (e *Engine) StopSchedule(id api.WorkflowID) {
	e.cancelTask(scheduleTaskKey(id))
}

// runScheduleCycle registers the next firing for a workflow's schedule
// trigger. Each firing re-registers the one after it, so a cycle never
// holds a goroutine between firings. A missing or disabled trigger ends
// the cycle
func (e *Engine) runScheduleCycle(
	ctx context.Context, id api.WorkflowID,
) error {
	wf, err := e.store.LoadWorkflow(ctx, id)
	if err != nil {
		e.StopSchedule(id)
		return err
	}

	node := scheduleTriggerNode(wf)
	if node == nil || !scheduleEnabled(node.Config) {
		e.StopSchedule(id)
		slog.Info("Schedule cycle ended", log.WorkflowID(id))
		return nil
	}

	sched, err := parseCron(node.Config)
	if err != nil {
		e.StopSchedule(id)
		return err
	}

	next := sched.Next(e.Now())
	e.scheduleTask(scheduleTaskKey(id), next, func() error {
		return e.fireSchedule(id, next)
	})
	slog.Info("Schedule registered",
		log.WorkflowID(id),
		slog.Time("next_fire", next))
	return nil
}

// fireSchedule triggers one scheduled run, then registers the next cycle
func (e *Engine) fireSchedule(id api.WorkflowID, at time.Time) error {
	evt := api.TriggerEvent{
		WorkflowID: id,
		InitialData: api.Context{
			"schedule": map[string]any{
				"triggeredAt": at.UTC().Format(time.RFC3339),
			},
		},
	}
	if _, err := e.Trigger(e.ctx, evt); err != nil {
		slog.Error("Schedule trigger failed",
			log.WorkflowID(id), log.Error(err))
	}
	return e.runScheduleCycle(e.ctx, id)
}

func scheduleTaskKey(id api.WorkflowID) []string {
	return []string{"schedule", string(id)}
}

func scheduleTriggerNode(wf *api.Workflow) *api.Node {
	for _, n := range wf.Nodes {
		if n.Type == api.NodeScheduleTrigger {
			return n
		}
	}
	return nil
}

// scheduleEnabled reports whether a trigger is switched on. Only an
// explicit true counts; an absent or falsy flag stops the cycle
func scheduleEnabled(cfg api.NodeConfig) bool {
	v, ok := cfg["enabled"].(bool)
	return ok && v
}

// parseCron builds a cron schedule from a trigger's configuration. The
// expression comes from "cron" when present, otherwise from the "preset"
// name. A "timezone" entry evaluates the expression in that location;
// without one the expression is evaluated in UTC
func parseCron(cfg api.NodeConfig) (cron.Schedule, error) {
	expr, ok := cfg.String("cron")
	if !ok || expr == "" {
		preset, _ := cfg.String("preset")
		expr, ok = CronFromPreset(preset)
		if !ok {
			return nil, api.ConfigErr("missing cron expression")
		}
	}
	tz, ok := cfg.String("timezone")
	if !ok || tz == "" {
		tz = "UTC"
	}
	expr = fmt.Sprintf("CRON_TZ=%s %s", tz, expr)
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, api.ConfigErr("invalid cron expression: %w", err)
	}
	return sched, nil
}
