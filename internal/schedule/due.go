// Package schedule implements the schedule readiness query (§4.13): given
// the enabled schedule rows, which are due to fire right now. Cron parsing
// happens here rather than in internal/store so the store stays
// dependency-free of the cron library.
package schedule

import (
	"context"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

var cronParser = cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow)

// Checker composes the store queries dueSchedules needs.
type Checker struct {
	schedules store.ScheduleStore
	tasks     store.TaskStore
}

func NewChecker(schedules store.ScheduleStore, tasks store.TaskStore) *Checker {
	return &Checker{schedules: schedules, tasks: tasks}
}

// DueSchedules returns every enabled schedule ready to fire at now (§4.13):
// a cron schedule whose expression's next fire time after the reference
// point (last_triggered_at, or created_at if never triggered) is <= now; every continuous schedule whose minimum_interval_seconds has
// elapsed since last_triggered_at; never a reactive schedule. A schedule
// with only_when_tasks_pending set is additionally filtered out when its
// agent has no pending/in-progress/blocked task.
func (c *Checker) DueSchedules(ctx context.Context, now time.Time) ([]store.ScheduleData, error) {
	enabled, err := c.schedules.EnabledSchedules(ctx)
	if err != nil {
		return nil, err
	}

	var due []store.ScheduleData
	for _, s := range enabled {
		ready, err := c.isReady(s, now)
		if err != nil {
			return nil, err
		}
		if !ready {
			continue
		}
		if s.OnlyWhenTasksPending {
			pending, err := c.hasPendingTasks(ctx, s.AgentID)
			if err != nil {
				return nil, err
			}
			if !pending {
				continue
			}
		}
		due = append(due, s)
	}
	return due, nil
}

func (c *Checker) isReady(s store.ScheduleData, now time.Time) (bool, error) {
	switch s.TriggerType {
	case store.ScheduleTriggerCron:
		return cronDue(s, now)
	case store.ScheduleTriggerContinuous:
		return continuousDue(s, now), nil
	default: // reactive, or any unrecognized value
		return false, nil
	}
}

func cronDue(s store.ScheduleData, now time.Time) (bool, error) {
	if s.CronExpression == "" {
		return false, nil
	}
	sched, err := cronParser.Parse(s.CronExpression)
	if err != nil {
		return false, store.WrapError(store.KindSchemaInvalid, s.ID, err)
	}

	ref := s.CreatedAt
	if s.LastTriggeredAt != nil {
		ref = *s.LastTriggeredAt
	}
	loc := time.UTC
	if s.Timezone != "" {
		if tz, err := time.LoadLocation(s.Timezone); err == nil {
			loc = tz
		}
	}
	next := sched.Next(ref.In(loc))
	return !next.After(now), nil
}

func continuousDue(s store.ScheduleData, now time.Time) bool {
	if s.LastTriggeredAt == nil {
		return true
	}
	if s.MinimumIntervalSeconds <= 0 {
		return true
	}
	return now.Sub(*s.LastTriggeredAt) >= time.Duration(s.MinimumIntervalSeconds)*time.Second
}

func (c *Checker) hasPendingTasks(ctx context.Context, agentID string) (bool, error) {
	tasks, err := c.tasks.ListTasksByStatus(ctx, agentID, store.TaskFilterActive)
	if err != nil {
		return false, err
	}
	return len(tasks) > 0, nil
}
