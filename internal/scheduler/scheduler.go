// Package scheduler runs the periodic refresh on a cron spec.
package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

type Task func(ctx context.Context) error

// Start schedules task on the given cron spec and returns the started
// scheduler; call Stop on shutdown. The task also fires once immediately
// so a fresh install has data before the first tick.
func Start(ctx context.Context, spec string, name string, task Task) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	}()

	c.Start()
	return c, nil
}
