package scheduler

import "context"

type dynamic struct{}

// NewDynamic returns a Scheduler that starts a new goroutine for every function.
func NewDynamic() Scheduler { return dynamic{} }

func (dynamic) Go(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	go fn()
	return nil
}
