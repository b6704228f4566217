package payment

import "context"

// Throttle bounds how often a reservation may trigger a gateway search.
type Throttle interface {
	Allow(ctx context.Context, key string) bool
}

type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) bool { return true }
