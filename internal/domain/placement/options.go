package placement

import "github.com/okian/formation/pkg/logger"

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransitionHook registers fn to be called on every state change. It is
// called without the controller lock held.
func WithTransitionHook(fn func(playerID string, from, to State)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.hooks = append(c.hooks, fn)
		}
	}
}
