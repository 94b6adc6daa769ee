package allocation

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAllowReassignment controls whether a worker already assigned in a pass
// stays eligible for later requests of the same pass. Disabling it gives a
// strict one-worker-per-pass allocation.
func WithAllowReassignment(allow bool) Option {
	return func(e *Engine) {
		e.allowReassignment = allow
	}
}
