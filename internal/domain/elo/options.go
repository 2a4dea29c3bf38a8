package elo

// Option applies a configuration option to the Updater.
type Option func(*Updater)

// WithK sets the K factor. Non-positive values are ignored.
func WithK(k float64) Option {
	return func(u *Updater) {
		if k > 0 {
			u.k = k
		}
	}
}
