package arena

// WithPool constructs a Pool, runs fn with it, and guarantees Close is
// called afterward regardless of how fn returns — the Go equivalent of
// the "one arena per request" pattern this package started from, except
// the Pool itself (not a wrapper around it) is what's safe for fn to
// hand to as many goroutines as it likes.
func WithPool(fn func(p *Pool) error, opts ...Option) (LeakReport, error) {
	p, err := New(opts...)
	if err != nil {
		return LeakReport{}, err
	}
	fnErr := fn(p)
	report := p.Close()
	return report, fnErr
}
