package extract

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxSamples caps how many sampled frames one clip may contribute.
// Zero or negative disables the cap.
func WithMaxSamples(n int) Option {
	return func(e *Extractor) {
		e.maxSamples = n
	}
}
