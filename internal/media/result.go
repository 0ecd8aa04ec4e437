package media

// Result is the outcome of resolving one item: either a fully resolved
// Descriptor, or a reference the driver must hand to another provider.
type Result struct {
	Descriptor *Descriptor

	// Delegation target, set when Descriptor is nil.
	Provider string // provider key, e.g. "youtube"
	ID       string
	URL      string
}

// NewResolved wraps a resolved descriptor.
func NewResolved(d *Descriptor) Result {
	return Result{Descriptor: d}
}

// NewDelegated builds a cross-provider reference. The walker never
// re-walks a delegated item; the top-level driver dispatches it.
func NewDelegated(provider, id, url string) Result {
	return Result{Provider: provider, ID: id, URL: url}
}

// Delegated reports whether the result must be resolved elsewhere.
func (r Result) Delegated() bool {
	return r.Descriptor == nil
}
