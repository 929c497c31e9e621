// Package request holds the immutable configuration for one repack run.
package request

// Request is the immutable, read-only-after-construction configuration for
// a run: which library is being characterized, which PVT corners and
// cells to expand targets over, and where output lands. Kits read it but
// never mutate it — New returns a Request whose slices and map are already
// defensive copies, so no Kit can reach back into caller-owned memory.
type Request struct {
	libraryName string
	pvts        []string
	corners     []string
	cells       []string
	outputRoot  string
	options     map[string]string
}

// New constructs a Request, copying all slice and map arguments so the
// caller's originals can be mutated afterwards without affecting the run.
func New(libraryName string, pvts, corners, cells []string, outputRoot string, options map[string]string) *Request {
	r := &Request{
		libraryName: libraryName,
		pvts:        append([]string(nil), pvts...),
		corners:     append([]string(nil), corners...),
		cells:       append([]string(nil), cells...),
		outputRoot:  outputRoot,
		options:     make(map[string]string, len(options)),
	}
	for k, v := range options {
		r.options[k] = v
	}
	return r
}

// LibraryName is the name of the library being characterized.
func (r *Request) LibraryName() string { return r.libraryName }

// PVTs returns the list of PVT identifiers to expand targets over. The
// returned slice is a copy; mutating it has no effect on the Request.
func (r *Request) PVTs() []string { return append([]string(nil), r.pvts...) }

// Corners returns the list of corners for this run. The returned slice is a
// copy.
func (r *Request) Corners() []string { return append([]string(nil), r.corners...) }

// Cells returns the list of cells for this run. The returned slice is a
// copy.
func (r *Request) Cells() []string { return append([]string(nil), r.cells...) }

// OutputRoot is the absolute path under which kits write their output.
func (r *Request) OutputRoot() string { return r.outputRoot }

// Option returns the value of an open-ended option key and whether it was
// set. Kits use this for settings the engine itself does not interpret.
func (r *Request) Option(key string) (string, bool) {
	v, ok := r.options[key]
	return v, ok
}
