package template

// Deduplicator remembers the last accepted probe of one polling loop.
// It is not safe for concurrent use; give each loop its own instance.
type Deduplicator struct {
	last Template
}

// Accept returns false when candidate equals the last accepted template and
// true otherwise, in which case candidate becomes the new reference.
func (d *Deduplicator) Accept(candidate Template) bool {
	if !d.last.IsZero() && d.last.Equal(candidate) {
		return false
	}
	d.last = candidate
	return true
}

// Reset forgets the last accepted template.
func (d *Deduplicator) Reset() {
	d.last = Template{}
}
