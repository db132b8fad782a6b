package frame

// Sequence is an ordered list of frames, index order is temporal order
type Sequence []*Frame

// Clone deep copies every frame of the sequence
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}

	c := make(Sequence, len(s))
	for i, f := range s {
		c[i] = f.Clone()
	}
	return c
}

// SameSize returns the index of the first frame whose dimensions differ
// from the first frame, or -1 if all frames share the same size
func (s Sequence) SameSize() int {
	for i := 1; i < len(s); i++ {
		if !s[i].SameSize(s[0]) {
			return i
		}
	}

	return -1
}

// Equal reports whether both sequences hold pixel identical frames in the same order
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}

	for i := range s {
		if !s[i].Equal(other[i]) {
			return false
		}
	}

	return true
}
