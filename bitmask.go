package luminara

import "reflect"

// bitmask is a growable set of small integers. The batcher uses it to turn
// conflict checks between access descriptors into word-wise ANDs.
type bitmask []uint64

// set enables the bit corresponding to the given index.
func (m *bitmask) set(bit int) {
	i := bit >> 6 // (bit / 64) to find the uint64 index
	o := bit & 63 // (bit % 64) to find the bit offset
	for i >= len(*m) {
		*m = append(*m, 0)
	}
	(*m)[i] |= uint64(1) << uint64(o)
}

// containsBit checks if a specific bit is set in the mask.
func (m bitmask) containsBit(bit int) bool {
	i := bit >> 6
	if i >= len(m) {
		return false
	}
	o := bit & 63
	return (m[i] & (uint64(1) << uint64(o))) != 0
}

// intersects reports whether m and o share at least one bit.
func (m bitmask) intersects(o bitmask) bool {
	n := min(len(m), len(o))
	for i := 0; i < n; i++ {
		if m[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

// or merges the bits of o into m.
func (m *bitmask) or(o bitmask) {
	for len(*m) < len(o) {
		*m = append(*m, 0)
	}
	for i, w := range o {
		(*m)[i] |= w
	}
}

func (m bitmask) isZero() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

// typeIndex assigns dense bit positions to types. Component and resource
// types share one index space; the descriptor kind keeps them apart.
type typeIndex struct {
	bits map[reflect.Type]int
}

func (x *typeIndex) bit(t reflect.Type) int {
	if x.bits == nil {
		x.bits = make(map[reflect.Type]int)
	}
	if b, ok := x.bits[t]; ok {
		return b
	}
	b := len(x.bits)
	x.bits[t] = b
	return b
}

func (x *typeIndex) mask(s TypeSet) bitmask {
	var m bitmask
	for t := range s.m {
		m.set(x.bit(t))
	}
	return m
}

// accessMask is the compiled form of an Access.
type accessMask struct {
	resRead, resWrite, compRead, compWrite bitmask
}

func (x *typeIndex) compile(a Access) accessMask {
	return accessMask{
		resRead:   x.mask(a.ResourcesRead),
		resWrite:  x.mask(a.ResourcesWrite),
		compRead:  x.mask(a.ComponentsRead),
		compWrite: x.mask(a.ComponentsWrite),
	}
}

// conflicts mirrors Access.Conflicts.
func (m accessMask) conflicts(o accessMask) bool {
	return m.resWrite.intersects(o.resWrite) ||
		m.compWrite.intersects(o.compWrite) ||
		m.resRead.intersects(o.resWrite) ||
		m.resWrite.intersects(o.resRead) ||
		m.compRead.intersects(o.compWrite) ||
		m.compWrite.intersects(o.compRead)
}

func (m *accessMask) merge(o accessMask) {
	m.resRead.or(o.resRead)
	m.resWrite.or(o.resWrite)
	m.compRead.or(o.compRead)
	m.compWrite.or(o.compWrite)
}

func (m accessMask) isEmpty() bool {
	return m.resRead.isZero() && m.resWrite.isZero() && m.compRead.isZero() && m.compWrite.isZero()
}
