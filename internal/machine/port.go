package machine

// Port is a capacity-bounded buffer holding quantities of multiple resource
// kinds. Capacity bounds the sum across all kinds, not each kind separately.
// A kind is present in the contents map only while its quantity is positive,
// which keeps presence checks cheap.
//
// Ports know nothing about recipes or machine state. Directionality (intake
// versus output) is intent carried by the owning machine, not by the port.
//
// Ports are not safe for concurrent use; the owning machine serialises
// access.
type Port struct {
	capacity int
	offset   Position // attachment offset, carried for visualisation only
	contents map[string]int
}

// NewPort creates an empty port with the given total capacity.
// Negative capacities are treated as zero.
func NewPort(capacity int) *Port {
	if capacity < 0 {
		capacity = 0
	}
	return &Port{
		capacity: capacity,
		contents: make(map[string]int),
	}
}

// Capacity returns the total capacity across all kinds.
func (p *Port) Capacity() int {
	return p.capacity
}

// Offset returns the port's local attachment offset.
func (p *Port) Offset() Position {
	return p.offset
}

// SetOffset records the port's local attachment offset.
func (p *Port) SetOffset(off Position) {
	p.offset = off
}

// CanAccept reports whether amount of kind would fit without overflowing.
func (p *Port) CanAccept(kind string, amount int) bool {
	if kind == "" || amount <= 0 {
		return false
	}
	return p.Total()+amount <= p.capacity
}

// Add inserts amount of kind. The add is all-or-nothing: a non-positive
// amount, an empty kind, or an overflow leaves the port untouched and
// returns false.
func (p *Port) Add(kind string, amount int) bool {
	if !p.CanAccept(kind, amount) {
		return false
	}
	p.contents[kind] += amount
	return true
}

// Remove takes up to amount of kind out of the port and returns the quantity
// actually removed, which is zero when the kind is absent or amount is not
// positive. The entry is deleted once it reaches zero.
func (p *Port) Remove(kind string, amount int) int {
	if amount <= 0 {
		return 0
	}
	have, ok := p.contents[kind]
	if !ok {
		return 0
	}
	if amount >= have {
		delete(p.contents, kind)
		return have
	}
	p.contents[kind] = have - amount
	return amount
}

// Amount returns the stored quantity of kind.
func (p *Port) Amount(kind string) int {
	return p.contents[kind]
}

// Total returns the summed quantity across all kinds. O(kinds), which stays
// cheap because ports hold few distinct kinds.
func (p *Port) Total() int {
	total := 0
	for _, qty := range p.contents {
		total += qty
	}
	return total
}

// Free returns the remaining capacity.
func (p *Port) Free() int {
	return p.capacity - p.Total()
}

// Kinds returns the number of distinct kinds currently stored.
func (p *Port) Kinds() int {
	return len(p.contents)
}

// Snapshot returns an independent copy of the port contents.
func (p *Port) Snapshot() map[string]int {
	cpy := make(map[string]int, len(p.contents))
	for kind, qty := range p.contents {
		cpy[kind] = qty
	}
	return cpy
}

// Restore replaces the port contents wholesale. The input is trusted and not
// validated against capacity; integrity checks on persisted data happen in
// Machine.RestoreSnapshot before the contents reach the port.
func (p *Port) Restore(contents map[string]int) {
	p.contents = make(map[string]int, len(contents))
	for kind, qty := range contents {
		if qty <= 0 {
			continue
		}
		p.contents[kind] = qty
	}
}

// Clear empties the port.
func (p *Port) Clear() {
	p.contents = make(map[string]int)
}
