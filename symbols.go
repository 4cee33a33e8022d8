package main

import "hash/fnv"

// SymbolKind tells variables and functions apart.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
)

func (k SymbolKind) String() string {
	if k == SymFunction {
		return "func"
	}
	return "var"
}

// Symbol is one binding. For a variable Value is the slot contents; for a
// function it is the entry address, valid once Resolved is set.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Value    int64
	Resolved bool
}

// Resolver binds identifiers to slots. Slots are the 2-byte operands of
// fetch, store and call instructions.
type Resolver interface {
	// BindVariable returns the slot of a variable, allocating it on first use.
	BindVariable(name string) (int, error)
	// DefineFunction allocates the slot of a function definition.
	DefineFunction(name string) (int, error)
	// LookupFunction returns the slot a call site refers to.
	LookupFunction(name string) (int, error)
	// FindFunction reports the slot of a defined function without failing.
	FindFunction(name string) (int, bool)
	// Entry returns the symbol at slot, or nil for an unused slot.
	Entry(slot int) *Symbol
	// Slots lists every used slot in ascending order.
	Slots() []int
	// ResetVariables zeroes all variable contents.
	ResetVariables()
	Strategy() string
}

// NewResolver builds the resolver named by strategy.
func NewResolver(strategy string, capacity int) Resolver {
	if strategy == BindingHashed {
		return NewHashedSymbolTable(capacity)
	}
	return NewSymbolTable(capacity)
}

// SymbolTable is the checked strategy: a linear table keyed by (name, kind),
// appended in first-use order. Slot 0 is never handed out.
type SymbolTable struct {
	symbols  []Symbol
	capacity int
}

func NewSymbolTable(capacity int) *SymbolTable {
	return &SymbolTable{capacity: capacity}
}

func (st *SymbolTable) Strategy() string { return BindingChecked }

func (st *SymbolTable) find(name string, kind SymbolKind) int {
	for i := len(st.symbols) - 1; i >= 0; i-- {
		if st.symbols[i].Name == name && st.symbols[i].Kind == kind {
			return i + 1
		}
	}
	return 0
}

func (st *SymbolTable) add(name string, kind SymbolKind) (int, error) {
	if len(st.symbols) >= st.capacity {
		return 0, compileErrorf(KindCapacity, 0, "symbol table full (%d entries) at %q", st.capacity, name)
	}
	st.symbols = append(st.symbols, Symbol{Name: name, Kind: kind})
	return len(st.symbols), nil
}

func (st *SymbolTable) BindVariable(name string) (int, error) {
	if slot := st.find(name, SymVariable); slot != 0 {
		return slot, nil
	}
	return st.add(name, SymVariable)
}

func (st *SymbolTable) DefineFunction(name string) (int, error) {
	if st.find(name, SymFunction) != 0 {
		return 0, compileErrorf(KindBinding, 0, "%s() already defined", name)
	}
	return st.add(name, SymFunction)
}

func (st *SymbolTable) LookupFunction(name string) (int, error) {
	slot := st.find(name, SymFunction)
	if slot == 0 {
		return 0, compileErrorf(KindBinding, 0, "%s() not defined", name)
	}
	return slot, nil
}

func (st *SymbolTable) FindFunction(name string) (int, bool) {
	slot := st.find(name, SymFunction)
	return slot, slot != 0
}

func (st *SymbolTable) Entry(slot int) *Symbol {
	if slot < 1 || slot > len(st.symbols) {
		return nil
	}
	return &st.symbols[slot-1]
}

func (st *SymbolTable) Slots() []int {
	slots := make([]int, len(st.symbols))
	for i := range st.symbols {
		slots[i] = i + 1
	}
	return slots
}

func (st *SymbolTable) ResetVariables() {
	for i := range st.symbols {
		if st.symbols[i].Kind == SymVariable {
			st.symbols[i].Value = 0
		}
	}
}

// HashedSymbolTable is the unchecked strategy: a fixed direct-addressed table
// indexed by a hash of the name. There is no chaining, so two names whose
// hashes collide share one slot. Duplicate definitions overwrite and calls to
// undefined functions are only caught when executed.
type HashedSymbolTable struct {
	symbols []Symbol
}

func NewHashedSymbolTable(size int) *HashedSymbolTable {
	return &HashedSymbolTable{symbols: make([]Symbol, size)}
}

func (ht *HashedSymbolTable) Strategy() string { return BindingHashed }

// HashSlot maps a name to its slot in a table of the given size.
func HashSlot(name string, size int) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	return int(h.Sum32() % uint32(size))
}

func (ht *HashedSymbolTable) claim(name string, kind SymbolKind) int {
	slot := HashSlot(name, len(ht.symbols))
	sym := &ht.symbols[slot]
	if sym.Name == "" {
		sym.Name = name
		sym.Kind = kind
	}
	return slot
}

func (ht *HashedSymbolTable) BindVariable(name string) (int, error) {
	return ht.claim(name, SymVariable), nil
}

func (ht *HashedSymbolTable) DefineFunction(name string) (int, error) {
	slot := HashSlot(name, len(ht.symbols))
	ht.symbols[slot] = Symbol{Name: name, Kind: SymFunction}
	return slot, nil
}

func (ht *HashedSymbolTable) LookupFunction(name string) (int, error) {
	return HashSlot(name, len(ht.symbols)), nil
}

func (ht *HashedSymbolTable) FindFunction(name string) (int, bool) {
	slot := HashSlot(name, len(ht.symbols))
	sym := &ht.symbols[slot]
	return slot, sym.Kind == SymFunction && sym.Name == name
}

func (ht *HashedSymbolTable) Entry(slot int) *Symbol {
	if slot < 0 || slot >= len(ht.symbols) || ht.symbols[slot].Name == "" {
		return nil
	}
	return &ht.symbols[slot]
}

func (ht *HashedSymbolTable) Slots() []int {
	var slots []int
	for i := range ht.symbols {
		if ht.symbols[i].Name != "" {
			slots = append(slots, i)
		}
	}
	return slots
}

func (ht *HashedSymbolTable) ResetVariables() {
	for i := range ht.symbols {
		if ht.symbols[i].Kind == SymVariable {
			ht.symbols[i].Value = 0
		}
	}
}
