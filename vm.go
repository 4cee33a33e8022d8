package main

import "fmt"

// VM executes bytecode against an operand stack, a return-address stack and
// the variable slots of a Resolver. Both stacks are bounded; exceeding
// either bound is a runtime fault.
type VM struct {
	code []byte
	syms Resolver

	stack   []int64
	returns []int
	pc      int

	maxStack  int
	maxReturn int
	maxSteps  int

	// Steps counts dispatched instructions in the last run.
	Steps int
}

func NewVM(code []byte, syms Resolver, cfg Config) *VM {
	return &VM{
		code:      code,
		syms:      syms,
		stack:     make([]int64, 0, cfg.StackDepth),
		returns:   make([]int, 0, cfg.ReturnDepth),
		maxStack:  cfg.StackDepth,
		maxReturn: cfg.ReturnDepth,
		maxSteps:  cfg.MaxSteps,
	}
}

// Reset clears both stacks and zeroes every variable slot.
func (vm *VM) Reset() {
	vm.stack = vm.stack[:0]
	vm.returns = vm.returns[:0]
	vm.pc = 0
	vm.Steps = 0
	vm.syms.ResetVariables()
}

// StackDepth is the number of values left on the operand stack.
func (vm *VM) StackDepth() int {
	return len(vm.stack)
}

// Stack returns the operand stack, bottom first.
func (vm *VM) Stack() []int64 {
	return vm.stack
}

func (vm *VM) fault(at int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: KindRuntime, PC: at, Msg: fmt.Sprintf(format, args...)}
}

func (vm *VM) push(at int, v int64) error {
	if len(vm.stack) >= vm.maxStack {
		return vm.fault(at, "operand stack overflow (depth %d)", vm.maxStack)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop(at int) (int64, error) {
	if len(vm.stack) == 0 {
		return 0, vm.fault(at, "operand stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) pop2(at int) (int64, int64, error) {
	b, err := vm.pop(at)
	if err != nil {
		return 0, 0, err
	}
	a, err := vm.pop(at)
	return a, b, err
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Run executes from start until a halt instruction or a return at call
// depth zero. The stacks are reset first; variable slots are left as they are.
func (vm *VM) Run(start int) error {
	vm.stack = vm.stack[:0]
	vm.returns = vm.returns[:0]
	vm.Steps = 0
	vm.pc = start

	for {
		at := vm.pc
		if at < 0 || at >= len(vm.code) {
			return vm.fault(at, "program counter outside code (%d bytes)", len(vm.code))
		}
		op := Opcode(vm.code[at])
		if !op.Valid() {
			return vm.fault(at, "unknown opcode %d", byte(op))
		}
		if at+1+op.Info().OperandBytes > len(vm.code) {
			return vm.fault(at, "truncated %s instruction", op)
		}
		vm.Steps++
		if vm.maxSteps > 0 && vm.Steps > vm.maxSteps {
			return vm.fault(at, "step limit of %d exceeded", vm.maxSteps)
		}
		vm.pc = at + 1

		switch op {
		case OpHalt:
			return nil

		case OpFetch:
			slot := readSlot(vm.code, vm.pc)
			sym := vm.syms.Entry(slot)
			if sym == nil {
				return vm.fault(at, "fetch from unbound slot %d", slot)
			}
			if err := vm.push(at, sym.Value); err != nil {
				return err
			}
			vm.pc += 2

		case OpStore:
			slot := readSlot(vm.code, vm.pc)
			sym := vm.syms.Entry(slot)
			if sym == nil {
				return vm.fault(at, "store to unbound slot %d", slot)
			}
			if len(vm.stack) == 0 {
				return vm.fault(at, "operand stack underflow")
			}
			sym.Value = vm.stack[len(vm.stack)-1]
			vm.pc += 2

		case OpLit1:
			if err := vm.push(at, read1(vm.code, vm.pc)); err != nil {
				return err
			}
			vm.pc++

		case OpLit2:
			if err := vm.push(at, read2(vm.code, vm.pc)); err != nil {
				return err
			}
			vm.pc += 2

		case OpLit4:
			if err := vm.push(at, read4(vm.code, vm.pc)); err != nil {
				return err
			}
			vm.pc += 4

		case OpDrop:
			if _, err := vm.pop(at); err != nil {
				return err
			}

		case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpGt:
			a, b, err := vm.pop2(at)
			if err != nil {
				return err
			}
			var r int64
			switch op {
			case OpAdd:
				r = a + b
			case OpSub:
				r = a - b
			case OpMul:
				r = a * b
			case OpDiv:
				if b == 0 {
					return vm.fault(at, "division by zero")
				}
				r = a / b
			case OpLt:
				r = boolToInt(a < b)
			case OpGt:
				r = boolToInt(a > b)
			}
			// Two values were just popped, so this cannot overflow.
			vm.stack = append(vm.stack, r)

		case OpJmp:
			vm.pc = branchTarget(vm.code, vm.pc)

		case OpJz, OpJnz:
			v, err := vm.pop(at)
			if err != nil {
				return err
			}
			if (v == 0) == (op == OpJz) {
				vm.pc = branchTarget(vm.code, vm.pc)
			} else {
				vm.pc++
			}

		case OpCall:
			slot := readSlot(vm.code, vm.pc)
			sym := vm.syms.Entry(slot)
			if sym == nil || sym.Kind != SymFunction || !sym.Resolved {
				return vm.fault(at, "call to unresolved function in slot %d", slot)
			}
			if len(vm.returns) >= vm.maxReturn {
				return vm.fault(at, "return stack overflow (depth %d)", vm.maxReturn)
			}
			vm.returns = append(vm.returns, vm.pc+2)
			vm.pc = int(sym.Value)

		case OpRet:
			if len(vm.returns) == 0 {
				return nil
			}
			vm.pc = vm.returns[len(vm.returns)-1]
			vm.returns = vm.returns[:len(vm.returns)-1]
		}
	}
}
