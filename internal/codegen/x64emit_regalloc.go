// Package codegen provides x64 code generation. EmitX64WithRegisterAllocation
// is its only emission path, with register allocation driven by
// internal/regalloc's MIP-then-greedy allocator.
package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mipalloc/mipalloc/internal/lir"
	"github.com/mipalloc/mipalloc/internal/regalloc"
	"github.com/mipalloc/mipalloc/internal/target"
)

const scratchXMMRegAlloc = "xmm7"

// EmitX64WithRegisterAllocation emits x64 assembly for m, running
// internal/regalloc's allocator over each function's virtual registers
// (every "%name" operand) before emission.
func EmitX64WithRegisterAllocation(m *lir.Module) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "; module %s (with register allocation)\n", m.Name)

	for _, f := range m.Functions {
		asm, err := emitFuncWithRegAlloc(f)
		if err != nil {
			return "", fmt.Errorf("failed to emit function %s: %w", f.Name, err)
		}
		b.WriteString(asm)
	}

	return b.String(), nil
}

// vregTable builds the dense VRegID numbering for one function's "%name"
// operands, in first-appearance order.
type vregTable struct {
	ids   map[string]regalloc.VRegID
	names []string
}

func newVRegTable() *vregTable {
	return &vregTable{ids: make(map[string]regalloc.VRegID)}
}

func (t *vregTable) idFor(name string) regalloc.VRegID {
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := regalloc.VRegID(len(t.names))
	t.ids[name] = id
	t.names = append(t.names, name)
	return id
}

// simpleVRM is a regalloc.VirtRegMap backed by plain maps: no hints are
// tracked (this front end never emits allocation hints), and ResolveHint
// always returns regalloc.NoHint.
type simpleVRM struct {
	assigned map[regalloc.VRegID]target.PReg
}

func newSimpleVRM() *simpleVRM {
	return &simpleVRM{assigned: make(map[regalloc.VRegID]target.PReg)}
}

func (m *simpleVRM) HasPhys(v regalloc.VRegID) (target.PReg, bool) {
	p, ok := m.assigned[v]
	return p, ok
}

func (m *simpleVRM) SetPhys(v regalloc.VRegID, p target.PReg) { m.assigned[v] = p }

func (m *simpleVRM) ResolveHint(regalloc.VRegID) regalloc.Hint { return regalloc.NoHint }

// x64Target adapts target.X64 into regalloc.TargetInfo: every operand this
// front end produces is allocatable, since it only ever names real
// temporaries, never fixed physical-register pins.
type x64Target struct{ *target.X64 }

func (x64Target) ShouldAllocate(regalloc.VRegID) bool { return true }

// simpleLiveness computes a linear, whole-function liveness approximation:
// each VReg is live from its first definition to its last use, treating the
// function's basic blocks as one flattened instruction sequence. This is
// conservative across branches (a real compiler would use a dataflow
// liveness pass) but sound for straight-line and single-block functions,
// which is all this front end's demo/test LIR exercises.
type simpleLiveness struct {
	intervals map[regalloc.VRegID]*regalloc.LiveInterval
	weights   map[regalloc.VRegID]float64
	classes   map[regalloc.VRegID]target.Class
}

func (l *simpleLiveness) Interval(v regalloc.VRegID) *regalloc.LiveInterval { return l.intervals[v] }
func (l *simpleLiveness) Weight(v regalloc.VRegID) float64                  { return l.weights[v] }

func buildLiveness(f *lir.Function, t *vregTable) *simpleLiveness {
	first := make(map[regalloc.VRegID]int)
	last := make(map[regalloc.VRegID]int)
	useCount := make(map[regalloc.VRegID]float64)
	classes := make(map[regalloc.VRegID]target.Class)

	pos := 0
	touch := func(op operand) {
		if !strings.HasPrefix(op.name, "%") {
			return
		}
		id := t.idFor(op.name)
		if _, ok := first[id]; !ok {
			first[id] = pos
		}
		last[id] = pos
		if !op.isDef {
			useCount[id]++
			return
		}
		if op.class == "f32" || op.class == "f64" {
			classes[id] = target.ClassXMM
		} else if _, ok := classes[id]; !ok {
			classes[id] = target.ClassGPR
		}
	}

	for _, bb := range f.Blocks {
		for _, ins := range bb.Insns {
			for _, op := range operandsOf(ins) {
				touch(op)
			}
			pos++
		}
	}

	intervals := make(map[regalloc.VRegID]*regalloc.LiveInterval, len(first))
	weights := make(map[regalloc.VRegID]float64, len(first))
	for id, start := range first {
		end := last[id] + 1
		intervals[id] = regalloc.NewLiveInterval(regalloc.Range{Start: start, End: end})
		weights[id] = 1.0 + useCount[id]
	}

	return &simpleLiveness{intervals: intervals, weights: weights, classes: classes}
}

type operand struct {
	name  string
	isDef bool
	class string // register class required by a def operand; "" for uses
}

// operandsOf extracts every named operand (def or use) of one instruction,
// so buildLiveness doesn't need a type switch of its own. A
// def operand's class comes straight from the instruction's Class field
// rather than being inferred from the operand's name.
func operandsOf(ins lir.Insn) []operand {
	switch v := ins.(type) {
	case lir.Mov:
		return []operand{{v.Dst, true, v.Class}, {v.Src, false, ""}}
	case lir.Add:
		return []operand{{v.Dst, true, v.Class}, {v.LHS, false, ""}, {v.RHS, false, ""}}
	case lir.Sub:
		return []operand{{v.Dst, true, v.Class}, {v.LHS, false, ""}, {v.RHS, false, ""}}
	case lir.Mul:
		return []operand{{v.Dst, true, v.Class}, {v.LHS, false, ""}, {v.RHS, false, ""}}
	case lir.Div:
		return []operand{{v.Dst, true, v.Class}, {v.LHS, false, ""}, {v.RHS, false, ""}}
	case lir.Ret:
		return []operand{{v.Src, false, ""}}
	case lir.Call:
		ops := make([]operand, 0, len(v.Args)+1)
		if v.Dst != "" {
			ops = append(ops, operand{v.Dst, true, v.RetClass})
		}
		for _, a := range v.Args {
			ops = append(ops, operand{a, false, ""})
		}
		return ops
	case lir.Cmp:
		return []operand{{v.Dst, true, ""}, {v.LHS, false, ""}, {v.RHS, false, ""}}
	case lir.BrCond:
		return []operand{{v.Cond, false, ""}}
	case lir.Alloc:
		return []operand{{v.Dst, true, ""}}
	case lir.Load:
		return []operand{{v.Dst, true, v.Class}, {v.Addr, false, ""}}
	case lir.Store:
		return []operand{{v.Addr, false, ""}, {v.Val, false, ""}}
	default:
		return nil
	}
}

// funcAllocation is the resolved outcome of running the allocator over one
// function: a location (register name, or spill slot) for every VReg.
type funcAllocation struct {
	table      *vregTable
	vrm        *simpleVRM
	spillSlots map[regalloc.VRegID]int
	tgt        x64Target
}

func allocateFunction(f *lir.Function) (*funcAllocation, error) {
	table := newVRegTable()
	liveness := buildLiveness(f, table)
	tgt := x64Target{target.NewX64()}
	vrm := newSimpleVRM()

	seed := make([]*regalloc.VReg, 0, len(table.names))
	for _, id := range table.ids {
		cls := liveness.classes[id]
		if cls != target.ClassXMM {
			cls = target.ClassGPR
		}
		seed = append(seed, &regalloc.VReg{
			ID:        id,
			Class:     cls,
			Interval:  liveness.Interval(id),
			Weight:    liveness.Weight(id),
			Spillable: true,
			Hint:      regalloc.NoHint,
		})
	}
	sort.Slice(seed, func(i, j int) bool { return seed[i].ID < seed[j].ID })

	spiller := regalloc.NewInlineSpiller(liveness, regalloc.VRegID(len(table.names)))
	alloc, err := regalloc.NewAllocator(tgt, regalloc.NewMatrix(tgt), vrm, liveness, func(regalloc.LivenessDB) regalloc.Spiller { return spiller }, regalloc.DriverConfig{})
	if err != nil {
		return nil, err
	}
	if err := alloc.Run(seed); err != nil {
		return nil, err
	}

	spillSlots := make(map[regalloc.VRegID]int, len(table.names))
	if is, ok := spiller.(interface{ SpillSlots() map[regalloc.VRegID]int }); ok {
		for id, slot := range is.SpillSlots() {
			spillSlots[id] = slot
		}
	}

	return &funcAllocation{table: table, vrm: vrm, spillSlots: spillSlots, tgt: tgt}, nil
}

// resolveLocation converts a "%name" virtual register, a physical register
// name, or an immediate literal into its final assembly-level location.
func (fa *funcAllocation) resolveLocation(operand string) string {
	if operand == "" {
		return ""
	}
	if !strings.HasPrefix(operand, "%") {
		return operand
	}
	id, ok := fa.table.ids[operand]
	if !ok {
		return operand
	}
	if p, ok := fa.vrm.HasPhys(id); ok {
		return fa.tgt.Name(p)
	}
	if slot, ok := fa.spillSlots[id]; ok {
		return fmt.Sprintf("qword ptr [rbp-%d]", slot)
	}
	return fmt.Sprintf("qword ptr [rbp-8] ; unallocated %s", operand)
}

func emitFuncWithRegAlloc(f *lir.Function) (string, error) {
	var funcBuilder strings.Builder

	fa, err := allocateFunction(f)
	if err != nil {
		return "", fmt.Errorf("register allocation failed: %w", err)
	}

	frameSize := int64(len(fa.spillSlots)) * 8
	if rem := frameSize % 16; rem != 0 {
		frameSize += 16 - rem
	}

	funcBuilder.WriteString(fmt.Sprintf("%s:\n", f.Name))
	funcBuilder.WriteString("  push rbp\n")
	funcBuilder.WriteString("  mov rbp, rsp\n")

	savedRegs := fa.calleeSavedUsed()
	for _, reg := range savedRegs {
		funcBuilder.WriteString(fmt.Sprintf("  push %s\n", reg))
		frameSize += 8
	}

	if frameSize > 0 {
		funcBuilder.WriteString(fmt.Sprintf("  sub rsp, %d\n", frameSize))
	}

	for _, bb := range f.Blocks {
		if bb.Label != "" {
			funcBuilder.WriteString(fmt.Sprintf("%s:\n", bb.Label))
		}
		for _, instr := range bb.Insns {
			instrAsm, err := emitInstructionWithRegAlloc(instr, fa)
			if err != nil {
				return "", fmt.Errorf("failed to emit instruction %v: %w", instr, err)
			}
			funcBuilder.WriteString(instrAsm)
		}
	}

	if frameSize > 0 {
		funcBuilder.WriteString(fmt.Sprintf("  add rsp, %d\n", frameSize))
	}
	for i := len(savedRegs) - 1; i >= 0; i-- {
		funcBuilder.WriteString(fmt.Sprintf("  pop %s\n", savedRegs[i]))
	}
	funcBuilder.WriteString("  pop rbp\n")
	funcBuilder.WriteString("  ret\n\n")

	return funcBuilder.String(), nil
}

// calleeSavedUsed returns, in sorted order, every callee-saved register name
// the allocator assigned at least one VReg to.
func (fa *funcAllocation) calleeSavedUsed() []string {
	used := map[string]bool{}
	for _, p := range fa.vrm.assigned {
		r := fa.tgt.RegisterInfo(p)
		if r.CalleeSaved {
			used[r.Name] = true
		}
	}
	names := make([]string, 0, len(used))
	for n := range used {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func emitInstructionWithRegAlloc(instr lir.Insn, fa *funcAllocation) (string, error) {
	switch inst := instr.(type) {
	case lir.Mov:
		return emitMov(inst, fa)
	case lir.Add:
		return emitBinaryOp(inst.Dst, inst.LHS, inst.RHS, "add", fa)
	case lir.Sub:
		return emitBinaryOp(inst.Dst, inst.LHS, inst.RHS, "sub", fa)
	case lir.Mul:
		return emitBinaryOp(inst.Dst, inst.LHS, inst.RHS, "imul", fa)
	case lir.Div:
		return emitDiv(inst, fa)
	case lir.Load:
		return emitLoad(inst, fa)
	case lir.Store:
		return emitStore(inst, fa)
	case lir.Cmp:
		return emitCmp(inst, fa)
	case lir.Br:
		return fmt.Sprintf("  jmp %s\n", inst.Target), nil
	case lir.BrCond:
		return emitBrCond(inst, fa)
	case lir.Call:
		return emitCall(inst, fa)
	case lir.Ret:
		return emitRet(inst, fa)
	case lir.Alloc:
		return fmt.Sprintf("  ; alloca %s -> %s\n", inst.Name, inst.Dst), nil
	default:
		if s, ok := any(instr).(fmt.Stringer); ok {
			return fmt.Sprintf("  ; unknown: %s\n", s.String()), nil
		}
		return fmt.Sprintf("  ; unknown op %s\n", instr.Op()), nil
	}
}

func emitMov(inst lir.Mov, fa *funcAllocation) (string, error) {
	src := fa.resolveLocation(inst.Src)
	dst := fa.resolveLocation(inst.Dst)
	if src == dst {
		return "  ; nop (src == dst)\n", nil
	}
	if isMemoryLocation(src) && isMemoryLocation(dst) {
		return fmt.Sprintf("  mov rax, %s\n  mov %s, rax\n", src, dst), nil
	}
	return fmt.Sprintf("  mov %s, %s\n", dst, src), nil
}

func emitBinaryOp(dst, lhs, rhs, op string, fa *funcAllocation) (string, error) {
	dstLoc := fa.resolveLocation(dst)
	lhsLoc := fa.resolveLocation(lhs)
	rhsLoc := fa.resolveLocation(rhs)

	var result strings.Builder
	if dstLoc != lhsLoc {
		if isMemoryLocation(lhsLoc) && isMemoryLocation(dstLoc) {
			result.WriteString(fmt.Sprintf("  mov rax, %s\n", lhsLoc))
			result.WriteString(fmt.Sprintf("  %s rax, %s\n", op, rhsLoc))
			result.WriteString(fmt.Sprintf("  mov %s, rax\n", dstLoc))
		} else {
			result.WriteString(fmt.Sprintf("  mov %s, %s\n", dstLoc, lhsLoc))
			result.WriteString(fmt.Sprintf("  %s %s, %s\n", op, dstLoc, rhsLoc))
		}
	} else {
		result.WriteString(fmt.Sprintf("  %s %s, %s\n", op, dstLoc, rhsLoc))
	}
	return result.String(), nil
}

func emitDiv(inst lir.Div, fa *funcAllocation) (string, error) {
	dstLoc := fa.resolveLocation(inst.Dst)
	lhsLoc := fa.resolveLocation(inst.LHS)
	rhsLoc := fa.resolveLocation(inst.RHS)

	var result strings.Builder
	result.WriteString(fmt.Sprintf("  mov rax, %s\n", lhsLoc))
	result.WriteString("  cqo\n")
	if rhsLoc == "rdx" {
		result.WriteString("  mov r10, rdx\n")
		result.WriteString("  idiv r10\n")
	} else {
		result.WriteString(fmt.Sprintf("  idiv %s\n", rhsLoc))
	}
	if dstLoc != "rax" {
		result.WriteString(fmt.Sprintf("  mov %s, rax\n", dstLoc))
	}
	return result.String(), nil
}

func emitLoad(inst lir.Load, fa *funcAllocation) (string, error) {
	dstLoc := fa.resolveLocation(inst.Dst)
	addrLoc := fa.resolveLocation(inst.Addr)

	if isImmediate(inst.Addr) {
		return fmt.Sprintf("  mov %s, %s\n", dstLoc, inst.Addr), nil
	} else if isMemoryLocation(addrLoc) {
		return fmt.Sprintf("  mov rax, %s\n  mov %s, qword ptr [rax]\n", addrLoc, dstLoc), nil
	}
	return fmt.Sprintf("  mov %s, qword ptr [%s]\n", dstLoc, addrLoc), nil
}

func emitStore(inst lir.Store, fa *funcAllocation) (string, error) {
	addrLoc := fa.resolveLocation(inst.Addr)
	valLoc := fa.resolveLocation(inst.Val)

	if isMemoryLocation(addrLoc) {
		if isMemoryLocation(valLoc) {
			return fmt.Sprintf("  mov rax, %s\n  mov r10, %s\n  mov qword ptr [rax], r10\n", addrLoc, valLoc), nil
		}
		return fmt.Sprintf("  mov rax, %s\n  mov qword ptr [rax], %s\n", addrLoc, valLoc), nil
	}
	return fmt.Sprintf("  mov qword ptr [%s], %s\n", addrLoc, valLoc), nil
}

func emitCmp(inst lir.Cmp, fa *funcAllocation) (string, error) {
	dstLoc := fa.resolveLocation(inst.Dst)
	lhsLoc := fa.resolveLocation(inst.LHS)
	rhsLoc := fa.resolveLocation(inst.RHS)

	var result strings.Builder
	if isMemoryLocation(lhsLoc) && isMemoryLocation(rhsLoc) {
		result.WriteString(fmt.Sprintf("  mov rax, %s\n", lhsLoc))
		result.WriteString(fmt.Sprintf("  cmp rax, %s\n", rhsLoc))
	} else {
		result.WriteString(fmt.Sprintf("  cmp %s, %s\n", lhsLoc, rhsLoc))
	}

	setcc := mapCmpToSetccRegAlloc(inst.Pred)
	result.WriteString(fmt.Sprintf("  %s al\n", setcc))
	result.WriteString("  movzx rax, al\n")
	if dstLoc != "rax" {
		result.WriteString(fmt.Sprintf("  mov %s, rax\n", dstLoc))
	}
	return result.String(), nil
}

func emitBrCond(inst lir.BrCond, fa *funcAllocation) (string, error) {
	condLoc := fa.resolveLocation(inst.Cond)

	var result strings.Builder
	if condLoc == "rax" {
		result.WriteString("  test rax, rax\n")
	} else {
		result.WriteString(fmt.Sprintf("  cmp %s, 0\n", condLoc))
	}
	result.WriteString(fmt.Sprintf("  jnz %s\n", inst.True))
	result.WriteString(fmt.Sprintf("  jmp %s\n", inst.False))
	return result.String(), nil
}

func emitCall(inst lir.Call, fa *funcAllocation) (string, error) {
	var result strings.Builder

	gprRegs := []string{"rcx", "rdx", "r8", "r9"}
	xmmRegs := []string{"xmm0", "xmm1", "xmm2", "xmm3"}

	stackArgs := 0
	if len(inst.Args) > 4 {
		stackArgs = len(inst.Args) - 4
	}
	reserve := int64(32 + stackArgs*8)
	if rem := reserve % 16; rem != 0 {
		reserve += 16 - rem
	}
	if reserve > 0 {
		result.WriteString(fmt.Sprintf("  sub rsp, %d\n", reserve))
	}

	for i := 4; i < len(inst.Args); i++ {
		offset := 32 + (i-4)*8
		argLoc := fa.resolveLocation(inst.Args[i])
		cls := ""
		if i < len(inst.ArgClasses) {
			cls = inst.ArgClasses[i]
		}
		if cls == "f32" || cls == "f64" {
			if isMemoryLocation(argLoc) {
				result.WriteString(fmt.Sprintf("  mov rax, %s\n", argLoc))
				result.WriteString(fmt.Sprintf("  movq %s, rax\n", scratchXMMRegAlloc))
			} else {
				result.WriteString(fmt.Sprintf("  movq %s, %s\n", scratchXMMRegAlloc, argLoc))
			}
			if cls == "f32" {
				result.WriteString(fmt.Sprintf("  movss dword ptr [rsp+%d], %s\n", offset, scratchXMMRegAlloc))
			} else {
				result.WriteString(fmt.Sprintf("  movsd qword ptr [rsp+%d], %s\n", offset, scratchXMMRegAlloc))
			}
		} else {
			result.WriteString(fmt.Sprintf("  mov qword ptr [rsp+%d], %s\n", offset, argLoc))
		}
	}

	gprIndex, xmmIndex := 0, 0
	for i := 0; i < len(inst.Args) && i < 4; i++ {
		argLoc := fa.resolveLocation(inst.Args[i])
		cls := ""
		if i < len(inst.ArgClasses) {
			cls = inst.ArgClasses[i]
		}
		if cls == "f32" || cls == "f64" {
			if xmmIndex < len(xmmRegs) {
				targetReg := xmmRegs[xmmIndex]
				if isMemoryLocation(argLoc) {
					result.WriteString(fmt.Sprintf("  mov rax, %s\n", argLoc))
					result.WriteString(fmt.Sprintf("  movq %s, rax\n", targetReg))
				} else {
					result.WriteString(fmt.Sprintf("  movq %s, %s\n", targetReg, argLoc))
				}
				xmmIndex++
			}
		} else {
			if gprIndex < len(gprRegs) {
				targetReg := gprRegs[gprIndex]
				if argLoc != targetReg {
					result.WriteString(fmt.Sprintf("  mov %s, %s\n", targetReg, argLoc))
				}
				gprIndex++
			}
		}
	}

	result.WriteString(fmt.Sprintf("  call %s\n", inst.Callee))
	if reserve > 0 {
		result.WriteString(fmt.Sprintf("  add rsp, %d\n", reserve))
	}

	if inst.Dst != "" {
		dstLoc := fa.resolveLocation(inst.Dst)
		if inst.RetClass == "f32" || inst.RetClass == "f64" {
			if dstLoc != "xmm0" {
				result.WriteString(fmt.Sprintf("  movq %s, xmm0\n", dstLoc))
			}
		} else if dstLoc != "rax" {
			result.WriteString(fmt.Sprintf("  mov %s, rax\n", dstLoc))
		}
	}

	return result.String(), nil
}

func emitRet(inst lir.Ret, fa *funcAllocation) (string, error) {
	if inst.Src != "" {
		srcLoc := fa.resolveLocation(inst.Src)
		if srcLoc != "rax" {
			return fmt.Sprintf("  mov rax, %s\n", srcLoc), nil
		}
	}
	return "", nil
}

func isMemoryLocation(loc string) bool {
	return strings.Contains(loc, "[") && strings.Contains(loc, "]")
}

func isImmediate(operand string) bool {
	_, err := strconv.ParseInt(operand, 10, 64)
	return err == nil
}

func mapCmpToSetccRegAlloc(pred string) string {
	switch pred {
	case "eq":
		return "sete"
	case "ne":
		return "setne"
	case "slt":
		return "setl"
	case "sle":
		return "setle"
	case "sgt":
		return "setg"
	case "sge":
		return "setge"
	case "ult":
		return "setb"
	case "ule":
		return "setbe"
	case "ugt":
		return "seta"
	case "uge":
		return "setae"
	default:
		return "sete"
	}
}
