// Command regalloc-demo builds a small toy LIR function and emits x64
// assembly for it with register allocation, to exercise the allocator
// end-to-end outside of its test suite.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mipalloc/mipalloc/internal/codegen"
	"github.com/mipalloc/mipalloc/internal/lir"
)

func main() {
	m := demoModule()

	asm, err := codegen.EmitX64WithRegisterAllocation(m)
	if err != nil {
		slog.Error("register allocation failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(asm)
}

// demoModule builds a function with enough overlapping temporaries to
// exercise both the allocator's happy path and its spill path under x64's
// register pressure.
func demoModule() *lir.Module {
	var insns []lir.Insn
	for i := 1; i <= 20; i++ {
		insns = append(insns, lir.Mov{Src: fmt.Sprintf("%d", i), Dst: fmt.Sprintf("%%v%d", i)})
	}
	insns = append(insns, lir.Add{Dst: "%sum2", LHS: "%v1", RHS: "%v2"})
	for i := 3; i <= 20; i++ {
		insns = append(insns, lir.Add{Dst: fmt.Sprintf("%%sum%d", i), LHS: fmt.Sprintf("%%sum%d", i-1), RHS: fmt.Sprintf("%%v%d", i)})
	}
	insns = append(insns, lir.Ret{Src: "%sum20"})

	return &lir.Module{
		Name: "demo",
		Functions: []*lir.Function{{
			Name:   "compute",
			Blocks: []*lir.BasicBlock{{Label: "entry", Insns: insns}},
		}},
	}
}
