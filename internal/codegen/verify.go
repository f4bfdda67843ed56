package codegen

import (
	"fmt"

	"tinygo.org/x/go-llvm"
)

var llvmInitOnce bool

func ensureLLVMInit() {
	if llvmInitOnce {
		return
	}
	llvm.InitializeAllTargetInfos()
	llvm.InitializeAllTargetMCs()
	llvm.InitializeAllAsmParsers()
	llvm.InitializeAllAsmPrinters()
	llvmInitOnce = true
}

// CheckTargetData resolves arch's triple through the LLVM target
// registry and confirms the target machine's own data layout string
// agrees with arch.DataLayout, the same two calls the teacher's
// ir/llvm/transform.go makes (CreateTargetMachine, CreateTargetData)
// before stamping a module's layout and triple.
func CheckTargetData(arch Architecture) error {
	ensureLLVMInit()

	target, err := llvm.GetTargetFromTriple(arch.Triple)
	if err != nil {
		return fmt.Errorf("codegen: unknown target triple %q: %w", arch.Triple, err)
	}

	tm := target.CreateTargetMachine(arch.Triple, "generic", "",
		llvm.CodeGenLevelNone, llvm.RelocDefault, llvm.CodeModelDefault)
	defer tm.Dispose()

	td := tm.CreateTargetData()
	defer td.Dispose()

	if td.String() != arch.DataLayout {
		return fmt.Errorf("codegen: target %q data layout mismatch: table has %q, llvm reports %q",
			arch.Triple, arch.DataLayout, td.String())
	}
	return nil
}

// VerifyModule parses emitted LLVM IR text and runs LLVM's own verifier
// over it, surfacing a malformed-module bug in codegen itself rather
// than letting it reach a downstream llc/clang invocation.
func VerifyModule(llir string) error {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	buf := llvm.NewMemoryBufferFromString(llir, "module")
	mod, err := ctx.ParseIR(buf)
	if err != nil {
		return fmt.Errorf("codegen: malformed module: %w", err)
	}
	defer mod.Dispose()

	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("codegen: module failed verification: %w", err)
	}
	return nil
}
