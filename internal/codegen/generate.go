// Package codegen emits LLVM IR text for an optimized, tree-shaken MLIR
// program. Grounded on passes/llir/generate.py: every Implementation
// becomes a function of three %lambda* parameters (argument, self,
// continuation), every Instance becomes a statically initialized global
// struct, and every Definition becomes a global pointer slot, set
// statically to its Instance or, when the Definition needs init, filled
// in by the crate's generated init function. Struct layout, symbol mangling, and the runtime preamble are
// hand-written text (strings.Builder/fmt.Sprintf) rather than built
// through tinygo.org/x/go-llvm's IRBuilder: the format requires
// byte-exact control over mangled names and aggregate literal syntax
// that an IRBuilder-driven module would round-trip through LLVM's own
// (different) textual printer instead of reproducing directly. go-llvm
// is used in verify.go for the optional post-emission target/verify
// cross-check, the way hhramberg-go-vslc/src/ir/llvm/transform.go drives
// target-machine setup.
package codegen

import (
	"fmt"
	"strings"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// Error reports a codegen invariant violation: an MLIR statement or
// literal that partial evaluation and dedup should never have let
// through unchanged.
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// argLit, selfLit, and contLit are the three fixed parameters every
// generated function receives, referenced the same way any other
// capture slot's mangled name is: "%0"/"%1"/"%2".
var (
	argLit  = ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: 0}
	selfLit = ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: 1}
	contLit = ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: 2}
)

// indexFactory hands out the next free SSA register name. Registers and
// the three fixed parameters share one numbering space, matching the
// runtime functions' own %0/%1/%2 parameter convention.
type indexFactory struct{ index int }

func (f *indexFactory) skip(n int) { f.index += n }

func (f *indexFactory) next() ast.ValueLiteral {
	id := f.index
	f.index++
	return ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: id}
}

// realizedKind distinguishes a literal that's ready to be used as an
// operand (simple) from a closure literal whose allocation/store
// sequence has already been emitted and just needs its register name
// reused (implConstruction); matching RealizedLiteral's two variants.
type realizedKind int

const (
	realizedSimple realizedKind = iota
	realizedImplConstruction
)

type realizedLiteral struct {
	kind realizedKind
	lit  ast.ValueLiteral
}

// valueUses counts every capture/extern/definition/instance/implementation
// an Implementation references, in first-encountered order: the order
// emitted declarations and ref-counting code appear in, matching Python's
// insertion-ordered dict semantics via an explicit order slice.
type valueUses struct {
	captures    []int
	captureIdx  map[int]int
	captureCnt  map[int]int
	externs     []string
	externCnt   map[string]int
	defs        []ast.Path
	defIdx      map[string]int
	defCnt      map[string]int
	insts       []ast.InstancePath
	instIdx     map[string]int
	instCnt     map[string]int
	impls       []ast.ImplementationPath
	implIdx     map[string]int
	implCnt     map[string]int
}

func newValueUses() *valueUses {
	return &valueUses{
		captureIdx: map[int]int{}, captureCnt: map[int]int{},
		externCnt: map[string]int{},
		defIdx:    map[string]int{}, defCnt: map[string]int{},
		instIdx: map[string]int{}, instCnt: map[string]int{},
		implIdx: map[string]int{}, implCnt: map[string]int{},
	}
}

func (u *valueUses) ensureCapture(id int) {
	if _, ok := u.captureIdx[id]; !ok {
		u.captureIdx[id] = len(u.captures)
		u.captures = append(u.captures, id)
		u.captureCnt[id] = 0
	}
}

func (u *valueUses) addCapture(id int) {
	u.ensureCapture(id)
	u.captureCnt[id]++
}

func (u *valueUses) addExtern(name string) {
	if _, ok := u.externCnt[name]; !ok {
		u.externs = append(u.externs, name)
	}
	u.externCnt[name]++
}

func (u *valueUses) addDef(path ast.Path) {
	key := path.String()
	if _, ok := u.defIdx[key]; !ok {
		u.defIdx[key] = len(u.defs)
		u.defs = append(u.defs, path)
		u.defCnt[key] = 0
	}
	u.defCnt[key]++
}

func (u *valueUses) addInst(inst ast.InstancePath) {
	key := inst.String()
	if _, ok := u.instIdx[key]; !ok {
		u.instIdx[key] = len(u.insts)
		u.insts = append(u.insts, inst)
		u.instCnt[key] = 0
	}
	u.instCnt[key]++
}

func (u *valueUses) addImpl(impl ast.ImplementationPath) {
	key := impl.String()
	if _, ok := u.implIdx[key]; !ok {
		u.implIdx[key] = len(u.impls)
		u.impls = append(u.impls, impl)
		u.implCnt[key] = 0
	}
	u.implCnt[key]++
}

func countUses(impl *ast.Implementation) (*valueUses, error) {
	u := newValueUses()
	u.ensureCapture(0)
	if err := countImpl(impl, u); err != nil {
		return nil, err
	}
	return u, nil
}

func countImpl(impl *ast.Implementation, u *valueUses) error {
	switch impl.Kind {
	case ast.ImplReturn:
		countLit(impl.Value, u)
	case ast.ImplTailCall:
		countLit(impl.Fn, u)
		countLit(impl.Arg, u)
	case ast.ImplContinueCall:
		countLit(impl.Fn, u)
		countLit(impl.Arg, u)
		countLit(impl.Next, u)
	default:
		return errf("codegen: unexpected implementation kind encountered")
	}
	return nil
}

func countLit(lit ast.ValueLiteral, u *valueUses) {
	switch lit.Kind {
	case ast.VLitCapture:
		u.addCapture(lit.CaptureID)
	case ast.VLitExtern:
		u.addExtern(lit.Name)
	case ast.VLitDefinition:
		u.addDef(lit.DefPath)
	case ast.VLitInstance:
		u.addInst(lit.Inst)
	case ast.VLitImplementation:
		u.addImpl(lit.Impl)
		for _, ref := range lit.Captures {
			if ref.IsUpvalue {
				u.addCapture(ref.Index)
			} else {
				u.addInst(ref.Inst)
			}
		}
	}
}

// context accumulates emitted text and the declared-symbol caches that
// keep every global/instance/implementation/extern declared exactly
// once.
type context struct {
	arch Architecture

	llir strings.Builder

	instanceTypeCache map[int]bool
	externCache       map[string]bool
	globalCache       map[string]bool
	instCache         map[string]bool
	implCache         map[string]bool
	initCache         []*ast.Definition
}

func newContext(arch Architecture) *context {
	return &context{
		arch:              arch,
		instanceTypeCache: map[int]bool{},
		externCache:       map[string]bool{},
		globalCache:       map[string]bool{},
		instCache:         map[string]bool{},
		implCache:         map[string]bool{},
	}
}

func (c *context) mangleCrateInit(crate string) string { return fmt.Sprintf("_L%dI%s", len(crate), crate) }
func (c *context) mangleCrateFini(crate string) string { return fmt.Sprintf("_L%dF%s", len(crate), crate) }

func (c *context) manglePath(path ast.Path) string {
	var sb strings.Builder
	sb.WriteString("_L")
	for _, name := range path.Components() {
		fmt.Fprintf(&sb, "%dN%s", len(name), name)
	}
	return sb.String()
}

func (c *context) mangleDef(defi *ast.Definition) string { return c.manglePath(defi.Path) }

func (c *context) mangleInst(inst ast.InstancePath, alt bool) string {
	altStr := ""
	if alt {
		altStr = "X"
	}
	return fmt.Sprintf("%sG%d%s", c.manglePath(inst.Path), inst.ID, altStr)
}

func (c *context) mangleImpl(impl ast.ImplementationPath) string {
	return fmt.Sprintf("%sL%dI%d", c.manglePath(impl.Path), impl.LambdaID, impl.ContinuationID)
}

func (c *context) mangleLit(lit ast.ValueLiteral) (string, error) {
	switch lit.Kind {
	case ast.VLitCapture:
		return fmt.Sprintf("%%%d", lit.CaptureID), nil
	case ast.VLitInstance:
		return "@" + c.mangleInst(lit.Inst, false), nil
	default:
		return "", errf("codegen: unexpected literal type encountered")
	}
}

func (c *context) declareGlobal(path ast.Path)                 { c.globalCache[path.String()] = true }
func (c *context) declareInst(inst ast.InstancePath)            { c.instCache[inst.String()] = true }
func (c *context) declareImpl(impl ast.ImplementationPath)      { c.implCache[impl.String()] = true }

func (c *context) writeRuntime() {
	c.llir.WriteString(renderRuntime(c.arch))
}

func (c *context) writeExtern(name string) {
	if c.externCache[name] {
		return
	}
	fmt.Fprintf(&c.llir, "@%s = external dso_local global %%lambda*, align %d\n", name, c.arch.PtrAlign)
	c.externCache[name] = true
}

func (c *context) writeGlobal(path ast.Path) {
	key := path.String()
	if c.globalCache[key] {
		return
	}
	fmt.Fprintf(&c.llir, "@%s = external dso_local global %%lambda*, align %d\n", c.manglePath(path), c.arch.PtrAlign)
	c.globalCache[key] = true
}

func (c *context) writeInst(inst ast.InstancePath) {
	key := inst.String()
	if c.instCache[key] {
		return
	}
	fmt.Fprintf(&c.llir, "@%s = external dso_local global %%lambda, align %d\n", c.mangleInst(inst, false), c.arch.PtrAlign)
	c.instCache[key] = true
}

func (c *context) writeImpl(impl ast.ImplementationPath) {
	key := impl.String()
	if c.implCache[key] {
		return
	}
	fmt.Fprintf(&c.llir, "declare external dso_local %%lambda* @%s(%%lambda*, %%lambda*, %%lambda_cont*) unnamed_addr\n", c.mangleImpl(impl))
	c.implCache[key] = true
}

func (c *context) writeInstanceType(captures int) string {
	instType := fmt.Sprintf("%%lambda_c%d", captures)
	if !c.instanceTypeCache[captures] {
		fmt.Fprintf(&c.llir, "%s = type { %%lambda_header, [ %d x %%lambda* ] }\n", instType, captures)
		c.instanceTypeCache[captures] = true
	}
	return instType
}

func (c *context) writeLoadRealizedLiteral(r realizedLiteral, idx *indexFactory) (ast.ValueLiteral, error) {
	switch r.kind {
	case realizedSimple:
		return c.writeLoadLiteral(r.lit, idx)
	case realizedImplConstruction:
		return r.lit, nil
	default:
		return ast.ValueLiteral{}, errf("codegen: unexpected realized literal kind encountered")
	}
}

func (c *context) writeLoadLiteral(lit ast.ValueLiteral, idx *indexFactory) (ast.ValueLiteral, error) {
	switch lit.Kind {
	case ast.VLitCapture:
		if lit.CaptureID == 0 {
			return argLit, nil
		}
		return c.writeLoadCapture(idx, lit.CaptureID-1), nil
	case ast.VLitExtern:
		return c.writeLoadExtern(idx, lit.Name), nil
	case ast.VLitDefinition:
		return c.writeLoadGlobal(idx, lit.DefPath), nil
	case ast.VLitInstance:
		return lit, nil
	default:
		return ast.ValueLiteral{}, errf("codegen: unexpected literal type encountered")
	}
}

func (c *context) writeLambdaRef(lit ast.ValueLiteral, refcount int) error {
	value, err := c.mangleLit(lit)
	if err != nil {
		return err
	}
	fmt.Fprintf(&c.llir, "    call void @lambda_ref(%%lambda* %s, i%d %d)\n", value, c.arch.PtrSize*8, refcount)
	return nil
}

func (c *context) writeLambdaUnref(lit ast.ValueLiteral) error {
	value, err := c.mangleLit(lit)
	if err != nil {
		return err
	}
	fmt.Fprintf(&c.llir, "    call void @lambda_unref(%%lambda* %s)\n", value)
	return nil
}

func (c *context) writeLambdaAlloc(idx *indexFactory, lenCaptures int) ast.ValueLiteral {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	fmt.Fprintf(&c.llir, "    %s = call %%lambda* @lambda_alloc(i%d %d, i%d 0)\n", indexStr, c.arch.PtrSize*8, lenCaptures, c.arch.PtrSize*8)
	return index
}

func (c *context) writeLambdaContAlloc(idx *indexFactory, next ast.ValueLiteral) (ast.ValueLiteral, error) {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	contStr, err := c.mangleLit(contLit)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	nextStr, err := c.mangleLit(next)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	fmt.Fprintf(&c.llir, "    %s = call %%lambda_cont* @lambda_cont_alloc(%%lambda_cont* %s, %%lambda* %s)\n", indexStr, contStr, nextStr)
	return index, nil
}

func (c *context) writeLambdaCall(idx *indexFactory, fn, arg, next ast.ValueLiteral) (ast.ValueLiteral, error) {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	fnStr, err := c.mangleLit(fn)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	argStr, err := c.mangleLit(arg)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	nextStr, err := c.mangleLit(next)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	fmt.Fprintf(&c.llir, "    %s = tail call %%lambda* @lambda_call(%%lambda* %s, %%lambda* %s, %%lambda_cont* %s)\n", indexStr, fnStr, argStr, nextStr)
	return index, nil
}

func (c *context) writeLambdaContCall(idx *indexFactory, value ast.ValueLiteral) (ast.ValueLiteral, error) {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	valueStr, err := c.mangleLit(value)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	contStr, err := c.mangleLit(contLit)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	fmt.Fprintf(&c.llir, "    %s = tail call %%lambda* @lambda_cont_call(%%lambda* %s, %%lambda_cont* %s)\n", indexStr, valueStr, contStr)
	return index, nil
}

func (c *context) writeLambdaNullCall(idx *indexFactory, value ast.ValueLiteral) (ast.ValueLiteral, error) {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	valueStr, err := c.mangleLit(value)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	fmt.Fprintf(&c.llir, "    %s = tail call %%lambda* @lambda_null_call(%%lambda* %s)\n", indexStr, valueStr)
	return index, nil
}

func (c *context) writeCapturePtr(idx *indexFactory, lamb ast.ValueLiteral, captureIndex int) ast.ValueLiteral {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	lambStr, _ := c.mangleLit(lamb)
	fmt.Fprintf(&c.llir, "    %s = getelementptr inbounds %%lambda, %%lambda* %s, i%d 0, i32 1, i%d %d\n",
		indexStr, lambStr, c.arch.PtrSize*8, c.arch.PtrSize*8, captureIndex)
	return index
}

func (c *context) writeLoadCapture(idx *indexFactory, captureIndex int) ast.ValueLiteral {
	ptrIndex := c.writeCapturePtr(idx, selfLit, captureIndex)
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	ptrIndexStr, _ := c.mangleLit(ptrIndex)
	fmt.Fprintf(&c.llir, "    %s = load %%lambda*, %%lambda** %s, align %d\n", indexStr, ptrIndexStr, c.arch.PtrAlign)
	return index
}

func (c *context) writeStoreCapture(idx *indexFactory, value, lamb ast.ValueLiteral, captureIndex int) error {
	ptrIndex := c.writeCapturePtr(idx, lamb, captureIndex)
	valueStr, err := c.mangleLit(value)
	if err != nil {
		return err
	}
	ptrIndexStr, _ := c.mangleLit(ptrIndex)
	fmt.Fprintf(&c.llir, "    store %%lambda* %s, %%lambda** %s, align %d\n", valueStr, ptrIndexStr, c.arch.PtrAlign)
	return nil
}

func (c *context) writeStoreImpl(idx *indexFactory, impl ast.ImplementationPath, lamb ast.ValueLiteral) error {
	ptrIndex := idx.next()
	ptrIndexStr, _ := c.mangleLit(ptrIndex)
	lambStr, err := c.mangleLit(lamb)
	if err != nil {
		return err
	}
	fmt.Fprintf(&c.llir, "    %s = getelementptr inbounds %%lambda, %%lambda* %s, i%d 0, i32 0, i32 3\n", ptrIndexStr, lambStr, c.arch.PtrSize*8)
	fmt.Fprintf(&c.llir, "    store %%lambda_fn* @%s, %%lambda_fn** %s, align %d\n", c.mangleImpl(impl), ptrIndexStr, c.arch.PtrAlign)
	return nil
}

func (c *context) writeLoadExtern(idx *indexFactory, name string) ast.ValueLiteral {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	fmt.Fprintf(&c.llir, "    %s = load %%lambda*, %%lambda** @%s, align %d\n", indexStr, name, c.arch.PtrAlign)
	return index
}

func (c *context) writeLoadGlobal(idx *indexFactory, path ast.Path) ast.ValueLiteral {
	index := idx.next()
	indexStr, _ := c.mangleLit(index)
	fmt.Fprintf(&c.llir, "    %s = load %%lambda*, %%lambda** @%s, align %d\n", indexStr, c.manglePath(path), c.arch.PtrAlign)
	return index
}

func (c *context) writeStoreGlobal(idx *indexFactory, path ast.Path, value ast.ValueLiteral) error {
	valueStr, err := c.mangleLit(value)
	if err != nil {
		return err
	}
	fmt.Fprintf(&c.llir, "    store %%lambda* %s, %%lambda** @%s, align %d\n", valueStr, c.manglePath(path), c.arch.PtrAlign)
	return nil
}

func (c *context) writeCrateInitFini(crate string) error {
	fmt.Fprintf(&c.llir, "define external dso_local void @%s() unnamed_addr {\n", c.mangleCrateInit(crate))

	idx := &indexFactory{}
	idx.next()
	for _, defi := range c.initCache {
		lit := ast.ValueLiteral{Kind: ast.VLitInstance, Inst: defi.Inst}
		if err := c.writeLambdaRef(lit, 1); err != nil {
			return err
		}
		index, err := c.writeLambdaNullCall(idx, lit)
		if err != nil {
			return err
		}
		if err := c.writeStoreGlobal(idx, defi.Path, index); err != nil {
			return err
		}
	}
	c.llir.WriteString("    ret void\n}\n\n")

	fmt.Fprintf(&c.llir, "define external dso_local void @%s() unnamed_addr {\n", c.mangleCrateFini(crate))
	idx = &indexFactory{}
	idx.next()
	for i := len(c.initCache) - 1; i >= 0; i-- {
		defi := c.initCache[i]
		index := c.writeLoadGlobal(idx, defi.Path)
		if err := c.writeLambdaUnref(index); err != nil {
			return err
		}
	}
	c.llir.WriteString("    ret void\n}\n\n")
	return nil
}

// GenerateLLIR emits one crate's LLVM IR text for the given optimized,
// tree-shaken MLIR program.
func GenerateLLIR(prog []ast.MStatement, crate string, arch Architecture) (string, error) {
	c := newContext(arch)
	c.writeRuntime()
	c.llir.WriteString("\n")

	for _, stmt := range prog {
		switch stmt.Kind {
		case ast.MStmtExternCrate, ast.MStmtExtern:
		case ast.MStmtDefinition:
			c.declareGlobal(stmt.Definition.Path)
		case ast.MStmtInstance:
			c.declareInst(stmt.Instance.Path)
		case ast.MStmtImplementation:
			c.declareImpl(stmt.Implementation.Path)
		default:
			return "", errf("codegen: unexpected statement kind encountered")
		}
	}

	for _, stmt := range prog {
		var err error
		switch stmt.Kind {
		case ast.MStmtExternCrate, ast.MStmtExtern:
		case ast.MStmtDefinition:
			err = visitDefinition(stmt.Definition, c)
		case ast.MStmtInstance:
			err = visitInstance(stmt.Instance, c)
		case ast.MStmtImplementation:
			err = visitImplementation(stmt.Implementation, c)
		default:
			err = errf("codegen: unexpected statement kind encountered")
		}
		if err != nil {
			return "", err
		}
		c.llir.WriteString("\n")
	}

	if err := c.writeCrateInitFini(crate); err != nil {
		return "", err
	}
	return c.llir.String(), nil
}

func visitDefinition(defi *ast.Definition, c *context) error {
	c.writeInst(defi.Inst)

	fmt.Fprintf(&c.llir, "@%s = ", c.mangleDef(defi))
	if !defi.IsPublic {
		c.llir.WriteString("internal ")
	}
	c.llir.WriteString("dso_local global %lambda* ")

	if defi.NeedsInit {
		c.llir.WriteString("null")
		c.initCache = append(c.initCache, defi)
	} else {
		fmt.Fprintf(&c.llir, "@%s", c.mangleInst(defi.Inst, false))
	}
	fmt.Fprintf(&c.llir, ", align %d\n", c.arch.PtrAlign)
	return nil
}

func visitInstance(inst *ast.Instance, c *context) error {
	instType := c.writeInstanceType(len(inst.Captures))
	for _, capture := range inst.Captures {
		c.writeInst(capture)
	}
	c.writeImpl(inst.Impl)

	fmt.Fprintf(&c.llir, "@%s = private dso_local unnamed_addr global %s { %%lambda_header { i%d 1, i%d %d, i%d 0, %%lambda_fn* @%s }, [ %d x %%lambda* ] [",
		c.mangleInst(inst.Path, true), instType, c.arch.PtrSize*8, c.arch.PtrSize*8, len(inst.Captures), c.arch.PtrSize*8, c.mangleImpl(inst.Impl), len(inst.Captures))

	parts := make([]string, len(inst.Captures))
	for i, capture := range inst.Captures {
		parts[i] = fmt.Sprintf(" %%lambda* @%s", c.mangleInst(capture, false))
	}
	c.llir.WriteString(strings.Join(parts, ","))
	fmt.Fprintf(&c.llir, " ] }, align %d\n", c.arch.PtrAlign)

	fmt.Fprintf(&c.llir, "@%s = external dso_local alias %%lambda, %%lambda* bitcast(%s* @%s to %%lambda*)\n",
		c.mangleInst(inst.Path, false), instType, c.mangleInst(inst.Path, true))
	return nil
}

func visitImplementation(impl *ast.Implementation, c *context) error {
	uses, err := countUses(impl)
	if err != nil {
		return err
	}

	for _, name := range uses.externs {
		c.writeExtern(name)
	}
	for _, path := range uses.defs {
		c.writeGlobal(path)
	}
	for _, inst := range uses.insts {
		c.writeInst(inst)
	}
	for _, implPath := range uses.impls {
		c.writeImpl(implPath)
	}

	fmt.Fprintf(&c.llir, "define external dso_local %%lambda* @%s(%%lambda* %%0, %%lambda* %%1, %%lambda_cont* %%2) unnamed_addr {\n", c.mangleImpl(impl.Path))

	idx := &indexFactory{}
	idx.skip(4)

	unrefArg := false
	for _, id := range uses.captures {
		refcount := uses.captureCnt[id]
		if id == 0 {
			if refcount == 0 {
				unrefArg = true
			} else if refcount > 1 {
				if err := c.writeLambdaRef(argLit, refcount-1); err != nil {
					return err
				}
			}
		} else {
			lit := c.writeLoadCapture(idx, id-1)
			if err := c.writeLambdaRef(lit, refcount); err != nil {
				return err
			}
		}
	}
	for _, inst := range uses.insts {
		if err := c.writeLambdaRef(ast.ValueLiteral{Kind: ast.VLitInstance, Inst: inst}, uses.instCnt[inst.String()]); err != nil {
			return err
		}
	}
	for _, name := range uses.externs {
		lit := c.writeLoadExtern(idx, name)
		if err := c.writeLambdaRef(lit, uses.externCnt[name]); err != nil {
			return err
		}
	}
	for _, path := range uses.defs {
		lit := c.writeLoadGlobal(idx, path)
		if err := c.writeLambdaRef(lit, uses.defCnt[path.String()]); err != nil {
			return err
		}
	}
	if unrefArg {
		if err := c.writeLambdaUnref(argLit); err != nil {
			return err
		}
	}

	var ret ast.ValueLiteral
	switch impl.Kind {
	case ast.ImplReturn:
		valueR, err := visitLiteral(impl.Value, idx, c)
		if err != nil {
			return err
		}
		value, err := c.writeLoadRealizedLiteral(valueR, idx)
		if err != nil {
			return err
		}
		if err := c.writeLambdaUnref(selfLit); err != nil {
			return err
		}
		ret, err = c.writeLambdaContCall(idx, value)
		if err != nil {
			return err
		}
	case ast.ImplTailCall:
		fnR, err := visitLiteral(impl.Fn, idx, c)
		if err != nil {
			return err
		}
		argR, err := visitLiteral(impl.Arg, idx, c)
		if err != nil {
			return err
		}
		fn, err := c.writeLoadRealizedLiteral(fnR, idx)
		if err != nil {
			return err
		}
		arg, err := c.writeLoadRealizedLiteral(argR, idx)
		if err != nil {
			return err
		}
		if err := c.writeLambdaUnref(selfLit); err != nil {
			return err
		}
		ret, err = c.writeLambdaCall(idx, fn, arg, contLit)
		if err != nil {
			return err
		}
	case ast.ImplContinueCall:
		fnR, err := visitLiteral(impl.Fn, idx, c)
		if err != nil {
			return err
		}
		argR, err := visitLiteral(impl.Arg, idx, c)
		if err != nil {
			return err
		}
		nextR, err := visitLiteral(impl.Next, idx, c)
		if err != nil {
			return err
		}
		fn, err := c.writeLoadRealizedLiteral(fnR, idx)
		if err != nil {
			return err
		}
		arg, err := c.writeLoadRealizedLiteral(argR, idx)
		if err != nil {
			return err
		}
		next, err := c.writeLoadRealizedLiteral(nextR, idx)
		if err != nil {
			return err
		}
		cont, err := c.writeLambdaContAlloc(idx, next)
		if err != nil {
			return err
		}
		if err := c.writeLambdaUnref(selfLit); err != nil {
			return err
		}
		ret, err = c.writeLambdaCall(idx, fn, arg, cont)
		if err != nil {
			return err
		}
	default:
		return errf("codegen: unexpected implementation kind encountered")
	}

	retStr, err := c.mangleLit(ret)
	if err != nil {
		return err
	}
	fmt.Fprintf(&c.llir, "    ret %%lambda* %s\n}\n", retStr)
	return nil
}

func visitLiteral(lit ast.ValueLiteral, idx *indexFactory, c *context) (realizedLiteral, error) {
	if lit.Kind != ast.VLitImplementation {
		return realizedLiteral{kind: realizedSimple, lit: lit}, nil
	}

	lamb := c.writeLambdaAlloc(idx, len(lit.Captures))
	if err := c.writeStoreImpl(idx, lit.Impl, lamb); err != nil {
		return realizedLiteral{}, err
	}

	for destIndex, ref := range lit.Captures {
		var source ast.ValueLiteral
		if ref.IsUpvalue {
			source = ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: ref.Index}
		} else {
			source = ast.ValueLiteral{Kind: ast.VLitInstance, Inst: ref.Inst}
		}
		value, err := c.writeLoadLiteral(source, idx)
		if err != nil {
			return realizedLiteral{}, err
		}
		if err := c.writeStoreCapture(idx, value, lamb, destIndex); err != nil {
			return realizedLiteral{}, err
		}
	}

	return realizedLiteral{kind: realizedImplConstruction, lit: lamb}, nil
}

// GenerateMainLLIR emits the whole-program entry point: ctor/dtor tables
// calling every crate's generated init/fini function in link order, and
// a main() that looks up the final crate's "main" definition and invokes
// it with a null-continuation call.
func GenerateMainLLIR(crates []string, arch Architecture) (string, error) {
	if len(crates) == 0 {
		return "", errf("codegen: no crates given to link")
	}

	c := newContext(arch)
	c.writeRuntime()
	c.llir.WriteString("\n")

	for _, crate := range crates {
		fmt.Fprintf(&c.llir, "declare void @%s() unnamed_addr\n", c.mangleCrateInit(crate))
	}
	c.llir.WriteString("define dso_local void @_LI() {\n")
	for _, crate := range crates {
		fmt.Fprintf(&c.llir, "    tail call void @%s()\n", c.mangleCrateInit(crate))
	}
	c.llir.WriteString("    ret void\n}\n\n")

	for i := len(crates) - 1; i >= 0; i-- {
		fmt.Fprintf(&c.llir, "declare void @%s() unnamed_addr\n", c.mangleCrateFini(crates[i]))
	}
	c.llir.WriteString("define dso_local void @_LF() {\n")
	for i := len(crates) - 1; i >= 0; i-- {
		fmt.Fprintf(&c.llir, "    tail call void @%s()\n", c.mangleCrateFini(crates[i]))
	}
	c.llir.WriteString("    ret void\n}\n\n")

	c.llir.WriteString("@llvm.global_ctors = appending global [1 x { i32, void()*, i8* }] [{ i32, void()*, i8* } { i32 65535, void()* @_LI, i8* null }]\n")
	c.llir.WriteString("@llvm.global_dtors = appending global [1 x { i32, void()*, i8* }] [{ i32, void()*, i8* } { i32 65535, void()* @_LF, i8* null }]\n")

	idx := &indexFactory{}
	idx.next()

	mainCrate := crates[len(crates)-1]
	mainPath := ast.NewPath(mainCrate, "main")
	c.writeGlobal(mainPath)

	c.llir.WriteString("define dso_local i32 @main() unnamed_addr {\n")
	index := c.writeLoadGlobal(idx, mainPath)
	if err := c.writeLambdaRef(index, 1); err != nil {
		return "", err
	}
	retIndex, err := c.writeLambdaNullCall(idx, index)
	if err != nil {
		return "", err
	}
	if err := c.writeLambdaUnref(retIndex); err != nil {
		return "", err
	}
	c.llir.WriteString("    ret i32 0\n}\n")

	return c.llir.String(), nil
}
