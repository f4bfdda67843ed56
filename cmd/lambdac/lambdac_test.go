package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// run executes cmd with args against a fresh buffer, the way the
// teacher's own CLI tests drive util.ParseArgs by hand instead of
// shelling out to a built binary.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLang2hlirProducesHlirByDefault(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x;`)

	_, err := run(t, "lang2hlir", src)
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "main.hlir"))
	assert.Contains(t, out, "main")
}

func TestLang2hlirStubSelectsHlisExtensionAndOmitsBodies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x;`)

	_, err := run(t, "lang2hlir", "-s", src)
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "main.hlis"))
	assert.Contains(t, out, "...")
}

func TestHlir2mlirCompilesToMlir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x;`)
	require.NoError(t, errOf(run(t, "lang2hlir", src)))

	_, err := run(t, "hlir2mlir", filepath.Join(dir, "main.hlir"))
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "main.mlir"))
	assert.Contains(t, out, "impl")
}

func TestMlir2optRoundTripsThroughCrateDependencies(t *testing.T) {
	dir := t.TempDir()
	otherSrc := filepath.Join(dir, "other.lambda")
	writeFile(t, otherSrc, `pub id = x -> x;`)
	mainSrc := filepath.Join(dir, "main.lambda")
	writeFile(t, mainSrc, `extern crate other; pub main = other::id;`)

	require.NoError(t, errOf(run(t, "lang2hlir", "-P", dir, otherSrc)))
	require.NoError(t, errOf(run(t, "hlir2mlir", filepath.Join(dir, "other.hlir"))))
	require.NoError(t, errOf(run(t, "mlir2opt", "-P", dir, "-c", "other", filepath.Join(dir, "other.mlir"))))

	require.NoError(t, errOf(run(t, "lang2hlir", "-P", dir, mainSrc)))
	require.NoError(t, errOf(run(t, "hlir2mlir", filepath.Join(dir, "main.hlir"))))

	_, err := run(t, "mlir2opt", "-P", dir, "-c", "main", filepath.Join(dir, "main.mlir"))
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "main.mlir"))
	assert.NotEmpty(t, out)
}

func TestMlir2llirRejectsUnknownTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x;`)
	require.NoError(t, errOf(run(t, "lang2hlir", src)))
	require.NoError(t, errOf(run(t, "hlir2mlir", filepath.Join(dir, "main.hlir"))))
	require.NoError(t, errOf(run(t, "mlir2opt", filepath.Join(dir, "main.mlir"))))

	_, err := run(t, "mlir2llir", "-t", "made-up-arch", filepath.Join(dir, "main.mlir"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target")
}

func TestLlir2mainGeneratesCtorTable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x;`)
	require.NoError(t, errOf(run(t, "lang2hlir", src)))
	require.NoError(t, errOf(run(t, "hlir2mlir", filepath.Join(dir, "main.hlir"))))
	require.NoError(t, errOf(run(t, "mlir2opt", filepath.Join(dir, "main.mlir"))))
	require.NoError(t, errOf(run(t, "mlir2llir", "-t", "x86_64", filepath.Join(dir, "main.mlir"))))

	_, err := run(t, "llir2main", "-t", "x86_64", "-o", filepath.Join(dir, "out.main.ll"), "main")
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "out.main.ll"))
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "@llvm.global_ctors")
}

func TestHlir2hlisStripsPrivateItemsAndBodies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x; secret = y -> y;`)
	require.NoError(t, errOf(run(t, "lang2hlir", src)))

	_, err := run(t, "hlir2hlis", filepath.Join(dir, "main.hlir"))
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "main.hlis"))
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "pub main::main = ...;")
	assert.NotContains(t, out, "secret")
}

func TestLang2depsEmitsMakeRule(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x;`)

	_, err := run(t, "lang2deps", src)
	require.NoError(t, err)

	out := readFile(t, filepath.Join(dir, "main.d"))
	assert.Contains(t, out, "main.lambda")
}

func TestBuildWritesOneLlFilePerCrate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.lambda")
	writeFile(t, src, `pub main = x -> x;`)
	outDir := filepath.Join(dir, "out")

	_, err := run(t, "build", "-O", outDir, "-t", "x86_64", src)
	require.NoError(t, err)

	assert.Contains(t, readFile(t, filepath.Join(outDir, "main.ll")), "target triple")
	assert.Contains(t, readFile(t, filepath.Join(outDir, "main.main.ll")), "main")
}

func TestMkmakeScaffoldsProjectFiles(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { require.NoError(t, os.Chdir(cwd)) }()

	_, err = run(t, "mkmake", "hello")
	require.NoError(t, err)

	assert.Contains(t, readFile(t, "Makefile"), "hello")
	assert.FileExists(t, filepath.Join("src", "hello.lambda"))
	assert.FileExists(t, filepath.Join("src", "std.lambda"))
	assert.FileExists(t, filepath.Join("src", "io.lambda"))
	assert.FileExists(t, filepath.Join("src", "lambda.h"))
	assert.FileExists(t, filepath.Join("src", "runtime.c"))
	assert.FileExists(t, filepath.Join("src", "io.c"))
}

func TestResolveTargetDefaultsToHostArch(t *testing.T) {
	cmd := newMlir2llirCmd()
	require.NoError(t, cmd.Flags().Set("target", ""))
	arch, err := resolveTarget(cmd)
	require.NoError(t, err)
	assert.NotEmpty(t, arch.Triple)
}

func TestCrateFileStemCutsAtFirstDot(t *testing.T) {
	assert.Equal(t, "main", crateFileStem("/a/b/main.lambda"))
	assert.Equal(t, "main", crateFileStem("/a/b/main.opt.mlir"))
	assert.Equal(t, "main", crateFileStem("main"))
}

func errOf(_ string, err error) error { return err }
