// Package loader resolves a crate's extern-crate and module statements into
// a tree of parsed source files, following the search rules in
// passes/lang/collect_deps.py: a crate search path of directories, each
// holding either a compiled ".hlis"/".hlir" stub or ".lambda"/"mod.lambda"
// source, and modules found alongside or inside their owning crate's
// directory.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/frontend"
	"github.com/Ferdi265/lambda-compiler/internal/hlirio"
)

// SourceFile is one parsed lambda-calculus source file together with the
// crates and submodules its statements reference, resolved in place. A
// file loaded from a ".hlis"/".hlir" interface stub has IsStub set and
// HLIR populated instead of Stmts: a stub is a resolve-only leaf (its own
// extern-crate dependencies, if any, aren't re-resolved here), per
// DESIGN.md's scope note on stub consumption.
type SourceFile struct {
	Name    string
	Dir     string
	Src     string
	OwnsDir bool
	Stmts   []ast.Statement

	IsStub bool
	HLIR   []ast.HStatement // set instead of Stmts when IsStub

	Crates map[string]*Crate // StmtExternCrate name -> resolved crate
	Mods   map[string]*Mod   // StmtMod name -> resolved submodule
}

// Crate is a loaded, named crate rooted at a SourceFile.
type Crate struct {
	Name string
	File *SourceFile
}

// Mod is a loaded, named submodule rooted at a SourceFile.
type Mod struct {
	Name     string
	IsPublic bool
	File     *SourceFile
}

// Error reports a crate/module resolution failure: a missing file or a
// cyclic extern-crate dependency.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// context threads the crate search path and cycle-detection blacklist
// through a recursive descent over one crate's source tree.
type context struct {
	searchPath []string
	allowStubs bool
	blacklist  map[string]bool
	loaded     map[string]*Crate
}

// LoadInitialCrate locates and parses the entry file's owning crate,
// matching load_initial_crate's three-way guess (bare file, directory with
// mod.lambda, or a standalone file named after the crate).
func LoadInitialCrate(filePath string) (*Crate, error) {
	fileName := filepath.Base(filePath)
	dirPath := filepath.Dir(filePath)
	dirName := filepath.Base(dirPath)

	var crateName, crateDir, crateSrc string
	var ownsDir bool

	if isFile(filePath) && fileName == "mod.lambda" {
		crateName, crateDir, crateSrc, ownsDir = dirName, dirPath, filePath, true
	} else if mod := filepath.Join(filePath, "mod.lambda"); isFile(mod) {
		crateName, crateDir, crateSrc, ownsDir = fileName, filePath, mod, true
	} else if isFile(filePath) {
		name := strings.SplitN(fileName, ".", 2)[0]
		if name == "mod" {
			return nil, errf("could not determine crate name and dir from path %s", filePath)
		}
		crateName, crateDir, crateSrc, ownsDir = name, dirPath, filePath, false
	} else {
		return nil, errf("could not determine crate name and dir from path %s", filePath)
	}

	stmts, err := parseFile(crateSrc)
	if err != nil {
		return nil, err
	}
	return &Crate{Name: crateName, File: &SourceFile{Name: crateName, Dir: crateDir, Src: crateSrc, OwnsDir: ownsDir, Stmts: stmts}}, nil
}

// Collect loads the crate rooted at filePath and recursively resolves
// every extern-crate and mod statement it (transitively) references.
// allowStubs enables the ".hlis"/".hlir" stub-preferring search order of
// passes/lang/collect_deps.py for extern-crate lookups; full builds pass
// false so every crate is built from real source.
func Collect(filePath string, searchPath []string, allowStubs bool) (*Crate, error) {
	crate, err := LoadInitialCrate(filePath)
	if err != nil {
		return nil, err
	}

	ctx := &context{
		searchPath: searchPath,
		allowStubs: allowStubs,
		blacklist:  map[string]bool{crate.Name: true},
		loaded:     map[string]*Crate{},
	}
	if err := ctx.visitSourceFile(crate.File); err != nil {
		return nil, err
	}
	return crate, nil
}

func (ctx *context) withCrate(name string) *context {
	bl := make(map[string]bool, len(ctx.blacklist)+1)
	for k := range ctx.blacklist {
		bl[k] = true
	}
	bl[name] = true
	return &context{searchPath: ctx.searchPath, allowStubs: ctx.allowStubs, blacklist: bl, loaded: ctx.loaded}
}

func (ctx *context) visitSourceFile(f *SourceFile) error {
	f.Crates = map[string]*Crate{}
	f.Mods = map[string]*Mod{}

	for _, stmt := range f.Stmts {
		switch stmt.Kind {
		case ast.StmtExternCrate:
			crate, err := ctx.loadCrate(stmt.Name)
			if err != nil {
				return err
			}
			// A stub-loaded crate is a resolve-only leaf: it carries no
			// Stmts to recurse into, and its own transitive extern-crate
			// dependencies (if any) are not re-resolved here.
			if !crate.File.IsStub {
				if err := ctx.withCrate(stmt.Name).visitSourceFile(crate.File); err != nil {
					return err
				}
			}
			f.Crates[stmt.Name] = crate
		case ast.StmtMod:
			mod, err := loadMod(f, stmt.Name, stmt.IsPublic)
			if err != nil {
				return err
			}
			if err := ctx.visitSourceFile(mod.File); err != nil {
				return err
			}
			f.Mods[stmt.Name] = mod
		}
	}
	return nil
}

func (ctx *context) loadCrate(name string) (*Crate, error) {
	if ctx.blacklist[name] {
		return nil, errf("cyclical dependency on crate '%s'", name)
	}
	if c, ok := ctx.loaded[name]; ok {
		return c, nil
	}

	for _, dir := range ctx.searchPath {
		if ctx.allowStubs {
			if src := filepath.Join(dir, name+".hlis"); isFile(src) {
				return ctx.loadStub(name, src)
			}
			if src := filepath.Join(dir, name+".hlir"); isFile(src) {
				return ctx.loadStub(name, src)
			}
		}
		if src := filepath.Join(dir, name+".lambda"); isFile(src) {
			stmts, err := parseFile(src)
			if err != nil {
				return nil, err
			}
			c := &Crate{Name: name, File: &SourceFile{Name: name, Dir: filepath.Dir(src), Src: src, Stmts: stmts}}
			ctx.loaded[name] = c
			return c, nil
		}
		if src := filepath.Join(dir, name, "mod.lambda"); isFile(src) {
			stmts, err := parseFile(src)
			if err != nil {
				return nil, err
			}
			c := &Crate{Name: name, File: &SourceFile{Name: name, Dir: filepath.Dir(src), Src: src, OwnsDir: true, Stmts: stmts}}
			ctx.loaded[name] = c
			return c, nil
		}
	}
	return nil, errf("did not find crate '%s'", name)
}

func (ctx *context) loadStub(name, src string) (*Crate, error) {
	code, err := os.ReadFile(src)
	if err != nil {
		return nil, errf("%v", err)
	}
	stmts, err := hlirio.Parse(string(code), src)
	if err != nil {
		return nil, err
	}
	c := &Crate{Name: name, File: &SourceFile{
		Name: name, Dir: filepath.Dir(src), Src: src,
		IsStub: true, HLIR: stmts, Crates: map[string]*Crate{}, Mods: map[string]*Mod{},
	}}
	ctx.loaded[name] = c
	return c, nil
}

func loadMod(owner *SourceFile, name string, isPublic bool) (*Mod, error) {
	var modDir, modSrc string
	var ownsDir bool
	found := false

	if owner.OwnsDir {
		if src := filepath.Join(owner.Dir, name+".lambda"); isFile(src) {
			modDir, modSrc, ownsDir, found = owner.Dir, src, false, true
		} else if src := filepath.Join(owner.Dir, name, "mod.lambda"); isFile(src) {
			modDir, modSrc, ownsDir, found = filepath.Join(owner.Dir, name), src, true, true
		}
	} else {
		base := filepath.Join(owner.Dir, owner.Name)
		if src := filepath.Join(base, name+".lambda"); isFile(src) {
			modDir, modSrc, ownsDir, found = base, src, false, true
		} else if src := filepath.Join(base, name, "mod.lambda"); isFile(src) {
			modDir, modSrc, ownsDir, found = filepath.Join(base, name), src, true, true
		}
	}

	if !found {
		return nil, errf("did not find module '%s'", name)
	}

	stmts, err := parseFile(modSrc)
	if err != nil {
		return nil, err
	}
	return &Mod{Name: name, IsPublic: isPublic, File: &SourceFile{Name: name, Dir: modDir, Src: modSrc, OwnsDir: ownsDir, Stmts: stmts}}, nil
}

func parseFile(src string) ([]ast.Statement, error) {
	code, err := os.ReadFile(src)
	if err != nil {
		return nil, errf("%v", err)
	}
	stmts, err := frontend.Parse(string(code), src)
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
