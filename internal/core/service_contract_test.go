package core

import (
	"fmt"
	"go/ast"
	"go/types"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"golang.org/x/tools/go/packages"
)

const corePath = "fluxcore/internal/core"

func TestServiceStructContract(t *testing.T) {
	pkg := loadCorePackage(t)
	obj := pkg.Types.Scope().Lookup("Service")
	if obj == nil {
		t.Fatalf("Service type not found in package")
	}
	structType, ok := obj.Type().Underlying().(*types.Struct)
	if !ok {
		t.Fatalf("Service is not a struct")
	}
	qualifier := func(p *types.Package) string { return p.Path() }
	fields := make(map[string]string, structType.NumFields())
	for i := 0; i < structType.NumFields(); i++ {
		field := structType.Field(i)
		fields[field.Name()] = types.TypeString(field.Type(), qualifier)
	}
	required := map[string]string{
		"solver":   "fluxcore/internal/solver.Solver",
		"analyzer": "fluxcore/internal/solver.VariabilityAnalyzer",
		"catalog":  "fluxcore/pkg/domain.ModelCatalog",
		"logger":   corePath + ".Logger",
		"clock":    corePath + ".Clock",
		"metrics":  corePath + ".MetricsRecorder",
		"tracer":   corePath + ".Tracer",
		"audit":    corePath + ".AuditRecorder",
	}
	var problems []string
	for name, want := range required {
		got, ok := fields[name]
		switch {
		case !ok:
			problems = append(problems, "missing "+name)
		case got != want:
			problems = append(problems, fmt.Sprintf("%s: want %s, got %s", name, want, got))
		}
	}
	sort.Strings(problems)
	if len(problems) > 0 {
		t.Fatalf("service struct contract violated: %s", strings.Join(problems, "; "))
	}
}

// TestServiceContextMethodsUseRun keeps observability uniform: every exported
// method taking a context must delegate to run.
func TestServiceContextMethodsUseRun(t *testing.T) {
	pkg := loadCorePackage(t)
	file := findFile(t, pkg, "service.go")
	var violations []string
	checked := 0
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || fn.Body == nil || !ast.IsExported(fn.Name.Name) {
			continue
		}
		recv, ok := serviceReceiverName(fn)
		if !ok || !takesContext(fn) {
			continue
		}
		checked++
		if !callsRun(fn.Body, recv) {
			pos := pkg.Fset.Position(fn.Pos())
			violations = append(violations, fmt.Sprintf("%s:%d %s", filepath.Base(pos.Filename), pos.Line, fn.Name.Name))
		}
	}
	if checked == 0 {
		t.Fatalf("expected context-taking service methods in service.go")
	}
	if len(violations) > 0 {
		t.Fatalf("service methods must delegate to run:\n%s", strings.Join(violations, "\n"))
	}
}

func serviceReceiverName(fn *ast.FuncDecl) (string, bool) {
	if len(fn.Recv.List) != 1 || len(fn.Recv.List[0].Names) != 1 {
		return "", false
	}
	star, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
	if !ok {
		return "", false
	}
	ident, ok := star.X.(*ast.Ident)
	if !ok || ident.Name != "Service" {
		return "", false
	}
	return fn.Recv.List[0].Names[0].Name, true
}

func takesContext(fn *ast.FuncDecl) bool {
	params := fn.Type.Params.List
	if len(params) == 0 {
		return false
	}
	sel, ok := params[0].Type.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkgIdent, ok := sel.X.(*ast.Ident)
	return ok && pkgIdent.Name == "context" && sel.Sel.Name == "Context"
}

func callsRun(body *ast.BlockStmt, recv string) bool {
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return !found
		}
		if sel, ok := call.Fun.(*ast.SelectorExpr); ok && sel.Sel.Name == "run" {
			if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == recv {
				found = true
			}
		}
		return !found
	})
	return found
}

var (
	corePkgOnce sync.Once
	corePkg     *packages.Package
	corePkgErr  error
)

func loadCorePackage(t *testing.T) *packages.Package {
	t.Helper()
	corePkgOnce.Do(func() {
		cfg := &packages.Config{
			Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedCompiledGoFiles | packages.NeedFiles,
		}
		pkgs, err := packages.Load(cfg, corePath)
		if err != nil {
			corePkgErr = fmt.Errorf("load core package: %w", err)
			return
		}
		for _, pkg := range pkgs {
			if len(pkg.Errors) > 0 {
				corePkgErr = fmt.Errorf("package load errors: %v", pkg.Errors)
				return
			}
			if pkg.PkgPath == corePath {
				corePkg = pkg
				return
			}
		}
		corePkgErr = fmt.Errorf("core package not found in load results")
	})
	if corePkgErr != nil {
		t.Fatalf("core package load: %v", corePkgErr)
	}
	return corePkg
}

func findFile(t *testing.T, pkg *packages.Package, target string) *ast.File {
	t.Helper()
	for _, file := range pkg.Syntax {
		if filepath.Base(pkg.Fset.Position(file.Pos()).Filename) == target {
			return file
		}
	}
	t.Fatalf("failed to locate %s in package", target)
	return nil
}
