// Package modulefile generates and parses the subset of MODULE.bazel that a
// registry entry is checked against: the module() declaration and the
// bazel_dep() list.
//
// It wraps github.com/bazelbuild/buildtools/build, so generated files are
// formatted exactly as buildifier would format them.
package modulefile

import (
	"fmt"
	"os"
	"slices"

	"github.com/albertocavalcante/bcr-tools/internal/buildutil"
	"github.com/bazelbuild/buildtools/build"
)

// File is the registry-relevant content of a MODULE.bazel file.
type File struct {
	Name               string
	Version            string
	CompatibilityLevel int
	Deps               []Dep

	// Calls lists the distinct top-level functions the file calls, in order
	// of first use, including calls whose result is assigned.
	Calls []string

	// Pos is the position of the module() call; zero when generated.
	Pos Position
}

// Dep is one bazel_dep() call.
type Dep struct {
	Name          string
	Version       string
	RepoName      string
	DevDependency bool

	// MaxCompatibilityLevel is zero when unset.
	MaxCompatibilityLevel int

	Pos Position
}

// Position represents a source position for diagnostics.
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// ParseError is a syntax or structure error in a MODULE.bazel file.
type ParseError struct {
	Pos     Position
	Message string
	Wrapped error
}

func (e *ParseError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	if e.Pos.Filename != "" {
		return fmt.Sprintf("%s: %s", e.Pos.Filename, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Wrapped
}

// ParseFile reads and parses a MODULE.bazel file from disk.
func ParseFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return Parse(filename, data)
}

// Parse parses MODULE.bazel content. Calls other than module() and
// bazel_dep() are ignored. A file without a module() call, or with more than
// one, is an error.
func Parse(filename string, content []byte) (*File, error) {
	raw, err := build.ParseModule(filename, content)
	if err != nil {
		return nil, &ParseError{
			Pos:     Position{Filename: filename},
			Message: fmt.Sprintf("syntax error: %v", err),
			Wrapped: err,
		}
	}

	var (
		file    File
		modules int
		seen    = map[string]bool{}
	)
	for _, stmt := range raw.Stmt {
		call := topLevelCall(stmt)
		if call == nil {
			continue
		}
		pos := position(filename, call)

		fn := buildutil.FuncName(call)
		if fn != "" && !seen[fn] {
			seen[fn] = true
			file.Calls = append(file.Calls, fn)
		}

		switch fn {
		case "module":
			modules++
			if modules > 1 {
				return nil, &ParseError{Pos: pos, Message: "module() may only be called once"}
			}
			file.Name = buildutil.String(call, "name")
			file.Version = buildutil.String(call, "version")
			file.CompatibilityLevel, _ = buildutil.Int(call, "compatibility_level")
			file.Pos = pos

		case "bazel_dep":
			dep := Dep{
				Name:          buildutil.String(call, "name"),
				Version:       buildutil.String(call, "version"),
				RepoName:      buildutil.String(call, "repo_name"),
				DevDependency: buildutil.Bool(call, "dev_dependency"),
				Pos:           pos,
			}
			dep.MaxCompatibilityLevel, _ = buildutil.Int(call, "max_compatibility_level")
			if dep.Name == "" {
				return nil, &ParseError{Pos: pos, Message: "bazel_dep: missing required name argument"}
			}
			file.Deps = append(file.Deps, dep)
		}
	}

	if modules == 0 {
		return nil, &ParseError{Pos: Position{Filename: filename}, Message: "no module() declaration"}
	}
	return &file, nil
}

// topLevelCall returns the call of an expression statement or of the right
// hand side of an assignment such as `http_archive = use_repo_rule(...)`.
func topLevelCall(stmt build.Expr) *build.CallExpr {
	switch x := stmt.(type) {
	case *build.CallExpr:
		return x
	case *build.AssignExpr:
		call, _ := x.RHS.(*build.CallExpr)
		return call
	}
	return nil
}

// Uses reports whether the file calls fn at the top level.
func (f *File) Uses(fn string) bool {
	return slices.Contains(f.Calls, fn)
}

func position(filename string, expr build.Expr) Position {
	start, _ := expr.Span()
	return Position{
		Filename: filename,
		Line:     start.Line,
		Column:   start.LineRune,
	}
}

// Generate renders f as a formatted MODULE.bazel file.
func Generate(f *File) []byte {
	module := buildutil.Call("module",
		buildutil.StringArg("name", f.Name),
		buildutil.StringArg("version", f.Version),
		buildutil.IntArg("compatibility_level", f.CompatibilityLevel),
	)
	module.ForceMultiLine = true

	out := &build.File{
		Path: "MODULE.bazel",
		Type: build.TypeModule,
		Stmt: []build.Expr{module},
	}

	for _, dep := range f.Deps {
		args := []build.Expr{
			buildutil.StringArg("name", dep.Name),
			buildutil.StringArg("version", dep.Version),
		}
		if dep.RepoName != "" {
			args = append(args, buildutil.StringArg("repo_name", dep.RepoName))
		}
		if dep.DevDependency {
			args = append(args, buildutil.BoolArg("dev_dependency", true))
		}
		out.Stmt = append(out.Stmt, buildutil.Call("bazel_dep", args...))
	}

	return build.Format(out)
}
