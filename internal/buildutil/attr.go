// Package buildutil reads and builds function-call attributes on buildtools
// AST nodes. It is shared by the MODULE.bazel generator and parser.
package buildutil

import (
	"strconv"

	"github.com/bazelbuild/buildtools/build"
)

// Attr returns the right-hand side of the keyword argument name, or nil.
func Attr(call *build.CallExpr, name string) build.Expr {
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		if lhs, ok := assign.LHS.(*build.Ident); ok && lhs.Name == name {
			return assign.RHS
		}
	}
	return nil
}

// String extracts a string attribute. Returns "" if absent or not a string.
func String(call *build.CallExpr, name string) string {
	if str, ok := Attr(call, name).(*build.StringExpr); ok {
		return str.Value
	}
	return ""
}

// Int extracts an integer attribute. The second result is false when the
// attribute is absent or not an integer literal.
func Int(call *build.CallExpr, name string) (int, bool) {
	lit, ok := Attr(call, name).(*build.LiteralExpr)
	if !ok {
		return 0, false
	}
	val, err := strconv.Atoi(lit.Token)
	if err != nil {
		return 0, false
	}
	return val, true
}

// Bool extracts a True/False attribute. Returns false if absent.
func Bool(call *build.CallExpr, name string) bool {
	if ident, ok := Attr(call, name).(*build.Ident); ok {
		return ident.Name == "True"
	}
	return false
}

// FuncName returns the function name from a CallExpr, or "" for method calls.
func FuncName(call *build.CallExpr) string {
	if ident, ok := call.X.(*build.Ident); ok {
		return ident.Name
	}
	return ""
}

// Call builds name(args...).
func Call(name string, args ...build.Expr) *build.CallExpr {
	return &build.CallExpr{
		X:    &build.Ident{Name: name},
		List: args,
	}
}

// StringArg builds name = "value".
func StringArg(name, value string) build.Expr {
	return keyword(name, &build.StringExpr{Value: value})
}

// IntArg builds name = value.
func IntArg(name string, value int) build.Expr {
	return keyword(name, &build.LiteralExpr{Token: strconv.Itoa(value)})
}

// BoolArg builds name = True or name = False.
func BoolArg(name string, value bool) build.Expr {
	ident := "False"
	if value {
		ident = "True"
	}
	return keyword(name, &build.Ident{Name: ident})
}

func keyword(name string, value build.Expr) build.Expr {
	return &build.AssignExpr{
		LHS: &build.Ident{Name: name},
		Op:  "=",
		RHS: value,
	}
}
