package discovery

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	funcTest     = "test"
	funcDescribe = "describe"
)

// callPattern describes one call shape that produces a position: the node
// kind of the callee, the field selectors walked to reach its parts, and
// the literal names those parts must equal. Each pattern can be exercised
// in isolation against a single call_expression node.
type callPattern struct {
	kind   Kind
	callee func(node *sitter.Node, source []byte) bool
}

var callPatterns = []callPattern{
	{kind: KindNamespace, callee: isDescribeCallee},
	{kind: KindTest, callee: isTestCallee},
}

// matchCall checks a call_expression against the pattern table. It returns
// the produced kind and the string-literal first argument, or ok=false when
// no pattern applies.
func matchCall(call *sitter.Node, source []byte) (Kind, string, bool) {
	callee := call.ChildByFieldName("function")
	args := call.ChildByFieldName("arguments")
	if callee == nil || args == nil {
		return "", "", false
	}

	name, ok := firstStringArgument(args, source)
	if !ok {
		return "", "", false
	}

	for _, p := range callPatterns {
		if p.callee(callee, source) {
			return p.kind, name, true
		}
	}
	return "", "", false
}

// isTestCallee matches the bare identifier `test`.
func isTestCallee(node *sitter.Node, source []byte) bool {
	return node.Type() == "identifier" && node.Content(source) == funcTest
}

// isDescribeCallee matches a member expression resolving to the qualified
// name `test.describe`.
func isDescribeCallee(node *sitter.Node, source []byte) bool {
	if node.Type() != "member_expression" {
		return false
	}

	obj := node.ChildByFieldName("object")
	prop := node.ChildByFieldName("property")
	if obj == nil || prop == nil {
		return false
	}

	return obj.Type() == "identifier" &&
		obj.Content(source) == funcTest &&
		prop.Content(source) == funcDescribe
}

// firstStringArgument returns the unquoted value of the first argument when
// it is a string literal.
func firstStringArgument(args *sitter.Node, source []byte) (string, bool) {
	first := args.NamedChild(0)
	if first == nil {
		return "", false
	}

	switch first.Type() {
	case "string", "template_string":
		return unquoteString(first.Content(source)), true
	}
	return "", false
}

// unquoteString strips the surrounding quotes from a JavaScript string
// literal. Single-quoted strings are converted to Go's double-quoted form
// before strconv.Unquote so escapes are handled.
func unquoteString(text string) string {
	if len(text) < 2 {
		return text
	}

	if text[0] == '`' && text[len(text)-1] == '`' {
		return text[1 : len(text)-1]
	}

	if text[0] == '\'' && text[len(text)-1] == '\'' {
		inner := text[1 : len(text)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		escaped := strings.ReplaceAll(inner, `"`, `\"`)
		if s, err := strconv.Unquote(`"` + escaped + `"`); err == nil {
			return s
		}
		return text
	}

	if s, err := strconv.Unquote(text); err == nil {
		return s
	}
	return text
}
