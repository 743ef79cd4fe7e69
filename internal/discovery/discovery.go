// Package discovery finds Playwright tests inside source files. It parses
// each file with tree-sitter and matches call expressions against a small
// table of call-shape patterns, producing a tree of positions whose nesting
// follows the byte-range containment of the underlying calls.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// maxTreeDepth bounds AST traversal to prevent stack overflow on
// pathological inputs.
const maxTreeDepth = 1000

var (
	tsLang *sitter.Language
	jsLang *sitter.Language

	langOnce sync.Once
)

func initLanguages() {
	langOnce.Do(func() {
		tsLang = typescript.GetLanguage()
		jsLang = javascript.GetLanguage()
	})
}

func languageFor(path string) *sitter.Language {
	initLanguages()

	switch filepath.Ext(path) {
	case ".ts", ".tsx":
		return tsLang
	default:
		return jsLang
	}
}

// Discover reads path and returns its position tree. See DiscoverSource.
func Discover(path string) (*Position, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("discovery: read %s: %w", path, err)
	}
	return DiscoverSource(path, source)
}

// DiscoverSource parses source and returns a position tree rooted at a file
// position. When no test or namespace calls match it returns (nil, nil):
// a file without tests is not an error.
func DiscoverSource(path string, source []byte) (*Position, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(path))

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("discovery: parse %s: %w", path, err)
	}
	defer tree.Close()

	matches := collectMatches(tree.RootNode(), source)
	if len(matches) == 0 {
		return nil, nil
	}

	root := &Position{
		Kind:  KindFile,
		Name:  filepath.Base(path),
		Path:  path,
		Range: nodeRange(tree.RootNode()),
	}

	nestByContainment(root, tree.RootNode().EndByte(), matches, path)

	return root, nil
}

// match is one pattern hit, carrying byte offsets for containment checks.
type match struct {
	kind      Kind
	name      string
	startByte uint32
	endByte   uint32
	rng       Range
}

// collectMatches walks the AST in preorder and records every call
// expression the pattern table accepts. Preorder guarantees parents appear
// before the calls nested inside their arguments.
func collectMatches(root *sitter.Node, source []byte) []match {
	var matches []match

	walk(root, 0, func(node *sitter.Node) {
		if node.Type() != "call_expression" {
			return
		}
		kind, name, ok := matchCall(node, source)
		if !ok {
			return
		}
		matches = append(matches, match{
			kind:      kind,
			name:      name,
			startByte: node.StartByte(),
			endByte:   node.EndByte(),
			rng:       nodeRange(node),
		})
	})

	return matches
}

// nestByContainment attaches matches to the tree by byte-range containment:
// a match wholly inside an open position becomes its child, otherwise the
// enclosing frames are closed until one contains it.
func nestByContainment(root *Position, rootEnd uint32, matches []match, path string) {
	type frame struct {
		pos     *Position
		endByte uint32
	}

	stack := []frame{{pos: root, endByte: rootEnd}}

	for _, m := range matches {
		for len(stack) > 1 && m.startByte >= stack[len(stack)-1].endByte {
			stack = stack[:len(stack)-1]
		}

		pos := &Position{
			Kind:  m.kind,
			Name:  m.name,
			Path:  path,
			Range: m.rng,
		}

		parent := stack[len(stack)-1].pos
		parent.Children = append(parent.Children, pos)
		stack = append(stack, frame{pos: pos, endByte: m.endByte})
	}
}

func walk(node *sitter.Node, depth int, visit func(*sitter.Node)) {
	if depth > maxTreeDepth {
		return
	}

	visit(node)

	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), depth+1, visit)
	}
}

func nodeRange(node *sitter.Node) Range {
	start := node.StartPoint()
	end := node.EndPoint()
	return Range{
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    int(end.Column),
	}
}
