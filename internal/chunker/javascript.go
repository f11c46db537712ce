package chunker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// smallAnonymousLines is the line threshold below which anonymous callbacks
// are not worth indexing on their own.
const smallAnonymousLines = 50

var jsFunctionKinds = map[string]bool{
	"function_declaration": true,
	"method_definition":    true,
	"arrow_function":       true,
	"function":             true,
	"function_expression":  true,
}

// extractJS walks the JavaScript syntax tree and emits one chunk per function
// body. Two classes of nodes are excluded: functions that directly contain
// named function declarations (IIFE-style wrappers whose members are indexed
// individually), and small anonymous callbacks below smallAnonymousLines.
func extractJS(src []byte, path string, root *sitter.Node) []Chunk {
	var chunks []Chunk

	var walk func(n, parent *sitter.Node)
	walk = func(n, parent *sitter.Node) {
		if jsFunctionKinds[n.Type()] {
			code := n.Content(src)
			name := jsFunctionName(src, n, parent)
			row := int(n.StartPoint().Row)

			smallAnonymous := name == "anonymous" && strings.Count(code, "\n")+1 < smallAnonymousLines
			if !hasNamedNestedFunction(n) && !smallAnonymous {
				doc := jsDocstring(src, row)
				chunks = append(chunks, newFunctionChunk(path, name, n.Type(), code, doc, row+1))
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), n)
		}
	}

	walk(root, nil)
	return chunks
}

// hasNamedNestedFunction reports whether any descendant of n is a named
// function declaration. Anonymous callbacks and arrow functions don't count.
func hasNamedNestedFunction(n *sitter.Node) bool {
	var check func(n *sitter.Node) bool
	check = func(n *sitter.Node) bool {
		if n.Type() == "function_declaration" && n.ChildByFieldName("name") != nil {
			return true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if check(n.Child(i)) {
				return true
			}
		}
		return false
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if check(n.Child(i)) {
			return true
		}
	}
	return false
}

// jsFunctionName resolves a function's name. Declarations and methods carry a
// name field; arrow functions and function expressions recover theirs from an
// enclosing variable declarator (const foo = () => {}) or object property
// ({ foo: function() {} }). Everything else is "anonymous".
func jsFunctionName(src []byte, n, parent *sitter.Node) string {
	if nn := n.ChildByFieldName("name"); nn != nil {
		return nn.Content(src)
	}
	if parent == nil {
		return "anonymous"
	}

	switch parent.Type() {
	case "variable_declarator":
		for i := 0; i < int(parent.ChildCount()); i++ {
			if c := parent.Child(i); c.Type() == "identifier" {
				return c.Content(src)
			}
		}
	case "pair":
		if key := parent.ChildByFieldName("key"); key != nil {
			switch key.Type() {
			case "property_identifier":
				return key.Content(src)
			case "string":
				return strings.Trim(key.Content(src), `"'`)
			}
		}
	}
	return "anonymous"
}

// jsDocstring collects the JSDoc block directly above the given 0-based row.
// A blank line or any non-JSDoc line ends the scan.
func jsDocstring(src []byte, row int) string {
	lines := strings.Split(string(src), "\n")
	if row > len(lines) {
		row = len(lines)
	}

	cleaner := strings.NewReplacer("/**", "", "*/", "", "*", "")

	var parts []string
	for i := row - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "/**") && !strings.HasPrefix(line, "*") {
			break
		}
		if cleaned := strings.TrimSpace(cleaner.Replace(line)); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	return joinReversed(parts)
}
