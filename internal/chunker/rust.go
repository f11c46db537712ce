package chunker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// extractRust walks the Rust syntax tree and emits one chunk per function
// item. Containers are never emitted: impl blocks only contribute the
// implemented type's name as a "Type::" prefix for their member functions,
// and struct/enum definitions are traversed for nested items and discarded.
func extractRust(src []byte, path string, root *sitter.Node) []Chunk {
	var chunks []Chunk

	var walk func(n *sitter.Node, implType string)
	walk = func(n *sitter.Node, implType string) {
		switch n.Type() {
		case "impl_item":
			typeName := "UnknownType"
			if t := n.ChildByFieldName("type"); t != nil {
				typeName = t.Content(src)
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i), typeName)
			}

		case "function_item":
			name := "anonymous"
			if nn := n.ChildByFieldName("name"); nn != nil {
				name = nn.Content(src)
			}
			if implType != "" {
				name = implType + "::" + name
			}
			row := int(n.StartPoint().Row)
			doc := rustDocstring(src, row)
			chunks = append(chunks, newFunctionChunk(path, name, n.Type(), n.Content(src), doc, row+1))
			// Rust functions don't nest named functions worth indexing;
			// no recursion into the body.

		default:
			// struct_item and enum_item land here: traversed, not emitted.
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i), implType)
			}
		}
	}

	walk(root, "")
	return chunks
}

// rustDocstring collects the contiguous block of doc comments (/// or //!)
// directly above the given 0-based row. A blank line or a code line ends the
// block; plain // comments are skipped without ending it. Lines are joined
// top-to-bottom with spaces.
func rustDocstring(src []byte, row int) string {
	lines := strings.Split(string(src), "\n")
	if row > len(lines) {
		row = len(lines)
	}

	var parts []string
	for i := row - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, "///"):
			parts = append(parts, strings.TrimSpace(line[3:]))
		case strings.HasPrefix(line, "//!"):
			parts = append(parts, strings.TrimSpace(line[3:]))
		case strings.HasPrefix(line, "//"):
			// Ordinary comment between docs and item: not doc text.
		default:
			return joinReversed(parts)
		}
	}
	return joinReversed(parts)
}

// joinReversed joins lines collected bottom-up into top-to-bottom order.
func joinReversed(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	out := make([]string, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			out = append(out, parts[i])
		}
	}
	return strings.Join(out, " ")
}
