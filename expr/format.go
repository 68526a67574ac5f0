package expr

import (
	"strconv"
	"strings"

	"github.com/hupe1980/scalareval/scalar"
)

// String renders n in the text form accepted by Parse.
func (n *Node[T]) String() string {
	if n == nil {
		return "<nil>"
	}
	var parts []string
	_ = PostOrder(n, func(node *Node[T]) error {
		switch node.Op {
		case OpLeaf:
			parts = append(parts, formatHandle(node.Handle))
		case OpRange:
			parts = append(parts, formatRange(node))
		default:
			l, r := parts[len(parts)-2], parts[len(parts)-1]
			parts = parts[:len(parts)-2]
			parts = append(parts, node.Op.String()+"("+l+", "+r+")")
		}
		return nil
	})
	return parts[0]
}

func formatHandle(h Handle) string {
	return "#" + strconv.FormatUint(uint64(h), 10)
}

func formatRange[T scalar.Value](n *Node[T]) string {
	var sb strings.Builder
	sb.WriteString("range(")
	sb.WriteString(formatHandle(n.Handle))
	sb.WriteString(", ")
	if n.Bounds.LowerInclusive {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	sb.WriteString(scalar.Format(n.Lower))
	sb.WriteString(", ")
	sb.WriteString(scalar.Format(n.Upper))
	if n.Bounds.UpperInclusive {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
	return sb.String()
}
