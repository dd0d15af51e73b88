package node

// Size categories used by the search size filter.
const (
	SizeAll    = "all"
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
)

const (
	smallLimit  = 1024 * 1024
	mediumLimit = 10 * 1024 * 1024
)

// Categorize buckets a file size: up to 1 MiB is small, up to 10 MiB is
// medium, anything larger is large.
func Categorize(size int64) string {
	switch {
	case size <= smallLimit:
		return SizeSmall
	case size <= mediumLimit:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// FilterBySize keeps the nodes of the requested category.
//
// "all" and "" return the input untouched. For any other category, nodes
// without a file size are dropped.
func FilterBySize(nodes []Node, category string) []Node {
	if category == "" || category == SizeAll {
		return nodes
	}

	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.FileSize == nil {
			continue
		}
		if Categorize(*n.FileSize) == category {
			out = append(out, n)
		}
	}
	return out
}
