package cart

import "github.com/tomasvik/threadline-go/internal/domain"

// findLine returns the index of the line keyed by (productID, size), or -1.
func findLine(lines []domain.CartLine, productID string, size domain.Size) int {
	for i, l := range lines {
		if l.ProductID == productID && l.Size == size {
			return i
		}
	}
	return -1
}

// upsertLine folds one line into the set: a line with the same
// (product, size) key absorbs the quantity, otherwise the line is appended.
// This is what keeps the at-most-one-line-per-key invariant.
func upsertLine(lines []domain.CartLine, line domain.CartLine) []domain.CartLine {
	if i := findLine(lines, line.ProductID, line.Size); i >= 0 {
		lines[i].Quantity += line.Quantity
		return lines
	}
	return append(lines, line)
}

// removeLine drops the matching line if present; absent lines are a no-op.
func removeLine(lines []domain.CartLine, productID string, size domain.Size) []domain.CartLine {
	out := lines[:0]
	for _, l := range lines {
		if l.ProductID == productID && l.Size == size {
			continue
		}
		out = append(out, l)
	}
	return out
}

// MergeLines reconciles a guest session's locally-held lines into a
// server-side line set: quantities sum on key match, unknown keys append
// verbatim. No stock or size validation happens here; a merge at login must
// never drop what the customer picked while signed out.
func MergeLines(existing, incoming []domain.CartLine) []domain.CartLine {
	merged := make([]domain.CartLine, len(existing))
	copy(merged, existing)
	for _, line := range incoming {
		merged = upsertLine(merged, line)
	}
	return merged
}
