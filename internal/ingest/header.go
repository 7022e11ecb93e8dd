package ingest

import (
	"strconv"
	"strings"

	"github.com/sells-group/rate-tiering/internal/model"
)

// LabelColumns builds the column labels of a worksheet. The header is
// widened to the widest data row; blank header cells become positional
// placeholders and repeated labels get a ".N" suffix, so every label is
// unique.
func LabelColumns(header []string, rows [][]string) []string {
	width := len(header)
	for _, r := range rows {
		width = max(width, len(r))
	}

	labels := make([]string, width)
	seen := make(map[string]bool, width)
	suffix := make(map[string]int)
	for j := range width {
		label := ""
		if j < len(header) {
			label = strings.TrimSpace(header[j])
		}
		if label == "" {
			label = model.PlaceholderColumn(j)
		}

		base := label
		for seen[label] {
			suffix[base]++
			label = base + "." + strconv.Itoa(suffix[base])
		}
		seen[label] = true
		labels[j] = label
	}
	return labels
}
