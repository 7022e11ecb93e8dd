package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rows   [][]string
		want   []string
	}{
		{
			name:   "plain header",
			header: []string{"VENDOR", "Origin City", "Destination City"},
			want:   []string{"VENDOR", "Origin City", "Destination City"},
		},
		{
			name:   "blank cells become placeholders",
			header: []string{"VENDOR", "", "  ", "CDE"},
			want:   []string{"VENDOR", "Unnamed: 1", "Unnamed: 2", "CDE"},
		},
		{
			name:   "widened to widest row",
			header: []string{"VENDOR"},
			rows:   [][]string{{"a"}, {"a", "b", "c"}},
			want:   []string{"VENDOR", "Unnamed: 1", "Unnamed: 2"},
		},
		{
			name:   "duplicates get suffixes",
			header: []string{"CDE", "CDE", "CDE"},
			want:   []string{"CDE", "CDE.1", "CDE.2"},
		},
		{
			name:   "suffix skips taken labels",
			header: []string{"CDE", "CDE.1", "CDE"},
			want:   []string{"CDE", "CDE.1", "CDE.2"},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelColumns(tt.header, tt.rows))
		})
	}
}
