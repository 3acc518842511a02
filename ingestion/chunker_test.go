package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		size      int
		wantCount int
	}{
		{name: "empty", text: "", size: 10, wantCount: 0},
		{name: "shorter than size", text: "short", size: 10, wantCount: 1},
		{name: "exact multiple", text: strings.Repeat("a", 20), size: 10, wantCount: 2},
		{name: "remainder", text: strings.Repeat("a", 21), size: 10, wantCount: 3},
		{name: "default size", text: strings.Repeat("x", 1001), size: 0, wantCount: 3},
		{name: "size one", text: "abc", size: 1, wantCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(tt.text, tt.size)
			require.Len(t, chunks, tt.wantCount)

			var sb strings.Builder
			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				assert.Equal(t, tt.wantCount, c.Total)
				sb.WriteString(c.Text)
			}
			assert.Equal(t, tt.text, sb.String())
		})
	}
}

func TestChunk_ASCIICountProperty(t *testing.T) {
	text := strings.Repeat("Article 33 requires notification. ", 47)
	for size := 1; size <= 600; size += 37 {
		chunks := Chunk(text, size)
		want := (len(text) + size - 1) / size
		assert.Len(t, chunks, want, "size %d", size)
	}
}

func TestChunk_RuneBoundaries(t *testing.T) {
	text := strings.Repeat("données protégées § ", 40) + "日本語の規則"

	for _, size := range []int{1, 2, 3, 7, 50, 500} {
		chunks := Chunk(text, size)

		var sb strings.Builder
		for _, c := range chunks {
			assert.True(t, utf8.ValidString(c.Text), "size %d produced a split rune", size)
			assert.NotEmpty(t, c.Text)
			if size >= utf8.UTFMax {
				assert.LessOrEqual(t, len(c.Text), size)
			}
			sb.WriteString(c.Text)
		}
		assert.Equal(t, text, sb.String())
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("deterministic ", 100)
	assert.Equal(t, Chunk(text, 64), Chunk(text, 64))
}
