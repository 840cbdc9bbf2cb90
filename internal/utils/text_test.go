package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Great   movie \n\n truly ", "Great movie truly"},
		{"markup", "<p>Great <em>movie</em></p><p>Loved it</p>", "Great movie Loved it"},
		{"script dropped", "ok<script>alert(1)</script> fine", "ok fine"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 10))
	assert.Equal(t, "the quick brown...", Excerpt("the quick brown fox jumps", 18))
	assert.Equal(t, "anything", Excerpt("anything", 0))

	// the word boundary is measured in runes, not bytes
	assert.Equal(t, "éééé ééééé...", Excerpt("éééé ééééééééé", 10))
	assert.Equal(t, "ééééééé...", Excerpt("ééééééé éééé", 10))
}
