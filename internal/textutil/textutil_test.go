package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateNoOp(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))
}

func TestTruncateMarksDroppedCount(t *testing.T) {
	s := strings.Repeat("x", 10)
	got := Truncate(s, 4)
	assert.Equal(t, "xxxx...[truncated 6 chars]", got)
}
