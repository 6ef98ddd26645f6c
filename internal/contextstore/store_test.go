package contextstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyPatchOverwritesAndDeletes(t *testing.T) {
	base := map[string]any{"a": 1, "b": 2}
	out := ApplyPatch(base, map[string]any{"b": nil, "c": 3})

	assert.Equal(t, map[string]any{"a": 1, "c": 3}, out)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, base, "ApplyPatch must not mutate base")
}

func TestApplyPatchNilPatchIsCopy(t *testing.T) {
	base := map[string]any{"a": 1}
	out := ApplyPatch(base, nil)
	out["a"] = 2
	assert.Equal(t, 1, base["a"])
}
