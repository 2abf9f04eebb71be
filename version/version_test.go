package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatibleSameVersion(t *testing.T) {
	v := Triplet{Major: 1, Minor: 0, Patch: 0}
	assert.True(t, Compatible(v, v))
}

func TestCompatibleNewerMinor(t *testing.T) {
	local := Triplet{Major: 1, Minor: 0, Patch: 0}
	peer := Triplet{Major: 1, Minor: 3, Patch: 9}
	assert.True(t, Compatible(local, peer))
}

func TestIncompatibleOlderMinor(t *testing.T) {
	local := Triplet{Major: 1, Minor: 2, Patch: 0}
	peer := Triplet{Major: 1, Minor: 1, Patch: 0}
	assert.False(t, Compatible(local, peer))
}

func TestIncompatibleDifferentMajor(t *testing.T) {
	local := Triplet{Major: 1, Minor: 0, Patch: 0}
	peer := Triplet{Major: 2, Minor: 0, Patch: 0}
	assert.False(t, Compatible(local, peer))
}

func TestStringFormat(t *testing.T) {
	assert.Equal(t, "1.2.3", Triplet{Major: 1, Minor: 2, Patch: 3}.String())
}
