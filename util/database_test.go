package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "nvd-full", SanitizeKey(" nvd/full "))
	assert.Equal(t, "a-b", SanitizeKey("[a b]"))
}

func TestMetadataKey(t *testing.T) {
	assert.Equal(t, "nvd_incremental", MetadataKey("incremental"))
	assert.Equal(t, "nvd_full", MetadataKey("full"))
}
