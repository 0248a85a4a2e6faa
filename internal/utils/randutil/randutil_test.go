package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskString(t *testing.T) {
	assert.Equal(t, "AIza****wxyz", MaskString("AIza1234wxyz", 4, 4))
	assert.Equal(t, "***", MaskString("abc", 2, 2))
}
