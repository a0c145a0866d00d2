package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$1,500.00", FormatCents(150000))
	assert.Equal(t, "$0.00", FormatCents(0))
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "$12.34", FormatCents(1234))
	assert.Equal(t, "$1,234,567.89", FormatCents(123456789))
	assert.Equal(t, "-$25.00", FormatCents(-2500))
}
