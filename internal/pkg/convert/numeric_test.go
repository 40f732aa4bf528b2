package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat64(t *testing.T) {
	assert.Equal(t, 1.5, ToFloat64(1.5))
	assert.Equal(t, 3.0, ToFloat64(3))
	assert.Equal(t, 7.0, ToFloat64(int64(7)))
	assert.Equal(t, 2.5, ToFloat64(" 2.5 "))
	assert.Equal(t, 4.0, ToFloat64(json.Number("4")))
	assert.Equal(t, 0.0, ToFloat64(nil))
	assert.Equal(t, 0.0, ToFloat64("not a number"))
	assert.Equal(t, 0.0, ToFloat64([]string{"x"}))
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 5, ToInt(5))
	assert.Equal(t, 9, ToInt(int64(9)))
	assert.Equal(t, 3, ToInt(3.9))
	assert.Equal(t, 42, ToInt("42"))
	assert.Equal(t, 6, ToInt(json.Number("6")))
	assert.Equal(t, 0, ToInt(nil))
	assert.Equal(t, 0, ToInt("nope"))
}