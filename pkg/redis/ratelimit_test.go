package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt64(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected int64
		err      bool
	}{
		{name: "int64", input: int64(4), expected: 4},
		{name: "int", input: 3, expected: 3},
		{name: "float", input: 2.9, expected: 2},
		{name: "string", input: "17", expected: 17},
		{name: "float string", input: "1700000000000.5", expected: 1700000000000},
		{name: "garbage", input: "abc", err: true},
		{name: "bool", input: true, err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := toInt64(tc.input)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestParseResult(t *testing.T) {
	now := time.UnixMilli(10_000)
	window := time.Minute

	allowed, err := parseResult([]any{int64(1), int64(4)}, now, window)
	require.NoError(t, err)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, int64(4), allowed.Remaining)
	assert.Equal(t, now.Add(window), allowed.ResetAt)

	denied, err := parseResult([]any{int64(0), int64(0), "4000"}, now, window)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 54*time.Second, denied.RetryIn)

	_, err = parseResult([]any{int64(1)}, now, window)
	assert.Error(t, err)
}
