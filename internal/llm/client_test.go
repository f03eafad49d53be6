package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientDisabledWithoutKey(t *testing.T) {
	c := NewClient("", "whatever")
	require.Nil(t, c)
	require.False(t, c.Enabled())
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain text", "plain text"},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\nhello\n```", "hello"},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StripFences(tc.in), "in=%q", tc.in)
	}
}
