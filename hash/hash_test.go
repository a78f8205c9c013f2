package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	a := Sum([]byte("pat"), []byte("tern"))
	b := Sum([]byte("pattern"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, Sum([]byte("patterns")))
	require.Len(t, a.ShortString(), 10)
}
