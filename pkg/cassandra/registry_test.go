package cassandra

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	first := testClient(t, &testStub{}, nil)
	second := testClient(t, &testStub{}, nil)

	require.NoError(t, reg.Register("main", first))
	require.NoError(t, reg.Register("analytics", second))
	require.Error(t, reg.Register("main", second))

	got, err := reg.Lookup("main")
	require.NoError(t, err)
	require.Same(t, first, got)

	_, err = reg.Lookup("missing")
	require.Error(t, err)

	require.Equal(t, []string{"analytics", "main"}, reg.Names())

	reg.Reset()
	require.Empty(t, reg.Names())
	_, err = reg.Lookup("main")
	require.Error(t, err)
}
