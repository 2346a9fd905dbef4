package fecore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkg/errors"
)

func TestCommandManagerRegisterAndDispatch(t *testing.T) {
	alloc, backend := testAlloc(t)
	m := NewCommandManager(alloc)

	var gotArgs []string
	require.NoError(t, m.Register("hello", "print the banner", func(args []string) error {
		gotArgs = args
		return nil
	}))
	require.NoError(t, m.Register("version", "print the version", func([]string) error {
		return nil
	}))

	require.NoError(t, m.Dispatch("hello", []string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, gotArgs)

	err := m.Dispatch("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "nope"`)

	m.Free()
	assert.Zero(t, backend.Blocks())
}

func TestCommandManagerListingOrder(t *testing.T) {
	alloc, _ := testAlloc(t)
	m := NewCommandManager(alloc)
	defer m.Free()

	noop := func([]string) error { return nil }
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, m.Register(name, "", noop))
	}

	var names []string
	for _, c := range m.Commands() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names, "listing keeps registration order")
	assert.Equal(t, 3, m.Len())
}

func TestCommandManagerDuplicate(t *testing.T) {
	alloc, backend := testAlloc(t)
	m := NewCommandManager(alloc)

	noop := func([]string) error { return nil }
	require.NoError(t, m.Register("x", "", noop))
	require.Error(t, m.Register("x", "again", noop))
	assert.Equal(t, 1, m.Len())

	m.Free()
	assert.Zero(t, backend.Blocks())
}

func TestCommandManagerValidation(t *testing.T) {
	alloc, _ := testAlloc(t)
	m := NewCommandManager(alloc)
	defer m.Free()

	assert.Error(t, m.Register("", "", func([]string) error { return nil }))
	assert.Error(t, m.Register("norun", "", nil))
	assert.Nil(t, m.Lookup("norun"))
}

func TestCommandDispatchWrapsError(t *testing.T) {
	alloc, _ := testAlloc(t)
	m := NewCommandManager(alloc)
	defer m.Free()

	cause := errors.New("boom")
	require.NoError(t, m.Register("fail", "", func([]string) error { return cause }))

	err := m.Dispatch("fail", nil)
	require.Error(t, err)
	assert.Equal(t, cause, errors.Cause(err))
	assert.Contains(t, err.Error(), `command "fail"`)
}
