package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLookup_BuiltinsRegistered(t *testing.T) {
	_, ok := Lookup("exec")
	require.True(t, ok)
	_, ok = Lookup("console")
	require.True(t, ok)
}

func TestLookup_UnknownName(t *testing.T) {
	_, ok := Lookup("does-not-exist")
	require.False(t, ok)
}

func TestConsoleProvider_AlwaysSucceeds(t *testing.T) {
	p, ok := Lookup("console")
	require.True(t, ok)
	code, err := p.Call(context.Background(), "anything", "hello", time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, code)
}

func TestExecProvider_SuccessAndFailure(t *testing.T) {
	p, ok := Lookup("exec")
	require.True(t, ok)

	code, err := p.Call(context.Background(), "true", "", time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, code)

	code, err = p.Call(context.Background(), "false", "", time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, code)
}

func TestExecProvider_BadConfigurationJSON(t *testing.T) {
	p, ok := Lookup("exec")
	require.True(t, ok)
	_, err := p.Call(context.Background(), "true", "not json", time.Second)
	require.Error(t, err)
}

func TestRegister_Overwrites(t *testing.T) {
	Register("test-overwrite", consoleProvider{})
	p1, _ := Lookup("test-overwrite")
	Register("test-overwrite", execProvider{})
	p2, _ := Lookup("test-overwrite")
	require.NotEqual(t, p1, p2)
}
