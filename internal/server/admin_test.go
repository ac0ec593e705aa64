package server

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/logging"
)

func passwords(pw ...string) func() ([]byte, error) {
	i := 0
	return func() ([]byte, error) {
		if i >= len(pw) {
			return nil, errors.New("no more input")
		}
		i++
		return []byte(pw[i-1]), nil
	}
}

func TestRunAdmin(t *testing.T) {
	ctx := context.Background()

	svc, closer, err := NewAdminService(ctx, memoryConfig(), logging.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	var out bytes.Buffer

	err = RunAdmin(ctx, svc, []string{"create-superuser", "-u", "root", "-e", "Root@Example.org"}, &out, passwords("s3cret-pass", "s3cret-pass"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "superuser root created")

	err = RunAdmin(ctx, svc, []string{"create-superuser", "-u", "root", "-e", "other@example.org"}, &out, passwords("x", "x"))
	assert.ErrorIs(t, err, common.ErrConflict)

	out.Reset()
	require.NoError(t, RunAdmin(ctx, svc, []string{"delete-user", "-u", "root"}, &out, nil))
	assert.Equal(t, "user root deleted\n", out.String())

	err = RunAdmin(ctx, svc, []string{"delete-user", "-u", "root"}, &out, nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRunAdmin_PasswordMismatch(t *testing.T) {
	ctx := context.Background()
	svc, closer, err := NewAdminService(ctx, memoryConfig(), logging.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	err = RunAdmin(ctx, svc, []string{"create-superuser", "-u", "root", "-e", "r@example.org"}, &bytes.Buffer{}, passwords("one", "two"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	err = RunAdmin(ctx, svc, []string{"create-superuser", "-u", "root", "-e", "r@example.org"}, &bytes.Buffer{}, passwords("only-once"))
	assert.Error(t, err)
}

func TestRunAdmin_Usage(t *testing.T) {
	ctx := context.Background()
	svc, closer, err := NewAdminService(ctx, memoryConfig(), logging.Nop{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	for _, args := range [][]string{
		nil,
		{"drop-tables"},
		{"create-superuser", "-u", "root"},
		{"delete-user"},
		{"delete-user", "-bogus"},
	} {
		assert.ErrorIs(t, RunAdmin(ctx, svc, args, &bytes.Buffer{}, nil), ErrAdminUsage, args)
	}
}

func TestNewAdminService_UnknownStore(t *testing.T) {
	c := memoryConfig()
	c.UserStore = "mongo"
	_, _, err := NewAdminService(context.Background(), c, logging.Nop{})
	assert.Error(t, err)
}
