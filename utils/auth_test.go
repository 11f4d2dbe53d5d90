package utils

import (
	"context"
	"io/ioutil"
	"path"
	"testing"

	"github.com/filecoin-project/go-jsonrpc/auth"
	"github.com/stretchr/testify/require"
)

func TestLocalJwtClient(t *testing.T) {
	repo := t.TempDir()
	cli, err := NewLocalJwtClient(repo)
	require.NoError(t, err)

	t.Run("own token verifies with admin perms", func(t *testing.T) {
		perms, err := cli.Verify(context.Background(), string(cli.Token))
		require.NoError(t, err)
		require.Equal(t, []auth.Permission{"read", "write", "admin"}, perms)
	})

	t.Run("token signed with another secret fails", func(t *testing.T) {
		other, err := NewLocalJwtClient(repo)
		require.NoError(t, err)

		_, err = cli.Verify(context.Background(), string(other.Token))
		require.Error(t, err)
	})

	t.Run("garbage token fails", func(t *testing.T) {
		_, err := cli.Verify(context.Background(), "not.a.token")
		require.Error(t, err)
	})

	t.Run("save token", func(t *testing.T) {
		require.NoError(t, cli.SaveToken())
		data, err := ioutil.ReadFile(path.Join(repo, TokenFile))
		require.NoError(t, err)
		require.Equal(t, cli.Token, data)
	})
}

func TestAdaptPerms(t *testing.T) {
	require.Equal(t, []auth.Permission{"read", "write", "admin"}, AdaptPerms("admin"))
	require.Equal(t, []auth.Permission{"read", "write"}, AdaptPerms("write"))
	require.Equal(t, []auth.Permission{"read"}, AdaptPerms("read"))
	require.Equal(t, []auth.Permission{"read"}, AdaptPerms(""))
}
