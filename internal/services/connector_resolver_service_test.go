package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
)

func TestConnectorResolution(t *testing.T) {
	scope := models.NewScope("acct-1", "org-1", "proj-1")

	t.Run("resolves from default store context first", func(t *testing.T) {
		catalog := &memoryCatalog{connectors: []*models.GitConnector{
			{
				AccountID: "acct-1", OrgID: "org-1", ProjectID: "proj-1",
				Identifier: "gh", Type: models.ConnectorTypeGitHub,
			},
		}}
		svc := NewConnectorResolverService(catalog)

		connector, err := svc.Resolve(scope, "gh", "repo-hint", "branch-hint")
		require.NoError(t, err)
		require.Equal(t, "gh", connector.Identifier)
		require.Empty(t, connector.StoreRepo)
	})

	t.Run("retries with store hints on miss", func(t *testing.T) {
		catalog := &memoryCatalog{connectors: []*models.GitConnector{
			{
				AccountID: "acct-1", OrgID: "org-1", ProjectID: "proj-1",
				Identifier: "gh", Type: models.ConnectorTypeGitHub,
				StoreRepo: "https://github.com/acme/configs", StoreBranch: "develop",
			},
		}}
		svc := NewConnectorResolverService(catalog)

		connector, err := svc.Resolve(scope, "gh", "https://github.com/acme/configs", "develop")
		require.NoError(t, err)
		require.Equal(t, "develop", connector.StoreBranch)
	})

	t.Run("returns not-found after both lookups miss", func(t *testing.T) {
		svc := NewConnectorResolverService(&memoryCatalog{})

		_, err := svc.Resolve(scope, "gh", "repo", "branch")
		require.Error(t, err)
		require.True(t, gserrors.IsConnectorNotFound(err))
	})

	t.Run("rejects non-git connector types", func(t *testing.T) {
		catalog := &memoryCatalog{connectors: []*models.GitConnector{
			{
				AccountID: "acct-1", OrgID: "org-1", ProjectID: "proj-1",
				Identifier: "host-ssh", Type: models.ConnectorTypeSSH,
			},
		}}
		svc := NewConnectorResolverService(catalog)

		_, err := svc.Resolve(scope, "host-ssh", "", "")
		require.Error(t, err)

		var notGit *gserrors.NotAGitConnectorError
		require.ErrorAs(t, err, &notGit)
		require.Equal(t, "ssh", notGit.Type)
	})
}

func TestConnectorCredentialEncryption(t *testing.T) {
	t.Run("encrypt then decrypt round trip", func(t *testing.T) {
		connector := &models.GitConnector{
			AccountID:  "acct-1",
			Identifier: "gh",
			Type:       models.ConnectorTypeGitHub,
			Token:      "ghp_secret_token",
			Password:   "hunter2",
		}
		require.NoError(t, EncryptConnectorFields(connector))
		require.NotEqual(t, "ghp_secret_token", connector.Token)
		require.NotEqual(t, "hunter2", connector.Password)

		svc := NewConnectorResolverService(&memoryCatalog{})
		decrypted, err := svc.Decrypt(connector, connector.GetScope())
		require.NoError(t, err)
		require.Equal(t, "ghp_secret_token", decrypted.Token)
		require.Equal(t, "hunter2", decrypted.Password)

		// 原记录保持密文
		require.NotEqual(t, "ghp_secret_token", connector.Token)
	})

	t.Run("empty fields stay empty", func(t *testing.T) {
		connector := &models.GitConnector{Identifier: "gh", Type: models.ConnectorTypeGitHub}
		require.NoError(t, EncryptConnectorFields(connector))
		require.Empty(t, connector.Token)
		require.Empty(t, connector.PrivateKey)
	})
}
