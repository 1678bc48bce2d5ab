package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitbridge/internal/models"
)

func TestShouldExecuteOnDelegate(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")

	t.Run("defaults to delegate when no settings exist", func(t *testing.T) {
		svc := NewExecutionModeService(newMemorySettingsStore(), nil)

		onDelegate, err := svc.ShouldExecuteOnDelegate(scope)
		require.NoError(t, err)
		require.True(t, onDelegate)
	})

	t.Run("honors stored scope setting", func(t *testing.T) {
		store := newMemorySettingsStore()
		require.NoError(t, store.Upsert(&models.GitSyncSettings{
			AccountID:         "acct-1",
			ExecuteOnDelegate: false,
		}))
		svc := NewExecutionModeService(store, nil)

		onDelegate, err := svc.ShouldExecuteOnDelegate(scope)
		require.NoError(t, err)
		require.False(t, onDelegate)
	})

	t.Run("settings are scoped, sibling scope falls back to default", func(t *testing.T) {
		store := newMemorySettingsStore()
		require.NoError(t, store.Upsert(&models.GitSyncSettings{
			AccountID:         "acct-1",
			OrgID:             "org-1",
			ExecuteOnDelegate: false,
		}))
		svc := NewExecutionModeService(store, nil)

		onDelegate, err := svc.ShouldExecuteOnDelegate(models.NewScope("acct-1", "org-2", ""))
		require.NoError(t, err)
		require.True(t, onDelegate)
	})
}

func TestShouldExecuteOnDelegateForConnector(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	boolPtr := func(v bool) *bool { return &v }

	newService := func(connector *models.GitConnector, store GitSyncSettingsStore) *ExecutionModeService {
		catalog := &memoryCatalog{connectors: []*models.GitConnector{connector}}
		return NewExecutionModeService(store, NewConnectorResolverService(catalog))
	}

	t.Run("connector override wins over scope setting", func(t *testing.T) {
		store := newMemorySettingsStore()
		require.NoError(t, store.Upsert(&models.GitSyncSettings{
			AccountID:         "acct-1",
			ExecuteOnDelegate: true,
		}))

		svc := newService(&models.GitConnector{
			AccountID:         "acct-1",
			Identifier:        "gh",
			Type:              models.ConnectorTypeGitHub,
			ExecuteOnDelegate: boolPtr(false),
		}, store)

		onDelegate, err := svc.ShouldExecuteOnDelegateForConnector(scope, "gh")
		require.NoError(t, err)
		require.False(t, onDelegate)
	})

	t.Run("falls back to scope setting without override", func(t *testing.T) {
		store := newMemorySettingsStore()
		require.NoError(t, store.Upsert(&models.GitSyncSettings{
			AccountID:         "acct-1",
			ExecuteOnDelegate: false,
		}))

		svc := newService(&models.GitConnector{
			AccountID:  "acct-1",
			Identifier: "gh",
			Type:       models.ConnectorTypeGitHub,
		}, store)

		onDelegate, err := svc.ShouldExecuteOnDelegateForConnector(scope, "gh")
		require.NoError(t, err)
		require.False(t, onDelegate)
	})

	t.Run("unknown connector surfaces not-found", func(t *testing.T) {
		svc := newService(&models.GitConnector{
			AccountID:  "acct-1",
			Identifier: "other",
			Type:       models.ConnectorTypeGitHub,
		}, newMemorySettingsStore())

		_, err := svc.ShouldExecuteOnDelegateForConnector(scope, "gh")
		require.Error(t, err)
	})
}
