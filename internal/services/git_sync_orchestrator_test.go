package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gitbridge/internal/models"
)

func newTestOrchestrator(t *testing.T, onDelegate bool, manager, delegate ScmFacilitator) *GitSyncOrchestrator {
	t.Helper()
	store := newMemorySettingsStore()
	require.NoError(t, store.Upsert(&models.GitSyncSettings{
		AccountID:         "acct-1",
		ExecuteOnDelegate: onDelegate,
	}))
	selector := NewExecutionModeService(store, nil)
	return NewGitSyncOrchestrator(selector, manager, delegate)
}

func TestDispatch(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	ctx := context.Background()

	t.Run("routes to delegate when scope says so", func(t *testing.T) {
		manager := &stubFacilitator{name: "manager"}
		delegate := &stubFacilitator{name: "delegate", branches: []string{"main"}}
		o := newTestOrchestrator(t, true, manager, delegate)

		branches, err := Dispatch(ctx, o, scope, func(f ScmFacilitator) ([]string, error) {
			return f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		})
		require.NoError(t, err)
		require.Equal(t, []string{"main"}, branches)
		require.Empty(t, manager.calls)
		require.Equal(t, []string{"ListBranches"}, delegate.calls)
	})

	t.Run("routes to manager when delegate is off", func(t *testing.T) {
		manager := &stubFacilitator{name: "manager", branches: []string{"main", "develop"}}
		delegate := &stubFacilitator{name: "delegate"}
		o := newTestOrchestrator(t, false, manager, delegate)

		branches, err := Dispatch(ctx, o, scope, func(f ScmFacilitator) ([]string, error) {
			return f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		})
		require.NoError(t, err)
		require.Len(t, branches, 2)
		require.Empty(t, delegate.calls)
		require.Equal(t, []string{"ListBranches"}, manager.calls)
	})

	t.Run("no settings record defaults to delegate", func(t *testing.T) {
		manager := &stubFacilitator{name: "manager"}
		delegate := &stubFacilitator{name: "delegate"}
		selector := NewExecutionModeService(newMemorySettingsStore(), nil)
		o := NewGitSyncOrchestrator(selector, manager, delegate)

		_, err := Dispatch(ctx, o, scope, func(f ScmFacilitator) ([]string, error) {
			return f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		})
		require.NoError(t, err)
		require.Equal(t, []string{"ListBranches"}, delegate.calls)
	})

	t.Run("re-reads settings on every dispatch", func(t *testing.T) {
		manager := &stubFacilitator{name: "manager"}
		delegate := &stubFacilitator{name: "delegate"}
		store := newMemorySettingsStore()
		require.NoError(t, store.Upsert(&models.GitSyncSettings{AccountID: "acct-1", ExecuteOnDelegate: true}))
		o := NewGitSyncOrchestrator(NewExecutionModeService(store, nil), manager, delegate)

		op := func(f ScmFacilitator) ([]string, error) {
			return f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		}

		_, err := Dispatch(ctx, o, scope, op)
		require.NoError(t, err)

		require.NoError(t, store.Upsert(&models.GitSyncSettings{AccountID: "acct-1", ExecuteOnDelegate: false}))
		_, err = Dispatch(ctx, o, scope, op)
		require.NoError(t, err)

		require.Equal(t, []string{"ListBranches"}, delegate.calls)
		require.Equal(t, []string{"ListBranches"}, manager.calls)
	})
}

func TestDispatchByConnector(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	ctx := context.Background()
	boolPtr := func(v bool) *bool { return &v }

	t.Run("connector override redirects away from scope setting", func(t *testing.T) {
		manager := &stubFacilitator{name: "manager", branches: []string{"main"}}
		delegate := &stubFacilitator{name: "delegate"}

		store := newMemorySettingsStore()
		require.NoError(t, store.Upsert(&models.GitSyncSettings{AccountID: "acct-1", ExecuteOnDelegate: true}))
		catalog := &memoryCatalog{connectors: []*models.GitConnector{
			{
				AccountID: "acct-1", Identifier: "gh",
				Type:              models.ConnectorTypeGitHub,
				ExecuteOnDelegate: boolPtr(false),
			},
		}}
		selector := NewExecutionModeService(store, NewConnectorResolverService(catalog))
		o := NewGitSyncOrchestrator(selector, manager, delegate)

		branches, err := DispatchByConnector(ctx, o, scope, "gh", func(f ScmFacilitator) ([]string, error) {
			return f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		})
		require.NoError(t, err)
		require.Equal(t, []string{"main"}, branches)
		require.Empty(t, delegate.calls)
	})
}
