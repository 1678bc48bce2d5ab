package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
)

func newDelegateUnderTest(transport TaskTransport) *ScmDelegateFacilitator {
	catalog := &memoryCatalog{connectors: []*models.GitConnector{
		{
			AccountID:  "acct-1",
			Identifier: "gh",
			Type:       models.ConnectorTypeGitHub,
			Token:      "encrypted-token",
		},
	}}
	return NewScmDelegateFacilitator(NewConnectorResolverService(catalog), transport)
}

func delegateTestConfig() *models.GitSyncConfig {
	return &models.GitSyncConfig{
		AccountID:       "acct-1",
		Identifier:      "app-sync",
		GitConnectorRef: "gh",
		RepoURL:         "https://github.com/acme/app",
		DefaultBranch:   "main",
	}
}

func TestDelegateFacilitatorReplies(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	ctx := context.Background()

	t.Run("success reply is decoded into typed result", func(t *testing.T) {
		reply, _ := json.Marshal(taskReply{
			Status:   taskStatusSuccess,
			Branches: []string{"main", "develop"},
		})
		transport := &stubTransport{reply: reply}
		f := newDelegateUnderTest(transport)

		branches, err := f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		require.NoError(t, err)
		require.Equal(t, []string{"main", "develop"}, branches)

		require.NotNil(t, transport.lastMsg)
		require.Equal(t, TaskListBranches, transport.lastMsg.TaskType)
		require.Equal(t, "acct-1", transport.lastMsg.AccountID)
	})

	t.Run("credentials travel encrypted", func(t *testing.T) {
		reply, _ := json.Marshal(taskReply{Status: taskStatusSuccess})
		transport := &stubTransport{reply: reply}
		f := newDelegateUnderTest(transport)

		_, err := f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		require.NoError(t, err)

		var params scmTaskParams
		require.NoError(t, json.Unmarshal(transport.lastMsg.Params, &params))
		require.Equal(t, "encrypted-token", params.Connector.Token)
	})

	t.Run("failed reply surfaces provider error", func(t *testing.T) {
		reply, _ := json.Marshal(taskReply{
			Status: taskStatusFailed,
			Error:  &taskError{StatusCode: 404, Message: "repo not found"},
		})
		f := newDelegateUnderTest(&stubTransport{reply: reply})

		_, err := f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		require.Error(t, err)

		var provider *gserrors.ProviderError
		require.ErrorAs(t, err, &provider)
		require.Equal(t, 404, provider.StatusCode)
	})

	t.Run("malformed payload maps to remote execution failure", func(t *testing.T) {
		f := newDelegateUnderTest(&stubTransport{reply: []byte("not-json")})

		_, err := f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		require.Error(t, err)
		require.True(t, gserrors.IsRemoteExecutionFailed(err))
	})

	t.Run("unknown reply status maps to remote execution failure", func(t *testing.T) {
		reply, _ := json.Marshal(taskReply{Status: "pending"})
		f := newDelegateUnderTest(&stubTransport{reply: reply})

		_, err := f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		require.Error(t, err)
		require.True(t, gserrors.IsRemoteExecutionFailed(err))
	})

	t.Run("transport errors map to remote execution failure", func(t *testing.T) {
		f := newDelegateUnderTest(&stubTransport{err: errors.New("queue unreachable")})

		_, err := f.ListBranches(ctx, scope, "gh", "https://github.com/acme/app")
		require.Error(t, err)
		require.True(t, gserrors.IsRemoteExecutionFailed(err))
	})
}

func TestDelegateFacilitatorValidation(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	ctx := context.Background()

	t.Run("branch and commit together fail before any transport call", func(t *testing.T) {
		transport := &stubTransport{}
		f := newDelegateUnderTest(transport)

		_, err := f.GetFileContent(ctx, scope, &GetFileContentRequest{
			Config:   delegateTestConfig(),
			FilePath: "app/config.yaml",
			Branch:   "main",
			CommitID: "abc123",
		})
		require.Error(t, err)
		require.True(t, gserrors.IsInvalidRequest(err))
		require.Zero(t, transport.calls)
	})

	t.Run("same source and target branch fails PR before transport", func(t *testing.T) {
		transport := &stubTransport{}
		f := newDelegateUnderTest(transport)

		_, err := f.CreatePullRequest(ctx, scope, &CreatePullRequestRequest{
			Config:       delegateTestConfig(),
			Title:        "sync",
			SourceBranch: "main",
			TargetBranch: "main",
		})
		require.Error(t, err)
		require.True(t, gserrors.IsInvalidRequest(err))
		require.Zero(t, transport.calls)
	})

	t.Run("update without old sha is rejected", func(t *testing.T) {
		transport := &stubTransport{}
		f := newDelegateUnderTest(transport)

		_, err := f.UpdateFile(ctx, scope, &PushInfo{
			Config:        delegateTestConfig(),
			FilePath:      "config.yaml",
			Branch:        "main",
			CommitMessage: "update",
		})
		require.Error(t, err)
		require.True(t, gserrors.IsInvalidRequest(err))
		require.Zero(t, transport.calls)
	})
}

func TestDelegateFacilitatorPRFailure(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	ctx := context.Background()

	t.Run("provider rejection wraps into PR creation failure", func(t *testing.T) {
		reply, _ := json.Marshal(taskReply{
			Status: taskStatusFailed,
			Error:  &taskError{StatusCode: 422, Message: "no diff between branches"},
		})
		f := newDelegateUnderTest(&stubTransport{reply: reply})

		_, err := f.CreatePullRequest(ctx, scope, &CreatePullRequestRequest{
			Config:       delegateTestConfig(),
			Title:        "sync",
			SourceBranch: "feature",
			TargetBranch: "main",
		})
		require.Error(t, err)

		var prFailed *gserrors.PRCreationFailedError
		require.ErrorAs(t, err, &prFailed)
		require.Equal(t, "feature", prFailed.SourceBranch)
		require.Equal(t, "main", prFailed.TargetBranch)
	})
}
