package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
	"gitbridge/pkg/scm"
)

func pushTestConfig() *models.GitSyncConfig {
	return &models.GitSyncConfig{
		AccountID:       "acct-1",
		Identifier:      "app-sync",
		GitConnectorRef: "gh",
		RepoURL:         "https://github.com/acme/app",
		DefaultBranch:   "main",
		RootFolders:     ".harness",
	}
}

func TestPushWorkflow(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	ctx := context.Background()

	t.Run("push records branch and outbound commit", func(t *testing.T) {
		facilitator := &stubFacilitator{commitResult: &scm.CommitResult{CommitID: "abc123", BlobID: "blob1"}}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		branchSync := newBranchSyncUnderTest()
		svc := NewGitPushService(o, branchSync, nil)

		result, err := svc.Push(ctx, scope, PushActionCreate, &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			FolderPath:    ".harness",
			Branch:        "main",
			CommitMessage: "add pipeline",
			Content:       "stages: []",
		})
		require.NoError(t, err)
		require.Equal(t, "abc123", result.CommitID)
		require.Equal(t, []string{"CreateFile"}, facilitator.calls)

		branch, err := branchSync.GetBranch("acct-1", "https://github.com/acme/app", "main")
		require.NoError(t, err)
		require.Equal(t, models.BranchSyncStatusUnsynced, branch.SyncStatus)

		commit, err := branchSync.commits.Get("abc123", "https://github.com/acme/app", models.DirectionHarnessToGit)
		require.NoError(t, err)
		require.EqualValues(t, 1, commit.SummaryCount(models.SummaryKeySuccessCount))
	})

	t.Run("update routes to update operation", func(t *testing.T) {
		facilitator := &stubFacilitator{commitResult: &scm.CommitResult{CommitID: "def456"}}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		svc := NewGitPushService(o, newBranchSyncUnderTest(), nil)

		_, err := svc.Push(ctx, scope, PushActionUpdate, &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			Branch:        "main",
			CommitMessage: "tweak",
			OldFileSHA:    "blob1",
		})
		require.NoError(t, err)
		require.Equal(t, []string{"UpdateFile"}, facilitator.calls)
	})

	t.Run("unknown action is rejected", func(t *testing.T) {
		o := newTestOrchestrator(t, false, &stubFacilitator{}, &stubFacilitator{})
		svc := NewGitPushService(o, newBranchSyncUnderTest(), nil)

		_, err := svc.Push(ctx, scope, PushAction("rename"), &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			Branch:        "main",
			CommitMessage: "rename",
		})
		require.Error(t, err)
		require.True(t, gserrors.IsInvalidRequest(err))
	})

	t.Run("provider failure leaves no records behind", func(t *testing.T) {
		facilitator := &stubFacilitator{err: gserrors.NewProviderError(409, "sha mismatch")}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		branchSync := newBranchSyncUnderTest()
		svc := NewGitPushService(o, branchSync, nil)

		_, err := svc.Push(ctx, scope, PushActionCreate, &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			Branch:        "main",
			CommitMessage: "add",
		})
		require.Error(t, err)

		_, err = branchSync.GetBranch("acct-1", "https://github.com/acme/app", "main")
		require.Error(t, err)
	})

	t.Run("branch store failure refuses acknowledgment", func(t *testing.T) {
		facilitator := &stubFacilitator{commitResult: &scm.CommitResult{CommitID: "abc123"}}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		branchSync := NewBranchSyncService(failingBranchStore{}, newMemoryCommitStore())
		svc := NewGitPushService(o, branchSync, nil)

		result, err := svc.Push(ctx, scope, PushActionCreate, &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			Branch:        "main",
			CommitMessage: "add",
		})
		require.Error(t, err)
		require.Nil(t, result)
	})

	t.Run("commit store failure refuses acknowledgment", func(t *testing.T) {
		facilitator := &stubFacilitator{commitResult: &scm.CommitResult{CommitID: "abc123"}}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		branchSync := NewBranchSyncService(newMemoryBranchStore(), failingCommitStore{})
		svc := NewGitPushService(o, branchSync, nil)

		result, err := svc.Push(ctx, scope, PushActionCreate, &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			Branch:        "main",
			CommitMessage: "add",
		})
		require.Error(t, err)
		require.Nil(t, result)
	})

	t.Run("new branch push schedules content sync excluding pushed file", func(t *testing.T) {
		facilitator := &stubFacilitator{commitResult: &scm.CommitResult{CommitID: "abc123"}}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		scheduler := &recordingScheduler{}
		svc := NewGitPushService(o, newBranchSyncUnderTest(), scheduler)

		_, err := svc.Push(ctx, scope, PushActionCreate, &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			FolderPath:    ".harness",
			Branch:        "feature/x",
			BaseBranch:    "main",
			IsNewBranch:   true,
			CommitMessage: "add",
		})
		require.NoError(t, err)
		require.Len(t, scheduler.schedules, 1)
		require.Equal(t, "feature/x", scheduler.schedules[0].branch)
		require.Equal(t, ".harness/pipeline.yaml", scheduler.schedules[0].excludePath)
	})

	t.Run("existing branch push schedules nothing", func(t *testing.T) {
		facilitator := &stubFacilitator{commitResult: &scm.CommitResult{CommitID: "abc123"}}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		scheduler := &recordingScheduler{}
		svc := NewGitPushService(o, newBranchSyncUnderTest(), scheduler)

		_, err := svc.Push(ctx, scope, PushActionCreate, &PushInfo{
			Config:        pushTestConfig(),
			FilePath:      "pipeline.yaml",
			Branch:        "main",
			CommitMessage: "add",
		})
		require.NoError(t, err)
		require.Empty(t, scheduler.schedules)
	})
}

// recordingProcessor 记录被处理文件的处理器桩
type recordingProcessor struct {
	paths []string
}

func (p *recordingProcessor) ProcessFiles(ctx context.Context, scope models.Scope, changes []FileChange, branch string, cfg *models.GitSyncConfig) error {
	for _, change := range changes {
		p.paths = append(p.paths, change.File.Path)
	}
	return nil
}

func TestSyncBranchContent(t *testing.T) {
	scope := models.NewScope("acct-1", "", "")
	ctx := context.Background()

	t.Run("pulls branch files excluding the just-pushed one", func(t *testing.T) {
		facilitator := &stubFacilitator{files: []scm.FileContent{
			{Path: ".harness/pipeline.yaml", Content: "a"},
			{Path: ".harness/input-set.yaml", Content: "b"},
			{Path: ".harness/template.yaml", Content: "c"},
		}}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		branchSync := newBranchSyncUnderTest()
		processor := &recordingProcessor{}
		svc := NewBranchContentSyncService(o, branchSync, processor, nil)

		cfg := pushTestConfig()
		_, _, err := branchSync.LookupOrCreateBranch("acct-1", cfg.RepoURL, "feature")
		require.NoError(t, err)

		err = svc.SyncBranchContent(ctx, scope, cfg, "feature", ".harness/pipeline.yaml")
		require.NoError(t, err)

		require.ElementsMatch(t, []string{".harness/input-set.yaml", ".harness/template.yaml"}, processor.paths)

		branch, err := branchSync.GetBranch("acct-1", cfg.RepoURL, "feature")
		require.NoError(t, err)
		require.Equal(t, models.BranchSyncStatusSynced, branch.SyncStatus)
	})

	t.Run("listing failure leaves branch in syncing", func(t *testing.T) {
		facilitator := &stubFacilitator{err: gserrors.NewRemoteExecutionFailed("timeout", nil)}
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		branchSync := newBranchSyncUnderTest()
		svc := NewBranchContentSyncService(o, branchSync, &recordingProcessor{}, nil)

		cfg := pushTestConfig()
		_, _, err := branchSync.LookupOrCreateBranch("acct-1", cfg.RepoURL, "feature")
		require.NoError(t, err)

		err = svc.SyncBranchContent(ctx, scope, cfg, "feature", "")
		require.Error(t, err)

		branch, err := branchSync.GetBranch("acct-1", cfg.RepoURL, "feature")
		require.NoError(t, err)
		require.Equal(t, models.BranchSyncStatusSyncing, branch.SyncStatus)
	})
}
