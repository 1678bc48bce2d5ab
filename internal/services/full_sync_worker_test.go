package services

import (
	"encoding/json"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
	"gitbridge/pkg/scm"
)

// stubConfigFinder 记录查询ID的配置查找桩
type stubConfigFinder struct {
	cfg         *models.GitSyncConfig
	requestedID uint
}

func (s *stubConfigFinder) GetByID(scope models.Scope, id uint) (*models.GitSyncConfig, error) {
	s.requestedID = id
	if s.cfg == nil || s.cfg.ID != id {
		return nil, gserrors.NewInvalidRequest("同步配置不存在 (ID: %d)", id)
	}
	return s.cfg, nil
}

func fullSyncEventMessage(t *testing.T, event FullSyncEvent) redis.XMessage {
	t.Helper()
	payload, err := json.Marshal(&event)
	require.NoError(t, err)
	return redis.XMessage{ID: "1-0", Values: map[string]interface{}{"event": string(payload)}}
}

func TestFullSyncWorkerHandleMessage(t *testing.T) {
	cfg := &models.GitSyncConfig{
		AccountID:       "acct-1",
		Identifier:      "app-sync",
		GitConnectorRef: "gh",
		RepoURL:         "https://github.com/acme/app",
		DefaultBranch:   "main",
		RootFolders:     ".harness",
	}
	cfg.ID = 42

	newWorkerUnderTest := func(facilitator *stubFacilitator, finder *stubConfigFinder) (*FullSyncWorker, *BranchSyncService, *recordingProcessor) {
		o := newTestOrchestrator(t, false, facilitator, &stubFacilitator{})
		branchSync := newBranchSyncUnderTest()
		processor := &recordingProcessor{}
		contentSync := NewBranchContentSyncService(o, branchSync, processor, nil)
		return NewFullSyncWorker(nil, contentSync, finder), branchSync, processor
	}

	t.Run("event drives branch content sync via config lookup by id", func(t *testing.T) {
		facilitator := &stubFacilitator{files: []scm.FileContent{
			{Path: ".harness/pipeline.yaml", Content: "a"},
			{Path: ".harness/template.yaml", Content: "b"},
		}}
		finder := &stubConfigFinder{cfg: cfg}
		w, branchSync, processor := newWorkerUnderTest(facilitator, finder)

		w.handleMessage(fullSyncEventMessage(t, FullSyncEvent{
			Version:   FullSyncEventVersion,
			EventID:   "evt-1",
			AccountID: "acct-1",
			ConfigID:  42,
			RepoURL:   cfg.RepoURL,
			Branch:    "develop",
		}))

		require.EqualValues(t, 42, finder.requestedID)
		require.ElementsMatch(t, []string{".harness/pipeline.yaml", ".harness/template.yaml"}, processor.paths)

		branch, err := branchSync.GetBranch("acct-1", cfg.RepoURL, "develop")
		require.NoError(t, err)
		require.Equal(t, models.BranchSyncStatusSynced, branch.SyncStatus)
		require.NotContains(t, facilitator.calls, "CreatePullRequest")
	})

	t.Run("pull request intent creates pr after sync", func(t *testing.T) {
		facilitator := &stubFacilitator{
			files: []scm.FileContent{{Path: ".harness/pipeline.yaml", Content: "a"}},
			pr:    &scm.PullRequest{Number: 7},
		}
		w, _, _ := newWorkerUnderTest(facilitator, &stubConfigFinder{cfg: cfg})

		w.handleMessage(fullSyncEventMessage(t, FullSyncEvent{
			Version:      FullSyncEventVersion,
			EventID:      "evt-2",
			AccountID:    "acct-1",
			ConfigID:     42,
			RepoURL:      cfg.RepoURL,
			Branch:       "develop",
			CreatePR:     true,
			TargetBranch: "main",
		}))

		require.Contains(t, facilitator.calls, "CreatePullRequest")
	})

	t.Run("unknown config id processes nothing", func(t *testing.T) {
		facilitator := &stubFacilitator{}
		finder := &stubConfigFinder{cfg: cfg}
		w, _, processor := newWorkerUnderTest(facilitator, finder)

		w.handleMessage(fullSyncEventMessage(t, FullSyncEvent{
			Version:   FullSyncEventVersion,
			EventID:   "evt-3",
			AccountID: "acct-1",
			ConfigID:  99,
			RepoURL:   cfg.RepoURL,
			Branch:    "develop",
		}))

		require.EqualValues(t, 99, finder.requestedID)
		require.Empty(t, processor.paths)
		require.Empty(t, facilitator.calls)
	})
}
