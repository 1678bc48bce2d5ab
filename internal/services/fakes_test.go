package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"gitbridge/internal/models"
	"gitbridge/pkg/queue"
	"gitbridge/pkg/scm"
)

// memoryCatalog 内存连接器目录
type memoryCatalog struct {
	connectors []*models.GitConnector
}

func (c *memoryCatalog) Get(scope models.Scope, identifier, storeRepo, storeBranch string) (*models.GitConnector, error) {
	for _, connector := range c.connectors {
		if connector.GetScope() == scope &&
			connector.Identifier == identifier &&
			connector.StoreRepo == storeRepo &&
			connector.StoreBranch == storeBranch {
			return connector, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// memorySettingsStore 内存执行路由设置存储
type memorySettingsStore struct {
	settings map[models.Scope]*models.GitSyncSettings
}

func newMemorySettingsStore() *memorySettingsStore {
	return &memorySettingsStore{settings: make(map[models.Scope]*models.GitSyncSettings)}
}

func (s *memorySettingsStore) Get(scope models.Scope) (*models.GitSyncSettings, error) {
	if settings, ok := s.settings[scope]; ok {
		return settings, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memorySettingsStore) Upsert(settings *models.GitSyncSettings) error {
	scope := models.NewScope(settings.AccountID, settings.OrgID, settings.ProjectID)
	s.settings[scope] = settings
	return nil
}

// memoryBranchStore 内存分支存储
type memoryBranchStore struct {
	mu       sync.Mutex
	branches map[string]*models.GitBranch
}

func newMemoryBranchStore() *memoryBranchStore {
	return &memoryBranchStore{branches: make(map[string]*models.GitBranch)}
}

func branchKey(accountID, repoURL, branchName string) string {
	return accountID + "|" + repoURL + "|" + branchName
}

func (s *memoryBranchStore) Get(accountID, repoURL, branchName string) (*models.GitBranch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if branch, ok := s.branches[branchKey(accountID, repoURL, branchName)]; ok {
		copied := *branch
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memoryBranchStore) Create(branch *models.GitBranch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := branchKey(branch.AccountID, branch.RepoURL, branch.BranchName)
	if _, exists := s.branches[key]; exists {
		return ErrBranchExists
	}
	copied := *branch
	s.branches[key] = &copied
	return nil
}

func (s *memoryBranchStore) UpdateStatus(accountID, repoURL, branchName string, status models.BranchSyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if branch, ok := s.branches[branchKey(accountID, repoURL, branchName)]; ok {
		branch.SyncStatus = status
		return nil
	}
	return gorm.ErrRecordNotFound
}

// memoryCommitStore 内存提交存储
type memoryCommitStore struct {
	mu      sync.Mutex
	commits map[string]*models.GitCommit
}

func newMemoryCommitStore() *memoryCommitStore {
	return &memoryCommitStore{commits: make(map[string]*models.GitCommit)}
}

func commitKey(commitID, repoURL string, direction models.CommitDirection) string {
	return commitID + "|" + repoURL + "|" + string(direction)
}

func (s *memoryCommitStore) Get(commitID, repoURL string, direction models.CommitDirection) (*models.GitCommit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if commit, ok := s.commits[commitKey(commitID, repoURL, direction)]; ok {
		copied := *commit
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memoryCommitStore) Save(commit *models.GitCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *commit
	s.commits[commitKey(commit.CommitID, commit.RepoURL, commit.Direction)] = &copied
	return nil
}

// failingBranchStore 总是失败的分支存储桩
type failingBranchStore struct{}

func (failingBranchStore) Get(accountID, repoURL, branchName string) (*models.GitBranch, error) {
	return nil, errors.New("存储不可用")
}

func (failingBranchStore) Create(branch *models.GitBranch) error {
	return errors.New("存储不可用")
}

func (failingBranchStore) UpdateStatus(accountID, repoURL, branchName string, status models.BranchSyncStatus) error {
	return errors.New("存储不可用")
}

// failingCommitStore 总是失败的提交存储桩
type failingCommitStore struct{}

func (failingCommitStore) Get(commitID, repoURL string, direction models.CommitDirection) (*models.GitCommit, error) {
	return nil, errors.New("存储不可用")
}

func (failingCommitStore) Save(commit *models.GitCommit) error {
	return errors.New("存储不可用")
}

// recordingScheduler 记录内容同步调度的桩
type recordingScheduler struct {
	schedules []scheduledSync
}

type scheduledSync struct {
	scope       models.Scope
	branch      string
	excludePath string
}

func (s *recordingScheduler) ScheduleBranchSync(scope models.Scope, cfg *models.GitSyncConfig, branch, excludePath string) {
	s.schedules = append(s.schedules, scheduledSync{scope: scope, branch: branch, excludePath: excludePath})
}

// stubFacilitator 记录被调用操作的执行器桩
type stubFacilitator struct {
	name         string
	calls        []string
	branches     []string
	file         *scm.FileContent
	files        []scm.FileContent
	diffs        []scm.FileDiff
	commits      []scm.Commit
	commit       *scm.Commit
	commitResult *scm.CommitResult
	pr           *scm.PullRequest
	err          error
}

func (s *stubFacilitator) record(op string) { s.calls = append(s.calls, op) }

func (s *stubFacilitator) ListBranches(ctx context.Context, scope models.Scope, connectorRef, repoURL string) ([]string, error) {
	s.record("ListBranches")
	return s.branches, s.err
}

func (s *stubFacilitator) GetFileContent(ctx context.Context, scope models.Scope, req *GetFileContentRequest) (*scm.FileContent, error) {
	if err := validateGetFileContentRequest(req); err != nil {
		return nil, err
	}
	s.record("GetFileContent")
	return s.file, s.err
}

func (s *stubFacilitator) ListFilesOfBranch(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, folders []string, branch string) ([]scm.FileContent, error) {
	s.record("ListFilesOfBranch")
	return s.files, s.err
}

func (s *stubFacilitator) ListFilesByPaths(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, branch string) ([]scm.FileContent, error) {
	s.record("ListFilesByPaths")
	return s.files, s.err
}

func (s *stubFacilitator) ListFilesByCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, commitID string) ([]scm.FileContent, error) {
	s.record("ListFilesByCommit")
	return s.files, s.err
}

func (s *stubFacilitator) DiffCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, baseCommit, headCommit string) ([]scm.FileDiff, error) {
	s.record("DiffCommits")
	return s.diffs, s.err
}

func (s *stubFacilitator) ListCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string, page, pageSize int) ([]scm.Commit, error) {
	s.record("ListCommits")
	return s.commits, s.err
}

func (s *stubFacilitator) LatestCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string) (*scm.Commit, error) {
	s.record("LatestCommit")
	return s.commit, s.err
}

func (s *stubFacilitator) CreateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	s.record("CreateFile")
	return s.commitResult, s.err
}

func (s *stubFacilitator) UpdateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	s.record("UpdateFile")
	return s.commitResult, s.err
}

func (s *stubFacilitator) DeleteFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	s.record("DeleteFile")
	return s.commitResult, s.err
}

func (s *stubFacilitator) CreatePullRequest(ctx context.Context, scope models.Scope, req *CreatePullRequestRequest) (*scm.PullRequest, error) {
	if err := validateCreatePullRequest(req); err != nil {
		return nil, err
	}
	s.record("CreatePullRequest")
	return s.pr, s.err
}

// stubTransport 记录投递任务的传输桩
type stubTransport struct {
	lastMsg *queue.ScmTaskMessage
	calls   int
	reply   []byte
	err     error
}

func (t *stubTransport) SubmitAndWait(ctx context.Context, msg *queue.ScmTaskMessage, timeout time.Duration) ([]byte, error) {
	t.calls++
	t.lastMsg = msg
	return t.reply, t.err
}

// stubPublisher 记录发布事件的流发布桩
type stubPublisher struct {
	stream string
	values map[string]interface{}
	err    error
}

func (p *stubPublisher) PublishStream(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.stream = stream
	p.values = values
	return "1-0", nil
}
