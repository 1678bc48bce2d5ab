package scm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FileContent 仓库文件内容
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	BlobID  string `json:"blob_id"`
}

// FileDiff 两个提交间的单文件差异
type FileDiff struct {
	Path   string `json:"path"`
	Status string `json:"status"` // added/modified/removed/renamed
}

// Commit 提交信息
type Commit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	Author     string    `json:"author"`
	AuthoredAt time.Time `json:"authored_at"`
}

// CommitResult 单文件变更提交结果
type CommitResult struct {
	CommitID string `json:"commit_id"`
	BlobID   string `json:"blob_id"`
}

// PullRequest PR信息
type PullRequest struct {
	Number int `json:"number"`
}

// CommitFileOptions 单文件变更参数
type CommitFileOptions struct {
	Path    string
	Branch  string
	Message string
	Content string
	SHA     string // 旧文件blob sha，更新/删除时用于乐观并发控制
}

// Client Git提供商低层客户端
//
// repo参数统一使用 owner/name 格式的slug，见 ParseRepoSlug。
type Client interface {
	ListBranches(ctx context.Context, repo string) ([]string, error)
	GetFile(ctx context.Context, repo, path, ref string) (*FileContent, error)
	ListFilesUnder(ctx context.Context, repo string, folders []string, ref string) ([]FileContent, error)
	GetFilesByPaths(ctx context.Context, repo string, paths []string, ref string) ([]FileContent, error)
	ListCommits(ctx context.Context, repo, branch string, page, pageSize int) ([]Commit, error)
	LatestCommit(ctx context.Context, repo, branch string) (*Commit, error)
	CompareCommits(ctx context.Context, repo, base, head string) ([]FileDiff, error)
	CreateBranch(ctx context.Context, repo, branch, baseBranch string) error
	CreateFile(ctx context.Context, repo string, opts *CommitFileOptions) (*CommitResult, error)
	UpdateFile(ctx context.Context, repo string, opts *CommitFileOptions) (*CommitResult, error)
	DeleteFile(ctx context.Context, repo string, opts *CommitFileOptions) (*CommitResult, error)
	CreatePullRequest(ctx context.Context, repo, title, sourceBranch, targetBranch string) (*PullRequest, error)
}

// ParseRepoSlug 从仓库URL解析 owner/name slug
//
// 支持 https://host/owner/name(.git) 和 git@host:owner/name(.git) 两种格式。
func ParseRepoSlug(repoURL string) (string, error) {
	s := strings.TrimSuffix(strings.TrimSpace(repoURL), ".git")
	s = strings.TrimSuffix(s, "/")

	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	} else if idx := strings.Index(s, "@"); idx >= 0 {
		s = strings.Replace(s[idx+1:], ":", "/", 1)
	}

	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return "", fmt.Errorf("无法从仓库URL解析owner/name: %s", repoURL)
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
}

func splitSlug(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("仓库slug格式错误: %s", repo)
	}
	return parts[0], parts[1], nil
}
