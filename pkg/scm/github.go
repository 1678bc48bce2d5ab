package scm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gitbridge/pkg/errors"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// GitHubClient 基于GitHub REST API的提供商客户端
type GitHubClient struct {
	gh *github.Client
}

// NewGitHubClient 创建GitHub客户端
//
// baseURL为空时使用官方SaaS，否则按企业版地址初始化。
func NewGitHubClient(ctx context.Context, token, baseURL string) (*GitHubClient, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("初始化企业版GitHub客户端失败: %v", err)
		}
	}

	return &GitHubClient{gh: client}, nil
}

// ListBranches 列出仓库全部分支名
func (c *GitHubClient) ListBranches(ctx context.Context, repo string) ([]string, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	var branches []string
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		page, resp, err := c.gh.Repositories.ListBranches(ctx, owner, name, opts)
		if err != nil {
			return nil, mapGitHubError(err)
		}
		for _, b := range page {
			branches = append(branches, b.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return branches, nil
}

// GetFile 获取单文件内容，ref可以是分支名或提交ID
func (c *GitHubClient) GetFile(ctx context.Context, repo, path, ref string) (*FileContent, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	fc, _, _, err := c.gh.Repositories.GetContents(ctx, owner, name, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, mapGitHubError(err)
	}
	if fc == nil {
		return nil, errors.NewProviderError(http.StatusNotFound, fmt.Sprintf("路径不是文件: %s", path))
	}

	content, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("解码文件内容失败: %v", err)
	}

	return &FileContent{
		Path:    fc.GetPath(),
		Content: content,
		BlobID:  fc.GetSHA(),
	}, nil
}

// ListFilesUnder 列出指定目录下（递归）的全部文件内容
func (c *GitHubClient) ListFilesUnder(ctx context.Context, repo string, folders []string, ref string) ([]FileContent, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	tree, _, err := c.gh.Git.GetTree(ctx, owner, name, ref, true)
	if err != nil {
		return nil, mapGitHubError(err)
	}

	var files []FileContent
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		if !underFolders(entry.GetPath(), folders) {
			continue
		}
		fc, err := c.GetFile(ctx, repo, entry.GetPath(), ref)
		if err != nil {
			return nil, err
		}
		files = append(files, *fc)
	}

	return files, nil
}

// GetFilesByPaths 按路径列表批量获取文件内容
func (c *GitHubClient) GetFilesByPaths(ctx context.Context, repo string, paths []string, ref string) ([]FileContent, error) {
	var files []FileContent
	for _, path := range paths {
		fc, err := c.GetFile(ctx, repo, path, ref)
		if err != nil {
			return nil, err
		}
		files = append(files, *fc)
	}
	return files, nil
}

// ListCommits 分页列出分支提交
func (c *GitHubClient) ListCommits(ctx context.Context, repo, branch string, page, pageSize int) ([]Commit, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{Page: page, PerPage: pageSize},
	}
	page2, _, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, mapGitHubError(err)
	}

	commits := make([]Commit, 0, len(page2))
	for _, rc := range page2 {
		commits = append(commits, toCommit(rc))
	}
	return commits, nil
}

// LatestCommit 获取分支最新提交
func (c *GitHubClient) LatestCommit(ctx context.Context, repo, branch string) (*Commit, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	rc, _, err := c.gh.Repositories.GetCommit(ctx, owner, name, branch, nil)
	if err != nil {
		return nil, mapGitHubError(err)
	}

	commit := toCommit(rc)
	return &commit, nil
}

// CompareCommits 比较两个提交之间的文件差异
func (c *GitHubClient) CompareCommits(ctx context.Context, repo, base, head string) ([]FileDiff, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	cmp, _, err := c.gh.Repositories.CompareCommits(ctx, owner, name, base, head, nil)
	if err != nil {
		return nil, mapGitHubError(err)
	}

	diffs := make([]FileDiff, 0, len(cmp.Files))
	for _, f := range cmp.Files {
		diffs = append(diffs, FileDiff{Path: f.GetFilename(), Status: f.GetStatus()})
	}
	return diffs, nil
}

// CreateBranch 从基准分支创建新分支
func (c *GitHubClient) CreateBranch(ctx context.Context, repo, branch, baseBranch string) error {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return err
	}

	baseRef, _, err := c.gh.Git.GetRef(ctx, owner, name, "refs/heads/"+baseBranch)
	if err != nil {
		return mapGitHubError(err)
	}

	_, _, err = c.gh.Git.CreateRef(ctx, owner, name, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: baseRef.Object.SHA},
	})
	if err != nil {
		return mapGitHubError(err)
	}
	return nil
}

// CreateFile 创建文件
func (c *GitHubClient) CreateFile(ctx context.Context, repo string, opts *CommitFileOptions) (*CommitResult, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	resp, _, err := c.gh.Repositories.CreateFile(ctx, owner, name, opts.Path, &github.RepositoryContentFileOptions{
		Message: github.String(opts.Message),
		Content: []byte(opts.Content),
		Branch:  github.String(opts.Branch),
	})
	if err != nil {
		return nil, mapGitHubError(err)
	}
	return toCommitResult(resp), nil
}

// UpdateFile 更新文件（携带旧blob sha做乐观并发控制）
func (c *GitHubClient) UpdateFile(ctx context.Context, repo string, opts *CommitFileOptions) (*CommitResult, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	resp, _, err := c.gh.Repositories.UpdateFile(ctx, owner, name, opts.Path, &github.RepositoryContentFileOptions{
		Message: github.String(opts.Message),
		Content: []byte(opts.Content),
		Branch:  github.String(opts.Branch),
		SHA:     github.String(opts.SHA),
	})
	if err != nil {
		return nil, mapGitHubError(err)
	}
	return toCommitResult(resp), nil
}

// DeleteFile 删除文件（携带旧blob sha做乐观并发控制）
func (c *GitHubClient) DeleteFile(ctx context.Context, repo string, opts *CommitFileOptions) (*CommitResult, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	resp, _, err := c.gh.Repositories.DeleteFile(ctx, owner, name, opts.Path, &github.RepositoryContentFileOptions{
		Message: github.String(opts.Message),
		Branch:  github.String(opts.Branch),
		SHA:     github.String(opts.SHA),
	})
	if err != nil {
		return nil, mapGitHubError(err)
	}
	return toCommitResult(resp), nil
}

// CreatePullRequest 创建PR
func (c *GitHubClient) CreatePullRequest(ctx context.Context, repo, title, sourceBranch, targetBranch string) (*PullRequest, error) {
	owner, name, err := splitSlug(repo)
	if err != nil {
		return nil, err
	}

	pr, _, err := c.gh.PullRequests.Create(ctx, owner, name, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(sourceBranch),
		Base:  github.String(targetBranch),
	})
	if err != nil {
		return nil, mapGitHubError(err)
	}
	return &PullRequest{Number: pr.GetNumber()}, nil
}

// 辅助函数

func toCommit(rc *github.RepositoryCommit) Commit {
	commit := Commit{SHA: rc.GetSHA()}
	if rc.Commit != nil {
		commit.Message = rc.Commit.GetMessage()
		if rc.Commit.Author != nil {
			commit.Author = rc.Commit.Author.GetName()
			commit.AuthoredAt = rc.Commit.Author.GetDate().Time
		}
	}
	return commit
}

func toCommitResult(resp *github.RepositoryContentResponse) *CommitResult {
	result := &CommitResult{CommitID: resp.GetSHA()}
	if resp.Content != nil {
		result.BlobID = resp.Content.GetSHA()
	}
	return result
}

func underFolders(path string, folders []string) bool {
	if len(folders) == 0 {
		return true
	}
	for _, folder := range folders {
		prefix := strings.Trim(folder, "/")
		if prefix == "" || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// mapGitHubError 将GitHub错误映射为提供商错误
func mapGitHubError(err error) error {
	if resp, ok := err.(*github.ErrorResponse); ok && resp.Response != nil {
		return errors.NewProviderError(resp.Response.StatusCode, resp.Message)
	}
	return errors.NewProviderError(0, err.Error())
}
