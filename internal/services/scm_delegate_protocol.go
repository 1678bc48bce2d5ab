package services

import (
	"gitbridge/internal/models"
	"gitbridge/pkg/scm"
)

// 代理任务类型
const (
	TaskListBranches      = "scm_list_branches"
	TaskGetFileContent    = "scm_get_file_content"
	TaskListFilesOfBranch = "scm_list_files_of_branch"
	TaskListFilesByPaths  = "scm_list_files_by_paths"
	TaskListFilesByCommit = "scm_list_files_by_commit"
	TaskDiffCommits       = "scm_diff_commits"
	TaskListCommits       = "scm_list_commits"
	TaskLatestCommit      = "scm_latest_commit"
	TaskCreateFile        = "scm_create_file"
	TaskUpdateFile        = "scm_update_file"
	TaskDeleteFile        = "scm_delete_file"
	TaskCreatePR          = "scm_create_pull_request"
)

// 执行结果状态
const (
	taskStatusSuccess = "success"
	taskStatusFailed  = "failed"
)

// connectorPayload 下发给代理的连接器信息，凭证保持密文
type connectorPayload struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
	AuthType   string `json:"auth_type"`
	URL        string `json:"url"`
	Username   string `json:"username,omitempty"`
	Token      string `json:"token,omitempty"`
	Password   string `json:"password,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

func newConnectorPayload(c *models.GitConnector) connectorPayload {
	return connectorPayload{
		Identifier: c.Identifier,
		Type:       string(c.Type),
		AuthType:   string(c.AuthType),
		URL:        c.URL,
		Username:   c.Username,
		Token:      c.Token,
		Password:   c.Password,
		PrivateKey: c.PrivateKey,
		Passphrase: c.Passphrase,
	}
}

// scmTaskParams 代理任务参数
type scmTaskParams struct {
	Connector  connectorPayload `json:"connector"`
	RepoURL    string           `json:"repo_url"`
	Branch     string           `json:"branch,omitempty"`
	BaseBranch string           `json:"base_branch,omitempty"`
	CommitID   string           `json:"commit_id,omitempty"`
	BaseCommit string           `json:"base_commit,omitempty"`
	HeadCommit string           `json:"head_commit,omitempty"`
	FilePath   string           `json:"file_path,omitempty"`
	Paths      []string         `json:"paths,omitempty"`
	Folders    []string         `json:"folders,omitempty"`
	Message    string           `json:"message,omitempty"`
	Content    string           `json:"content,omitempty"`
	OldFileSHA string           `json:"old_file_sha,omitempty"`
	Title      string           `json:"title,omitempty"`
	Source     string           `json:"source,omitempty"`
	Target     string           `json:"target,omitempty"`
	NewBranch  bool             `json:"new_branch,omitempty"`
	Page       int              `json:"page,omitempty"`
	PageSize   int              `json:"page_size,omitempty"`
}

// taskError 代理侧执行失败时回传的提供商错误
type taskError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// taskReply 代理回传的统一信封
type taskReply struct {
	Status string     `json:"status"`
	Error  *taskError `json:"error,omitempty"`

	Branches []string          `json:"branches,omitempty"`
	File     *scm.FileContent  `json:"file,omitempty"`
	Files    []scm.FileContent `json:"files,omitempty"`
	Diffs    []scm.FileDiff    `json:"diffs,omitempty"`
	Commits  []scm.Commit      `json:"commits,omitempty"`
	Commit   *scm.Commit       `json:"commit,omitempty"`
	Result   *scm.CommitResult `json:"result,omitempty"`
	PR       *scm.PullRequest  `json:"pr,omitempty"`
}
