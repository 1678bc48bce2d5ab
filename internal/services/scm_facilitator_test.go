package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushInfoFullPath(t *testing.T) {
	cases := []struct {
		name   string
		folder string
		file   string
		want   string
	}{
		{"no folder", "", "pipeline.yaml", "pipeline.yaml"},
		{"folder prefix joined", ".harness", "pipeline.yaml", ".harness/pipeline.yaml"},
		{"folder with slashes trimmed", "/.harness/", "pipeline.yaml", ".harness/pipeline.yaml"},
		{"file already under folder", ".harness", ".harness/pipeline.yaml", ".harness/pipeline.yaml"},
		{"leading slash on file stripped", ".harness", "/pipeline.yaml", ".harness/pipeline.yaml"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &PushInfo{FolderPath: tc.folder, FilePath: tc.file}
			require.Equal(t, tc.want, p.FullPath())
		})
	}
}

func TestRequestValidation(t *testing.T) {
	t.Run("branch and commit are mutually exclusive", func(t *testing.T) {
		err := validateGetFileContentRequest(&GetFileContentRequest{
			FilePath: "a.yaml",
			Branch:   "main",
			CommitID: "abc",
		})
		require.Error(t, err)
	})

	t.Run("one of branch or commit is required", func(t *testing.T) {
		err := validateGetFileContentRequest(&GetFileContentRequest{FilePath: "a.yaml"})
		require.Error(t, err)
	})

	t.Run("branch alone is fine", func(t *testing.T) {
		err := validateGetFileContentRequest(&GetFileContentRequest{FilePath: "a.yaml", Branch: "main"})
		require.NoError(t, err)
	})

	t.Run("commit alone is fine", func(t *testing.T) {
		err := validateGetFileContentRequest(&GetFileContentRequest{FilePath: "a.yaml", CommitID: "abc"})
		require.NoError(t, err)
	})

	t.Run("pr with identical branches is rejected", func(t *testing.T) {
		err := validateCreatePullRequest(&CreatePullRequestRequest{
			Title:        "sync",
			SourceBranch: "main",
			TargetBranch: "main",
		})
		require.Error(t, err)
	})

	t.Run("pr with distinct branches passes", func(t *testing.T) {
		err := validateCreatePullRequest(&CreatePullRequestRequest{
			Title:        "sync",
			SourceBranch: "feature",
			TargetBranch: "main",
		})
		require.NoError(t, err)
	})
}
