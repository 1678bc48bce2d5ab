package scm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRepoSlug(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"https url", "https://github.com/acme/app", "acme/app", false},
		{"https url with .git", "https://github.com/acme/app.git", "acme/app", false},
		{"https url with trailing slash", "https://github.com/acme/app/", "acme/app", false},
		{"ssh url", "git@github.com:acme/app.git", "acme/app", false},
		{"enterprise host", "https://git.example.com/acme/app", "acme/app", false},
		{"missing repo name", "https://github.com/acme", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRepoSlug(tc.url)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSplitSlug(t *testing.T) {
	owner, name, err := splitSlug("acme/app")
	require.NoError(t, err)
	require.Equal(t, "acme", owner)
	require.Equal(t, "app", name)

	_, _, err = splitSlug("acme")
	require.Error(t, err)

	_, _, err = splitSlug("/app")
	require.Error(t, err)
}
