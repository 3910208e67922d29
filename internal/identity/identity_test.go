package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/Sposito/zig-repos-data-miner/internal/gitio"
)

type remoteOnly struct {
	res gitio.Result[string]
}

func (r remoteOnly) CommitLog(ctx context.Context, repoPath string) gitio.Result[[]string] {
	return gitio.Ok([]string{})
}

func (r remoteOnly) RemoteURL(ctx context.Context, repoPath string) gitio.Result[string] {
	return r.res
}

func TestFromRemote(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"git@github.com:user/repo.git", "user/repo", true},
		{"git@github.com:getty-zig/getty.git", "getty-zig/getty", true},
		{"git@gitlab.com:group/sub/project", "sub/project", true},
		{"https://github.com/user/repo", "user/repo", true},
		{"https://github.com/user/repo.git", "user/repo", true},
		{"https://github.com/user/repo/", "user/repo", true},
		{"  https://codeberg.org/ziglang/zig.git\n", "ziglang/zig", true},
		{"https://github.com/repo", "", false},
		{"git@github.com:repo.git", "", false},
		{"http://github.com/user/repo", "", false},
		{"ssh://git@github.com/user/repo.git", "", false},
		{"/local/mirror/repo.git", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := FromRemote(tt.url)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FromRemote(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/some/path/fallbackrepo", "fallbackrepo"},
		{"/some/path/fallbackrepo/", "fallbackrepo"},
		{"/", "/"},
	}
	for _, tt := range tests {
		if got := FromPath(tt.path); got != tt.want {
			t.Errorf("FromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if FromPath(".") == "" {
		t.Error("FromPath(.) must not be empty")
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		res  gitio.Result[string]
		want string
	}{
		{"ssh remote", gitio.Ok("git@github.com:getty-zig/getty.git"), "getty-zig/getty"},
		{"https remote", gitio.Ok("https://github.com/user/repo"), "user/repo"},
		{"lookup failure", gitio.Failed[string](errors.New("no origin")), "somerepo"},
		{"unrecognized remote", gitio.Ok("file:///srv/git/thing"), "somerepo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(ctx, remoteOnly{res: tt.res}, "/some/path/somerepo")
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
