package remote

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/we-worker/All-In-One-Web/internal/credstore"
)

// Provider API roots. Tests override via NewAdapter's baseURL argument.
const (
	githubAPIBase = "https://api.github.com"
	giteeAPIBase  = "https://gitee.com/api/v5"
)

// dialect captures where the two contents APIs diverge: the base URL, the
// HTTP verb for file creation, and how delete parameters are carried.
// Everything else is shared GitHub-v3 shape.
type dialect struct {
	provider credstore.Provider
	baseURL  string
}

func dialectFor(provider credstore.Provider, baseURL string) dialect {
	if baseURL == "" {
		if provider == credstore.ProviderGitee {
			baseURL = giteeAPIBase
		} else {
			baseURL = githubAPIBase
		}
	}

	return dialect{provider: provider, baseURL: strings.TrimRight(baseURL, "/")}
}

// contentsURL builds the repository-contents URL for path.
func (d dialect) contentsURL(owner, repo, path string) string {
	return d.baseURL + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) +
		"/contents/" + encodePathSegments(path)
}

// readURL builds the contents URL pinned to branch for reads.
func (d dialect) readURL(owner, repo, path, branch string) string {
	return d.contentsURL(owner, repo, path) + "?ref=" + url.QueryEscape(branch)
}

// createMethod is the verb for creating a file that does not yet exist.
// GitHub creates and updates through PUT; Gitee creates through POST.
func (d dialect) createMethod() string {
	if d.provider == credstore.ProviderGitee {
		return http.MethodPost
	}

	return http.MethodPut
}

// deleteInQuery reports whether delete parameters ride in the query string
// instead of a JSON body. Gitee's DELETE endpoint ignores request bodies.
func (d dialect) deleteInQuery() bool {
	return d.provider == credstore.ProviderGitee
}

// deleteURL builds the delete target, embedding parameters in the query
// string for dialects that require it.
func (d dialect) deleteURL(owner, repo, path, branch, message, token string) string {
	base := d.contentsURL(owner, repo, path)
	if !d.deleteInQuery() {
		return base
	}

	q := url.Values{}
	q.Set("message", message)
	q.Set("sha", token)
	q.Set("branch", branch)

	return base + "?" + q.Encode()
}

// encodePathSegments URL-encodes each segment of a slash-separated path so
// characters like #, ?, %, and spaces are safe inside contents URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}
