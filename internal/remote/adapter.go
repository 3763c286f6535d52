package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/we-worker/All-In-One-Web/internal/credstore"
	"github.com/we-worker/All-In-One-Web/internal/reqcache"
)

// Adapter performs normalized file operations against the configured
// provider. One Adapter serves one repository connection; the base URL,
// repository path, and dialect quirks are resolved once from the Config.
type Adapter struct {
	cfg     credstore.Config
	dialect dialect
	client  *Client
	logger  *slog.Logger
}

// NewAdapter creates an adapter for cfg. baseURL overrides the provider's
// API root (tests point it at an httptest server); pass "" for the real
// endpoint. A nil cache disables read de-duplication.
func NewAdapter(cfg credstore.Config, baseURL string, httpClient *http.Client, cache *reqcache.Cache, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		cfg:     cfg,
		dialect: dialectFor(cfg.Provider, baseURL),
		client:  NewClient(httpClient, cfg.Token, cache, logger),
		logger:  logger,
	}
}

// putBody is the write payload shared by both dialects. The revision token
// is omitted entirely when absent — most create endpoints reject the field.
type putBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// emptyTokenBody is the third Gitee creation strategy: the sha field is
// present but explicitly empty, which some deployments accept as "create".
type emptyTokenBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha"`
}

// GetFile reads the file at path. Returns (nil, nil) when the file does
// not exist — "no remote copy yet" is an expected outcome, not an error.
func (a *Adapter) GetFile(ctx context.Context, path string) (*File, error) {
	raw, err := a.client.Get(ctx, a.readURL(path))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	var resp contentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("remote: decoding %s: %w", path, err)
	}

	f, err := resp.toFile()
	if err != nil {
		return nil, fmt.Errorf("remote: decoding content of %s: %w", path, err)
	}

	return f, nil
}

// PutFile writes content to path with a commit message. When no revision
// token is supplied, the current one is discovered via GetFile; the token
// guards the write against stale overwrites. A missing token on Gitee
// routes through the creation fallback chain. A Gitee write rejected with
// a revision conflict is retried exactly once with a refreshed token.
func (a *Adapter) PutFile(ctx context.Context, path string, content []byte, message, revisionToken string) error {
	token := revisionToken
	if token == "" {
		existing, err := a.GetFile(ctx, path)
		if err != nil {
			return fmt.Errorf("remote: resolving revision token for %s: %w", path, err)
		}

		if existing != nil {
			token = existing.RevisionToken
		}
	}

	encoded := base64.StdEncoding.EncodeToString(content)

	if token == "" && a.cfg.Provider == credstore.ProviderGitee {
		return a.createWithFallback(ctx, path, encoded, message)
	}

	err := a.putOnce(ctx, path, encoded, message, token)
	if err == nil {
		return nil
	}

	// Gitee signals a stale token with a conflict; refetch once and retry
	// once. A second failure is reported as-is.
	if a.cfg.Provider == credstore.ProviderGitee && errors.Is(err, ErrConflict) {
		a.logger.Warn("write conflict, refreshing revision token",
			slog.String("path", path))

		// The cached read (if any) is what produced the stale token.
		a.client.Forget(a.readURL(path))

		current, getErr := a.GetFile(ctx, path)
		if getErr != nil || current == nil {
			return err
		}

		return a.putOnce(ctx, path, encoded, message, current.RevisionToken)
	}

	return err
}

// putOnce issues a single write. An empty token means "create" (GitHub
// accepts PUT without sha; Gitee creation goes through the fallback chain
// before this is ever reached with an empty token).
func (a *Adapter) putOnce(ctx context.Context, path, encoded, message, token string) error {
	method := http.MethodPut
	if token == "" {
		method = a.dialect.createMethod()
	}

	body := putBody{
		Message: message,
		Content: encoded,
		Branch:  a.cfg.Branch,
		SHA:     token,
	}

	if _, err := a.client.Send(ctx, method, a.contentsURL(path), body); err != nil {
		return err
	}

	a.client.Forget(a.readURL(path))

	return nil
}

// creationStrategy is one attempt at bringing a file into existence on a
// dialect that rejects naive creation. Strategies are tried in order and
// the chain stops at the first success.
type creationStrategy struct {
	name string
	run  func(ctx context.Context) error
}

// createWithFallback creates path on Gitee, which rejects straightforward
// file creation on some repositories. Three strategies are tried in order:
// a direct create, an empty placeholder followed by a token-carrying
// update, and a write with an explicitly empty token.
func (a *Adapter) createWithFallback(ctx context.Context, path, encoded, message string) error {
	strategies := []creationStrategy{
		{name: "direct-create", run: func(ctx context.Context) error {
			return a.createDirect(ctx, path, encoded, message)
		}},
		{name: "placeholder-update", run: func(ctx context.Context) error {
			return a.createViaPlaceholder(ctx, path, encoded, message)
		}},
		{name: "empty-token-write", run: func(ctx context.Context) error {
			return a.createWithEmptyToken(ctx, path, encoded, message)
		}},
	}

	var lastErr error

	for _, s := range strategies {
		err := s.run(ctx)
		if err == nil {
			a.logger.Debug("file created",
				slog.String("path", path),
				slog.String("strategy", s.name),
			)

			a.client.Forget(a.readURL(path))

			return nil
		}

		a.logger.Warn("creation strategy failed",
			slog.String("path", path),
			slog.String("strategy", s.name),
			slog.String("error", err.Error()),
		)

		lastErr = err
	}

	return fmt.Errorf("remote: all creation strategies failed for %s: %w", path, lastErr)
}

func (a *Adapter) createDirect(ctx context.Context, path, encoded, message string) error {
	body := putBody{Message: message, Content: encoded, Branch: a.cfg.Branch}

	_, err := a.client.Send(ctx, a.dialect.createMethod(), a.contentsURL(path), body)

	return err
}

// createViaPlaceholder creates an empty file first, then updates it with
// the real content using the revision token the placeholder came back with.
func (a *Adapter) createViaPlaceholder(ctx context.Context, path, encoded, message string) error {
	placeholder := putBody{Message: message, Content: "", Branch: a.cfg.Branch}

	raw, err := a.client.Send(ctx, a.dialect.createMethod(), a.contentsURL(path), placeholder)
	if err != nil {
		return err
	}

	var resp writeResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Content == nil || resp.Content.SHA == "" {
		return fmt.Errorf("remote: placeholder for %s returned no revision token", path)
	}

	return a.putOnce(ctx, path, encoded, message, resp.Content.SHA)
}

func (a *Adapter) createWithEmptyToken(ctx context.Context, path, encoded, message string) error {
	body := emptyTokenBody{Message: message, Content: encoded, Branch: a.cfg.Branch}

	_, err := a.client.Send(ctx, http.MethodPut, a.contentsURL(path), body)

	return err
}

// DeleteFile removes the file at path. A file that does not exist counts
// as success — "already gone" satisfies the caller's intent.
func (a *Adapter) DeleteFile(ctx context.Context, path, message string) error {
	existing, err := a.GetFile(ctx, path)
	if err != nil {
		return fmt.Errorf("remote: resolving revision token for %s: %w", path, err)
	}

	if existing == nil {
		a.logger.Debug("delete skipped, file already gone", slog.String("path", path))
		return nil
	}

	url := a.dialect.deleteURL(a.cfg.Owner, a.cfg.Repo, path, a.cfg.Branch, message, existing.RevisionToken)

	var body any
	if !a.dialect.deleteInQuery() {
		body = putBody{Message: message, Branch: a.cfg.Branch, SHA: existing.RevisionToken}
	}

	if _, err := a.client.Send(ctx, http.MethodDelete, url, body); err != nil {
		return err
	}

	a.client.Forget(a.readURL(path))

	return nil
}

// ListFiles lists the files directly under path. Subdirectories are
// filtered out; there is no recursion. Returned records carry name, path,
// revision token, and size only — no content.
func (a *Adapter) ListFiles(ctx context.Context, path string) ([]File, error) {
	raw, err := a.client.Get(ctx, a.readURL(path))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	var entries []contentResponse
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("remote: decoding listing of %q: %w", path, err)
	}

	files := make([]File, 0, len(entries))

	for _, e := range entries {
		if e.Type != "file" {
			continue
		}

		files = append(files, File{
			Path:          e.Path,
			Name:          e.Name,
			RevisionToken: e.SHA,
			Size:          e.Size,
		})
	}

	return files, nil
}

func (a *Adapter) contentsURL(path string) string {
	return a.dialect.contentsURL(a.cfg.Owner, a.cfg.Repo, path)
}

func (a *Adapter) readURL(path string) string {
	return a.dialect.readURL(a.cfg.Owner, a.cfg.Repo, path, a.cfg.Branch)
}
