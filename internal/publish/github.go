package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"golang.org/x/oauth2"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// GitHub publishes to a GitHub release of one repository, creating the
// release for the tag when it does not exist yet.
type GitHub struct {
	apiURL string
	repo   string
	base   *http.Client
}

// NewGitHub creates a provider for repo ("owner/name"). An empty apiURL
// selects DefaultGitHubAPI.
func NewGitHub(apiURL, repo string) (*GitHub, error) {
	if !strings.Contains(repo, "/") {
		return nil, fmt.Errorf("github repository must be owner/name, got %q", repo)
	}
	if apiURL == "" {
		apiURL = DefaultGitHubAPI
	}
	return &GitHub{apiURL: strings.TrimRight(apiURL, "/"), repo: repo, base: http.DefaultClient}, nil
}

type ghRelease struct {
	ID         int64  `json:"id"`
	HTMLURL    string `json:"html_url"`
	UploadURL  string `json:"upload_url"`
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
}

type ghCreateRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Prerelease bool   `json:"prerelease"`
}

// Publish implements Publisher. The credential is used as an OAuth token.
func (g *GitHub) Publish(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("provider", "github", "repo", g.repo, "tag", req.Tag)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: req.Credential}))

	rel, err := g.findRelease(ctx, client, req.Tag)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		logger.Info("Creating release.", "prerelease", req.Prerelease)
		if rel, err = g.createRelease(ctx, client, req); err != nil {
			return nil, err
		}
	}

	uploadURL, _, _ := strings.Cut(rel.UploadURL, "{")
	res := &Result{Location: rel.HTMLURL}
	var errs []error
	for _, f := range req.Files {
		if err := g.upload(ctx, client, uploadURL, f); err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", filepath.Base(f), err))
			continue
		}
		logger.Info("⬆️ Uploaded asset.", "file", filepath.Base(f))
		res.Uploaded = append(res.Uploaded, f)
	}
	return res, errors.Join(errs...)
}

func (g *GitHub) findRelease(ctx context.Context, client *http.Client, tag string) (*ghRelease, error) {
	u := fmt.Sprintf("%s/repos/%s/releases/tags/%s", g.apiURL, g.repo, url.PathEscape(tag))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("lookup release %s: %w", tag, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("lookup release", resp)
	}
	var rel ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	return &rel, nil
}

func (g *GitHub) createRelease(ctx context.Context, client *http.Client, req Request) (*ghRelease, error) {
	body, err := json.Marshal(ghCreateRelease{TagName: req.Tag, Name: req.Tag, Prerelease: req.Prerelease})
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/repos/%s/releases", g.apiURL, g.repo)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create release %s: %w", req.Tag, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, statusError("create release", resp)
	}
	var rel ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	return &rel, nil
}

func (g *GitHub) upload(ctx context.Context, client *http.Client, uploadURL, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	u := uploadURL + "?name=" + url.QueryEscape(filepath.Base(file))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, f)
	if err != nil {
		return err
	}
	httpReq.ContentLength = info.Size()
	httpReq.Header.Set("Content-Type", contentType(file))

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return statusError("upload asset", resp)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
}
