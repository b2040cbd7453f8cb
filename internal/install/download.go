package install

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kamusis/frum/internal/version"
)

const userAgent = "frum"

type archiveData struct {
	Version string
	Major   uint64
	Minor   uint64
	Patch   uint64
}

// PackageURL returns the archive URL for v on the configured mirror.
func (p *Pipeline) PackageURL(v version.Version) (string, error) {
	sv := v.Semver()
	if sv == nil {
		return "", fmt.Errorf("%s is not an exact version", v)
	}
	var buf bytes.Buffer
	data := archiveData{Version: v.Plain(), Major: sv.Major(), Minor: sv.Minor(), Patch: sv.Patch()}
	if err := p.Archive.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render archive path: %w", err)
	}
	return p.Mirror.JoinPath(buf.String()).String(), nil
}

// download opens the archive stream for v. 404 means the mirror does not
// have the version; any other failure is a download failure.
func (p *Pipeline) download(ctx context.Context, v version.Version) (io.ReadCloser, error) {
	u, err := p.PackageURL(v)
	if err != nil {
		return nil, &Error{Kind: KindDownloadFailed, Version: v.String(), Err: err}
	}
	p.Logger.Info("downloading", "version", v.Plain(), "url", u)
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, &Error{Kind: KindDownloadFailed, Version: v.String(), Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, &Error{Kind: KindVersionNotFound, Version: v.String(), Err: fmt.Errorf("%s not found on mirror", u)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		resp.Body.Close()
		return nil, &Error{Kind: KindDownloadFailed, Version: v.String(),
			Err: fmt.Errorf("%s\n%s", resp.Status, strings.TrimSpace(string(body)))}
	}
	return resp.Body, nil
}

func (p *Pipeline) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// ListRemote returns the versions published in the mirror's index.txt,
// ascending and without duplicates.
func (p *Pipeline) ListRemote(ctx context.Context) ([]version.Version, error) {
	entries, err := p.fetchIndex(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []version.Version
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name, "ruby-")
		if !ok {
			continue
		}
		v, err := version.ParseExact(name)
		if err != nil || seen[v.String()] {
			continue
		}
		seen[v.String()] = true
		out = append(out, v)
	}
	version.Sort(out)
	return out, nil
}

// indexEntry is one row of index.txt: name url sha1 sha256 sha512.
type indexEntry struct {
	Name   string
	URL    string
	SHA256 string
}

func (p *Pipeline) fetchIndex(ctx context.Context) ([]indexEntry, error) {
	u := p.Mirror.JoinPath("index.txt").String()
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, &Error{Kind: KindDownloadFailed, Version: "index", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: KindDownloadFailed, Version: "index", Err: fmt.Errorf("%s: %s", u, resp.Status)}
	}
	return parseIndex(resp.Body)
}

// parseIndex reads index.txt rows. The header row and short rows are skipped.
func parseIndex(r io.Reader) ([]indexEntry, error) {
	var out []indexEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] == "name" {
			continue
		}
		e := indexEntry{Name: fields[0], URL: fields[1]}
		if len(fields) >= 4 {
			e.SHA256 = strings.ToLower(fields[3])
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return out, nil
}
