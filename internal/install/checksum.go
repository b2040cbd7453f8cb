package install

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"path"

	"github.com/kamusis/frum/internal/version"
)

// expectedSHA256 looks up the digest of v's archive in the mirror index.
// ok is false when the mirror has no index or the index has no usable entry.
func (p *Pipeline) expectedSHA256(ctx context.Context, v version.Version) (sum string, ok bool) {
	u, err := p.PackageURL(v)
	if err != nil {
		return "", false
	}
	entries, err := p.fetchIndex(ctx)
	if err != nil {
		p.Logger.Debug("no mirror index, skipping checksum verification", "err", err)
		return "", false
	}
	file := path.Base(u)
	for _, e := range entries {
		if path.Base(e.URL) != file {
			continue
		}
		if b, err := hex.DecodeString(e.SHA256); err != nil || len(b) != sha256.Size {
			p.Logger.Warn("invalid checksum in mirror index", "file", file, "sha256", e.SHA256)
			return "", false
		}
		return e.SHA256, true
	}
	p.Logger.Debug("archive not listed in mirror index, skipping checksum verification", "file", file)
	return "", false
}

// digestReader hashes everything read through it.
type digestReader struct {
	r io.Reader
	h hash.Hash
}

func newDigestReader(r io.Reader) *digestReader {
	h := sha256.New()
	return &digestReader{r: io.TeeReader(r, h), h: h}
}

func (d *digestReader) Read(b []byte) (int, error) { return d.r.Read(b) }

// verify drains the rest of the stream and compares the digest.
func (d *digestReader) verify(expected string) error {
	if _, err := io.Copy(io.Discard, d.r); err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	actual := hex.EncodeToString(d.h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("checksum mismatch\nexpected: %s\nactual:   %s", expected, actual)
	}
	return nil
}
