package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Sources turns a --file argument into a local path, downloading remote
// spreadsheets into a temporary directory.
type Sources struct {
	HTTP    Fetcher
	FTP     Fetcher
	TempDir string // default os.TempDir()
}

// Localize returns a local path for src and a cleanup func that removes any
// downloaded copy. Local paths are returned unchanged.
func (s *Sources) Localize(ctx context.Context, src string) (string, func(), error) {
	noop := func() {}

	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		if _, statErr := os.Stat(src); statErr != nil {
			return "", noop, eris.Wrapf(statErr, "fetcher: stat %s", src)
		}
		return src, noop, nil
	}

	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f = s.HTTP
	case "ftp":
		f = s.FTP
	case "file":
		return s.Localize(ctx, u.Path)
	default:
		return "", noop, eris.Errorf("fetcher: unsupported source scheme %q", u.Scheme)
	}
	if f == nil {
		return "", noop, eris.Errorf("fetcher: no fetcher configured for %s", u.Scheme)
	}

	dir, err := os.MkdirTemp(s.TempDir, "bloodbuddy-*")
	if err != nil {
		return "", noop, eris.Wrap(err, "fetcher: create temp dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "download.xlsx"
	}
	dest := filepath.Join(dir, name)

	n, err := f.DownloadToFile(ctx, src, dest)
	if err != nil {
		cleanup()
		return "", noop, err
	}
	zap.L().Info("fetcher: downloaded source",
		zap.String("source", u.Redacted()),
		zap.Int64("bytes", n),
	)
	return dest, cleanup, nil
}
