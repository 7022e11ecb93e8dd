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

// Sources maps URL schemes to the fetcher that serves them.
type Sources map[string]Fetcher

// DefaultSources serves http, https and ftp archive URLs.
func DefaultSources(httpOpts HTTPOptions, ftpOpts FTPOptions) Sources {
	h := NewHTTPFetcher(httpOpts)
	return Sources{
		"http":  h,
		"https": h,
		"ftp":   NewFTPFetcher(ftpOpts),
	}
}

// IsRemote reports whether source is a URL rather than a local path.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	return err == nil && u.Host != "" && len(u.Scheme) > 1
}

// Resolve returns a local path for the archive. Local paths are checked and
// returned as-is; URLs are downloaded into dir by the fetcher registered for
// their scheme.
func (s Sources) Resolve(ctx context.Context, source, dir string) (string, error) {
	if !IsRemote(source) {
		info, err := os.Stat(source)
		if err != nil {
			return "", eris.Wrapf(err, "archive %q", source)
		}
		if info.IsDir() {
			return "", eris.Errorf("archive %q is a directory", source)
		}
		return source, nil
	}

	u, _ := url.Parse(source)
	f, ok := s[strings.ToLower(u.Scheme)]
	if !ok {
		return "", eris.Errorf("archive %q: unsupported scheme %q", source, u.Scheme)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "archive.zip"
	}
	dest := filepath.Join(dir, name)

	n, err := f.DownloadToFile(ctx, source, dest)
	if err != nil {
		return "", eris.Wrapf(err, "download archive %q", source)
	}
	zap.L().Info("fetcher: archive downloaded", zap.String("source", source), zap.Int64("bytes", n))
	return dest, nil
}
