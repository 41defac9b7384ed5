package wordlist

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// IsRemote reports whether p names an http(s) resource.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Fetch downloads a remote word list into dir and returns the local path.
// A file already present in dir is reused. Tarballs (.tgz, .tar.gz) are
// unpacked to their first csv/tsv/txt member; other payloads, including
// plain .gz, are stored as-is since Open decompresses gzip itself.
func Fetch(ctx context.Context, client *http.Client, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("url %s does not name a file", rawURL)
	}
	archive := strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".tar.gz")

	dest := filepath.Join(dir, name)
	if archive {
		dest = filepath.Join(dir, strings.TrimSuffix(strings.TrimSuffix(name, ".tgz"), ".tar.gz")+".csv")
	}
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "vocabimport")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if archive {
		member, err := openTarMember(resp.Body)
		if err != nil {
			return "", err
		}
		defer member.Close()
		body = member
	}
	if err := writeAtomic(dest, body); err != nil {
		return "", err
	}
	return dest, nil
}

type tarMember struct {
	io.Reader
	gz *gzip.Reader
}

func (m *tarMember) Close() error { return m.gz.Close() }

// openTarMember positions a tar stream at its first word-list member.
func openTarMember(r io.Reader) (*tarMember, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			gz.Close()
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		switch strings.ToLower(path.Ext(header.Name)) {
		case ".csv", ".tsv", ".txt":
			return &tarMember{Reader: tr, gz: gz}, nil
		}
	}
	gz.Close()
	return nil, fmt.Errorf("no word list found in downloaded archive")
}

// writeAtomic streams r into a temp file next to dest, then renames it.
func writeAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
