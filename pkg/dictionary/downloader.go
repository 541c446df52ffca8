package dictionary

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxLexiconSize bounds a downloaded lexicon file.
const maxLexiconSize = 64 * 1024 * 1024

// EnsureLexicon checks if the lexicon exists at path.
// If not, it downloads it from url, unpacking .tgz/.tar.gz and .gz archives.
// The downloaded document must parse as a lexicon before it is written to path.
func EnsureLexicon(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if url == "" {
		return fmt.Errorf("lexicon not found at %s and no download url configured", path)
	}

	fmt.Printf("Lexicon not found at %s. Downloading from %s...\n", path, url)
	data, err := download(ctx, url)
	if err != nil {
		return err
	}
	if _, err := ParseLexicon(data); err != nil {
		return fmt.Errorf("downloaded lexicon is invalid: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".lexicon-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write lexicon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "kofilter-cli")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}

	body := io.LimitReader(resp.Body, maxLexiconSize)
	name := strings.ToLower(url)
	switch {
	case strings.HasSuffix(name, ".tgz") || strings.HasSuffix(name, ".tar.gz"):
		return extractFromTarball(body)
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		return io.ReadAll(io.LimitReader(gz, maxLexiconSize))
	default:
		return io.ReadAll(body)
	}
}

func extractFromTarball(r io.Reader) ([]byte, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading tar archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		switch strings.ToLower(filepath.Ext(header.Name)) {
		case ".yaml", ".yml", ".json":
			return io.ReadAll(io.LimitReader(tarReader, maxLexiconSize))
		}
	}
	return nil, fmt.Errorf("no lexicon file found in downloaded archive")
}
