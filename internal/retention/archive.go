package retention

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// Archive compresses path to path+".gz" and removes the source on success.
// The destination is truncated if a previous attempt left a partial archive
// behind.
func Archive(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive source %s: %w", path, err)
	}
	defer in.Close()

	dst := path + CompressSuffix
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", dst, err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		_ = gz.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("finalize archive %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close archive %s: %w", dst, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove archived source %s: %w", path, err)
	}
	return nil
}
