package common

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

type Digests struct {
	MD5    string
	SHA256 string
}

// Digest hashes the first size bytes of src in one pass.
func Digest(src io.ReaderAt, size int64) (Digests, error) {
	md5h := md5.New()
	sha := sha256.New()
	if _, err := io.Copy(io.MultiWriter(md5h, sha), io.NewSectionReader(src, 0, size)); err != nil {
		return Digests{}, fmt.Errorf("failed to hash file: %w", err)
	}
	return Digests{
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA256: hex.EncodeToString(sha.Sum(nil)),
	}, nil
}
