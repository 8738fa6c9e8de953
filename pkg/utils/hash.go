package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// PartialChunkSize is the number of bytes read from each end of a file by PartialHash.
const PartialChunkSize = 4096

// HashFile computes the SHA256 hash of a file's entire content
func HashFile(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// PartialHash digests the first and last PartialChunkSize bytes of a file.
// Files shorter than two chunks are hashed whole.
func PartialHash(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}

	size := info.Size()
	digest := xxhash.New()

	if size < PartialChunkSize*2 {
		if _, err := io.Copy(digest, file); err != nil {
			return "", err
		}
		return strconv.FormatUint(digest.Sum64(), 16), nil
	}

	chunk := make([]byte, PartialChunkSize)
	if _, err := io.ReadFull(file, chunk); err != nil {
		return "", err
	}
	digest.Write(chunk)

	if _, err := file.Seek(-PartialChunkSize, io.SeekEnd); err != nil {
		return "", err
	}
	if _, err := io.ReadFull(file, chunk); err != nil {
		return "", err
	}
	digest.Write(chunk)

	return strconv.FormatUint(digest.Sum64(), 16), nil
}
