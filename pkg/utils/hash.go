package utils

import (
	"crypto/md5"
	"fmt"
)

// Signature returns a stable hex digest for raw content, used to spot
// duplicate uploads.
func Signature(data []byte) string {
	hash := md5.Sum(data)
	return fmt.Sprintf("%x", hash)
}
