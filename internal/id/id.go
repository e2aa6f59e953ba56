// Package id generates prefixed identifiers for runs and inference blobs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// blobAlphabet keeps generated names safe inside URL path segments and file names.
const blobAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "run-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// BlobName returns a unique CSV blob name for an inference input,
// e.g. "ttb-role-playing-game-3k9x0q2m1z7a.csv".
func BlobName(scope string) (string, error) {
	suffix, err := gonanoid.Generate(blobAlphabet, 12)
	if err != nil {
		return "", fmt.Errorf("generate blob suffix: %w", err)
	}
	return fmt.Sprintf("ttb-%s-%s.csv", scope, suffix), nil
}
