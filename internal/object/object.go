// Package object defines the pit object model: blobs, trees and commits
// serialized as text records and addressed by the SHA-1 of their bytes.
package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"pit/internal/errors"
)

// Kind is the trailing type marker of a serialized object.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

// Valid reports whether k is one of the three object kinds.
func (k Kind) Valid() bool {
	return k == KindBlob || k == KindTree || k == KindCommit
}

// Digest is the lowercase hex SHA-1 of an object's serialized bytes.
type Digest string

const DigestLen = 40

// separator joins the blocks of every object.
const separator = "\n\n"

// RootPath is the path recorded for the top-level tree.
const RootPath = "."

// Hash computes the digest of data exactly as given.
func Hash(data []byte) Digest {
	sum := sha1.Sum(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// Valid reports whether d looks like a digest.
func (d Digest) Valid() bool {
	if len(d) != DigestLen {
		return false
	}
	for _, c := range d {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Short returns the first eight characters, for display.
func (d Digest) Short() string {
	if len(d) < 8 {
		return string(d)
	}
	return string(d[:8])
}

func (d Digest) String() string {
	return string(d)
}

// Blob is a parsed blob object.
type Blob struct {
	Content []byte
	Path    string
}

// TreeEntry is one child line of a tree object.
type TreeEntry struct {
	Kind   Kind
	Digest Digest
	Path   string
}

// Tree is a parsed tree object.
type Tree struct {
	Path    string
	Entries []TreeEntry
}

// Commit is a parsed commit object. Parent is empty for a root commit.
type Commit struct {
	Tree    Digest
	Parent  Digest
	Message string
}

// EncodeBlob serializes file content with its original path.
func EncodeBlob(content []byte, path string) []byte {
	var b strings.Builder
	b.Grow(len(content) + len(path) + 8)
	b.Write(content)
	b.WriteString(separator)
	b.WriteString(path)
	b.WriteString(separator)
	b.WriteString(string(KindBlob))
	return []byte(b.String())
}

// EncodeTree serializes entries in the given order followed by the tree path.
func EncodeTree(path string, entries []TreeEntry) []byte {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s %s%s", e.Kind, e.Digest, e.Path, separator)
	}
	b.WriteString(path)
	b.WriteString(separator)
	b.WriteString(string(KindTree))
	return []byte(b.String())
}

// EncodeCommit serializes a commit. parent may be empty.
func EncodeCommit(tree, parent Digest, message string) []byte {
	return []byte(fmt.Sprintf("tree %s\nparent %s%s%s%s%s",
		tree, parent, separator, message, separator, KindCommit))
}

// KindOf returns the kind recorded in the last block of data.
func KindOf(data []byte) (Kind, error) {
	s := string(data)
	idx := strings.LastIndex(s, separator)
	if idx < 0 {
		return "", errors.Corrupted("object has no type trailer", nil)
	}
	k := Kind(s[idx+len(separator):])
	if !k.Valid() {
		return "", errors.Corrupted(fmt.Sprintf("unknown object kind %q", k), nil)
	}
	return k, nil
}

// body strips the "\n\n<kind>" trailer, checking that it names want.
func body(data []byte, want Kind) (string, error) {
	got, err := KindOf(data)
	if err != nil {
		return "", err
	}
	if got != want {
		return "", errors.Corrupted(fmt.Sprintf("expected %s object, found %s", want, got), nil)
	}
	s := string(data)
	return s[:len(s)-len(separator)-len(want)], nil
}

// splitPath separates the last block (the recorded path) from the rest.
// Paths never contain newlines, so the last separator always precedes them.
func splitPath(s string, kind Kind) (rest, path string, err error) {
	idx := strings.LastIndex(s, separator)
	if idx < 0 {
		return "", "", errors.Corrupted(fmt.Sprintf("%s object has no path block", kind), nil)
	}
	return s[:idx], s[idx+len(separator):], nil
}

// DecodeBlob parses a blob. The content may itself contain blank lines.
func DecodeBlob(data []byte) (*Blob, error) {
	s, err := body(data, KindBlob)
	if err != nil {
		return nil, err
	}
	content, path, err := splitPath(s, KindBlob)
	if err != nil {
		return nil, err
	}
	return &Blob{Content: []byte(content), Path: path}, nil
}

// PathOf returns the original path recorded in a blob's trailer.
func PathOf(data []byte) (string, error) {
	b, err := DecodeBlob(data)
	if err != nil {
		return "", err
	}
	return b.Path, nil
}

// DecodeTree parses a tree object.
func DecodeTree(data []byte) (*Tree, error) {
	s, err := body(data, KindTree)
	if err != nil {
		return nil, err
	}

	// A tree without entries is just its path.
	var lines []string
	path := s
	if strings.Contains(s, separator) {
		var rest string
		rest, path, err = splitPath(s, KindTree)
		if err != nil {
			return nil, err
		}
		lines = strings.Split(rest, separator)
	}

	tree := &Tree{Path: path}
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			return nil, errors.Corrupted(fmt.Sprintf("malformed tree entry %q", line), nil)
		}
		entry := TreeEntry{Kind: Kind(fields[0]), Digest: Digest(fields[1]), Path: fields[2]}
		if entry.Kind != KindBlob && entry.Kind != KindTree {
			return nil, errors.Corrupted(fmt.Sprintf("tree entry has kind %q", entry.Kind), nil)
		}
		if !entry.Digest.Valid() {
			return nil, errors.Corrupted(fmt.Sprintf("tree entry has digest %q", entry.Digest), nil)
		}
		tree.Entries = append(tree.Entries, entry)
	}
	return tree, nil
}

// DecodeCommit parses a commit object.
func DecodeCommit(data []byte) (*Commit, error) {
	s, err := body(data, KindCommit)
	if err != nil {
		return nil, err
	}

	head, message, ok := strings.Cut(s, separator)
	if !ok {
		return nil, errors.Corrupted("commit has no message block", nil)
	}
	header := strings.Split(head, "\n")
	if len(header) != 2 {
		return nil, errors.Corrupted(fmt.Sprintf("commit header has %d lines", len(header)), nil)
	}
	tree, ok := strings.CutPrefix(header[0], "tree ")
	if !ok || !Digest(tree).Valid() {
		return nil, errors.Corrupted(fmt.Sprintf("malformed tree line %q", header[0]), nil)
	}
	parent, ok := strings.CutPrefix(header[1], "parent")
	if !ok {
		return nil, errors.Corrupted(fmt.Sprintf("malformed parent line %q", header[1]), nil)
	}
	parent = strings.TrimSpace(parent)
	if parent != "" && !Digest(parent).Valid() {
		return nil, errors.Corrupted(fmt.Sprintf("malformed parent digest %q", parent), nil)
	}

	return &Commit{
		Tree:    Digest(tree),
		Parent:  Digest(parent),
		Message: message,
	}, nil
}
