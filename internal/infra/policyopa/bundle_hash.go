package policyopa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
)

// ComputeBundleHashFromPath digests the policy files under dir. The hash
// changes when any .rego or data.json file is added, removed or edited.
func ComputeBundleHashFromPath(dir string) (string, error) {
	return ComputeBundleHashFromFS(os.DirFS(dir), ".")
}

// ComputeBundleHashFromFS hashes one "<relative path> <sha256>" line per
// policy file under root, in path order. Hidden files and directories are
// skipped.
func ComputeBundleHashFromFS(fsys fs.FS, root string) (string, error) {
	digests := map[string]string{}
	walk := func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case p == root:
			return nil
		case strings.HasPrefix(d.Name(), "."):
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		case d.IsDir() || !isPolicyFile(d.Name()):
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read policy file %s: %w", p, err)
		}
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, path.Clean(root)+"/")
		}
		digests[rel] = sha256Hex(data)
		return nil
	}
	if err := fs.WalkDir(fsys, root, walk); err != nil {
		return "", err
	}

	paths := make([]string, 0, len(digests))
	for p := range digests {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s %s\n", p, digests[p])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isPolicyFile(name string) bool {
	return name == "data.json" || strings.HasSuffix(name, ".rego")
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
