package policyopa

import (
	"testing"
	"testing/fstest"
)

func TestBundleHashIgnoresNonPolicyFiles(t *testing.T) {
	base := fstest.MapFS{
		"bundle/signing.rego":     {Data: []byte("package filechain.signing")},
		"bundle/nested/data.json": {Data: []byte(`{"reserved": ["system"]}`)},
	}
	want, err := ComputeBundleHashFromFS(base, "bundle")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	noisy := fstest.MapFS{
		"bundle/signing.rego":      base["bundle/signing.rego"],
		"bundle/nested/data.json":  base["bundle/nested/data.json"],
		"bundle/README.md":         {Data: []byte("docs")},
		"bundle/.hidden.rego":      {Data: []byte("package hidden")},
		"bundle/.git/objects.rego": {Data: []byte("package git")},
		"bundle/nested/other.json": {Data: []byte("{}")},
	}
	got, err := ComputeBundleHashFromFS(noisy, "bundle")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if got != want {
		t.Fatal("hidden and non-policy files must not affect the bundle hash")
	}
}

func TestBundleHashTracksContentAndPaths(t *testing.T) {
	hash := func(files fstest.MapFS) string {
		t.Helper()
		h, err := ComputeBundleHashFromFS(files, ".")
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		return h
	}
	original := hash(fstest.MapFS{"a.rego": {Data: []byte("package a")}})
	edited := hash(fstest.MapFS{"a.rego": {Data: []byte("package a\n")}})
	moved := hash(fstest.MapFS{"b.rego": {Data: []byte("package a")}})
	if original == edited || original == moved || edited == moved {
		t.Fatal("expected edits and renames to change the bundle hash")
	}
}
