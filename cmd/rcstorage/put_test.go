package main

import "testing"

func TestExtOf(t *testing.T) {
	cases := map[string]string{
		"readme.json":       ".json",
		"archive.tar.gz":     ".gz",
		"noext":              "",
		"dir/sub.yaml":       ".yaml",
		"dir.with.dot/sub":   "",
	}
	for in, want := range cases {
		if got := extOf(in); got != want {
			t.Errorf("extOf(%q) = %q, want %q", in, got, want)
		}
	}
}
