package redis

import "testing"

func TestEscapeGlob(t *testing.T) {
	cases := map[string]string{
		"users:":   "users:",
		"a*b":      `a\*b`,
		"q?[x]":    `q\?\[x\]`,
		`back\sl`:  `back\\sl`,
		"":         "",
	}
	for in, want := range cases {
		if got := escapeGlob(in); got != want {
			t.Fatalf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}
