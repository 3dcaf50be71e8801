package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissingFileIsNoop(t *testing.T) {
	t.Parallel()
	if err := LoadFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadFile missing file error: %v", err)
	}
}

func TestLoadFileParsesEntries(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"# credentials for local runs\n" +
		"BUDDY_TEST_PLAIN=loaded\n" +
		"BUDDY_TEST_QUOTED=\"hello world\"\n" +
		"BUDDY_TEST_SINGLE='quoted too'\n" +
		"export BUDDY_TEST_EXPORTED=ok\n" +
		"not a valid line\n" +
		"=novalue\n" +
		"BUDDY_TEST_EXISTING=from_file\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	for _, key := range []string{"BUDDY_TEST_PLAIN", "BUDDY_TEST_QUOTED", "BUDDY_TEST_SINGLE", "BUDDY_TEST_EXPORTED"} {
		key := key
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	t.Setenv("BUDDY_TEST_EXISTING", "already_set")

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	checks := map[string]string{
		"BUDDY_TEST_PLAIN":    "loaded",
		"BUDDY_TEST_QUOTED":   "hello world",
		"BUDDY_TEST_SINGLE":   "quoted too",
		"BUDDY_TEST_EXPORTED": "ok",
		"BUDDY_TEST_EXISTING": "already_set",
	}
	for key, want := range checks {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

func TestParseLine(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw string
		key string
		val string
		ok  bool
	}{
		{"KEY=value", "KEY", "value", true},
		{"  KEY = spaced  ", "KEY", "spaced", true},
		{"export KEY=v", "KEY", "v", true},
		{`KEY="wrapped"`, "KEY", "wrapped", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"no equals here", "", "", false},
		{"=orphan", "", "", false},
	}
	for _, tc := range cases {
		key, val, ok := parseLine(tc.raw)
		if key != tc.key || val != tc.val || ok != tc.ok {
			t.Fatalf("parseLine(%q)=%q/%q/%v, want %q/%q/%v",
				tc.raw, key, val, ok, tc.key, tc.val, tc.ok)
		}
	}
}
