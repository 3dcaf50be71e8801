package session

import "testing"

func TestRegistryCreateLookupDestroy(t *testing.T) {
	reg := NewRegistry(testLogger(), nil, 0)
	out := &recordingTransport{}

	s := reg.Create("abc", out)
	if s.ID != "abc" || s.CreatedAt.IsZero() {
		t.Fatalf("created session=%+v", s)
	}
	if got := reg.Lookup("abc"); got != s {
		t.Fatalf("Lookup returned %p, want %p", got, s)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len=%d, want 1", reg.Len())
	}

	if got := reg.Destroy("abc"); got != s {
		t.Fatalf("Destroy returned %p, want %p", got, s)
	}
	if reg.Lookup("abc") != nil {
		t.Fatalf("Lookup after Destroy != nil")
	}
	if got := reg.Destroy("abc"); got != nil {
		t.Fatalf("second Destroy=%p, want nil", got)
	}
}

func TestSetCredentialOverridesFiltersAndReplaces(t *testing.T) {
	reg := NewRegistry(testLogger(), map[string]string{"GEMINI_API_KEY": "proc-default"}, 0)
	reg.Create("abc", &recordingTransport{})

	reg.SetCredentialOverrides("abc", map[string]any{
		"gemini_api_key": "session-key",
		"tavily_api_key": 42,
		"murf_api_key":   "",
	})
	if got := reg.ResolveCredential("abc", "gemini_api_key"); got != "session-key" {
		t.Fatalf("gemini override=%q, want session-key", got)
	}
	if got := reg.ResolveCredential("abc", "TAVILY_API_KEY"); got != "" {
		t.Fatalf("non-string override=%q, want dropped", got)
	}
	if got := reg.ResolveCredential("abc", "MURF_API_KEY"); got != "" {
		t.Fatalf("empty override=%q, want dropped", got)
	}

	// A second call replaces the whole map.
	reg.SetCredentialOverrides("abc", map[string]any{"tavily_api_key": "tv"})
	if got := reg.ResolveCredential("abc", "GEMINI_API_KEY"); got != "proc-default" {
		t.Fatalf("after replace gemini=%q, want process default", got)
	}
	if got := reg.ResolveCredential("abc", "TAVILY_API_KEY"); got != "tv" {
		t.Fatalf("after replace tavily=%q, want tv", got)
	}
}

func TestSetCredentialOverridesUnknownSessionIsNoop(t *testing.T) {
	reg := NewRegistry(testLogger(), nil, 0)
	// Must not panic.
	reg.SetCredentialOverrides("ghost", map[string]any{"gemini_api_key": "x"})
}

func TestResolveCredentialOrder(t *testing.T) {
	reg := NewRegistry(testLogger(), map[string]string{"ASSEMBLYAI_API_KEY": "default-aai"}, 0)

	// Unknown session falls back to the process default.
	if got := reg.ResolveCredential("ghost", "assemblyai_api_key"); got != "default-aai" {
		t.Fatalf("default resolution=%q, want default-aai", got)
	}
	if got := reg.ResolveCredential("ghost", "NO_SUCH_KEY"); got != "" {
		t.Fatalf("unknown name=%q, want empty", got)
	}

	reg.Create("abc", &recordingTransport{})
	reg.SetCredentialOverrides("abc", map[string]any{"assemblyai_api_key": "mine"})
	if got := reg.ResolveCredential("abc", "ASSEMBLYAI_API_KEY"); got != "mine" {
		t.Fatalf("override resolution=%q, want mine", got)
	}
}
