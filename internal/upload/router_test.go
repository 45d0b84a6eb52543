package upload

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func explicit(container, key string) Request {
	return Request{Mode: ModeExplicit, Container: container, Key: key, Accept: "*/*"}
}

func TestRouteExplicit(t *testing.T) {
	r := NewRouter(RouterConfig{DefaultContainer: "inbox"})

	loc, err := r.Route(explicit("mybucket", "mykey"))
	require.NoError(t, err)
	assert.Equal(t, Location{Container: "mybucket", Key: "mykey"}, loc)

	loc, err = r.Route(explicit("mybucket", "orders/2024/01.xml"))
	require.NoError(t, err)
	assert.Equal(t, "orders/2024/01.xml", loc.Key)
}

func TestRouteExplicitRejects(t *testing.T) {
	r := NewRouter(RouterConfig{DefaultContainer: "inbox"})

	tests := []struct {
		name      string
		container string
		key       string
	}{
		{name: "missing container", container: "", key: "k"},
		{name: "missing key", container: "c", key: ""},
		{name: "both missing"},
		{name: "dot container", container: ".", key: "k"},
		{name: "dotdot container", container: "..", key: "k"},
		{name: "slash in container", container: "a/b", key: "k"},
		{name: "backslash in container", container: `a\b`, key: "k"},
		{name: "long container", container: strings.Repeat("c", maxContainerLen+1), key: "k"},
		{name: "traversal", container: "c", key: "../etc/passwd"},
		{name: "inner traversal", container: "c", key: "a/../../b"},
		{name: "dot segment", container: "c", key: "a/./b"},
		{name: "empty segment", container: "c", key: "a//b"},
		{name: "leading slash", container: "c", key: "/a"},
		{name: "trailing slash", container: "c", key: "a/"},
		{name: "backslash in key", container: "c", key: `a\b`},
		{name: "control character", container: "c", key: "a\nb"},
		{name: "invalid utf8", container: "c", key: "a\xffb"},
		{name: "long key", container: "c", key: strings.Repeat("k", maxKeyLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Route(explicit(tt.container, tt.key))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRequest))
		})
	}
}

func TestRouteRequiresAccept(t *testing.T) {
	r := NewRouter(RouterConfig{DefaultContainer: "inbox"})

	for _, mode := range []Mode{ModeExplicit, ModeGenerated} {
		_, err := r.Route(Request{Mode: mode, Container: "c", Key: "k", RequestID: "id"})
		assert.ErrorIs(t, err, ErrMalformedRequest, mode.String())
	}
}

func TestRouteAllowedContainers(t *testing.T) {
	r := NewRouter(RouterConfig{AllowedContainers: []string{"a", "b"}})

	_, err := r.Route(explicit("a", "k"))
	assert.NoError(t, err)
	_, err = r.Route(explicit("c", "k"))
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestRouteGenerated(t *testing.T) {
	r := NewRouter(RouterConfig{DefaultContainer: "inbox", KeyPrefix: "incoming/"})

	loc, err := r.Route(Request{
		Mode:      ModeGenerated,
		Container: "ignored",
		Key:       "ignored",
		RequestID: "req-1",
		Accept:    "application/json",
	})
	require.NoError(t, err)
	assert.Equal(t, Location{Container: "inbox", Key: "incoming/req-1"}, loc)
}

func TestRouteGeneratedWithoutRequestID(t *testing.T) {
	r := NewRouter(RouterConfig{DefaultContainer: "inbox", NewKey: func() string { return "fresh" }})

	loc, err := r.Route(Request{Mode: ModeGenerated, Accept: "*/*"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", loc.Key)
}

func TestRouteUnknownMode(t *testing.T) {
	r := NewRouter(RouterConfig{DefaultContainer: "inbox"})
	_, err := r.Route(Request{Mode: Mode(9), Accept: "*/*"})
	assert.ErrorIs(t, err, ErrMalformedRequest)
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestRouteGeneratedKeysAreUniqueUnderConcurrency(t *testing.T) {
	r := NewRouter(RouterConfig{DefaultContainer: "inbox"})

	const n = 500
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loc, err := r.Route(Request{Mode: ModeGenerated, Accept: "*/*"})
			if err == nil {
				keys <- loc.Key
			}
		}()
	}
	wg.Wait()
	close(keys)

	seen := make(map[string]struct{}, n)
	for k := range keys {
		_, dup := seen[k]
		require.False(t, dup, "duplicate generated key %q", k)
		seen[k] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestRouteExplicitPreservesValidLocations(t *testing.T) {
	r := NewRouter(RouterConfig{})
	segment := rapid.StringMatching(`[A-Za-z0-9_=+-][A-Za-z0-9._=+ -]{0,15}`).Filter(func(s string) bool {
		return s != "." && s != ".."
	})

	rapid.Check(t, func(t *rapid.T) {
		container := segment.Draw(t, "container")
		key := strings.Join(rapid.SliceOfN(segment, 1, 5).Draw(t, "segments"), "/")

		loc, err := r.Route(explicit(container, key))
		if err != nil {
			t.Fatalf("route %q/%q: %v", container, key, err)
		}
		if loc.Container != container || loc.Key != key {
			t.Fatalf("route %q/%q returned %+v", container, key, loc)
		}
	})
}
