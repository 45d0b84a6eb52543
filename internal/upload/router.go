package upload

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// ErrMalformedRequest is a client error; nothing has been written when it is returned.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrStoreWrite wraps a failed put against the object store.
	ErrStoreWrite = errors.New("store write failed")
)

const (
	maxContainerLen = 255
	maxKeyLen       = 1024
)

// Mode selects how an upload is addressed.
type Mode int

const (
	// ModeExplicit takes container and key from the caller.
	ModeExplicit Mode = iota
	// ModeGenerated writes to the default container under a fresh per-request key.
	ModeGenerated
)

func (m Mode) String() string {
	switch m {
	case ModeExplicit:
		return "explicit"
	case ModeGenerated:
		return "generated"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Location is where an upload ends up.
type Location struct {
	Container string `json:"container"`
	Key       string `json:"key"`
}

// Request is an inbound write. Container and Key are only read in ModeExplicit.
type Request struct {
	Mode            Mode
	Container       string
	Key             string
	RequestID       string
	Accept          string
	ContentType     string
	ContentEncoding string
}

// RouterConfig configures a Router.
type RouterConfig struct {
	DefaultContainer string
	// AllowedContainers restricts explicit uploads; empty allows any valid name.
	AllowedContainers []string
	// KeyPrefix is prepended to generated keys.
	KeyPrefix string
	// NewKey generates keys when a request carries no request ID. Defaults to UUIDv4.
	NewKey func() string
}

// Router decides the storage location of an upload.
type Router struct {
	defaultContainer string
	allowed          []string
	keyPrefix        string
	newKey           func() string
}

// NewRouter constructs a Router.
func NewRouter(cfg RouterConfig) *Router {
	newKey := cfg.NewKey
	if newKey == nil {
		newKey = uuid.NewString
	}
	return &Router{
		defaultContainer: cfg.DefaultContainer,
		allowed:          cfg.AllowedContainers,
		keyPrefix:        cfg.KeyPrefix,
		newKey:           newKey,
	}
}

// Route validates req and returns its target location. Every error wraps
// ErrMalformedRequest.
func (r *Router) Route(req Request) (Location, error) {
	if strings.TrimSpace(req.Accept) == "" {
		return Location{}, fmt.Errorf("%w: Accept header is required", ErrMalformedRequest)
	}

	switch req.Mode {
	case ModeExplicit:
		if err := r.checkContainer(req.Container); err != nil {
			return Location{}, err
		}
		if err := checkKey(req.Key); err != nil {
			return Location{}, err
		}
		return Location{Container: req.Container, Key: req.Key}, nil

	case ModeGenerated:
		id := req.RequestID
		if id == "" {
			id = r.newKey()
		}
		return Location{Container: r.defaultContainer, Key: r.keyPrefix + id}, nil

	default:
		return Location{}, fmt.Errorf("%w: unknown routing mode %s", ErrMalformedRequest, req.Mode)
	}
}

func (r *Router) checkContainer(name string) error {
	if name == "" {
		return fmt.Errorf("%w: container is required", ErrMalformedRequest)
	}
	if len(name) > maxContainerLen {
		return fmt.Errorf("%w: container exceeds %d bytes", ErrMalformedRequest, maxContainerLen)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || hasUnsafeRune(name) {
		return fmt.Errorf("%w: invalid container %q", ErrMalformedRequest, name)
	}
	if len(r.allowed) > 0 && !slices.Contains(r.allowed, name) {
		return fmt.Errorf("%w: container %q is not accepted", ErrMalformedRequest, name)
	}
	return nil
}

func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrMalformedRequest)
	}
	if len(key) > maxKeyLen {
		return fmt.Errorf("%w: key exceeds %d bytes", ErrMalformedRequest, maxKeyLen)
	}
	if strings.Contains(key, `\`) || hasUnsafeRune(key) {
		return fmt.Errorf("%w: invalid key %q", ErrMalformedRequest, key)
	}
	for _, seg := range strings.Split(key, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: key %q has an empty path segment", ErrMalformedRequest, key)
		case ".", "..":
			return fmt.Errorf("%w: key %q contains a relative path segment", ErrMalformedRequest, key)
		}
	}
	return nil
}

func hasUnsafeRune(s string) bool {
	if !utf8.ValidString(s) {
		return true
	}
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
