package bookmarks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type (
	// Bookmark is a record owned by exactly one user. ID and OwnerID are
	// immutable after creation; every store operation is scoped by OwnerID.
	Bookmark struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"user_id"`
		URL       string    `json:"url"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// Patch carries the optional fields of an update. Nil means "leave as is".
	Patch struct {
		URL   *string
		Title *string
	}

	// Store is the capability set shared by the durable (postgres) and
	// demo (in-memory) implementations. Handlers are written once against
	// this interface; the deployment mode picks the implementation at
	// startup.
	Store interface {
		// List returns the owner's bookmarks ordered by created_at
		// descending, newest first. Empty slice when none exist.
		List(ctx context.Context, ownerID string) ([]Bookmark, error)
		// Add validates url/title, assigns a fresh id and persists the
		// record with created_at == updated_at. Returns *ValidationError
		// on bad input; nothing is stored in that case.
		Add(ctx context.Context, ownerID, rawURL, title string) (*Bookmark, error)
		// Update applies a partial patch to an owned record. Missing and
		// foreign-owned records are both reported as ErrNotFound.
		Update(ctx context.Context, ownerID, id string, patch Patch) (*Bookmark, error)
		// Delete removes the record only if it is owned by ownerID. The
		// false return covers both "no such id" and "owned by someone
		// else" so existence of another user's record never leaks.
		Delete(ctx context.Context, ownerID, id string) (bool, error)
	}
)

// ValidationError reports malformed input to Add/Update. The record is
// never persisted when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ErrNotFound collapses "record does not exist" and "record belongs to a
// different owner" into one outcome.
var ErrNotFound = &notFoundError{}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "bookmark not found or unauthorized" }

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Reason: "url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &ValidationError{Reason: "url must be a well-formed absolute URL"}
	}
	return raw, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Reason: "title is required"}
	}
	return title, nil
}
