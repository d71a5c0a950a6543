// Package upload publishes artifact files and returns links to them.
package upload

import (
	"context"
	"fmt"
)

// Uploader stores dir/file somewhere reachable from the review system and
// returns its URL.
type Uploader interface {
	Upload(ctx context.Context, dir, file string) (string, error)
}

// Nop uploads nothing. Used for local runs.
type Nop struct{}

// Upload implements Uploader and always returns an empty URL.
func (Nop) Upload(context.Context, string, string) (string, error) { return "", nil }

// FormatURL wraps url in the escape sequence Buildkite renders as a link.
func FormatURL(url string) string {
	return fmt.Sprintf("\033]1339;url='%s'\a", url)
}
