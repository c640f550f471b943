//go:build !llama

package engine

// No-CGO stub compiled when the 'llama' build tag is not set. It keeps
// default builds and CI CGO-free and fails fast instead of mocking
// generation in production binaries.

import "errors"

var llamaBuilt = false

func newAdapter(cfg Config) (Adapter, error) {
	return nil, errors.New("llama support not built (missing 'llama' build tag)")
}
