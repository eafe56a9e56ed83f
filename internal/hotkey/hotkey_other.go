//go:build !windows

package hotkey

import "context"

// Run is only implemented on Windows.
func Run(ctx context.Context, bindings []Binding) error {
	return ErrUnsupported
}
