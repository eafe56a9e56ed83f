//go:build !windows

package main

import (
	"context"
	"errors"
	"io"
)

var errUnsupported = errors.New("restlight only runs on Windows")

func runTray(ctx context.Context, opts *options) error { return errUnsupported }

func resetGamma(marker string) error { return errUnsupported }

func probe(w io.Writer) error { return errUnsupported }
