// Package ffmpeg provides a transcode.Transcoder backed by the ffmpeg
// command-line tool. It implements the transcode.Transcoder interface.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/profai/lectern/pkg/provider/transcode"
)

const (
	// defaultTimeout bounds a single conversion. Utterance recordings are a
	// few seconds long, so conversion normally completes well under a second.
	defaultTimeout = 30 * time.Second

	// targetExt is the container format viseme extraction requires.
	targetExt = ".wav"

	stderrTailLimit = 512
)

// Option is a functional option for configuring the Transcoder.
type Option func(*Transcoder)

// WithTimeout overrides the per-conversion deadline. Zero disables the
// internal deadline; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcoder) { t.timeout = d }
}

// Transcoder implements transcode.Transcoder by shelling out to ffmpeg.
type Transcoder struct {
	binPath string
	timeout time.Duration
}

// Compile-time assertion that Transcoder satisfies transcode.Transcoder.
var _ transcode.Transcoder = (*Transcoder)(nil)

// New creates a Transcoder using the ffmpeg binary at binPath. If binPath
// has no path separators it is resolved via $PATH; either way the binary
// must be resolvable when New is called so misconfiguration fails at startup.
func New(binPath string, opts ...Option) (*Transcoder, error) {
	if binPath == "" {
		return nil, errors.New("ffmpeg: binary path must not be empty")
	}
	if strings.ContainsRune(binPath, os.PathSeparator) {
		if _, err := os.Stat(binPath); err != nil {
			return nil, fmt.Errorf("ffmpeg: binary not found at %q: %w", binPath, err)
		}
	} else if _, err := exec.LookPath(binPath); err != nil {
		return nil, fmt.Errorf("ffmpeg: binary %q not in PATH: %w", binPath, err)
	}

	t := &Transcoder{
		binPath: binPath,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcode implements transcode.Transcoder. The destination is the source
// path with its extension replaced by .wav; -y overwrites it on reruns.
func (t *Transcoder) Transcode(ctx context.Context, srcPath string) (string, error) {
	if _, err := os.Stat(srcPath); err != nil {
		return "", fmt.Errorf("ffmpeg: source: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	dst := DerivePath(srcPath)
	args := []string{
		"-y",
		"-nostdin",
		"-hide_banner", "-loglevel", "error",
		"-i", srcPath,
		dst,
	}

	cmd := exec.CommandContext(ctx, t.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ffmpeg: conversion aborted: %w", ctxErr)
		}
		return "", fmt.Errorf("ffmpeg: %w (stderr: %s)", err, stderrTail(stderr.String()))
	}
	return dst, nil
}

// DerivePath returns srcPath with its extension replaced by the target
// extension. A source without an extension simply gains one.
func DerivePath(srcPath string) string {
	return strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + targetExt
}

// stderrTail returns the last stderrTailLimit bytes of s, trimmed.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
