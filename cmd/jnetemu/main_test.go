// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"io"
	"testing"
	"time"
)

// Test_run exercises run for a short duration against loopback peers.
func Test_run(t *testing.T) {
	args = []string{
		"jnetemu",
		"-listen", "127.0.0.1:0",
		"-peer-a", "127.0.0.1:19001",
		"-peer-b", "127.0.0.1:19002",
	}
	output = io.Discard

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatal(err)
	}
}
