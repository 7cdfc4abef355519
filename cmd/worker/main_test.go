package main

import "testing"

func TestRunNeedsRedisQueue(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("QUEUE_BACKEND", "memory")
	if code := run(); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
