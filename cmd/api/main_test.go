package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerMinute(t *testing.T) {
	tests := []struct {
		limit  int
		window time.Duration
		want   int
	}{
		{10, time.Minute, 10},
		{10, 5 * time.Minute, 2},
		{10, 30 * time.Second, 20},
		{1, time.Hour, 1},
		{5, 0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, perMinute(tt.limit, tt.window), "%d per %s", tt.limit, tt.window)
	}
}
