package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/AhmadKaify/Sanasend/config"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Errorf("Expected set to succeed, got %v", err)
	}
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Addr: addr})
	if err == nil {
		t.Error("Expected ping error, got nil")
	}
	if client == nil {
		t.Fatal("Expected client to be returned for fail-open use")
	}
	client.Close()
}
