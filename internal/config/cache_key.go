package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestPaperKey returns the cache key for a test's candidate-facing question paper.
func (r *CacheKeyStruct) TestPaperKey(testID int64) string {
	return fmt.Sprintf("test:%d:paper", testID)
}

// SessionIntegrityChannel returns the Redis PubSub channel for a session's integrity events.
func (r *CacheKeyStruct) SessionIntegrityChannel(sessionID int64) string {
	return fmt.Sprintf("session:%d:integrity", sessionID)
}

var CacheKey = NewCacheKeyStruct()
