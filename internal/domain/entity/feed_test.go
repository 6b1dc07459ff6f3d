package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedResult_Text(t *testing.T) {
	ok := Succeeded("晴", "2024-03-05")
	assert.False(t, ok.IsDegraded())
	assert.Equal(t, "晴", ok.Text())

	bad := Degrade(ReasonRateLimited, "rate limit exceeded", "2024-03-05").WithCode(130)
	assert.True(t, bad.IsDegraded())
	assert.Equal(t, "rate limit exceeded", bad.Text())
	assert.Equal(t, 130, bad.Code)
	assert.Empty(t, bad.Content)
}

func TestReason_Retryable(t *testing.T) {
	assert.True(t, ReasonRateLimited.Retryable())
	assert.True(t, ReasonNetwork.Retryable())
	assert.False(t, ReasonNotConfigured.Retryable())
	assert.False(t, ReasonMalformed.Retryable())
}

func TestDigestSnapshot_Clone(t *testing.T) {
	snap := DigestSnapshot{FetchAttemptDay: "2024-03-05", Items: map[string]FeedResult{"Leo": Succeeded("好", "2024-03-05")}}

	c := snap.Clone()
	c.Items["Leo"] = Degrade(ReasonNetwork, TextNetworkFailure, "2024-03-05")
	c.Items["Aries"] = Succeeded("晴", "2024-03-05")

	assert.Len(t, snap.Items, 1)
	assert.Equal(t, "好", snap.Items["Leo"].Content)
	assert.Equal(t, snap.FetchAttemptDay, c.FetchAttemptDay)
}

func TestDigestSnapshot_DegradedCount(t *testing.T) {
	s := DigestSnapshot{Items: map[string]FeedResult{
		"Aries":  Succeeded("a", "2024-03-05"),
		"Taurus": Degrade(ReasonNetwork, "network error", "2024-03-05"),
	}}
	assert.Equal(t, 1, s.DegradedCount())
}
