package faceauth

import (
	"encoding/json"
	"fmt"
	"time"

	"faceguard.io/application/utils"
	"faceguard.io/infrastructure/database/repository/cache"
	"faceguard.io/infrastructure/logger"
)

const (
	ChallengeBlink         = "blink"
	ChallengeTurnHeadLeft  = "turn_head_left"
	ChallengeTurnHeadRight = "turn_head_right"
	ChallengeNod           = "nod"
	ChallengeOpenMouth     = "open_mouth"
)

var challengePool = []string{
	ChallengeBlink,
	ChallengeTurnHeadLeft,
	ChallengeTurnHeadRight,
	ChallengeNod,
	ChallengeOpenMouth,
}

// Challenge is a one-time set of actions a subject must perform during a
// streaming liveness session.
type Challenge struct {
	ID        string    `json:"id"`
	Actions   []string  `json:"actions"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
}

func (challenge *Challenge) Expired(now time.Time) bool {
	return now.After(challenge.ExpiresAt)
}

type ChallengeStore interface {
	SaveChallenge(challenge Challenge, ttl time.Duration) bool
	FindChallenge(id string) *Challenge
	MarkChallengeUsed(id string) bool
}

// RedisChallengeStore keeps challenges in redis under a TTL matching their
// expiry, so stale challenges clean themselves up.
type RedisChallengeStore struct {
	Cache *cache.RedisRepository
}

func challengeKey(id string) string {
	return fmt.Sprintf("liveness-challenge-%s", id)
}

func (store *RedisChallengeStore) SaveChallenge(challenge Challenge, ttl time.Duration) bool {
	payload, err := json.Marshal(challenge)
	if err != nil {
		logger.Error("failed to marshal liveness challenge", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return false
	}
	return store.Cache.CreateEntry(challengeKey(challenge.ID), payload, ttl)
}

func (store *RedisChallengeStore) FindChallenge(id string) *Challenge {
	raw := store.Cache.FindOneByteArray(challengeKey(id))
	if raw == nil {
		return nil
	}
	var challenge Challenge
	if err := json.Unmarshal(*raw, &challenge); err != nil {
		logger.Error("failed to unmarshal liveness challenge", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "challengeID",
			Data: id,
		})
		return nil
	}
	return &challenge
}

func (store *RedisChallengeStore) MarkChallengeUsed(id string) bool {
	challenge := store.FindChallenge(id)
	if challenge == nil {
		return false
	}
	challenge.Used = true
	remaining := time.Until(challenge.ExpiresAt)
	if remaining <= 0 {
		return false
	}
	return store.SaveChallenge(*challenge, remaining)
}

var _ ChallengeStore = (*RedisChallengeStore)(nil)

func newChallenge(ttl time.Duration, actionCount int) Challenge {
	now := time.Now()
	actions := utils.PickRandomStrings(challengePool, actionCount)
	return Challenge{
		ID:        utils.GenerateULIDString(),
		Actions:   actions,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
