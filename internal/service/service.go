// Package service implements ForgeDB's use cases on top of the repositories.
package service

import (
	"context"
	"strconv"
)

// EventPublisher sends live events to clients watching a mod.
type EventPublisher interface {
	PublishModEvent(ctx context.Context, modID, eventType string, payload any) error
}

// AdminCheck reports whether userID has admin rights.
type AdminCheck func(ctx context.Context, userID uint) (bool, error)

// DefaultAvatarURL is the avatar used for users who never set one.
func DefaultAvatarURL(userID uint) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + strconv.FormatUint(uint64(userID), 10)
}

func userKey(userID uint) string {
	if userID == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(userID), 10)
}
