package models

import "time"

// IssueType classifies where a compatibility problem shows up.
type IssueType string

const (
	IssueClient IssueType = "client"
	IssueServer IssueType = "server"
	IssueBoth   IssueType = "both"
)

// Valid reports whether t is one of the known issue types.
func (t IssueType) Valid() bool {
	switch t {
	case IssueClient, IssueServer, IssueBoth:
		return true
	}
	return false
}

// ReactionType is a user's opinion of a review.
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// SystemSpecs describes the machine the reviewer tested on. All fields are free text.
type SystemSpecs struct {
	OS  string `json:"os"`
	CPU string `json:"cpu"`
	GPU string `json:"gpu"`
	RAM string `json:"ram"`
}

// ConflictingMod names another mod that clashes with the reviewed one.
type ConflictingMod struct {
	Name        string `json:"name" validate:"required"`
	CausesCrash bool   `json:"causesCrash"`
}

// ReactionTally holds aggregate like/dislike counters.
type ReactionTally struct {
	Likes    int `gorm:"not null;default:0" json:"likes"`
	Dislikes int `gorm:"not null;default:0" json:"dislikes"`
}

// Review is a compatibility report for a mod.
//
// UserReactions maps a user id (decimal string) to that user's current
// reaction; the number of like/dislike entries always equals Reactions.
type Review struct {
	ID               string                  `gorm:"primaryKey;size:64" json:"id"`
	ModID            string                  `gorm:"not null;index" json:"modId"`
	ModName          string                  `gorm:"not null" json:"modName"`
	UserID           uint                    `gorm:"not null;index" json:"userId"`
	Author           *ReviewAuthor           `gorm:"-" json:"user,omitempty"`
	MinecraftVersion string                  `json:"minecraftVersion"`
	ForgeVersion     string                  `json:"forgeVersion"`
	SystemSpecs      SystemSpecs             `gorm:"type:text;serializer:json" json:"systemSpecs"`
	IssueType        IssueType               `gorm:"size:16;not null" json:"issueType"`
	ConflictingMods  []ConflictingMod        `gorm:"type:text;serializer:json" json:"conflictingMods"`
	Description      string                  `gorm:"type:text;not null" json:"description"`
	Screenshot       string                  `json:"screenshot,omitempty"`
	Verified         bool                    `gorm:"not null;default:false" json:"verified"`
	Reactions        ReactionTally           `gorm:"embedded;embeddedPrefix:reaction_" json:"reactions"`
	UserReactions    map[string]ReactionType `gorm:"type:text;serializer:json" json:"userReactions"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

// ReviewAuthor is the public summary of a review's author.
type ReviewAuthor struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Image       string   `json:"image"`
	ReviewCount int      `json:"reviewCount"`
	Badges      []string `json:"badges"`
}
