// Package models contains data structures for ForgeDB's domain models.
package models

import "time"

// Mod is a Minecraft mod that reviews are written against.
type Mod struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	Name        string `gorm:"not null;index" json:"name"`
	Description string `gorm:"type:text;not null" json:"description"`
	BannerURL   string `gorm:"not null" json:"bannerUrl"`
	// ReviewCount and AverageRating are derived from the mod's reviews.
	ReviewCount   int       `gorm:"not null;default:0" json:"reviewCount"`
	AverageRating float64   `gorm:"not null;default:0" json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IssueStats holds per-category percentages of a mod's reviews.
type IssueStats struct {
	Client int `json:"client"`
	Server int `json:"server"`
	Both   int `json:"both"`
}

// ConflictCount is one entry of the conflicting-mod ranking.
type ConflictCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ModStatistics is the aggregate attached to a mod detail response.
type ModStatistics struct {
	IssueStats      IssueStats      `json:"issueStats"`
	ConflictingMods []ConflictCount `json:"conflictingMods"`
}

// ModDetail is the payload of GET /api/mods/:id.
type ModDetail struct {
	Mod        *Mod          `json:"mod"`
	Reviews    []*Review     `json:"reviews"`
	Statistics ModStatistics `json:"statistics"`
}
