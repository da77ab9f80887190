// Package seed creates demo data for development: fake users, mods,
// reviews and reactions, mods loaded from YAML fixtures and the admin account.
package seed

import (
	"fmt"
	"strings"
	"time"

	"forgedb/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var (
	minecraftVersions = []string{"1.16.5", "1.18.2", "1.19.2", "1.20.1", "1.20.4", "1.21.1"}
	forgeVersions     = []string{"36.2.39", "40.2.0", "43.3.0", "47.2.0", "49.0.30", "52.0.16"}
	operatingSystems  = []string{"Windows 11", "Windows 10", "Ubuntu 24.04", "Arch Linux", "macOS 14"}
	cpus              = []string{"Ryzen 5 5600X", "Ryzen 7 7800X3D", "Core i5-12400F", "Core i7-13700K", "Apple M2"}
	gpus              = []string{"RTX 3060", "RTX 4070", "RX 6700 XT", "GTX 1660 Super", "Intel Arc A750"}
	rams              = []string{"8GB", "16GB", "32GB", "64GB"}
	knownMods         = []string{
		"Optifine", "Sodium", "Create", "JEI", "Biomes O' Plenty", "Twilight Forest",
		"Applied Energistics 2", "Mekanism", "Botania", "Thermal Expansion", "Waystones", "Iris",
	}
	issueTypes = []models.IssueType{models.IssueClient, models.IssueServer, models.IssueBoth}
	badgePool  = []string{"early-adopter", "modpack-author", "bug-hunter", "server-admin"}
)

// Factory builds fake entities. It never touches storage.
type Factory struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewFactory returns a factory. A zero seed picks a random one.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: time.Now}
}

// BuildUser returns a verified user with the given password hash.
func (f *Factory) BuildUser(passwordHash string) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		Email:      fmt.Sprintf("%s.%s.%d@example.com", slug(first), slug(last), f.faker.Number(100, 9999)),
		Name:       first + " " + last,
		Password:   passwordHash,
		Avatar:     "https://api.dicebear.com/7.x/avataaars/svg?seed=" + f.faker.UUID(),
		IsVerified: true,
		Badges:     []string{},
	}
	if f.faker.Number(1, 4) == 1 {
		user.Badges = append(user.Badges, f.faker.RandomString(badgePool))
	}
	return user
}

// BuildMod returns a mod with an allow-listed banner.
func (f *Factory) BuildMod() *models.Mod {
	name := f.faker.AppName()
	return &models.Mod{
		ID:          uuid.NewString(),
		Name:        name,
		Description: f.faker.Paragraph(1, 3, 12, " "),
		BannerURL:   fmt.Sprintf("https://images.pexels.com/photos/%d/pexels-photo-%d.jpeg", f.faker.Number(1000, 99999), f.faker.Number(1000, 99999)),
	}
}

// BuildReview returns a review of mod by userID with zero reactions and a
// creation time within the last maxDays days.
func (f *Factory) BuildReview(mod *models.Mod, userID uint, maxDays int) *models.Review {
	if maxDays <= 0 {
		maxDays = 90
	}
	conflicts := make([]models.ConflictingMod, 0, 3)
	for i := f.faker.Number(0, 3); i > 0; i-- {
		conflicts = append(conflicts, models.ConflictingMod{
			Name:        f.faker.RandomString(knownMods),
			CausesCrash: f.faker.Bool(),
		})
	}

	age := time.Duration(f.faker.Number(0, maxDays*24)) * time.Hour
	return &models.Review{
		ID:               uuid.NewString(),
		ModID:            mod.ID,
		ModName:          mod.Name,
		UserID:           userID,
		MinecraftVersion: f.faker.RandomString(minecraftVersions),
		ForgeVersion:     f.faker.RandomString(forgeVersions),
		SystemSpecs: models.SystemSpecs{
			OS:  f.faker.RandomString(operatingSystems),
			CPU: f.faker.RandomString(cpus),
			GPU: f.faker.RandomString(gpus),
			RAM: f.faker.RandomString(rams),
		},
		IssueType:       issueTypes[f.faker.Number(0, len(issueTypes)-1)],
		ConflictingMods: conflicts,
		Description:     f.faker.Paragraph(1, 2, 14, " "),
		Verified:        f.faker.Number(1, 5) == 1,
		UserReactions:   map[string]models.ReactionType{},
		CreatedAt:       f.now().Add(-age),
	}
}

// slug keeps only lower-case ASCII letters and digits.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

// PickReaction returns a random reaction, weighted towards likes.
func (f *Factory) PickReaction() models.ReactionType {
	if f.faker.Number(1, 10) <= 7 {
		return models.ReactionLike
	}
	return models.ReactionDislike
}
