package seed

import (
	"fmt"
	"strings"

	"forgedb/internal/models"
	"forgedb/internal/validation"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ModFixture is one mod entry of a fixture file.
type ModFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	BannerURL   string `yaml:"bannerUrl"`
}

type fixtureFile struct {
	Mods []ModFixture `yaml:"mods"`
}

// LoadModFixtures reads a YAML file of the form
//
//	mods:
//	  - name: Create
//	    description: ...
//	    bannerUrl: https://images.pexels.com/...
//
// and returns validated mods with fresh ids.
func LoadModFixtures(fs afero.Fs, path string) ([]*models.Mod, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}

	mods := make([]*models.Mod, 0, len(file.Mods))
	for i, fx := range file.Mods {
		name := strings.TrimSpace(fx.Name)
		if name == "" || strings.TrimSpace(fx.Description) == "" {
			return nil, fmt.Errorf("fixture %d: name and description are required", i)
		}
		if err := validation.ValidateImageURL(fx.BannerURL); err != nil {
			return nil, fmt.Errorf("fixture %d (%s): %w", i, name, err)
		}
		mods = append(mods, &models.Mod{
			ID:          uuid.NewString(),
			Name:        name,
			Description: strings.TrimSpace(fx.Description),
			BannerURL:   strings.TrimSpace(fx.BannerURL),
		})
	}
	return mods, nil
}
