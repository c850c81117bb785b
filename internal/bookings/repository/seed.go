package repository

import (
	"fmt"
	"os"
	"spotbook/pkg/model"
	"spotbook/pkg/sanitizer"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML fixture loaded into the in-memory spot and user
// directories when running without Mongo.
type Seed struct {
	Spots []model.Spot `yaml:"spots"`
	Users []model.User `yaml:"users"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i := range seed.Spots {
		s := &seed.Spots[i]
		s.ID, s.OwnerID = sanitizer.NormalizeID(s.ID), sanitizer.NormalizeID(s.OwnerID)
		s.Name = sanitizer.NormalizeName(s.Name)
		if s.ID == "" || s.OwnerID == "" {
			return nil, fmt.Errorf("spot #%d: id and ownerId are required", i+1)
		}
	}
	for i := range seed.Users {
		u := &seed.Users[i]
		u.ID = sanitizer.NormalizeID(u.ID)
		u.FirstName, u.LastName = sanitizer.NormalizeName(u.FirstName), sanitizer.NormalizeName(u.LastName)
		if u.ID == "" {
			return nil, fmt.Errorf("user #%d: id is required", i+1)
		}
	}
	return &seed, nil
}
