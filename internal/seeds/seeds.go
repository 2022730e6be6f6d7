// Package seeds loads the YAML fixtures that bootstrap a fresh database:
// the category catalog plus optional demo users and listings.
package seeds

import (
	"fmt"
	"os"

	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/slug"
	"github.com/ToySwap/TS-Backend/internal/toys"
	"github.com/ToySwap/TS-Backend/internal/utils"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

type Fixture struct {
	Categories []CategoryFixture `yaml:"categories"`
	Users      []UserFixture     `yaml:"users"`
	Toys       []ToyFixture      `yaml:"toys"`
}

type CategoryFixture struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

type UserFixture struct {
	Username string  `yaml:"username"`
	Password string  `yaml:"password"`
	City     string  `yaml:"city"`
	Lat      float64 `yaml:"lat"`
	Lng      float64 `yaml:"lng"`
}

type ToyFixture struct {
	Owner       string   `yaml:"owner"` // username
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Condition   string   `yaml:"condition"`
	AgeMin      int      `yaml:"age_min"`
	AgeMax      int      `yaml:"age_max"`
	ImageKeys   []string `yaml:"image_keys"`
}

// seededUser mirrors the columns we insert into app_auth.users without
// importing the auth package (seeds run before any request handling).
type seededUser struct {
	UserID         string
	Username       string
	HashedPassword string
	City           string
	Lat            float64
	Lng            float64
}

func (seededUser) TableName() string { return "app_auth.users" }

// Load parses one fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}

	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &fx, nil
}

// Apply upserts the fixture into the database. Categories conflict on slug;
// users and toys are skipped when they already exist.
func Apply(fx *Fixture) error {
	for _, c := range fx.Categories {
		cat := toys.Category{Slug: c.Slug, Name: c.Name}
		if err := db.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&cat).Error; err != nil {
			return fmt.Errorf("seeding category %q: %w", c.Slug, err)
		}
	}

	userIDs := make(map[string]string, len(fx.Users))
	for _, u := range fx.Users {
		var existing seededUser
		if err := db.DB.First(&existing, "username = ?", u.Username).Error; err == nil {
			userIDs[u.Username] = existing.UserID
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password for %q: %w", u.Username, err)
		}

		user := seededUser{
			UserID:         utils.GenerateUUID(),
			Username:       u.Username,
			HashedPassword: string(hashed),
			City:           u.City,
			Lat:            u.Lat,
			Lng:            u.Lng,
		}
		if err := db.DB.Create(&user).Error; err != nil {
			return fmt.Errorf("seeding user %q: %w", u.Username, err)
		}
		userIDs[u.Username] = user.UserID
	}

	for _, t := range fx.Toys {
		ownerID, ok := userIDs[t.Owner]
		if !ok {
			return fmt.Errorf("toy %q references unknown owner %q", t.Title, t.Owner)
		}

		var count int64
		db.DB.Model(&toys.Toy{}).
			Where("owner_id = ? AND title = ?", ownerID, t.Title).
			Count(&count)
		if count > 0 {
			continue
		}

		owner := fixtureUser(fx.Users, t.Owner)
		toy := toys.Toy{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			Title:       t.Title,
			Slug:        slug.From(t.Title),
			Description: t.Description,
			Category:    t.Category,
			Condition:   t.Condition,
			AgeMin:      t.AgeMin,
			AgeMax:      t.AgeMax,
			City:        owner.City,
			Lat:         owner.Lat,
			Lng:         owner.Lng,
			ImageKeys:   t.ImageKeys,
			Status:      toys.StatusListed,
		}
		if err := db.DB.Create(&toy).Error; err != nil {
			return fmt.Errorf("seeding toy %q: %w", t.Title, err)
		}
	}

	return nil
}

func fixtureUser(users []UserFixture, username string) UserFixture {
	for _, u := range users {
		if u.Username == username {
			return u
		}
	}
	return UserFixture{}
}
