package toys

import (
	"time"

	"github.com/ToySwap/TS-Backend/internal/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	StatusListed  = "listed"
	StatusSwapped = "swapped"
	StatusHidden  = "hidden"
)

var ValidConditions = map[string]struct{}{
	"new":      {},
	"like_new": {},
	"good":     {},
	"worn":     {},
}

type Toy struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     string          `gorm:"not null;index" json:"owner_id"`
	Title       string          `gorm:"not null" json:"title"`
	Slug        string          `gorm:"index" json:"slug"`
	Description string          `json:"description"`
	Category    string          `gorm:"index" json:"category"`
	Condition   string          `json:"condition"`
	AgeMin      int             `json:"age_min"`
	AgeMax      int             `json:"age_max"`
	City        string          `gorm:"index" json:"city"`
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lng"`
	ImageKeys   pq.StringArray  `gorm:"type:text[]" json:"image_keys"`
	Images      []storage.Grant `gorm:"-" json:"images"`
	Status      string          `gorm:"default:'listed';index" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Toy) TableName() string { return "app_toys.toys" }

// ObjectKeys / SetImageURLs let the storage pipeline enrich a toy's image
// keys into signed URLs in place.
func (t *Toy) ObjectKeys() []string                { return t.ImageKeys }
func (t *Toy) SetImageURLs(grants []storage.Grant) { t.Images = grants }

// Category rows come from the seed fixtures; listings reference them by slug.
type Category struct {
	Slug string `gorm:"primaryKey" json:"slug"`
	Name string `gorm:"not null" json:"name"`
}

func (Category) TableName() string { return "app_toys.categories" }

// ownerProfile reads the owner's location straight from the auth schema.
// Declared here to avoid importing the auth package for one lookup.
type ownerProfile struct {
	UserID string `gorm:"primaryKey"`
	City   string
	Lat    float64
	Lng    float64
}

func (ownerProfile) TableName() string { return "app_auth.users" }
