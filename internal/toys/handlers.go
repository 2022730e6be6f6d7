package toys

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/slug"
	"github.com/ToySwap/TS-Backend/internal/storage"
	"github.com/ToySwap/TS-Backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// haversineSQL computes great-circle distance in km between a toy row and a
// point. Params: lat, lng, lat (in that order). LEAST guards acos from
// rounding slightly past 1.0.
const haversineSQL = `6371 * acos(LEAST(1.0,
	cos(radians(?)) * cos(radians(lat)) * cos(radians(lng) - radians(?)) +
	sin(radians(?)) * sin(radians(lat))))`

type createToyRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	AgeMin      int      `json:"age_min"`
	AgeMax      int      `json:"age_max"`
	ImageKeys   []string `json:"image_keys"`
}

func CreateToyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var body createToyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" {
		utils.WriteError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if _, ok := ValidConditions[body.Condition]; !ok {
		utils.WriteError(w, http.StatusBadRequest, "Condition must be one of: new, like_new, good, worn")
		return
	}
	if body.AgeMin < 0 || body.AgeMax < body.AgeMin {
		utils.WriteError(w, http.StatusBadRequest, "Invalid age range")
		return
	}
	if body.Category != "" {
		var cat Category
		if err := db.DB.First(&cat, "slug = ?", body.Category).Error; err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Unknown category")
			return
		}
	}

	// Listings inherit the owner's location at creation time.
	var owner ownerProfile
	if err := db.DB.First(&owner, "user_id = ?", userID).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Couldn't load owner profile")
		return
	}

	toy := Toy{
		ID:          uuid.New(),
		OwnerID:     userID,
		Title:       body.Title,
		Slug:        slug.From(body.Title),
		Description: body.Description,
		Category:    body.Category,
		Condition:   body.Condition,
		AgeMin:      body.AgeMin,
		AgeMax:      body.AgeMax,
		City:        owner.City,
		Lat:         owner.Lat,
		Lng:         owner.Lng,
		ImageKeys:   body.ImageKeys,
		Status:      StatusListed,
	}

	if err := db.DB.Create(&toy).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create listing")
		return
	}

	enrichToys(r, &toy)
	utils.WriteJSON(w, http.StatusCreated, toy)
}

func GetToyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid toy ID")
		return
	}

	var toy Toy
	if err := db.DB.First(&toy, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Toy not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load listing")
		return
	}

	enrichToys(r, &toy)
	utils.WriteJSON(w, http.StatusOK, toy)
}

func ListToysHandler(w http.ResponseWriter, r *http.Request) {
	q := db.DB.Model(&Toy{}).Where("status = ?", StatusListed)

	params := r.URL.Query()
	if city := params.Get("city"); city != "" {
		q = q.Where("LOWER(city) = LOWER(?)", city)
	}
	if category := params.Get("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if condition := params.Get("condition"); condition != "" {
		q = q.Where("condition = ?", condition)
	}
	if owner := params.Get("owner"); owner != "" {
		q = q.Where("owner_id = ?", owner)
	}
	if ageStr := params.Get("age"); ageStr != "" {
		age, err := strconv.Atoi(ageStr)
		if err != nil || age < 0 {
			utils.WriteError(w, http.StatusBadRequest, "Invalid age")
			return
		}
		q = q.Where("age_min <= ? AND age_max >= ?", age, age)
	}
	if near := params.Get("near"); near != "" {
		lat, lng, err := parseLatLng(near)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "near must be lat,lng")
			return
		}
		radius := 25.0 // km
		if radStr := params.Get("radius_km"); radStr != "" {
			radius, err = strconv.ParseFloat(radStr, 64)
			if err != nil || radius <= 0 {
				utils.WriteError(w, http.StatusBadRequest, "Invalid radius_km")
				return
			}
		}
		q = q.Where(haversineSQL+" <= ?", lat, lng, lat, radius)
	}

	limit, offset := pagination(params.Get("limit"), params.Get("offset"))

	var toys []Toy
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&toys).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load listings")
		return
	}

	enrichToySlice(r, toys)
	utils.WriteJSON(w, http.StatusOK, toys)
}

type updateToyRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Condition   *string   `json:"condition"`
	AgeMin      *int      `json:"age_min"`
	AgeMax      *int      `json:"age_max"`
	ImageKeys   *[]string `json:"image_keys"`
	Status      *string   `json:"status"`
}

func UpdateToyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid toy ID")
		return
	}

	var toy Toy
	if err := db.DB.First(&toy, "id = ?", id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Toy not found")
		return
	}
	if toy.OwnerID != userID {
		utils.WriteError(w, http.StatusForbidden, "Not your listing")
		return
	}

	var body updateToyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	updates := map[string]any{}
	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		if title == "" {
			utils.WriteError(w, http.StatusBadRequest, "Title can't be empty")
			return
		}
		updates["title"] = title
		updates["slug"] = slug.From(title)
	}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.Category != nil {
		if *body.Category != "" {
			var cat Category
			if err := db.DB.First(&cat, "slug = ?", *body.Category).Error; err != nil {
				utils.WriteError(w, http.StatusBadRequest, "Unknown category")
				return
			}
		}
		updates["category"] = *body.Category
	}
	if body.Condition != nil {
		if _, ok := ValidConditions[*body.Condition]; !ok {
			utils.WriteError(w, http.StatusBadRequest, "Condition must be one of: new, like_new, good, worn")
			return
		}
		updates["condition"] = *body.Condition
	}
	if body.AgeMin != nil {
		updates["age_min"] = *body.AgeMin
	}
	if body.AgeMax != nil {
		updates["age_max"] = *body.AgeMax
	}
	if body.ImageKeys != nil {
		updates["image_keys"] = pq.StringArray(*body.ImageKeys)
	}
	if body.Status != nil {
		switch *body.Status {
		case StatusListed, StatusSwapped, StatusHidden:
			updates["status"] = *body.Status
		default:
			utils.WriteError(w, http.StatusBadRequest, "Status must be one of: listed, swapped, hidden")
			return
		}
	}
	if len(updates) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	if err := db.DB.Model(&toy).Updates(updates).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to update listing")
		return
	}

	enrichToys(r, &toy)
	utils.WriteJSON(w, http.StatusOK, toy)
}

func DeleteToyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid toy ID")
		return
	}

	var toy Toy
	if err := db.DB.First(&toy, "id = ?", id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Toy not found")
		return
	}
	if toy.OwnerID != userID {
		utils.WriteError(w, http.StatusForbidden, "Not your listing")
		return
	}

	if err := db.DB.Delete(&toy).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to delete listing")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SimilarToysHandler recommends other listings: same category, overlapping
// age range, same city ranked ahead of farther ones. The caller's own
// listings and the toy itself never show up.
func SimilarToysHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid toy ID")
		return
	}

	var toy Toy
	if err := db.DB.First(&toy, "id = ?", id).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Toy not found")
		return
	}

	var similar []Toy
	err = db.DB.Model(&Toy{}).
		Where("status = ?", StatusListed).
		Where("id <> ?", toy.ID).
		Where("owner_id <> ?", userID).
		Where("category = ?", toy.Category).
		Where("age_min <= ? AND age_max >= ?", toy.AgeMax, toy.AgeMin).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "(LOWER(city) = LOWER(?)) DESC, " + haversineSQL + " ASC",
			Vars: []any{toy.City, toy.Lat, toy.Lng, toy.Lat},
		}}).
		Limit(10).
		Find(&similar).Error
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load recommendations")
		return
	}

	enrichToySlice(r, similar)
	utils.WriteJSON(w, http.StatusOK, similar)
}

// UploadURLHandler issues a signed PUT URL for a listing image. The client
// uploads directly to the bucket and sends the key back on create/update.
func UploadURLHandler(w http.ResponseWriter, r *http.Request) {
	type uploadRequest struct {
		ContentType string `json:"content_type"`
		Name        string `json:"name"`
	}

	var body uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ContentType == "" {
		utils.WriteError(w, http.StatusBadRequest, "content_type is required")
		return
	}

	svc, err := storage.Shared(r.Context())
	if err != nil {
		log.Println("building storage service:", err)
		utils.WriteError(w, http.StatusInternalServerError, "Image storage unavailable")
		return
	}

	grant, err := svc.SignWrite(r.Context(), body.ContentType, body.Name)
	if err != nil {
		if err == storage.ErrNotConfigured {
			utils.WriteError(w, http.StatusServiceUnavailable, "Image storage not configured")
			return
		}
		log.Println("signing upload URL:", err)
		utils.WriteError(w, http.StatusBadRequest, "Couldn't create upload URL")
		return
	}

	utils.WriteJSON(w, http.StatusOK, grant)
}

// enrichToys resolves image keys to signed URLs for a handful of toys.
// Unconfigured storage is not an error here: listings still render, just
// without image URLs.
func enrichToys(r *http.Request, toys ...*Toy) {
	svc, err := storage.Shared(r.Context())
	if err != nil {
		log.Println("building storage service:", err)
		return
	}
	if !svc.Configured() {
		return
	}

	entities := make([]storage.HasImageKeys, len(toys))
	for i, t := range toys {
		entities[i] = t
	}
	if err := svc.EnrichImages(r.Context(), entities); err != nil {
		log.Println("enriching image URLs:", err)
	}
}

func enrichToySlice(r *http.Request, toys []Toy) {
	ptrs := make([]*Toy, len(toys))
	for i := range toys {
		ptrs[i] = &toys[i]
	}
	enrichToys(r, ptrs...)
}

func parseLatLng(s string) (float64, float64, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, errors.New("missing comma")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return 0, 0, err
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, errors.New("out of range")
	}
	return lat, lng, nil
}

func pagination(limitStr, offsetStr string) (int, int) {
	limit := 20
	if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
		limit = n
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if n, err := strconv.Atoi(offsetStr); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}
