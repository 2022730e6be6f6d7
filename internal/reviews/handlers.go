package reviews

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func CreateReviewHandler(w http.ResponseWriter, r *http.Request) {
	type createRequest struct {
		SubjectID string     `json:"subject_id"`
		ToyID     *uuid.UUID `json:"toy_id"`
		Rating    int        `json:"rating"`
		Comment   string     `json:"comment"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if body.SubjectID == "" {
		utils.WriteError(w, http.StatusBadRequest, "subject_id is required")
		return
	}
	if body.SubjectID == userID {
		utils.WriteError(w, http.StatusBadRequest, "Can't review yourself")
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		utils.WriteError(w, http.StatusBadRequest, "Rating must be 1-5")
		return
	}

	// One review per reviewer/subject/toy triple. This check is a fast
	// path; the unique indexes catch concurrent inserts.
	var existing Review
	q := db.DB.Where("reviewer_id = ? AND subject_id = ?", userID, body.SubjectID)
	if body.ToyID != nil {
		q = q.Where("toy_id = ?", *body.ToyID)
	} else {
		q = q.Where("toy_id IS NULL")
	}
	if err := q.First(&existing).Error; err == nil {
		utils.WriteError(w, http.StatusConflict, "Already reviewed")
		return
	}

	review := Review{
		ID:         uuid.New(),
		ReviewerID: userID,
		SubjectID:  body.SubjectID,
		ToyID:      body.ToyID,
		Rating:     body.Rating,
		Comment:    strings.TrimSpace(body.Comment),
	}
	if err := db.DB.Create(&review).Error; err != nil {
		if isUniqueViolation(err) {
			utils.WriteError(w, http.StatusConflict, "Already reviewed")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create review")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, review)
}

type UserReviewsResponse struct {
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"average_rating"`
	Count         int64    `json:"count"`
}

func ListUserReviewsHandler(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "id")
	if subjectID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing user ID")
		return
	}

	var reviews []Review
	if err := db.DB.
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load reviews")
		return
	}

	resp := UserReviewsResponse{Reviews: reviews, Count: int64(len(reviews))}
	if len(reviews) > 0 {
		var sum int
		for _, review := range reviews {
			sum += review.Rating
		}
		resp.AverageRating = float64(sum) / float64(len(reviews))
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
