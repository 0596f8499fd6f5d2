// Package expertsapi serves the external-expert directory:
//
//	GET    /api/experts                      - list (search, filters, pagination)
//	POST   /api/experts                      - create
//	GET    /api/experts/{id}                 - detail
//	PUT    /api/experts/{id}                 - update
//	DELETE /api/experts/{id}                 - soft delete
//	GET    /api/experts/stats/top-rated      - best-rated experts
//	GET    /api/experts/stats/by-expertise   - expertise breakdown
//	GET    /api/experts/export/csv           - CSV export
//
// Expert bios may carry limited rich text; every other text field is
// stripped to plain text before storage.
package expertsapi

import (
	"errors"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/engagehub/internal/app/features/errors"
	"github.com/dalemusser/engagehub/internal/app/store/activity"
	expertstore "github.com/dalemusser/engagehub/internal/app/store/experts"
	"github.com/dalemusser/engagehub/internal/app/store/storeutil"
	"github.com/dalemusser/engagehub/internal/app/system/activitylog"
	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/dalemusser/engagehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
	"github.com/dalemusser/engagehub/internal/app/system/normalize"
	"github.com/dalemusser/engagehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Handler struct {
	experts  *expertstore.Store
	recorder *activitylog.Recorder
	errLog   *errorsfeature.ErrorLogger
}

func NewHandler(db *mongo.Database, recorder *activitylog.Recorder, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{
		experts:  expertstore.New(db),
		recorder: recorder,
		errLog:   errLog,
	}
}

// expertInput is the request payload for create and update. Pointers
// distinguish "absent" from "set to empty" on update.
type expertInput struct {
	Name         *string             `json:"name"`
	Email        *string             `json:"email"`
	Phone        *string             `json:"phone"`
	Company      *string             `json:"company"`
	Position     *string             `json:"position"`
	Expertise    *[]string           `json:"expertise"`
	Bio          *string             `json:"bio"`
	ImageURL     *string             `json:"image_url"`
	Address      *string             `json:"address"`
	Social       *models.SocialLinks `json:"social_links"`
	Availability *string             `json:"availability"`
}

// sanitize scrubs all text fields in place. Bio keeps limited markup;
// everything else is reduced to plain text.
func (in *expertInput) sanitize() {
	plain := func(p *string) {
		if p != nil {
			*p = htmlsanitize.PlainText(*p)
		}
	}
	plain(in.Name)
	plain(in.Phone)
	plain(in.Company)
	plain(in.Position)
	plain(in.Address)
	if in.Bio != nil {
		*in.Bio = htmlsanitize.RichText(*in.Bio)
	}
	if in.Expertise != nil {
		cleaned := make([]string, 0, len(*in.Expertise))
		for _, area := range *in.Expertise {
			if area = htmlsanitize.PlainText(area); area != "" {
				cleaned = append(cleaned, area)
			}
		}
		*in.Expertise = cleaned
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := bson.M{}
	if search := normalize.QueryParam(q.Get("search")); search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"company": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"expertise": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if expertise := normalize.QueryParam(q.Get("expertise")); expertise != "" {
		filter["expertise"] = expertise
	}
	if availability := normalize.Status(q.Get("availability")); availability != "" {
		filter["availability"] = availability
	}

	limit := parseInt64(q.Get("limit"), 20)
	page := parseInt64(q.Get("page"), 1)

	total, err := h.experts.Count(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to count experts", err)
		jsonutil.InternalError(w, "Failed to list experts")
		return
	}

	// Count injects is_active into the filter map; Find would too, but
	// build options fresh so pagination and sort stay explicit here.
	opts := storeutil.Paginate(limit, page).SetSort(bson.D{{Key: "name", Value: 1}})
	experts, err := h.experts.Find(r.Context(), filter, opts)
	if err != nil {
		h.errLog.Log(r, "failed to list experts", err)
		jsonutil.InternalError(w, "Failed to list experts")
		return
	}

	jsonutil.OK(w, map[string]any{
		"experts": experts,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid expert ID")
		return
	}

	expert, err := h.experts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Expert not found")
			return
		}
		h.errLog.Log(r, "failed to load expert", err)
		jsonutil.InternalError(w, "Failed to load expert")
		return
	}
	jsonutil.OK(w, expert)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in expertInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	in.sanitize()

	if in.Name == nil || *in.Name == "" {
		jsonutil.BadRequest(w, "Name is required")
		return
	}
	if in.Email == nil || normalize.Email(*in.Email) == "" {
		jsonutil.BadRequest(w, "Email is required")
		return
	}

	current, _ := auth.CurrentAccount(r)

	expert := models.Expert{
		Name:    *in.Name,
		Email:   *in.Email,
		AddedBy: current.AccountID(),
	}
	if in.Phone != nil {
		expert.Phone = *in.Phone
	}
	if in.Company != nil {
		expert.Company = *in.Company
	}
	if in.Position != nil {
		expert.Position = *in.Position
	}
	if in.Expertise != nil {
		expert.Expertise = *in.Expertise
	}
	if in.Bio != nil {
		expert.Bio = *in.Bio
	}
	if in.ImageURL != nil {
		expert.ImageURL = *in.ImageURL
	}
	if in.Address != nil {
		expert.Address = *in.Address
	}
	if in.Social != nil {
		expert.Social = *in.Social
	}
	if in.Availability != nil {
		expert.Availability = normalize.Status(*in.Availability)
	}

	created, err := h.experts.Create(r.Context(), expert)
	if err != nil {
		if errors.Is(err, expertstore.ErrDuplicateEmail) {
			jsonutil.Error(w, http.StatusConflict, "An expert with this email already exists")
			return
		}
		h.errLog.Log(r, "failed to create expert", err)
		jsonutil.InternalError(w, "Failed to create expert")
		return
	}

	h.recorder.Created(r, current.AccountID(), activity.ResourceExpert, created.ID,
		"added expert "+created.Name)
	jsonutil.Created(w, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid expert ID")
		return
	}

	var in expertInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "Invalid JSON payload")
		return
	}
	in.sanitize()

	if in.Name != nil && *in.Name == "" {
		jsonutil.BadRequest(w, "Name cannot be empty")
		return
	}
	if in.Availability != nil {
		av := normalize.Status(*in.Availability)
		if !models.IsValidAvailability(av) {
			jsonutil.BadRequest(w, "Invalid availability")
			return
		}
		in.Availability = &av
	}

	upd := expertstore.UpdateInput{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Company:      in.Company,
		Position:     in.Position,
		Expertise:    in.Expertise,
		Bio:          in.Bio,
		ImageURL:     in.ImageURL,
		Address:      in.Address,
		Social:       in.Social,
		Availability: in.Availability,
	}
	if err := h.experts.Update(r.Context(), id, upd); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			jsonutil.NotFound(w, "Expert not found")
		case errors.Is(err, expertstore.ErrDuplicateEmail):
			jsonutil.Error(w, http.StatusConflict, "An expert with this email already exists")
		default:
			h.errLog.Log(r, "failed to update expert", err)
			jsonutil.InternalError(w, "Failed to update expert")
		}
		return
	}

	current, _ := auth.CurrentAccount(r)
	h.recorder.Updated(r, current.AccountID(), activity.ResourceExpert, id, "updated expert")

	expert, err := h.experts.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.Log(r, "failed to reload expert", err)
		jsonutil.InternalError(w, "Failed to load expert")
		return
	}
	jsonutil.OK(w, expert)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "Invalid expert ID")
		return
	}

	if err := h.experts.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.NotFound(w, "Expert not found")
			return
		}
		h.errLog.Log(r, "failed to delete expert", err)
		jsonutil.InternalError(w, "Failed to delete expert")
		return
	}

	current, _ := auth.CurrentAccount(r)
	h.recorder.Deleted(r, current.AccountID(), activity.ResourceExpert, id, "removed expert")
	jsonutil.OKMessage(w, "Expert deleted successfully")
}

func (h *Handler) topRated(w http.ResponseWriter, r *http.Request) {
	limit := parseInt64(r.URL.Query().Get("limit"), 10)
	experts, err := h.experts.TopRated(r.Context(), limit, 1)
	if err != nil {
		h.errLog.Log(r, "failed to load top-rated experts", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, experts)
}

func (h *Handler) byExpertise(w http.ResponseWriter, r *http.Request) {
	rows, err := h.experts.CountByExpertise(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to aggregate expertise", err)
		jsonutil.InternalError(w, "Failed to load stats")
		return
	}
	jsonutil.OK(w, rows)
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
