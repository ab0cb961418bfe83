package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/patient-service/middleware"
	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/services"
	"github.com/upb/patient-service/utils"
)

// PatientAPI is the part of the patient service the handlers use
type PatientAPI interface {
	Create(ctx context.Context, user *models.User, input services.CreatePatientInput) (*models.Patient, error)
	Update(ctx context.Context, patient *models.Patient, update models.PatientUpdate) (*models.Patient, error)
	Delete(ctx context.Context, patient *models.Patient) error
	List(ctx context.Context, skip, limit int) ([]*models.Patient, error)
}

// CreatePatientRequest is the body of POST /patients
type CreatePatientRequest struct {
	Name          string      `json:"name" validate:"required,notblank,max=200"`
	Age           int         `json:"age" validate:"gte=0,lte=150"`
	DOB           models.Date `json:"dob" validate:"-"`
	Gender        string      `json:"gender" validate:"required,notblank,max=32"`
	ContactNumber string      `json:"contact_number" validate:"required,phone"`
	Email         string      `json:"email" validate:"required,email,max=254"`
	Address       *string     `json:"address,omitempty" validate:"omitempty,max=500"`
}

// UpdatePatientRequest is the body of PATCH /patients/me. Omitted fields are
// left unchanged.
type UpdatePatientRequest struct {
	Name          *string      `json:"name,omitempty" validate:"omitnil,notblank,max=200"`
	Age           *int         `json:"age,omitempty" validate:"omitnil,gte=0,lte=150"`
	DOB           *models.Date `json:"dob,omitempty" validate:"-"`
	Gender        *string      `json:"gender,omitempty" validate:"omitnil,notblank,max=32"`
	ContactNumber *string      `json:"contact_number,omitempty" validate:"omitnil,phone"`
	Email         *string      `json:"email,omitempty" validate:"omitnil,email,max=254"`
	Address       *string      `json:"address,omitempty" validate:"omitnil,max=500"`
}

func (r UpdatePatientRequest) toUpdate() models.PatientUpdate {
	update := models.PatientUpdate{
		Name:          r.Name,
		Age:           r.Age,
		Gender:        r.Gender,
		ContactNumber: r.ContactNumber,
		Email:         r.Email,
		Address:       r.Address,
	}
	// An explicit null date is treated as absent
	if r.DOB != nil && !r.DOB.IsZero() {
		update.DOB = r.DOB
	}
	return update
}

// PatientHandler serves the /patients routes
type PatientHandler struct {
	service PatientAPI
	logger  *zap.Logger
}

// NewPatientHandler creates a new PatientHandler
func NewPatientHandler(service PatientAPI, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /patients for the authenticated user
func (h *PatientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req CreatePatientRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	if req.DOB.IsZero() {
		_ = utils.WriteBadRequest(w, "Validation failed", map[string]interface{}{
			"dob": "dob is required",
		})
		return
	}

	patient, err := h.service.Create(r.Context(), user, services.CreatePatientInput{
		Name:          req.Name,
		Age:           req.Age,
		DOB:           req.DOB,
		Gender:        req.Gender,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Address:       req.Address,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, patient); err != nil {
		h.logger.Error("failed to write patient response", zap.Error(err))
	}
}

// HandleGetMe handles GET /patients/me. The profile is loaded by
// ProfileMiddleware.
func (h *PatientHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	patient := middleware.GetPatientFromContext(r.Context())
	if patient == nil {
		HandleServiceError(w, services.ErrPatientNotCreated, h.logger)
		return
	}

	if err := utils.WriteOK(w, patient); err != nil {
		h.logger.Error("failed to write patient response", zap.Error(err))
	}
}

// HandleUpdateMe handles PATCH /patients/me
func (h *PatientHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	patient := middleware.GetPatientFromContext(r.Context())
	if patient == nil {
		HandleServiceError(w, services.ErrPatientNotCreated, h.logger)
		return
	}

	var req UpdatePatientRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	updated, err := h.service.Update(r.Context(), patient, req.toUpdate())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, updated); err != nil {
		h.logger.Error("failed to write patient response", zap.Error(err))
	}
}

// HandleDeleteMe handles DELETE /patients/me. The user account is kept.
func (h *PatientHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	patient := middleware.GetPatientFromContext(r.Context())
	if patient == nil {
		HandleServiceError(w, services.ErrPatientNotCreated, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), patient); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleList handles GET /patients?skip=&limit=
func (h *PatientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePage(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	patients, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if patients == nil {
		patients = []*models.Patient{}
	}

	if err := utils.WriteOK(w, patients); err != nil {
		h.logger.Error("failed to write patient list response", zap.Error(err))
	}
}
