package controllers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leafscan/internal/ml"
	"leafscan/internal/models"
	"leafscan/internal/remedy"
	"leafscan/internal/repository"
	"leafscan/internal/services"
	"leafscan/internal/storage"
)

type PredictionPipeline interface {
	Predict(ctx context.Context, userID uint, imagePath string) (*models.Prediction, error)
}

type ActivityReporter interface {
	BuildWeeklyReport(ctx context.Context, userID uint) ([]models.DailyActivity, error)
}

type RemedyPlanner interface {
	DetailedRemedy(ctx context.Context, diseaseName string) (*models.RemedyPlan, error)
}

type UploadStore interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Remove(relPath string) error
}

type PredictionController struct {
	repo     repository.PredictionRepository
	pipeline PredictionPipeline
	reporter ActivityReporter
	planner  RemedyPlanner
	uploads  UploadStore
}

func NewPredictionController(
	repo repository.PredictionRepository,
	pipeline PredictionPipeline,
	reporter ActivityReporter,
	planner RemedyPlanner,
	uploads UploadStore,
) *PredictionController {
	return &PredictionController{
		repo:     repo,
		pipeline: pipeline,
		reporter: reporter,
		planner:  planner,
		uploads:  uploads,
	}
}

func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok && userID != 0
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"message": "Unauthorized access",
	})
}

// respondError maps pipeline errors to status codes. Details stay in the log.
func respondError(c *gin.Context, err error) {
	var (
		clsErr    *ml.ClassifierError
		detailErr *remedy.DetailError
		valErr    *services.ValidationError
		storeErr  *repository.StoreError
	)

	status := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, services.ErrNoFile):
		status, message = http.StatusBadRequest, "No image file uploaded"
	case errors.Is(err, storage.ErrFileTooLarge):
		status, message = http.StatusBadRequest, "Image file is too large"
	case errors.Is(err, storage.ErrUnsupportedType):
		status, message = http.StatusBadRequest, "Only JPEG, PNG and WebP images are supported"
	case errors.As(err, &valErr):
		status, message = http.StatusBadRequest, valErr.Message
	case errors.Is(err, repository.ErrPredictionNotFound):
		status, message = http.StatusNotFound, "Prediction not found"
	case errors.As(err, &clsErr):
		status, message = http.StatusInternalServerError, "Failed to classify image"
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "Prediction timed out, please try again"
	case errors.As(err, &detailErr):
		status, message = http.StatusBadGateway, "Treatment plan is currently unavailable"
	case errors.As(err, &storeErr):
		status, message = http.StatusInternalServerError, "Failed to access prediction history"
	}

	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{
		"status":  "error",
		"message": message,
	})
}

// MakePrediction godoc
// @Summary Classify a leaf image
// @Description Upload a leaf image, classify it and store the prediction with a short remedy (requires authentication)
// @Tags prediction
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param image formData file true "Leaf image (JPEG, PNG or WebP)"
// @Success 201 {object} map[string]interface{} "Prediction created"
// @Failure 400 {object} map[string]interface{} "No image file uploaded"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 500 {object} map[string]interface{} "Failed to classify image"
// @Router /predictions [post]
func (pc *PredictionController) MakePrediction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, services.ErrNoFile)
		return
	}

	imagePath, err := pc.uploads.Save(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}

	prediction, err := pc.pipeline.Predict(c.Request.Context(), userID, imagePath)
	if err != nil {
		if rmErr := pc.uploads.Remove(imagePath); rmErr != nil {
			log.Printf("Failed to remove upload %s: %v", imagePath, rmErr)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Prediction created successfully",
		"data":    prediction,
	})
}

// GetPredictions godoc
// @Summary List prediction history
// @Description Get the authenticated user's predictions, newest first
// @Tags prediction
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{} "Predictions"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /predictions [get]
func (pc *PredictionController) GetPredictions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	predictions, err := pc.repo.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Predictions retrieved successfully",
		"data":    predictions,
	})
}

// GetPredictionByID godoc
// @Summary Get a single prediction
// @Tags prediction
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Prediction ID"
// @Success 200 {object} map[string]interface{} "Prediction"
// @Failure 400 {object} map[string]interface{} "Invalid prediction ID"
// @Failure 404 {object} map[string]interface{} "Prediction not found"
// @Router /predictions/{id} [get]
func (pc *PredictionController) GetPredictionByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, &services.ValidationError{Field: "id", Message: "Invalid prediction ID"})
		return
	}

	prediction, err := pc.repo.GetByID(c.Request.Context(), userID, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Prediction retrieved successfully",
		"data":    prediction,
	})
}

// GetDiseaseStats godoc
// @Summary Count predictions per disease
// @Description Per-disease prediction counts for the authenticated user, most frequent first
// @Tags prediction
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{} "Disease counts"
// @Router /predictions/stats [get]
func (pc *PredictionController) GetDiseaseStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	counts, err := pc.repo.CountByDisease(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Disease statistics retrieved successfully",
		"data":    counts,
	})
}

// GetWeeklyActivity godoc
// @Summary Healthy and diseased predictions over the last 7 days
// @Description Seven entries, oldest first, ending today. Days without predictions are zero
// @Tags prediction
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{} "Weekly activity"
// @Router /predictions/activity/weekly [get]
func (pc *PredictionController) GetWeeklyActivity(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	report, err := pc.reporter.BuildWeeklyReport(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Weekly activity retrieved successfully",
		"data":    report,
	})
}

// DeletePredictions godoc
// @Summary Delete predictions by id
// @Description Deletes the listed predictions owned by the authenticated user. Ids owned by others are ignored
// @Tags prediction
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body models.DeletePredictionsRequest true "Prediction ids"
// @Success 200 {object} map[string]interface{} "Number of deleted predictions"
// @Failure 400 {object} map[string]interface{} "Invalid id list"
// @Router /predictions [delete]
func (pc *PredictionController) DeletePredictions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.DeletePredictionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &services.ValidationError{Field: "ids", Message: "Request body must be {\"ids\": [..]}"})
		return
	}

	ids, err := services.ValidateIDs(req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}

	deleted, err := pc.repo.DeleteByIDs(c.Request.Context(), userID, ids)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Predictions deleted successfully",
		"data":    gin.H{"deleted": deleted},
	})
}

// GetRemedyDetails godoc
// @Summary Structured treatment plan for a disease
// @Description Returns medicineName, howToUse and steps for the given disease label
// @Tags prediction
// @Produce json
// @Security ApiKeyAuth
// @Param disease query string true "Disease label, e.g. Tomato_Early_blight"
// @Success 200 {object} map[string]interface{} "Treatment plan"
// @Failure 400 {object} map[string]interface{} "Disease name is required"
// @Failure 502 {object} map[string]interface{} "Treatment plan is currently unavailable"
// @Router /predictions/remedy [get]
func (pc *PredictionController) GetRemedyDetails(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		unauthorized(c)
		return
	}

	disease, err := services.ValidateDiseaseName(c.Query("disease"))
	if err != nil {
		respondError(c, err)
		return
	}

	plan, err := pc.planner.DetailedRemedy(c.Request.Context(), disease)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Treatment plan retrieved successfully",
		"data":    plan,
	})
}
