package controllers

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pddapp/backend/middleware"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/repository"
	"github.com/pddapp/backend/services"
	"github.com/pddapp/backend/utils"
)

// POST /pdd/predict — classifies an uploaded road-sign photo. The model is
// an external inference service; this endpoint only needs the caller's
// identity from the auth layer.
func PredictSign(classifier services.SignClassifier, predictions *repository.PredictionRepository, r2 *utils.R2Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ident, _ := middleware.CurrentIdentity(c)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			respondError(c, err)
			return
		}
		if len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty file"})
			return
		}

		result, err := classifier.Classify(ctx, data, fileHeader.Filename)
		if err != nil {
			respondError(c, err)
			return
		}

		imageURL := ""
		if r2 != nil {
			imageURL, err = r2.UploadSignImage(ctx, ident.ID.Hex(), data,
				filepath.Ext(fileHeader.Filename), fileHeader.Header.Get("Content-Type"))
			if err != nil {
				// The verdict still stands without the stored photo.
				imageURL = ""
			}
		}

		if _, err := predictions.InsertPrediction(ctx, models.SignPrediction{
			UserID:      ident.ID,
			ImageURL:    imageURL,
			Label:       result.Name,
			Category:    result.Category,
			Description: result.Description,
			Confidence:  result.Confidence,
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"class_id":    result.ClassID,
			"class_name":  result.Name,
			"category":    result.Category,
			"description": result.Description,
			"confidence":  result.Confidence,
		})
	}
}

// GET /pdd/predictions — the caller's own classification history.
func ListPredictions(predictions *repository.PredictionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)

		limit, offset := utils.ParseLimitOffset(c.Query("limit"), c.Query("offset"))

		items, err := predictions.PredictionsByUser(c.Request.Context(), ident.ID, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items":  items,
			"limit":  limit,
			"offset": offset,
		})
	}
}
