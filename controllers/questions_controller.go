package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/dto"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/repository"
	"github.com/pddapp/backend/utils"
)

// POST /admin/questions
func AddQuestion(questions *repository.QuestionRepository, categories *repository.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.CreateQuestionDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		correct := 0
		for _, opt := range body.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one option must be marked correct"})
			return
		}

		difficulty := models.Difficulty(body.Difficulty)
		if body.Difficulty == "" {
			difficulty = models.DifficultyEasy
		}
		if !difficulty.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid difficulty"})
			return
		}

		categoryID, err := bson.ObjectIDFromHex(body.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}
		if _, err := categories.CategoryByID(ctx, categoryID); err != nil {
			respondError(c, err)
			return
		}

		options := make([]models.AnswerOption, 0, len(body.Options))
		for _, opt := range body.Options {
			options = append(options, models.AnswerOption{
				ID:        bson.NewObjectID(),
				Text:      opt.Text,
				IsCorrect: opt.IsCorrect,
			})
		}

		question, err := questions.InsertQuestion(ctx, models.Question{
			Text:        strings.TrimSpace(body.Text),
			Image:       strings.TrimSpace(body.Image),
			Explanation: body.Explanation,
			Difficulty:  difficulty,
			CategoryID:  categoryID,
			Options:     options,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"question_id": question.ID})
	}
}

// GET /questions
func GetQuestions(questions *repository.QuestionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var filter repository.QuestionFilter
		if raw := c.Query("category_id"); raw != "" {
			id, err := bson.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
				return
			}
			filter.CategoryID = &id
		}
		if raw := c.Query("difficulty"); raw != "" {
			d := models.Difficulty(raw)
			if !d.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid difficulty"})
				return
			}
			filter.Difficulty = &d
		}

		limit, offset := utils.ParseLimitOffset(c.Query("limit"), c.Query("offset"))

		items, total, err := questions.Questions(ctx, filter, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items":  items,
			"limit":  limit,
			"offset": offset,
			"total":  total,
		})
	}
}

// GET /questions/:id
func GetQuestion(questions *repository.QuestionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
			return
		}

		question, err := questions.QuestionByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, question)
	}
}

// PATCH /admin/questions/:id — options are not editable here.
func UpdateQuestion(questions *repository.QuestionRepository, categories *repository.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
			return
		}

		var body dto.UpdateQuestionDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		set := bson.M{}
		if body.Text != nil {
			v := strings.TrimSpace(*body.Text)
			if v == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "text cannot be empty"})
				return
			}
			set["text"] = v
		}
		if body.Image != nil {
			set["image"] = strings.TrimSpace(*body.Image)
		}
		if body.Explanation != nil {
			set["explanation"] = *body.Explanation
		}
		if body.Difficulty != nil {
			d := models.Difficulty(*body.Difficulty)
			if !d.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid difficulty"})
				return
			}
			set["difficulty"] = d
		}
		if body.CategoryID != nil {
			categoryID, err := bson.ObjectIDFromHex(*body.CategoryID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
				return
			}
			if _, err := categories.CategoryByID(ctx, categoryID); err != nil {
				respondError(c, err)
				return
			}
			set["categoryId"] = categoryID
		}

		if len(set) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no updates provided"})
			return
		}

		if err := questions.UpdateQuestion(ctx, id, set); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"question_id": id})
	}
}

// DELETE /admin/questions/:id
func DeleteQuestion(questions *repository.QuestionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
			return
		}

		if err := questions.DeleteQuestion(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"question_id": id})
	}
}

// POST /admin/questions/:id/image — multipart upload, stored in GCS.
func UploadQuestionImage(questions *repository.QuestionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
			return
		}
		if _, err := questions.QuestionByID(ctx, id); err != nil {
			respondError(c, err)
			return
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}

		gcs, bucket, err := utils.NewGCSClient(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		defer gcs.Close()

		url, err := utils.UploadQuestionImageToGCS(ctx, gcs, bucket, id.Hex(), fileHeader)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := questions.UpdateQuestion(ctx, id, bson.M{"image": url}); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"image": url})
	}
}
