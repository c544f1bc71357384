package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/dto"
	"github.com/pddapp/backend/middleware"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/services"
	"github.com/pddapp/backend/utils"
)

type examOptionView struct {
	ID   bson.ObjectID `json:"id"`
	Text string        `json:"text"`
}

// examQuestionView is what the exam taker sees: no correctness flags, no
// explanation.
type examQuestionView struct {
	ID      bson.ObjectID    `json:"id"`
	Text    string           `json:"text"`
	Image   string           `json:"image,omitempty"`
	Options []examOptionView `json:"options"`
}

func toExamQuestionViews(questions []models.Question) []examQuestionView {
	views := make([]examQuestionView, 0, len(questions))
	for _, q := range questions {
		opts := make([]examOptionView, 0, len(q.Options))
		for _, opt := range q.Options {
			opts = append(opts, examOptionView{ID: opt.ID, Text: opt.Text})
		}
		views = append(views, examQuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Image:   q.Image,
			Options: opts,
		})
	}
	return views
}

// POST /exams/start
func StartExam(exams *services.ExamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)

		result, err := exams.Start(c.Request.Context(), ident.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"exam_id":    result.Session.ID,
			"started_at": result.Session.StartedAt,
			"questions":  toExamQuestionViews(result.Questions),
		})
	}
}

// POST /exams/:id/answer
func AnswerExamQuestion(exams *services.ExamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)

		examID, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam id"})
			return
		}

		var body dto.ExamAnswerDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		questionID, err := bson.ObjectIDFromHex(body.QuestionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
			return
		}
		optionID, err := bson.ObjectIDFromHex(body.OptionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid option id"})
			return
		}

		result, err := exams.Answer(c.Request.Context(), examID, ident.ID, questionID, optionID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"is_correct":    result.IsCorrect,
			"current_score": result.Score,
		})
	}
}

// POST /exams/:id/finish
func FinishExam(exams *services.ExamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)

		examID, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam id"})
			return
		}

		result, err := exams.Finish(c.Request.Context(), examID, ident.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"exam_id":         examID,
			"score":           result.Score,
			"total_questions": result.TotalAnswered,
			"passed":          result.Passed,
			"finished_at":     result.FinishedAt,
		})
	}
}

// GET /exams
func ListExams(exams *services.ExamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)

		var statusFilter *models.ExamStatus
		if raw := c.Query("status"); raw != "" {
			status := models.ExamStatus(raw)
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
				return
			}
			statusFilter = &status
		}

		limit, offset := utils.ParseLimitOffset(c.Query("limit"), c.Query("offset"))

		sessions, err := exams.List(c.Request.Context(), ident.ID, statusFilter, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items":  sessions,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// GET /exams/:id
func GetExam(exams *services.ExamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)

		examID, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam id"})
			return
		}

		session, answers, err := exams.Get(c.Request.Context(), examID, ident.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"exam":    session,
			"answers": answers,
		})
	}
}
