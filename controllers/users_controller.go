package controllers

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/dto"
	"github.com/pddapp/backend/middleware"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/repository"
	"github.com/pddapp/backend/utils"
)

func userProfile(c *gin.Context, users *repository.UserRepository, exams *repository.ExamRepository, userID bson.ObjectID) {
	ctx := c.Request.Context()

	user, err := users.UserByID(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	passed, avg, err := exams.UserExamStats(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"stats": gin.H{
			"passed_exams": passed,
			"avg_score":    math.Round(avg*100) / 100,
		},
	})
}

// GET /users/me
func GetMyProfile(users *repository.UserRepository, exams *repository.ExamRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)
		userProfile(c, users, exams, ident.ID)
	}
}

// GET /users/:id
func GetUserProfile(users *repository.UserRepository, exams *repository.ExamRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		userProfile(c, users, exams, id)
	}
}

func profileUpdateSet(email, username, password *string) (bson.M, error) {
	set := bson.M{}
	if email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*email))
	}
	if username != nil {
		set["username"] = strings.TrimSpace(*username)
	}
	if password != nil {
		hash, err := utils.HashPassword(*password)
		if err != nil {
			return nil, err
		}
		set["passwordHash"] = hash
	}
	return set, nil
}

// PUT /users/me
func UpdateMyProfile(users *repository.UserRepository, exams *repository.ExamRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := middleware.CurrentIdentity(c)

		var body dto.UpdateProfileDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		set, err := profileUpdateSet(body.Email, body.Username, body.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(set) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no updates provided"})
			return
		}

		if err := users.UpdateUser(c.Request.Context(), ident.ID, set); err != nil {
			respondError(c, err)
			return
		}

		userProfile(c, users, exams, ident.ID)
	}
}

// PUT /admin/users/:id — admins may additionally change the role.
func AdminUpdateUser(users *repository.UserRepository, exams *repository.ExamRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		var body dto.AdminUpdateUserDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		set, err := profileUpdateSet(body.Email, body.Username, body.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		if body.Role != nil {
			role := models.Role(*body.Role)
			if role != models.RoleAdmin && role != models.RoleUser {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
				return
			}
			set["role"] = role
		}
		if len(set) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no updates provided"})
			return
		}

		if err := users.UpdateUser(c.Request.Context(), id, set); err != nil {
			respondError(c, err)
			return
		}

		userProfile(c, users, exams, id)
	}
}
