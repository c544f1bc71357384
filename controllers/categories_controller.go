package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pddapp/backend/dto"
	"github.com/pddapp/backend/models"
	"github.com/pddapp/backend/repository"
	"github.com/pddapp/backend/utils"
)

// POST /admin/categories
func AddCategory(categories *repository.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateCategoryDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		name := strings.TrimSpace(body.Name)
		slug := strings.TrimSpace(body.Slug)
		if slug == "" {
			slug = utils.GenerateSlug(name)
		}

		cat, err := categories.InsertCategory(c.Request.Context(), models.Category{
			Name: name,
			Slug: slug,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, cat)
	}
}

// GET /categories
func GetCategories(categories *repository.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := utils.ParseLimitOffset(c.Query("limit"), c.Query("offset"))

		items, total, err := categories.Categories(c.Request.Context(), limit, offset)
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

// GET /categories/:id
func GetCategory(categories *repository.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}

		cat, err := categories.CategoryByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, cat)
	}
}

// PATCH /admin/categories/:id
func UpdateCategory(categories *repository.CategoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}

		var body dto.UpdateCategoryDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		set := bson.M{}
		if body.Name != nil {
			v := strings.TrimSpace(*body.Name)
			if v == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
				return
			}
			set["name"] = v
		}
		if body.Slug != nil {
			v := strings.TrimSpace(*body.Slug)
			if v == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "slug cannot be empty"})
				return
			}
			set["slug"] = v
		}

		if len(set) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no updates provided"})
			return
		}

		if err := categories.UpdateCategory(c.Request.Context(), id, set); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// DELETE /admin/categories/:id — cascades to the category's questions.
func DeleteCategory(categories *repository.CategoryRepository, questions *repository.QuestionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}

		if err := questions.DeleteQuestionsByCategory(ctx, id); err != nil {
			respondError(c, err)
			return
		}
		if err := categories.DeleteCategory(ctx, id); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
