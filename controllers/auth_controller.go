package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pddapp/backend/dto"
	"github.com/pddapp/backend/services"
)

// POST /auth/register
func Register(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := auth.Register(c.Request.Context(), body.Email, body.Username, body.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"username":   user.Username,
			"created_at": user.CreatedAt,
		})
	}
}

// POST /auth/login
func Login(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		pair, err := auth.Login(c.Request.Context(), body.Email, body.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, pair)
	}
}

// POST /auth/refresh
func Refresh(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RefreshTokenDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		access, err := auth.Refresh(c.Request.Context(), body.RefreshToken)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"access_token": access})
	}
}

// POST /auth/logout
func Logout(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RefreshTokenDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := auth.Logout(c.Request.Context(), body.RefreshToken); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "logout success"})
	}
}
