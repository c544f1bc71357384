package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pddapp/backend/controllers"
	"github.com/pddapp/backend/database"
	"github.com/pddapp/backend/middleware"
	"github.com/pddapp/backend/repository"
	"github.com/pddapp/backend/services"
	"github.com/pddapp/backend/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal(err)
	}

	//seeding admin user
	if err := utils.SeedAdminUser(ctx, db.Collection(database.UsersCollection)); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	examRepo := repository.NewExamRepository(db)
	predictionRepo := repository.NewPredictionRepository(db)

	authSvc := services.NewAuthService(userRepo, tokenRepo, utils.TokenCodecFromEnv())
	examSvc := services.NewExamService(questionRepo, examRepo)
	classifier := services.NewHTTPClassifier(os.Getenv("INFERENCE_URL"))

	// Sign photos go to R2; skip storage when the bucket is not configured.
	r2, err := utils.NewR2Client(ctx)
	if err != nil {
		log.Println("R2 storage disabled:", err)
		r2 = nil
	}

	r := gin.New()

	origins := os.Getenv("ALLOWED_ORIGINS")
	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	log.Printf("Allowed origins: %v", allowedOrigins)
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	r.POST("/auth/register", controllers.Register(authSvc))
	r.POST("/auth/login", controllers.Login(authSvc))
	r.POST("/auth/refresh", controllers.Refresh(authSvc))
	r.POST("/auth/logout", controllers.Logout(authSvc))

	r.GET("/categories", controllers.GetCategories(categoryRepo))
	r.GET("/categories/:id", controllers.GetCategory(categoryRepo))
	r.GET("/users/:id", controllers.GetUserProfile(userRepo, examRepo))

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(authSvc))
	{
		authed.GET("/users/me", controllers.GetMyProfile(userRepo, examRepo))
		authed.PUT("/users/me", controllers.UpdateMyProfile(userRepo, examRepo))

		authed.GET("/questions", controllers.GetQuestions(questionRepo))
		authed.GET("/questions/:id", controllers.GetQuestion(questionRepo))

		authed.POST("/exams/start", controllers.StartExam(examSvc))
		authed.POST("/exams/:id/answer", controllers.AnswerExamQuestion(examSvc))
		authed.POST("/exams/:id/finish", controllers.FinishExam(examSvc))
		authed.GET("/exams", controllers.ListExams(examSvc))
		authed.GET("/exams/:id", controllers.GetExam(examSvc))

		authed.POST("/pdd/predict", controllers.PredictSign(classifier, predictionRepo, r2))
		authed.GET("/pdd/predictions", controllers.ListPredictions(predictionRepo))
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(authSvc), middleware.RequireAdmin(authSvc))
	{
		admin.POST("/categories", controllers.AddCategory(categoryRepo))
		admin.PATCH("/categories/:id", controllers.UpdateCategory(categoryRepo))
		admin.DELETE("/categories/:id", controllers.DeleteCategory(categoryRepo, questionRepo))

		admin.POST("/questions", controllers.AddQuestion(questionRepo, categoryRepo))
		admin.PATCH("/questions/:id", controllers.UpdateQuestion(questionRepo, categoryRepo))
		admin.DELETE("/questions/:id", controllers.DeleteQuestion(questionRepo))
		admin.POST("/questions/:id/image", controllers.UploadQuestionImage(questionRepo))

		admin.PUT("/users/:id", controllers.AdminUpdateUser(userRepo, examRepo))
	}

	// Start server on port 8080 (default)
	r.Run()
}
