package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/churchbook-backend/config"
	"github.com/ikkim/churchbook-backend/internal/app/controller"
	"github.com/ikkim/churchbook-backend/internal/middleware"
)

type Router struct {
	incomeController  *controller.IncomeController
	memberController  *controller.MemberController
	receiptController *controller.ReceiptController
	config            *config.Config
}

func NewRouter(
	incomeController *controller.IncomeController,
	memberController *controller.MemberController,
	receiptController *controller.ReceiptController,
	cfg *config.Config,
) *Router {
	return &Router{
		incomeController:  incomeController,
		memberController:  memberController,
		receiptController: receiptController,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{r.config.Storage.BasePath})))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "CHURCHBOOK API is running",
		})
	})

	// 로컬 드라이버일 때만 영수증 PDF를 정적으로 서빙 (S3는 자체 URL)
	if r.config.Storage.Driver == "local" || r.config.Storage.Driver == "" {
		router.Static(r.config.Storage.BasePath, r.config.Storage.LocalDir)
	}

	v1 := router.Group("/api/v1")
	{
		income := v1.Group("/income")
		{
			income.POST("/batch", r.incomeController.SaveBatch)
			income.GET("", r.incomeController.ListIncome)
			income.GET("/summary", r.incomeController.GetSummary)
			income.GET("/dates", r.incomeController.GetDates)
			income.GET("/export", r.incomeController.ExportYear)
			income.GET("/:id", r.incomeController.GetIncomeByID)
			income.PUT("/:id", r.incomeController.UpdateIncome)
			income.DELETE("/:id", r.incomeController.DeleteIncome)
		}

		v1.GET("/categories", r.incomeController.GetCategories)

		members := v1.Group("/members")
		{
			members.POST("", r.memberController.CreateMember)
			members.GET("", r.memberController.ListMembers)
			members.GET("/:id", r.memberController.GetMemberByID)
			members.PUT("/:id", r.memberController.UpdateMember)
			members.DELETE("/:id", r.memberController.DeleteMember)
		}

		receipts := v1.Group("/receipts")
		{
			receipts.POST("/generate", r.receiptController.GenerateReceipt)
			receipts.POST("/generate-year", r.receiptController.GenerateYearBatch)
			receipts.GET("", r.receiptController.ListReceipts)
			receipts.GET("/member/:memberId", r.receiptController.GetMemberDonations)
			receipts.DELETE("/:id", r.receiptController.DeleteReceipt)
			receipts.POST("/bulk-delete", r.receiptController.BulkDeleteReceipts)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
