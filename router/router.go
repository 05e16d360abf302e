package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/andikasp/mejaqr/controllers"
	"github.com/andikasp/mejaqr/middlewares"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	// Dipasang sebelum route didaftarkan; gin hanya merangkai
	// middleware yang sudah ada saat handler diregistrasi
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	userCtrl := controllers.NewUserController(db)
	sessionCtrl := controllers.NewSessionController(db)
	orderCtrl := controllers.NewOrderController(db)
	attrCtrl := controllers.NewAttributionController(db)
	tableCtrl := controllers.NewTableNodeController(db)
	streamCtrl := controllers.NewStreamController(db)

	// Auth staff; login dilindungi throttling terpisah dari PIN tamu
	auth := r.Group("/auth")
	{
		auth.POST("/register", userCtrl.Register)
		auth.POST("/login", middlewares.LoginRateLimiter(), userCtrl.Login)
	}

	// Endpoint tamu: diidentifikasi lewat access token meja hasil scan
	// QR, tanpa akun
	guest := r.Group("/tables/:token")
	{
		guest.GET("", tableCtrl.ResolveTableNode)
		guest.POST("/session", sessionCtrl.EnsureActiveSession)
		guest.POST("/session/verify", sessionCtrl.VerifySession)
		guest.POST("/orders", orderCtrl.PlaceOrder)
		guest.GET("/orders", attrCtrl.PartitionOrders)
		guest.GET("/stream", streamCtrl.StreamSession)
	}

	// Endpoint staff
	staff := r.Group("/")
	staff.Use(middlewares.AuthMiddleware())
	{
		staff.GET("/profile", userCtrl.GetProfile)

		venue := staff.Group("/venues/:venue_id")
		{
			venue.POST("/tables", middlewares.RequireRole("staff"), tableCtrl.CreateTableNode)
			venue.GET("/tables", tableCtrl.GetAllTableNodes)
			venue.GET("/sessions", sessionCtrl.GetActiveSessions)
			venue.GET("/orders", orderCtrl.GetOrders)
			venue.GET("/stats", tableCtrl.GetDashboardStats)
			venue.GET("/stream", streamCtrl.StreamVenue)
		}

		nodes := staff.Group("/table-nodes")
		nodes.Use(middlewares.RequireRole("staff"))
		{
			nodes.PATCH("/:node_id", tableCtrl.UpdateTableNode)
			nodes.DELETE("/:node_id", tableCtrl.DeleteTableNode)
		}

		sessions := staff.Group("/sessions/:session_id")
		sessions.Use(middlewares.RequireRole("staff"))
		{
			sessions.GET("", sessionCtrl.GetSessionDetail)
			sessions.POST("/rotate-pin", sessionCtrl.RotatePin)
			sessions.PATCH("/pin-required", sessionCtrl.TogglePinRequirement)
			sessions.POST("/reset", sessionCtrl.TerminateAndReset)
			sessions.POST("/end", sessionCtrl.EndSession)
			sessions.GET("/participants", attrCtrl.GetParticipants)
			sessions.GET("/total", attrCtrl.GetRunningTotal)
		}

		orders := staff.Group("/orders")
		orders.Use(middlewares.RequireRole("staff"))
		{
			orders.GET("/:order_id", orderCtrl.GetOrderByID)
			orders.PATCH("/:order_id/status", orderCtrl.UpdateStatus)
			orders.PATCH("/:order_id/payment", orderCtrl.UpdatePayment)
			orders.PATCH("/:order_id/note", orderCtrl.Annotate)
			orders.POST("/:order_id/toggle-served", orderCtrl.ToggleServed)
			orders.DELETE("/:order_id", orderCtrl.DeleteOrder)
			orders.POST("/bulk-delete", orderCtrl.DeleteOrders)
		}
	}

	return r
}
