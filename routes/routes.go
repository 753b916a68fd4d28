package routes

import (
	"net/http"
	"time"

	"tably/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes registers the conversational endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/chat")
	{
		api.POST("/session", hb.StartChatSession)
		api.POST("/session/:sessionID/message", hb.ChatMessage)
		api.DELETE("/session/:sessionID", hb.EndChatSession)
	}
}

// RegisterRestaurantRoutes registers catalog search, availability and
// the administrative CRUD surface.
func RegisterRestaurantRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/restaurants")
	{
		api.GET("", hb.SearchRestaurants)
		api.GET("/recommendations", hb.RecommendRestaurants)
		api.GET("/:id", hb.GetRestaurant)
		api.GET("/:id/availability", hb.GetRestaurantAvailability)

		api.POST("", hb.CreateRestaurant)
		api.PUT("/:id", hb.UpdateRestaurant)
		api.DELETE("/:id", hb.DeleteRestaurant)
	}
}

// RegisterReservationRoutes registers direct reservation access.
func RegisterReservationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/reservations")
	{
		api.GET("/:id", hb.GetReservation)
		api.POST("/:id/cancel", hb.CancelReservation)
	}
}

// RegisterUserRoutes registers profile endpoints.
func RegisterUserRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/users")
	{
		api.GET("/:id", hb.GetUserProfile)
		api.GET("/:id/reservations", hb.ListUserReservations)
		api.PATCH("/:id/preferences", hb.UpdateUserPreferences)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Tably"})
	})
}

// CORSConfig returns the CORS policy for the API.
func CORSConfig() cors.Config {
	return cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
}

// RegisterAll wires every route group onto the engine.
func RegisterAll(r *gin.Engine, hb *handlers.HandlerBundle) {
	RegisterHealthRoute(r)
	RegisterChatRoutes(r, hb)
	RegisterRestaurantRoutes(r, hb)
	RegisterReservationRoutes(r, hb)
	RegisterUserRoutes(r, hb)
}
