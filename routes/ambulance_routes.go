package routes

import (
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"
	"lifeline/internal/models"
	"lifeline/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupAmbulanceRoutes sets up routes for ambulance fleet operations
func SetupAmbulanceRoutes(r *gin.RouterGroup, ambulanceHandler *handlers.AmbulanceHandler, jwtSecret string) {
	ambulance := r.Group("/ambulance")
	ambulance.Use(middleware.AuthRequired(jwtSecret))
	{
		ambulance.POST("/create", middleware.DriverRequired(), ambulanceHandler.Create)
		ambulance.PUT("/update-location", middleware.DriverRequired(), ambulanceHandler.UpdateLocation)
		ambulance.PUT("/mark-completed/:ambulanceId", middleware.DriverRequired(), ambulanceHandler.MarkCompleted)
		ambulance.GET("/me", middleware.DriverRequired(), ambulanceHandler.GetMine)

		ambulance.PUT("/assign-emergency/:ambulanceId", middleware.RoleRequired(
			models.RoleHospitalStaff, models.RoleAdmin,
		), ambulanceHandler.AssignEmergency)
		ambulance.GET("/available", middleware.HospitalRequired(), ambulanceHandler.GetAvailable)
	}
}

// SetupWebSocketRoutes sets up the realtime endpoint
func SetupWebSocketRoutes(r *gin.RouterGroup, wsHandler *websocket.Handler, jwtSecret string) {
	ws := r.Group("/ws")
	ws.Use(middleware.AuthRequired(jwtSecret))
	{
		ws.GET("", wsHandler.HandleWebSocket)
	}
}
