package routes

import (
	"lifeline/internal/handlers"
	"lifeline/internal/middleware"
	"lifeline/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupEmergencyRoutes sets up routes for the emergency request lifecycle
func SetupEmergencyRoutes(r *gin.RouterGroup, emergencyHandler *handlers.EmergencyHandler, jwtSecret string) {
	emergency := r.Group("/emergency")

	// Guest path stays open; everything else is role-gated.
	emergency.POST("/guest-request", emergencyHandler.CreateGuestRequest)

	authed := emergency.Group("")
	authed.Use(middleware.AuthRequired(jwtSecret))
	{
		authed.POST("/request", middleware.PatientRequired(), emergencyHandler.CreateRequest)

		authed.GET("/pending-accidents", middleware.PoliceRequired(), emergencyHandler.GetPendingAccidents)
		authed.PUT("/verify/:id", middleware.PoliceRequired(), emergencyHandler.Verify)

		authed.GET("/verified", middleware.HospitalRequired(), emergencyHandler.GetVerified)
		authed.PUT("/dispatch/:id", middleware.HospitalRequired(), emergencyHandler.Dispatch)
		authed.PUT("/confirm-arrival/:id", middleware.HospitalRequired(), emergencyHandler.ConfirmArrival)

		authed.GET("/assigned", middleware.DriverRequired(), emergencyHandler.GetAssigned)
		authed.PUT("/mark-completed/:id", middleware.DriverRequired(), emergencyHandler.MarkCompleted)

		authed.GET("/request/:id", middleware.RoleRequired(
			models.RolePatient, models.RolePolice, models.RoleHospitalStaff, models.RoleAmbulanceDriver,
		), emergencyHandler.GetRequest)
	}
}
