package handlers

import (
	"lifeline/internal/middleware"
	"lifeline/internal/models"
	"lifeline/internal/services"
	"lifeline/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceHandler struct {
	ambulanceService services.AmbulanceService
	emergencyService services.EmergencyService
}

func NewAmbulanceHandler(ambulanceService services.AmbulanceService, emergencyService services.EmergencyService) *AmbulanceHandler {
	return &AmbulanceHandler{
		ambulanceService: ambulanceService,
		emergencyService: emergencyService,
	}
}

// Create registers the caller's ambulance. One unit per driver.
func (h *AmbulanceHandler) Create(c *gin.Context) {
	driverID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var input models.RegisterAmbulanceInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ambulance, err := h.ambulanceService.Register(c.Request.Context(), driverID, &input)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Ambulance registered", ambulance)
}

// UpdateLocation records the caller's current position and optional status.
func (h *AmbulanceHandler) UpdateLocation(c *gin.Context) {
	driverID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var input models.LocationUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ambulance, err := h.ambulanceService.UpdateLocation(c.Request.Context(), driverID, &input)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ambulance location updated", ambulance)
}

// AssignEmergency links the given ambulance to a verified emergency.
func (h *AmbulanceHandler) AssignEmergency(c *gin.Context) {
	ambulanceID, err := primitive.ObjectIDFromHex(c.Param("ambulanceId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}

	var input models.AssignEmergencyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	emergencyID, err := primitive.ObjectIDFromHex(input.EmergencyID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid emergency ID")
		return
	}

	request, err := h.emergencyService.AssignAmbulance(c.Request.Context(), ambulanceID, emergencyID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency assigned to ambulance", request)
}

// MarkCompleted finishes the emergency currently linked to the given
// ambulance and clears both sides of the link.
func (h *AmbulanceHandler) MarkCompleted(c *gin.Context) {
	ambulanceID, err := primitive.ObjectIDFromHex(c.Param("ambulanceId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ambulance ID")
		return
	}

	driverID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.emergencyService.DriverReleaseAmbulance(c.Request.Context(), ambulanceID, driverID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency marked as completed", request)
}

// GetAvailable lists free units with their driver identities.
func (h *AmbulanceHandler) GetAvailable(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	ambulances, total, err := h.ambulanceService.ListAvailable(c.Request.Context(), params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if len(ambulances) == 0 {
		utils.EmptyListResponse(c, "No available ambulances found")
		return
	}

	utils.SuccessResponseWithMeta(c, "Available ambulances retrieved", ambulances, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(ambulances),
	})
}

// GetMine returns the caller's registered ambulance.
func (h *AmbulanceHandler) GetMine(c *gin.Context) {
	driverID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	ambulance, err := h.ambulanceService.GetByDriver(c.Request.Context(), driverID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ambulance retrieved", ambulance)
}
