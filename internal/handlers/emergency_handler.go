package handlers

import (
	"lifeline/internal/middleware"
	"lifeline/internal/models"
	"lifeline/internal/services"
	"lifeline/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmergencyHandler struct {
	emergencyService services.EmergencyService
}

func NewEmergencyHandler(emergencyService services.EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{
		emergencyService: emergencyService,
	}
}

// CreateRequest files a new emergency request for the authenticated patient.
func (h *EmergencyHandler) CreateRequest(c *gin.Context) {
	var input models.EmergencyRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	requesterID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.emergencyService.CreateRequest(c.Request.Context(), requesterID, &input)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency request created", request)
}

// CreateGuestRequest files an unauthenticated emergency request from
// coordinates only.
func (h *EmergencyHandler) CreateGuestRequest(c *gin.Context) {
	var input models.GuestRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	request, err := h.emergencyService.CreateGuestRequest(c.Request.Context(), &input)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Guest emergency request created", request)
}

// GetPendingAccidents lists unverified requests for the police dashboard.
func (h *EmergencyHandler) GetPendingAccidents(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	requests, total, err := h.emergencyService.GetPending(c.Request.Context(), params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if len(requests) == 0 {
		utils.EmptyListResponse(c, "No pending accident reports found")
		return
	}

	utils.SuccessResponseWithMeta(c, "Pending accident reports retrieved", requests, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(requests),
	})
}

// GetVerified lists verified requests awaiting dispatch.
func (h *EmergencyHandler) GetVerified(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	requests, total, err := h.emergencyService.GetVerified(c.Request.Context(), params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if len(requests) == 0 {
		utils.EmptyListResponse(c, "No verified emergencies found")
		return
	}

	utils.SuccessResponseWithMeta(c, "Verified emergencies retrieved", requests, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(requests),
	})
}

// GetAssigned lists the caller's active dispatched requests.
func (h *EmergencyHandler) GetAssigned(c *gin.Context) {
	driverID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	requests, err := h.emergencyService.GetAssigned(c.Request.Context(), driverID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if len(requests) == 0 {
		utils.EmptyListResponse(c, "No assigned emergencies found")
		return
	}

	utils.SuccessResponse(c, "Assigned emergencies retrieved", requests)
}

// GetRequest returns a single request by id.
func (h *EmergencyHandler) GetRequest(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.emergencyService.GetRequest(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency request retrieved", request)
}

// Verify confirms a pending report and sets its priority.
func (h *EmergencyHandler) Verify(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var input models.VerifyInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	request, err := h.emergencyService.Verify(c.Request.Context(), id, &input)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency request verified", request)
}

// Dispatch assigns a driver's ambulance to a verified request. The body
// carries the driver's user id.
func (h *EmergencyHandler) Dispatch(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var input models.DispatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	driverID, err := primitive.ObjectIDFromHex(input.AmbulanceID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver ID")
		return
	}

	request, err := h.emergencyService.Dispatch(c.Request.Context(), id, driverID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ambulance dispatched", request)
}

// MarkCompleted lets the owning driver finish a dispatched request.
func (h *EmergencyHandler) MarkCompleted(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	driverID, exists := middleware.CurrentUserID(c)
	if !exists {
		utils.UnauthorizedResponse(c)
		return
	}

	request, err := h.emergencyService.DriverMarkCompleted(c.Request.Context(), id, driverID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency marked as completed", request)
}

// ConfirmArrival is the hospital-side completion override.
func (h *EmergencyHandler) ConfirmArrival(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.emergencyService.ConfirmArrival(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Patient arrival confirmed", request)
}

func (h *EmergencyHandler) pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid emergency request ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
