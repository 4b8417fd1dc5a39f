package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nazhim/markaz-api/internal/services"
)

type VehicleHandler struct {
	vehicleService *services.VehicleService
}

func NewVehicleHandler(vehicleService *services.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

// @Summary Create Vehicle
// @Description Register a vehicle for fuel purchase tracking
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param vehicle body services.VehicleInput true "Vehicle"
// @Success 201 {object} models.Vehicle
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /vehicles [post]
func (h *VehicleHandler) Create(c *gin.Context) {
	var in services.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	vehicle, err := h.vehicleService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

// @Summary List Vehicles
// @Description List the registered vehicles
// @Tags Vehicles
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /vehicles [get]
func (h *VehicleHandler) Index(c *gin.Context) {
	vehicles, err := h.vehicleService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// @Summary Get Vehicle
// @Description Get a vehicle by ID
// @Tags Vehicles
// @Produce json
// @Param vehicle_id path int true "Vehicle ID"
// @Success 200 {object} models.Vehicle
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /vehicles/{vehicle_id} [get]
func (h *VehicleHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("vehicle_id"), 10, 32)

	vehicle, err := h.vehicleService.Find(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}
