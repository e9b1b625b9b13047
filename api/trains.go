package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/Domenick1991/trainbooking/internal/service/trains"
	"github.com/gin-gonic/gin"
)

type TrainHandler struct {
	service trains.TrainUseCase
}

func NewTrainHandler(service trains.TrainUseCase) *TrainHandler {
	return &TrainHandler{service: service}
}

func (h *TrainHandler) Register(router *gin.RouterGroup) {
	router.GET("/availability", h.availability)
	router.GET("/:id", h.get)
}

// RegisterAdmin mounts train management behind the admin gate.
func (h *TrainHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.POST("", h.create)
}

func (h *TrainHandler) create(c *gin.Context) {
	var req trains.CreateTrainInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	train, err := h.service.CreateTrain(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Train added successfully", "train": train})
}

func (h *TrainHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	train, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"train": train})
}

func (h *TrainHandler) availability(c *gin.Context) {
	result, err := h.service.FindAvailability(c.Request.Context(), c.Query("source"), c.Query("destination"))
	if err != nil {
		writeError(c, err)
		return
	}
	if result == nil {
		result = []domain.TrainAvailability{}
	}
	c.JSON(http.StatusOK, gin.H{"trains": result})
}
