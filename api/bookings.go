package api

import (
	"net/http"

	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/Domenick1991/trainbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	TrainID int64 `json:"train_id"`
	// LegacyTrainID accepts the camelCase field older clients send.
	LegacyTrainID int64 `json:"trainId"`
}

func (r createBookingRequest) trainID() int64 {
	if r.TrainID != 0 {
		return r.TrainID
	}
	return r.LegacyTrainID
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes. The group must already run RequireUser.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	requester, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.Reserve(c.Request.Context(), requester, req.trainID())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking successful", "booking": b})
}

func (h *BookingHandler) get(c *gin.Context) {
	requester, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	details, err := h.service.GetBooking(c.Request.Context(), c.Param("id"), requester)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": details})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	requester, ok := principalFrom(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}

	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"), requester)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled", "booking": b})
}
