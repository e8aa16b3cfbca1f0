package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/middleware"
	"github.com/flicky/go-storefront/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.userService.Me(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", user)
}

func (h *UserHandler) UpdateAddress(c *gin.Context) {
	var req dto.ShippingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.userService.UpdateAddress(c.Request.Context(), middleware.GetActor(c), req.ToModel()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Response{Success: true, Message: "address updated", RedirectTo: "/payment-method"})
}

func (h *UserHandler) PaymentMethodOptions(c *gin.Context) {
	opts, err := h.userService.PaymentMethodOptions(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", opts)
}

func (h *UserHandler) UpdatePaymentMethod(c *gin.Context) {
	var req dto.PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.userService.UpdatePaymentMethod(c.Request.Context(), middleware.GetActor(c), req.Type); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Response{Success: true, Message: "payment method updated", RedirectTo: "/place-order"})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetActor(c), req.Name); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "profile updated", nil)
}

// --- admin ---

func (h *UserHandler) List(c *gin.Context) {
	var req dto.ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	users, pages, err := h.userService.List(c.Request.Context(), middleware.GetActor(c), req.Query, req.Page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, users, pages)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.userService.Update(c.Request.Context(), middleware.GetActor(c), id, req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "user deleted", nil)
}
