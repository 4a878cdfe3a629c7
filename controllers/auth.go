package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/middleware"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/services"
)

type verifyOTPInput struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

type loginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	LoginType string `json:"loginType"`
}

type forgotPasswordInput struct {
	Email string `json:"email"`
}

// Register creates a pending registrant and mails it an OTP.
func (h *Handler) Register(c *gin.Context) {
	var input services.RegisterInput
	if !bind(c, &input) {
		return
	}
	id, err := h.Auth.Register(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": services.MsgRegistered, "userId": id})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var input verifyOTPInput
	if !bind(c, &input) {
		return
	}
	sess, err := h.Auth.VerifyOTP(c.Request.Context(), input.UserID, input.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) Login(c *gin.Context) {
	var input loginInput
	if !bind(c, &input) {
		return
	}
	sess, err := h.Auth.Login(c.Request.Context(), input.Email, input.Password, input.LoginType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": sess.User, "token": sess.Token})
}

// ForgotPassword always answers with the same message whether or not the
// email belongs to an account.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input forgotPasswordInput
	if !bind(c, &input) {
		return
	}
	if err := h.Auth.ForgotPassword(c.Request.Context(), input.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": services.MsgResetSent})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var input services.ResetInput
	if !bind(c, &input) {
		return
	}
	sess, err := h.Auth.ResetPassword(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully", "token": sess.Token, "user": sess.User})
}

// Verify returns the signed-in user.
func (h *Handler) Verify(c *gin.Context) {
	u, err := h.Auth.Profile(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Summary()})
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var input services.ProfileInput
	if !bind(c, &input) {
		return
	}
	u, err := h.Auth.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": u})
}
