package handler

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/service"
	"github.com/sakif/streamhub/internal/storage"
)

// maxUploadBytes bounds multipart request bodies (form fields + images).
const maxUploadBytes = 16 << 20

// AccountHandler exposes registration and account mutation endpoints.
// Uploaded images pass through the storage service, which hands back the
// stored asset's URL; only URLs reach the account service.
type AccountHandler struct {
	accounts *service.AccountService
	assets   storage.ObjectStorage
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, assets storage.ObjectStorage, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, assets: assets, logger: logger}
}

// HandleRegister creates a new account from a multipart form: fullName,
// username, email, password, an avatar file (required), and an optional
// coverImage file.
//
// HTTP: POST /api/v1/users/register → 201, or 409 on duplicate
// username/email.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("body", "invalid multipart form"))
		return
	}

	avatarURL, err := h.storeFormFile(r, "avatar")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if avatarURL == "" {
		writeError(w, h.logger, apperror.ValidationFailed("avatar", "avatar file is required"))
		return
	}

	// Cover image is optional; a missing part is fine.
	coverURL, err := h.storeFormFile(r, "coverImage")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		FullName:  r.FormValue("fullName"),
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		AvatarURL: avatarURL,
		CoverURL:  coverURL,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeOK(w, http.StatusCreated, "user registered successfully", user)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword verifies the old password and stores the new one.
//
// HTTP: POST /api/v1/users/change-password (auth required)
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeOK(w, http.StatusOK, "password changed successfully", nil)
}

// HandleCurrentUser returns the authenticated user's sanitized record.
//
// HTTP: GET /api/v1/users/current-user (auth required)
func (h *AccountHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	writeOK(w, http.StatusOK, "current user fetched successfully", user)
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// HandleUpdateAccount updates display name and email.
//
// HTTP: PATCH /api/v1/users/update-account (auth required)
func (h *AccountHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.accounts.UpdateAccount(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeOK(w, http.StatusOK, "account details updated successfully", updated)
}

// HandleUpdateAvatar replaces the avatar from a single "file" form part.
//
// HTTP: PATCH /api/v1/users/avatar (auth required)
func (h *AccountHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.handleImageUpdate(w, r, "avatar", h.accounts.UpdateAvatar, "avatar image updated successfully")
}

// HandleUpdateCover replaces the cover image from a single "file" form part.
//
// HTTP: PATCH /api/v1/users/cover-image (auth required)
func (h *AccountHandler) HandleUpdateCover(w http.ResponseWriter, r *http.Request) {
	h.handleImageUpdate(w, r, "cover image", h.accounts.UpdateCover, "cover image updated successfully")
}

// handleImageUpdate is shared by the avatar and cover endpoints: store the
// single uploaded file, then point the account's asset reference at it.
func (h *AccountHandler) handleImageUpdate(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID, url string) (*model.User, error),
	message string,
) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("unauthorized request"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("body", "invalid multipart form"))
		return
	}

	url, err := h.storeFormFile(r, "file")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if url == "" {
		writeError(w, h.logger, apperror.ValidationFailed(field, field+" file is missing"))
		return
	}

	updated, err := update(r.Context(), user.ID, url)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeOK(w, http.StatusOK, message, updated)
}

// storeFormFile uploads the named multipart file and returns its stored
// URL, or "" when the part is absent.
func (h *AccountHandler) storeFormFile(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", apperror.ValidationFailed(field, fmt.Sprintf("reading %s file", field))
	}
	defer file.Close()

	return h.storeFile(r, file, header)
}

func (h *AccountHandler) storeFile(r *http.Request, file multipart.File, header *multipart.FileHeader) (string, error) {
	url, err := h.assets.Save(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		return "", apperror.Internal("error while uploading file", err)
	}
	return url, nil
}
