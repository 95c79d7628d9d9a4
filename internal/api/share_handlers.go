package api

import (
	"net/http"

	"chmura-plikow/internal/models"

	"github.com/go-chi/chi/v5"
)

// Endpointy publiczne — bez uwierzytelnienia; cały dowód uprawnień to token.

type SharedItemResponse struct {
	ItemType string      `json:"item_type" example:"file"`
	File     interface{} `json:"file,omitempty"`
	Folder   interface{} `json:"folder,omitempty"`
}

// @Summary      Resolve a share token
// @Description  Returns the item a share token points at: file metadata for a file token, the folder with its direct contents for a folder token.
// @Tags         shared
// @Produce      json
// @Param        token  path      string  true  "Share token"
// @Success      200  {object}  SharedItemResponse
// @Failure      404  {string}  string "Unknown or expired token"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /shared/{token} [get]
func (s *Server) GetSharedItemHandler(w http.ResponseWriter, r *http.Request) {
	tokenValue := chi.URLParam(r, "token")

	token, err := s.drive.ResolveShare(r.Context(), tokenValue)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	switch token.ItemType {
	case models.ShareItemFile:
		file, err := s.drive.SharedFile(r.Context(), tokenValue)
		if err != nil {
			respondDriveError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, SharedItemResponse{ItemType: models.ShareItemFile, File: file})
	case models.ShareItemFolder:
		content, err := s.drive.SharedFolder(r.Context(), tokenValue)
		if err != nil {
			respondDriveError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, SharedItemResponse{ItemType: models.ShareItemFolder, Folder: content})
	default:
		http.Error(w, "Item not found", http.StatusNotFound)
	}
}

// @Summary      Download a shared file
// @Description  Streams the content of the file a share token points at.
// @Tags         shared
// @Produce      application/octet-stream
// @Param        token  path      string  true  "Share token"
// @Success      200  {file}    file
// @Failure      404  {string}  string "Unknown or expired token"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /shared/{token}/download [get]
func (s *Server) DownloadSharedFileHandler(w http.ResponseWriter, r *http.Request) {
	tokenValue := chi.URLParam(r, "token")

	file, stream, err := s.drive.OpenSharedFile(r.Context(), tokenValue)
	if err != nil {
		respondDriveError(w, err)
		return
	}
	defer stream.Close()

	writeFileStream(w, file.Name, file.MimeType, file.SizeBytes, stream)
}

type ShareValidationResponse struct {
	Valid    bool   `json:"valid" example:"true"`
	ItemType string `json:"item_type,omitempty" example:"folder"`
}

// @Summary      Validate a share token
// @Description  Checks whether a share token is known and not expired, without returning the item itself.
// @Tags         shared
// @Produce      json
// @Param        token  path      string  true  "Share token"
// @Success      200  {object}  ShareValidationResponse
// @Router       /shared/{token}/validate [get]
func (s *Server) ValidateShareTokenHandler(w http.ResponseWriter, r *http.Request) {
	tokenValue := chi.URLParam(r, "token")

	token, err := s.drive.ResolveShare(r.Context(), tokenValue)
	if err != nil {
		respondJSON(w, http.StatusOK, ShareValidationResponse{Valid: false})
		return
	}

	respondJSON(w, http.StatusOK, ShareValidationResponse{Valid: true, ItemType: token.ItemType})
}
