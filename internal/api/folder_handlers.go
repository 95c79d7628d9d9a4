package api

import (
	"encoding/json"
	"net/http"

	_ "chmura-plikow/internal/models"

	"github.com/go-chi/chi/v5"
)

type CreateFolderRequest struct {
	Name     string  `json:"name" example:"Dokumenty"`
	ParentID *string `json:"parent_id,omitempty" example:"1f0774e2-9b4c-4c52-9f5a-64f1b3a1a001"`
}

// @Summary      Create a folder
// @Description  Creates a new folder under the given parent (or at the root when parent_id is omitted). The metadata record and the physical directory are created together.
// @Tags         folders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createFolderRequest  body      CreateFolderRequest  true  "Folder data"
// @Success      201  {object}  models.Folder
// @Failure      400  {string}  string "Invalid name"
// @Failure      404  {string}  string "Parent folder not found"
// @Failure      409  {string}  string "A folder with this path already exists"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := s.drive.CreateFolder(r.Context(), claims.UserID, req.Name, req.ParentID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "folder_created", folder)
	respondJSON(w, http.StatusCreated, folder)
}

// @Summary      List folders
// @Description  Lists the authenticated user's folders. With a parent_id query parameter only direct children of that folder are returned; without it all folders are returned.
// @Tags         folders
// @Produce      json
// @Security     BearerAuth
// @Param        parent_id  query     string  false  "Parent folder ID; use 'root' for top-level folders"
// @Success      200  {array}   models.Folder
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders [get]
func (s *Server) ListFoldersHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	parentParam := r.URL.Query().Get("parent_id")
	if parentParam == "" {
		folders, err := s.drive.FoldersByOwner(r.Context(), claims.UserID)
		if err != nil {
			respondDriveError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, folders)
		return
	}

	var parentID *string
	if parentParam != "root" {
		parentID = &parentParam
	}

	folders, err := s.drive.ChildFolders(r.Context(), claims.UserID, parentID)
	if err != nil {
		respondDriveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, folders)
}

type FolderContentResponse struct {
	Folder     interface{} `json:"folder"`
	Subfolders interface{} `json:"subfolders"`
	Files      interface{} `json:"files"`
}

// @Summary      Get a folder with its contents
// @Description  Retrieves a folder along with its direct subfolders and files.
// @Tags         folders
// @Produce      json
// @Security     BearerAuth
// @Param        folderId  path      string  true  "Folder ID"
// @Success      200  {object}  FolderContentResponse
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "Folder not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders/{folderId} [get]
func (s *Server) GetFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	folderID := chi.URLParam(r, "folderId")

	folder, err := s.drive.FolderByID(r.Context(), claims.UserID, folderID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	subfolders, err := s.drive.ChildFolders(r.Context(), claims.UserID, &folder.ID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	files, err := s.drive.FilesInFolder(r.Context(), claims.UserID, &folder.ID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, FolderContentResponse{
		Folder:     folder,
		Subfolders: subfolders,
		Files:      files,
	})
}

type RenameRequest struct {
	NewName string `json:"new_name" example:"Dokumenty 2024"`
}

// @Summary      Rename a folder
// @Description  Renames a folder. The cached paths of every descendant folder and file are rewritten to the new prefix in the same transaction.
// @Tags         folders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        folderId       path      string         true  "Folder ID"
// @Param        renameRequest  body      RenameRequest  true  "New name"
// @Success      200  {object}  models.Folder
// @Failure      400  {string}  string "Invalid name"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "Folder not found"
// @Failure      409  {string}  string "A folder with this path already exists"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders/{folderId}/rename [post]
func (s *Server) RenameFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	folderID := chi.URLParam(r, "folderId")

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := s.drive.RenameFolder(r.Context(), claims.UserID, folderID, req.NewName)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "folder_renamed", folder)
	respondJSON(w, http.StatusOK, folder)
}

type MoveFolderRequest struct {
	NewParentID *string `json:"new_parent_id,omitempty" example:"1f0774e2-9b4c-4c52-9f5a-64f1b3a1a001"`
}

// @Summary      Move a folder
// @Description  Moves a folder under a different parent (or to the root when new_parent_id is omitted). Moving a folder into its own subtree is rejected.
// @Tags         folders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        folderId           path      string             true  "Folder ID"
// @Param        moveFolderRequest  body      MoveFolderRequest  true  "Target parent"
// @Success      200  {object}  models.Folder
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "Folder not found"
// @Failure      409  {string}  string "Conflict"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders/{folderId}/move [post]
func (s *Server) MoveFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	folderID := chi.URLParam(r, "folderId")

	var req MoveFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := s.drive.MoveFolder(r.Context(), claims.UserID, folderID, req.NewParentID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "folder_moved", folder)
	respondJSON(w, http.StatusOK, folder)
}

// @Summary      Toggle folder visibility
// @Description  Flips the is_public flag of a folder.
// @Tags         folders
// @Produce      json
// @Security     BearerAuth
// @Param        folderId  path      string  true  "Folder ID"
// @Success      200  {object}  models.Folder
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "Folder not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders/{folderId}/toggle-public [post]
func (s *Server) ToggleFolderPublicHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	folderID := chi.URLParam(r, "folderId")

	folder, err := s.drive.ToggleFolderVisibility(r.Context(), claims.UserID, folderID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "folder_visibility_changed", folder)
	respondJSON(w, http.StatusOK, folder)
}

// @Summary      Share a folder
// @Description  Issues a share token for a folder. Anyone holding the token can browse the folder without authentication. Every call returns a fresh token.
// @Tags         folders
// @Produce      json
// @Security     BearerAuth
// @Param        folderId  path      string  true  "Folder ID"
// @Success      201  {object}  models.ShareToken
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "Folder not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders/{folderId}/share [post]
func (s *Server) ShareFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	folderID := chi.URLParam(r, "folderId")

	token, err := s.drive.ShareFolder(r.Context(), claims.UserID, folderID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "folder_shared", token)
	respondJSON(w, http.StatusCreated, token)
}

// @Summary      Delete a folder
// @Description  Recursively and permanently deletes a folder with its entire subtree, both metadata and physical objects. A failure partway aborts the walk and reports the path that failed.
// @Tags         folders
// @Security     BearerAuth
// @Param        folderId  path      string  true  "Folder ID"
// @Success      204  {null}    nil "No Content"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "Folder not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /folders/{folderId} [delete]
func (s *Server) DeleteFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	folderID := chi.URLParam(r, "folderId")

	if err := s.drive.DeleteFolder(r.Context(), claims.UserID, folderID); err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "folder_deleted", map[string]string{"id": folderID})
	w.WriteHeader(http.StatusNoContent)
}
