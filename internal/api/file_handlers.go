package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	_ "chmura-plikow/internal/models"

	"github.com/go-chi/chi/v5"
)

// maxUploadBytes ogranicza rozmiar pojedynczego multipartu (512 MiB).
const maxUploadBytes = 512 << 20

// @Summary      Upload a file
// @Description  Uploads a file into the given folder (or the root when folder_id is omitted). The content is written to physical storage first; the metadata record follows in a transaction together with the storage accounting.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file       formData  file    true   "File content"
// @Param        folder_id  formData  string  false  "Target folder ID"
// @Success      201  {object}  models.File
// @Failure      400  {string}  string "Invalid upload"
// @Failure      404  {string}  string "Target folder not found"
// @Failure      409  {string}  string "A file with this path already exists"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid multipart upload", http.StatusBadRequest)
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing 'file' form field", http.StatusBadRequest)
		return
	}
	defer part.Close()

	var folderID *string
	if v := r.FormValue("folder_id"); v != "" {
		folderID = &v
	}

	var mimeType *string
	if ct := header.Header.Get("Content-Type"); ct != "" {
		mimeType = &ct
	}

	file, err := s.drive.CreateFile(r.Context(), claims.UserID, header.Filename, folderID, part, mimeType)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "file_created", file)
	respondJSON(w, http.StatusCreated, file)
}

// @Summary      List files
// @Description  Lists the authenticated user's files. With a folder_id query parameter only files of that folder are returned ('root' means top-level files); without it all files are returned.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        folder_id  query     string  false  "Folder ID; use 'root' for top-level files"
// @Success      200  {array}   models.File
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files [get]
func (s *Server) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	folderParam := r.URL.Query().Get("folder_id")
	if folderParam == "" {
		files, err := s.drive.FilesByOwner(r.Context(), claims.UserID)
		if err != nil {
			respondDriveError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, files)
		return
	}

	var folderID *string
	if folderParam != "root" {
		folderID = &folderParam
	}

	files, err := s.drive.FilesInFolder(r.Context(), claims.UserID, folderID)
	if err != nil {
		respondDriveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, files)
}

// @Summary      Download a file
// @Description  Streams the content of the given file.
// @Tags         files
// @Produce      application/octet-stream
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      200  {file}    file
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "File not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/{fileId}/download [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	file, stream, err := s.drive.OpenFile(r.Context(), claims.UserID, fileID)
	if err != nil {
		respondDriveError(w, err)
		return
	}
	defer stream.Close()

	writeFileStream(w, file.Name, file.MimeType, file.SizeBytes, stream)
}

func writeFileStream(w http.ResponseWriter, name string, mimeType *string, size int64, stream io.Reader) {
	contentType := "application/octet-stream"
	if mimeType != nil && *mimeType != "" {
		contentType = *mimeType
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(name)))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}

	if _, err := io.Copy(w, stream); err != nil {
		// nagłówki już poszły — możemy tylko zalogować
		log.Printf("WARN: Failed to stream file %s: %v", name, err)
	}
}

// @Summary      Rename a file
// @Description  Renames a file within its folder. The physical object is renamed first, then the metadata record.
// @Tags         files
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId         path      string         true  "File ID"
// @Param        renameRequest  body      RenameRequest  true  "New name"
// @Success      200  {object}  models.File
// @Failure      400  {string}  string "Invalid name"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "File not found"
// @Failure      409  {string}  string "A file with this path already exists"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/{fileId}/rename [post]
func (s *Server) RenameFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	file, err := s.drive.RenameFile(r.Context(), claims.UserID, fileID, req.NewName)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "file_renamed", file)
	respondJSON(w, http.StatusOK, file)
}

type MoveFileRequest struct {
	NewFolderID *string `json:"new_folder_id,omitempty" example:"1f0774e2-9b4c-4c52-9f5a-64f1b3a1a001"`
}

// @Summary      Move a file
// @Description  Moves a file into a different folder (or to the root when new_folder_id is omitted).
// @Tags         files
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId           path      string           true  "File ID"
// @Param        moveFileRequest  body      MoveFileRequest  true  "Target folder"
// @Success      200  {object}  models.File
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "File or folder not found"
// @Failure      409  {string}  string "A file with this path already exists"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/{fileId}/move [post]
func (s *Server) MoveFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	var req MoveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	file, err := s.drive.MoveFile(r.Context(), claims.UserID, fileID, req.NewFolderID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "file_moved", file)
	respondJSON(w, http.StatusOK, file)
}

// @Summary      Clone a file
// @Description  Duplicates a file next to the original under the name "{base} (copy){ext}"; on collision "{base} (copy 1){ext}", "{base} (copy 2){ext}" and so on.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      201  {object}  models.File
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "File not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/{fileId}/clone [post]
func (s *Server) CloneFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	clone, err := s.drive.CloneFile(r.Context(), claims.UserID, fileID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "file_created", clone)
	respondJSON(w, http.StatusCreated, clone)
}

// @Summary      Toggle file visibility
// @Description  Flips the is_public flag of a file. Public files show up in other users' shared view.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      200  {object}  models.File
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "File not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/{fileId}/toggle-public [post]
func (s *Server) ToggleFilePublicHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	file, err := s.drive.ToggleFileVisibility(r.Context(), claims.UserID, fileID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "file_visibility_changed", file)
	respondJSON(w, http.StatusOK, file)
}

// @Summary      Share a file
// @Description  Issues a share token for a file. Anyone holding the token can download the file without authentication. Every call returns a fresh token.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      201  {object}  models.ShareToken
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "File not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/{fileId}/share [post]
func (s *Server) ShareFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	token, err := s.drive.ShareFile(r.Context(), claims.UserID, fileID)
	if err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "file_shared", token)
	respondJSON(w, http.StatusCreated, token)
}

// @Summary      Delete a file
// @Description  Permanently deletes a file: the physical object first, then the metadata record, share tokens and storage accounting in one transaction. A missing physical object is tolerated.
// @Tags         files
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File ID"
// @Success      204  {null}    nil "No Content"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "File not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/{fileId} [delete]
func (s *Server) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	if err := s.drive.RemoveFile(r.Context(), claims.UserID, fileID); err != nil {
		respondDriveError(w, err)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "file_deleted", map[string]string{"id": fileID})
	w.WriteHeader(http.StatusNoContent)
}

// @Summary      List public files of other users
// @Description  Retrieves files flagged as public that belong to users other than the authenticated one.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.File
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /files/public [get]
func (s *Server) ListPublicFilesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	files, err := s.drive.PublicFilesOfOthers(r.Context(), claims.UserID)
	if err != nil {
		respondDriveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, files)
}

// @Summary      Search files and folders
// @Description  Searches the user's files and folders by a case-insensitive name substring. Results are returned as two separate lists.
// @Tags         search
// @Produce      json
// @Security     BearerAuth
// @Param        q  query     string  true  "Name fragment to search for"
// @Success      200  {object}  drive.SearchResult
// @Failure      400  {string}  string "Missing query"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /search [get]
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "Query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	result, err := s.drive.Search(r.Context(), claims.UserID, query)
	if err != nil {
		respondDriveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
