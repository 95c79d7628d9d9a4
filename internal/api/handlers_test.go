package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chmura-plikow/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Funkcja pomocnicza: żądanie z claimami zalogowanego użytkownika testowego
func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(context.WithValue(req.Context(), userContextKey, testUserClaims))
}

// Funkcja pomocnicza: doklejenie parametru ścieżki chi do żądania
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func createFolderViaAPI(t *testing.T, name string, parentID *string) models.Folder {
	payload := CreateFolderRequest{Name: name, ParentID: parentID}
	body, _ := json.Marshal(payload)
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, authedRequest("POST", "/api/v1/folders", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

	var folder models.Folder
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &folder))
	return folder
}

func uploadFileViaAPI(t *testing.T, name string, folderID *string, content string) models.File {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	if folderID != nil {
		require.NoError(t, writer.WriteField("folder_id", *folderID))
	}
	require.NoError(t, writer.Close())

	req := authedRequest("POST", "/api/v1/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.UploadFileHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

	var file models.File
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &file))
	return file
}

func TestAPI_CreateFolder_Success(t *testing.T) {
	folder := createFolderViaAPI(t, "Nowy_Folder_Sukces", nil)
	require.Equal(t, "Nowy_Folder_Sukces", folder.Name)
	require.Equal(t, "Nowy_Folder_Sukces", folder.RelativePath)
}

func TestAPI_CreateFolder_EmptyName(t *testing.T) {
	payload := CreateFolderRequest{Name: "  "}
	body, _ := json.Marshal(payload)
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, authedRequest("POST", "/api/v1/folders", bytes.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_CreateFolder_NameConflict(t *testing.T) {
	createFolderViaAPI(t, "Folder_Konfliktowy", nil)

	payload := CreateFolderRequest{Name: "Folder_Konfliktowy"}
	body, _ := json.Marshal(payload)
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, authedRequest("POST", "/api/v1/folders", bytes.NewReader(body)))

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestAPI_UploadAndDownloadFile(t *testing.T) {
	folder := createFolderViaAPI(t, "Upload_Test", nil)
	file := uploadFileViaAPI(t, "dane.txt", &folder.ID, "zawartość pliku")
	require.Equal(t, "Upload_Test/dane.txt", file.RelativePath)

	// Pobranie przez API zwraca tę samą zawartość
	req := withURLParam(authedRequest("GET", "/api/v1/files/"+file.ID+"/download", nil), "fileId", file.ID)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.DownloadFileHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "zawartość pliku", rr.Body.String())
	require.Contains(t, rr.Header().Get("Content-Disposition"), "dane.txt")
}

func TestAPI_RenameFolder(t *testing.T) {
	folder := createFolderViaAPI(t, "Do_Zmiany", nil)

	payload := RenameRequest{NewName: "Po_Zmianie"}
	body, _ := json.Marshal(payload)
	req := withURLParam(authedRequest("POST", "/api/v1/folders/"+folder.ID+"/rename", bytes.NewReader(body)), "folderId", folder.ID)
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.RenameFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())
	var renamed models.Folder
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &renamed))
	require.Equal(t, "Po_Zmianie", renamed.Name)
	require.Equal(t, "Po_Zmianie", renamed.RelativePath)
}

func TestAPI_GetFolderWithContents(t *testing.T) {
	folder := createFolderViaAPI(t, "Z_Zawartoscia", nil)
	createFolderViaAPI(t, "Podfolder", &folder.ID)
	uploadFileViaAPI(t, "w-srodku.txt", &folder.ID, "x")

	req := withURLParam(authedRequest("GET", "/api/v1/folders/"+folder.ID, nil), "folderId", folder.ID)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.GetFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Folder     models.Folder   `json:"folder"`
		Subfolders []models.Folder `json:"subfolders"`
		Files      []models.File   `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, folder.ID, resp.Folder.ID)
	require.Len(t, resp.Subfolders, 1)
	require.Len(t, resp.Files, 1)
}

func TestAPI_DeleteFolder(t *testing.T) {
	folder := createFolderViaAPI(t, "Do_Skasowania", nil)
	uploadFileViaAPI(t, "ofiara.txt", &folder.ID, "x")

	req := withURLParam(authedRequest("DELETE", "/api/v1/folders/"+folder.ID, nil), "folderId", folder.ID)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.DeleteFolderHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Drugi raz: folderu już nie ma
	req = withURLParam(authedRequest("DELETE", "/api/v1/folders/"+folder.ID, nil), "folderId", folder.ID)
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.DeleteFolderHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_CloneFile(t *testing.T) {
	file := uploadFileViaAPI(t, "oryginal.txt", nil, "kopiuj mnie")

	req := withURLParam(authedRequest("POST", "/api/v1/files/"+file.ID+"/clone", nil), "fileId", file.ID)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.CloneFileHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())
	var clone models.File
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &clone))
	require.Equal(t, "oryginal (copy).txt", clone.Name)
}

func TestAPI_ShareFileAndPublicAccess(t *testing.T) {
	file := uploadFileViaAPI(t, "do-udostepnienia.txt", nil, "publiczny sekret")

	// Wydanie tokenu wymaga uwierzytelnienia
	req := withURLParam(authedRequest("POST", "/api/v1/files/"+file.ID+"/share", nil), "fileId", file.ID)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.ShareFileHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

	var token models.ShareToken
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))
	require.NotEmpty(t, token.Token)

	// Pobranie po tokenie działa BEZ claimów w kontekście
	pubReq := httptest.NewRequest("GET", "/api/v1/shared/"+token.Token+"/download", nil)
	pubReq = withURLParam(pubReq, "token", token.Token)
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.DownloadSharedFileHandler).ServeHTTP(rr, pubReq)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "publiczny sekret", rr.Body.String())

	// Walidacja tokenu
	valReq := httptest.NewRequest("GET", "/api/v1/shared/"+token.Token+"/validate", nil)
	valReq = withURLParam(valReq, "token", token.Token)
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.ValidateShareTokenHandler).ServeHTTP(rr, valReq)
	require.Equal(t, http.StatusOK, rr.Code)

	var validation ShareValidationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &validation))
	require.True(t, validation.Valid)
	require.Equal(t, models.ShareItemFile, validation.ItemType)

	// Zmyślony token jest niepoprawny, ale odpowiedź to nadal 200
	badReq := httptest.NewRequest("GET", "/api/v1/shared/zmyslony/validate", nil)
	badReq = withURLParam(badReq, "token", "zmyslony")
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.ValidateShareTokenHandler).ServeHTTP(rr, badReq)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &validation))
	require.False(t, validation.Valid)
}

func TestAPI_SearchHandler(t *testing.T) {
	uploadFileViaAPI(t, "szukany-unikat.txt", nil, "x")

	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.SearchHandler).ServeHTTP(rr, authedRequest("GET", "/api/v1/search?q=szukany-unikat", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var result struct {
		Files   []models.File   `json:"files"`
		Folders []models.Folder `json:"folders"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Len(t, result.Files, 1)

	// Brak parametru q
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.SearchHandler).ServeHTTP(rr, authedRequest("GET", "/api/v1/search", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_StorageUsage(t *testing.T) {
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.GetStorageUsageHandler).ServeHTTP(rr, authedRequest("GET", "/api/v1/me/storage", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var usage StorageUsageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &usage))
	require.Positive(t, usage.QuotaBytes)
}

func TestAPI_AuthMiddlewareRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	rr := httptest.NewRecorder()

	testServer.AuthMiddleware(http.HandlerFunc(testServer.GetCurrentUserHandler)).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Poprawny token przechodzi
	req = httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+testUserToken)
	rr = httptest.NewRecorder()
	testServer.AuthMiddleware(http.HandlerFunc(testServer.GetCurrentUserHandler)).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
