package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tagalbum/internal/formatter"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/desertthunder/tagalbum/internal/tasks"
)

const (
	msgNoSuchAlbum     = "No such album"
	msgMissingHashtag  = "Parameter hashtag was not found in request"
	msgNoImages        = "No images found for hashtag %s"
	msgNoNewImages     = "No new images"
	msgUpstream        = "Could not obtain data from Twitter"
	msgDownload        = "Error occurred while downloading photo"
	msgLocked          = "Another sync is in progress"
	msgInternal        = "Internal server error"
	msgCreated         = "Successfully created new album for hashtag %s"
	msgUpdated         = "Successfully updated album with hashtag %s"
	msgDeleted         = "Successfully deleted album with hashtag %s"
	maxHashtagBodySize = 1 << 16
)

// Response is the JSON envelope of every API response.
type Response struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// AlbumReader looks up stored albums.
type AlbumReader interface {
	List(ctx context.Context) ([]*models.Album, error)
	Get(ctx context.Context, id string) (*models.Album, error)
	GetBySequence(ctx context.Context, sequence int64) (*models.Album, error)
}

// Locker serializes syncs across processes. See [shared.SyncLock].
type Locker interface {
	TryLock() error
	Unlock() error
}

// AlbumHandlerOpts configures an [AlbumHandler].
type AlbumHandlerOpts struct {
	Engine   tasks.SyncEngine
	Albums   AlbumReader
	Lock     Locker // optional
	UseBlobs bool   // report stored blobs instead of upstream media URLs
	Logger   *log.Logger
}

// AlbumHandler serves the album JSON API under /api/albums.
type AlbumHandler struct {
	engine   tasks.SyncEngine
	albums   AlbumReader
	lock     Locker
	useBlobs bool
	logger   *log.Logger
}

// NewAlbumHandler creates a new AlbumHandler.
func NewAlbumHandler(opts AlbumHandlerOpts) *AlbumHandler {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &AlbumHandler{
		engine:   opts.Engine,
		albums:   opts.Albums,
		lock:     opts.Lock,
		useBlobs: opts.UseBlobs,
		logger:   shared.WithLogger(opts.Logger, "component", "api"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AlbumHandler) Routes() []string {
	return []string{
		"GET /api/albums",
		"POST /api/albums",
		"GET /api/albums/{id}",
		"PATCH /api/albums/{id}",
		"DELETE /api/albums/{id}",
	}
}

// ServeHTTP dispatches on method and on whether the path names an album.
func (h *AlbumHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch {
	case r.Method == http.MethodGet && id == "":
		h.list(w, r)
	case r.Method == http.MethodPost && id == "":
		h.create(w, r)
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodPatch:
		h.refresh(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		writeEnvelope(w, h.logger, http.StatusMethodNotAllowed, nil, "Method not allowed")
	}
}

func (h *AlbumHandler) list(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albums.List(r.Context())
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeEnvelope(w, h.logger, http.StatusOK, formatter.NewAlbumViews(albums, h.useBlobs), "")
}

func (h *AlbumHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	album, err := h.lookup(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	writeEnvelope(w, h.logger, http.StatusOK, formatter.NewAlbumView(album, h.useBlobs), "")
}

func (h *AlbumHandler) create(w http.ResponseWriter, r *http.Request) {
	tag, err := hashtagParam(r)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	if err := shared.ValidateHashtag(tag); err != nil {
		h.writeError(w, err, tag)
		return
	}

	unlock, err := h.acquire()
	if err != nil {
		h.writeError(w, err, tag)
		return
	}
	defer unlock()

	album, err := h.engine.CreateAlbum(r.Context(), nil, tag)
	if err != nil {
		h.writeError(w, err, tag)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/albums/%d", album.Sequence))
	writeEnvelope(w, h.logger, http.StatusCreated, formatter.NewAlbumView(album, h.useBlobs), fmt.Sprintf(msgCreated, tag))
}

func (h *AlbumHandler) refresh(w http.ResponseWriter, r *http.Request, id string) {
	album, err := h.lookup(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	unlock, err := h.acquire()
	if err != nil {
		h.writeError(w, err, album.Hashtag)
		return
	}
	defer unlock()

	updated, err := h.engine.UpdateAlbum(r.Context(), nil, album)
	if errors.Is(err, shared.ErrNoChange) {
		writeEnvelope(w, h.logger, http.StatusOK, formatter.NewAlbumView(album, h.useBlobs), msgNoNewImages)
		return
	}
	if err != nil {
		h.writeError(w, err, album.Hashtag)
		return
	}

	writeEnvelope(w, h.logger, http.StatusOK, formatter.NewAlbumView(updated, h.useBlobs), fmt.Sprintf(msgUpdated, album.Hashtag))
}

func (h *AlbumHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	album, err := h.lookup(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	unlock, err := h.acquire()
	if err != nil {
		h.writeError(w, err, album.Hashtag)
		return
	}
	defer unlock()

	if err := h.engine.DeleteAlbum(r.Context(), album.ID); err != nil {
		h.writeError(w, err, album.Hashtag)
		return
	}
	writeEnvelope(w, h.logger, http.StatusOK, nil, fmt.Sprintf(msgDeleted, album.Hashtag))
}

// lookup resolves id as a sequence number when numeric, otherwise as a row id.
func (h *AlbumHandler) lookup(ctx context.Context, id string) (*models.Album, error) {
	if seq, err := strconv.ParseInt(id, 10, 64); err == nil {
		return h.albums.GetBySequence(ctx, seq)
	}
	return h.albums.Get(ctx, id)
}

func (h *AlbumHandler) acquire() (func(), error) {
	if h.lock == nil {
		return func() {}, nil
	}
	if err := h.lock.TryLock(); err != nil {
		return nil, err
	}
	return func() {
		if err := h.lock.Unlock(); err != nil {
			h.logger.Warn("failed to release sync lock", "error", err)
		}
	}, nil
}

// writeError maps err to a status and message.
func (h *AlbumHandler) writeError(w http.ResponseWriter, err error, tag string) {
	status, msg := statusFor(err, tag)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	} else {
		h.logger.Debug("request rejected", "status", status, "error", err)
	}
	writeEnvelope(w, h.logger, status, nil, msg)
}

func statusFor(err error, tag string) (int, string) {
	var authErr *shared.AuthError
	var upstreamErr *shared.UpstreamError

	switch {
	case errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest, msgMissingHashtag
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, shared.ErrNoResults):
		return http.StatusBadRequest, fmt.Sprintf(msgNoImages, tag)
	case errors.Is(err, shared.ErrAlbumNotFound):
		return http.StatusNotFound, msgNoSuchAlbum
	case errors.Is(err, shared.ErrLocked):
		return http.StatusConflict, msgLocked
	case errors.As(err, &authErr), errors.As(err, &upstreamErr),
		errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrInvalidConfig),
		errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, msgUpstream
	case errors.Is(err, shared.ErrFetch):
		return http.StatusInternalServerError, msgDownload
	}
	return http.StatusInternalServerError, msgInternal
}

// validationMessage strips the sentinel prefix from a validation error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": ")
}

// hashtagParam reads hashtag from a JSON body or from form values.
func hashtagParam(r *http.Request) (string, error) {
	var tag string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			Hashtag string `json:"hashtag"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxHashtagBodySize)).Decode(&body); err != nil {
			return "", fmt.Errorf("%w: invalid JSON body", shared.ErrInvalidInput)
		}
		tag = body.Hashtag
	} else {
		tag = r.FormValue("hashtag")
	}

	if tag == "" {
		return "", fmt.Errorf("%w: hashtag", shared.ErrMissingArgument)
	}
	return tag, nil
}

func writeEnvelope(w http.ResponseWriter, logger *log.Logger, status int, data any, msg string) {
	body, err := shared.MarshalJSON(Response{Data: data, Message: msg}, false)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
