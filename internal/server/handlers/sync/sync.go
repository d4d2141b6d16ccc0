// Package sync exposes the cache server's /sync/* endpoints: the wire
// surface the client-side syncclient.Client talks to, backed by the
// server's metadata store and permission gate.
package sync

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmined/syftbox/internal/server/authgate"
	"github.com/openmined/syftbox/internal/server/handlers/api"
	"github.com/openmined/syftbox/internal/server/store"
)

const (
	codePathRequired  = "E_SYNC_PATH_REQUIRED"
	codeNotFound      = "E_SYNC_NOT_FOUND"
	codeForbidden     = "E_SYNC_FORBIDDEN"
	codeConflict      = "E_SYNC_CONFLICT"
	codeBadSignature  = "E_SYNC_BAD_SIGNATURE"
	codeInternalError = "E_SYNC_INTERNAL_ERROR"
)

// Handler implements the gin handlers for every /sync/* route.
type Handler struct {
	store *store.Store
	gate  *authgate.Gate
}

// New builds a Handler over st, authorizing every mutating call against
// gate.
func New(st *store.Store, gate *authgate.Gate) *Handler {
	return &Handler{store: st, gate: gate}
}

// RegisterRoutes wires every /sync/* endpoint onto group.
func (h *Handler) RegisterRoutes(group gin.IRoutes) {
	group.GET("/sync/datasites", h.ListDatasites)
	group.GET("/sync/state", h.GetRemoteState)
	group.GET("/sync/metadata", h.GetMetadata)
	group.GET("/sync/download", h.Download)
	group.POST("/sync/download_bulk", h.DownloadBulk)
	group.POST("/sync/create", h.Create)
	group.POST("/sync/delete", h.Delete)
	group.POST("/sync/diff", h.GetDiff)
	group.POST("/sync/apply", h.ApplyDiff)
}

// ListDatasites answers GET /sync/datasites.
func (h *Handler) ListDatasites(ctx *gin.Context) {
	summaries, err := h.store.ListDatasites(ctx.Request.Context())
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, codeInternalError, err)
		return
	}
	out := make([]store.DatasiteSummary, len(summaries))
	copy(out, summaries)
	ctx.PureJSON(http.StatusOK, out)
}

// GetRemoteState answers GET /sync/state?dir=.
func (h *Handler) GetRemoteState(ctx *gin.Context) {
	dir := ctx.Query("dir")
	if dir == "" {
		api.AbortWithError(ctx, http.StatusBadRequest, codePathRequired, errors.New("dir is required"))
		return
	}

	rows, err := h.store.ListUnderDir(ctx.Request.Context(), dir)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, codeInternalError, err)
		return
	}

	out := make([]remoteEntry, len(rows))
	for i, r := range rows {
		out[i] = remoteEntry{Path: r.Path, Hash: r.Hash, Size: r.Size, LastModified: r.LastModified}
	}
	ctx.PureJSON(http.StatusOK, out)
}

// GetMetadata answers GET /sync/metadata?path=.
func (h *Handler) GetMetadata(ctx *gin.Context) {
	path, ok := h.requirePath(ctx)
	if !ok {
		return
	}
	if !h.authorize(ctx, path, false) {
		return
	}

	meta, err := h.store.GetMetadata(ctx.Request.Context(), path)
	if err != nil {
		h.respondStoreErr(ctx, err)
		return
	}
	ctx.PureJSON(http.StatusOK, meta)
}

// Download answers GET /sync/download?path=.
func (h *Handler) Download(ctx *gin.Context) {
	path, ok := h.requirePath(ctx)
	if !ok {
		return
	}
	if !h.authorize(ctx, path, false) {
		return
	}

	data, err := h.store.Download(ctx.Request.Context(), path)
	if err != nil {
		h.respondStoreErr(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "application/octet-stream", data)
}

// DownloadBulk answers POST /sync/download_bulk.
func (h *Handler) DownloadBulk(ctx *gin.Context) {
	var body struct {
		Paths []string `json:"paths"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, codePathRequired, err)
		return
	}

	out := make(map[string][]byte, len(body.Paths))
	for _, path := range body.Paths {
		if !h.authorize(ctx, path, false) {
			return
		}
		data, err := h.store.Download(ctx.Request.Context(), path)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			h.respondStoreErr(ctx, err)
			return
		}
		out[path] = data
	}
	ctx.PureJSON(http.StatusOK, out)
}

// Create answers POST /sync/create?path=.
func (h *Handler) Create(ctx *gin.Context) {
	path, ok := h.requirePath(ctx)
	if !ok {
		return
	}
	if !h.authorize(ctx, path, true) {
		return
	}

	data, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, codePathRequired, err)
		return
	}

	if _, err := h.store.Create(ctx.Request.Context(), path, data); err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, codeInternalError, err)
		return
	}
	h.gate.Invalidate(path)
	ctx.Status(http.StatusCreated)
}

// Delete answers POST /sync/delete?path=.
func (h *Handler) Delete(ctx *gin.Context) {
	path, ok := h.requirePath(ctx)
	if !ok {
		return
	}
	if !h.authorize(ctx, path, true) {
		return
	}

	if err := h.store.Delete(ctx.Request.Context(), path); err != nil {
		h.respondStoreErr(ctx, err)
		return
	}
	h.gate.Invalidate(path)
	ctx.Status(http.StatusOK)
}

// GetDiff answers POST /sync/diff?path=: body is the caller's signature of
// its local copy, response body is the raw JSON array of ops.
func (h *Handler) GetDiff(ctx *gin.Context) {
	path, ok := h.requirePath(ctx)
	if !ok {
		return
	}
	if !h.authorize(ctx, path, false) {
		return
	}

	var wireSig wireSignature
	if err := ctx.ShouldBindJSON(&wireSig); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, codeBadSignature, err)
		return
	}
	sig, err := wireSig.toSignature()
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, codeBadSignature, err)
		return
	}

	ops, _, err := h.store.GetDiff(ctx.Request.Context(), path, sig)
	if err != nil {
		h.respondStoreErr(ctx, err)
		return
	}
	ctx.PureJSON(http.StatusOK, toWireOps(ops))
}

// ApplyDiff answers POST /sync/apply: the caller's delta against the
// server's own current bytes.
func (h *Handler) ApplyDiff(ctx *gin.Context) {
	var body applyDiffRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, codePathRequired, err)
		return
	}
	if body.Path == "" {
		api.AbortWithError(ctx, http.StatusBadRequest, codePathRequired, errors.New("path is required"))
		return
	}
	if !h.authorize(ctx, body.Path, true) {
		return
	}

	currentHash, err := h.store.ApplyDiff(ctx.Request.Context(), body.Path, fromWireOps(body.Ops), body.ExpectedHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondStoreErr(ctx, err)
			return
		}
		api.AbortWithError(ctx, http.StatusConflict, codeConflict, err)
		return
	}
	h.gate.Invalidate(body.Path)
	ctx.PureJSON(http.StatusOK, gin.H{"current_hash": currentHash})
}

func (h *Handler) requirePath(ctx *gin.Context) (string, bool) {
	path := ctx.Query("path")
	if path == "" {
		api.AbortWithError(ctx, http.StatusBadRequest, codePathRequired, errors.New("path is required"))
		return "", false
	}
	return path, true
}

// authorize enforces that the caller (resolved by the auth middleware into
// the "user" context value) has write access before a mutating operation,
// or read access before a download. It writes the error response itself
// and returns false on denial.
func (h *Handler) authorize(ctx *gin.Context, path string, write bool) bool {
	caller := ctx.GetString("user")
	access, err := h.gate.Effective(path, caller)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, codeInternalError, err)
		return false
	}
	allowed := access.Read
	if write {
		allowed = access.Write
	}
	if !allowed {
		api.AbortWithError(ctx, http.StatusForbidden, codeForbidden, errors.New("access denied"))
		return false
	}
	return true
}

func (h *Handler) respondStoreErr(ctx *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		api.AbortWithError(ctx, http.StatusNotFound, codeNotFound, err)
		return
	}
	api.AbortWithError(ctx, http.StatusInternalServerError, codeInternalError, err)
}
