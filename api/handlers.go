package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xiaoyuanzhu-com/my-life-db/apierrors"
	"github.com/xiaoyuanzhu-com/my-life-db/claude"
	"github.com/xiaoyuanzhu-com/my-life-db/db"
	"github.com/xiaoyuanzhu-com/my-life-db/stream"
)

// Handlers closes over the store/broadcaster it was constructed with — no
// package-level state, so SetupRoutes can be called against a fresh set of
// components from a test without disturbing any other test.
type Handlers struct {
	store       *db.Store
	broadcaster *stream.Broadcaster
	archiveRoot string
	shutdownCtx context.Context
}

// NewHandlers wires a Handlers to the components main (or a test) already
// constructed.
func NewHandlers(store *db.Store, broadcaster *stream.Broadcaster, archiveRoot string, shutdownCtx context.Context) *Handlers {
	return &Handlers{
		store:       store,
		broadcaster: broadcaster,
		archiveRoot: archiveRoot,
		shutdownCtx: shutdownCtx,
	}
}

// metadataView is getConversationMetadata's response shape: the
// cheap-to-read subset of a SessionRecord that doesn't require opening the
// backing JSONL file.
type metadataView struct {
	Summary         string `json:"summary"`
	ProjectPath     string `json:"projectPath"`
	Model           string `json:"model"`
	TotalDurationMs int64  `json:"totalDurationMs"`
}

// sessionPatch is the PATCH request body for updateSessionInfo — a subset
// of SessionRecord's user-preference fields, all optional.
type sessionPatch struct {
	CustomName            *string `json:"customName"`
	Pinned                *bool   `json:"pinned"`
	Archived              *bool   `json:"archived"`
	ContinuationSessionID *string `json:"continuationSessionId"`
	InitialCommitHead     *string `json:"initialCommitHead"`
	PermissionMode        *string `json:"permissionMode"`
}

// listConversations handles GET /sessions.
func (h *Handlers) listConversations(c *gin.Context) {
	q := db.ListQuery{
		OrderBy:  c.Query("orderBy"),
		OrderDir: c.Query("orderDir"),
	}

	if v := c.Query("projectPath"); v != "" {
		q.ProjectPath = &v
	}
	if v, ok := parseBoolQuery(c, "archived"); ok {
		q.Archived = &v
	}
	if v, ok := parseBoolQuery(c, "pinned"); ok {
		q.Pinned = &v
	}
	if v, ok := parseBoolQuery(c, "hasContinuation"); ok {
		q.HasContinuation = &v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		q.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil {
		q.Offset = v
	}

	records, total, err := h.store.List(q)
	if err != nil {
		RespondError(c, apierrors.HistoryReadFailed(err))
		return
	}

	RespondList(c, records, total)
}

// getConversationDetails handles GET /sessions/:id.
func (h *Handlers) getConversationDetails(c *gin.Context) {
	id := c.Param("id")

	messages, err := claude.FetchConversation(h.store, h.archiveRoot, id)
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondData(c, messages)
}

// getConversationMetadata handles GET /sessions/:id/metadata.
func (h *Handlers) getConversationMetadata(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.store.Get(id)
	if err != nil {
		RespondError(c, apierrors.HistoryReadFailed(err))
		return
	}

	RespondData(c, metadataView{
		Summary:         rec.Summary,
		ProjectPath:     rec.ProjectPath,
		Model:           rec.Model,
		TotalDurationMs: rec.TotalDurationMs,
	})
}

// updateSessionInfo handles PATCH /sessions/:id.
func (h *Handlers) updateSessionInfo(c *gin.Context) {
	id := c.Param("id")

	var body sessionPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}

	rec, err := h.store.UpsertUserFields(id, db.UserFieldsPatch{
		CustomName:            body.CustomName,
		Pinned:                body.Pinned,
		Archived:              body.Archived,
		ContinuationSessionID: body.ContinuationSessionID,
		InitialCommitHead:     body.InitialCommitHead,
		PermissionMode:        body.PermissionMode,
	})
	if err != nil {
		RespondError(c, apierrors.SessionUpdateFailed(err))
		return
	}

	RespondData(c, rec)
}

// deleteSession handles DELETE /sessions/:id.
func (h *Handlers) deleteSession(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.Delete(id); err != nil {
		RespondError(c, apierrors.SessionUpdateFailed(err))
		return
	}

	RespondNoContent(c)
}

// archiveAll handles POST /sessions/archive-all.
func (h *Handlers) archiveAll(c *gin.Context) {
	count, err := h.store.ArchiveAll()
	if err != nil {
		RespondError(c, apierrors.SessionUpdateFailed(err))
		return
	}

	RespondData(c, gin.H{"archivedCount": count})
}

// streamHandler handles GET /stream/:streamingId, upgrading the connection
// to a long-lived server-sent-event stream and registering it with the
// broadcaster. It tears down when the client disconnects or the process
// begins its graceful shutdown.
func (h *Handlers) streamHandler(c *gin.Context) {
	streamingID := c.Param("streamingId")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Access-Control-Allow-Origin", "*")

	c.Writer.Flush()

	remove := h.broadcaster.AddClient(streamingID, c.Writer)
	defer remove()

	select {
	case <-c.Request.Context().Done():
	case <-h.shutdownCtx.Done():
	}
}

func parseBoolQuery(c *gin.Context, key string) (bool, bool) {
	v := c.Query(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
