package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/convenios-ui/internal/domain/board"
	apperrors "github.com/target/convenios-ui/internal/errors"
	"github.com/target/convenios-ui/internal/service"
)

// BoardHandlers exposes the session board and its drag protocol.
// Routes are mounted behind RequireAuth, so the session is always on the context.
type BoardHandlers struct {
	Svc    *service.BoardService
	Logger *slog.Logger
}

func (h *BoardHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func requestSessionToken(r *http.Request) string {
	if m, ok := SessionFromContext(r.Context()); ok {
		return m.Token()
	}
	return ""
}

// View returns the filtered board.
// GET /api/board?search=<text>&department=<title>.
func (h *BoardHandlers) View(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.Svc.View(r.Context(), requestSessionToken(r), board.Filter{
		Search:     q.Get("search"),
		Department: q.Get("department"),
	})
	if err != nil {
		h.writeBoardError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// DragStart records transfer intent and returns the drag ticket.
// POST /api/board/drag-start.
func (h *BoardHandlers) DragStart(w http.ResponseWriter, r *http.Request) {
	var req service.DragStartRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" || req.FromColumnID == "" {
		writeBadRequest(w, "item_id and from_column_id are required")
		return
	}
	drag, err := h.Svc.DragStart(r.Context(), requestSessionToken(r), req)
	if err != nil {
		h.writeBoardError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, drag)
}

// DragOver returns the drop hint for a candidate column without changing the board.
// POST /api/board/drag-over.
func (h *BoardHandlers) DragOver(w http.ResponseWriter, r *http.Request) {
	var req service.DragOverRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	hint, err := h.Svc.DragOver(r.Context(), requestSessionToken(r), req)
	if err != nil {
		h.writeBoardError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, hint)
}

// Drop completes the pending drag.
// POST /api/board/drop.
func (h *BoardHandlers) Drop(w http.ResponseWriter, r *http.Request) {
	var req service.DropRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.ColumnID == "" {
		writeBadRequest(w, "column_id is required")
		return
	}
	res, err := h.Svc.Drop(r.Context(), requestSessionToken(r), req)
	if err != nil {
		h.writeBoardError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type cancelDragRequest struct {
	Token string `json:"token"`
}

// CancelDrag discards the pending drag ticket.
// POST /api/board/drag-cancel.
func (h *BoardHandlers) CancelDrag(w http.ResponseWriter, r *http.Request) {
	var req cancelDragRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	cleared, err := h.Svc.CancelDrag(r.Context(), requestSessionToken(r), req.Token)
	if err != nil {
		h.writeBoardError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

// Reset rebuilds the session board from the work item source.
// POST /api/board/reset.
func (h *BoardHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Reset(r.Context(), requestSessionToken(r))
	if err != nil {
		h.writeBoardError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *BoardHandlers) writeBoardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, board.ErrItemNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "item_not_found", Err: err})
	case errors.Is(err, board.ErrNoActiveDrag):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "no_active_drag", Err: board.ErrNoActiveDrag})
	case errors.Is(err, board.ErrDragExpired):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "drag_expired", Err: board.ErrDragExpired})
	case errors.Is(err, service.ErrPersistFailed):
		h.logger().WarnContext(r.Context(), "board move not persisted", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "persist_failed", Err: service.ErrPersistFailed})
	case apperrors.GetCode(err) == apperrors.ErrCodeTimeout:
		h.logger().WarnContext(r.Context(), "board request timed out", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusGatewayTimeout, ErrCode: "board_timeout", Err: errors.New("board request timed out")})
	case apperrors.GetCode(err) == apperrors.ErrCodeCanceled:
		h.logger().DebugContext(r.Context(), "board request canceled", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "board_unavailable", Err: errors.New("board unavailable")})
	default:
		h.logger().ErrorContext(r.Context(), "board request failed", "error", err, "code", apperrors.GetCode(err))
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "board_unavailable",
			Err:     errors.New("board unavailable"),
		})
	}
}
