package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/convenios-ui/internal/domain/board"
	apperrors "github.com/target/convenios-ui/internal/errors"
	"github.com/target/convenios-ui/internal/mocks"
	"github.com/target/convenios-ui/internal/service"
)

func columnCount(v service.BoardView, id string) int {
	for _, c := range v.Columns {
		if c.ID == id {
			return c.Count
		}
	}
	return -1
}

func TestBoardView(t *testing.T) {
	h := newHarness(t)

	t.Run("requires a session", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/board", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	c := h.login(t, userEmail, "usuario123")

	t.Run("full board", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/board", nil, c)
		require.Equal(t, http.StatusOK, rec.Code)
		v := decode[service.BoardView](t, rec)
		assert.Equal(t, 7, v.Total)
		assert.Len(t, v.Columns, 5)
		assert.Equal(t, []string{"Obras Urbanas", "Infraestrutura", "Educação", "Saúde", "Turismo"}, v.Departments)
		assert.Equal(t, 2, columnCount(v, "educacao"))
	})

	t.Run("search and department", func(t *testing.T) {
		v := decode[service.BoardView](t, h.do(t, http.MethodGet, "/api/board?search=ESCOLA", nil, c))
		assert.Equal(t, 1, v.Total)

		v = decode[service.BoardView](t, h.do(t, http.MethodGet, "/api/board?department=Sa%C3%BAde", nil, c))
		require.Len(t, v.Columns, 1)
		assert.Equal(t, "saude", v.Columns[0].ID)
		assert.Equal(t, 5, len(v.Departments))
	})

	t.Run("standard users cannot drag", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/board/drag-start",
			service.DragStartRequest{ItemID: "contract-2", FromColumnID: "educacao"}, c)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestBoardDragAndDrop(t *testing.T) {
	h := newHarness(t)
	c := h.login(t, managerEmail, "gerente123")

	rec := h.do(t, http.MethodPost, "/api/board/drag-start",
		service.DragStartRequest{ItemID: "contract-2", FromColumnID: "educacao"}, c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	drag := decode[board.Drag](t, rec)
	require.NotEmpty(t, drag.Token)

	hint := decode[board.DropHint](t, h.do(t, http.MethodPost, "/api/board/drag-over",
		service.DragOverRequest{Token: drag.Token, ColumnID: "saude"}, c))
	assert.True(t, hint.Accepts)

	hint = decode[board.DropHint](t, h.do(t, http.MethodPost, "/api/board/drag-over",
		service.DragOverRequest{Token: drag.Token, ColumnID: "educacao"}, c))
	assert.False(t, hint.Accepts)
	assert.True(t, hint.SameColumn)

	rec = h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: drag.Token, ColumnID: "saude"}, c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[board.MoveResult](t, rec)
	assert.True(t, res.Moved)
	assert.Equal(t, "saude", res.ToColumnID)

	v := decode[service.BoardView](t, h.do(t, http.MethodGet, "/api/board", nil, c))
	assert.Equal(t, 2, columnCount(v, "saude"))
	assert.Equal(t, 1, columnCount(v, "educacao"))

	t.Run("ticket is single use", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: drag.Token, ColumnID: "turismo"}, c)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "no_active_drag", decode[errorBody](t, rec).Error)
	})

	t.Run("reset restores the source", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/board/reset", nil, c)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, columnCount(decode[service.BoardView](t, rec), "educacao"))
	})

	t.Run("boards are per session", func(t *testing.T) {
		other := h.login(t, adminEmail, "admin123")
		v := decode[service.BoardView](t, h.do(t, http.MethodGet, "/api/board", nil, other))
		assert.Equal(t, 2, columnCount(v, "educacao"))
	})
}

func TestBoardDrag_Errors(t *testing.T) {
	h := newHarness(t)
	c := h.login(t, managerEmail, "gerente123")

	t.Run("unknown item", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/board/drag-start",
			service.DragStartRequest{ItemID: "contract-99", FromColumnID: "educacao"}, c)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "item_not_found", decode[errorBody](t, rec).Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/board/drag-start", service.DragStartRequest{ItemID: "contract-2"}, c)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: "t"}, c)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("drop without drag", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: "forged", ColumnID: "saude"}, c)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("forged token keeps the real drag", func(t *testing.T) {
		drag := decode[board.Drag](t, h.do(t, http.MethodPost, "/api/board/drag-start",
			service.DragStartRequest{ItemID: "contract-6", FromColumnID: "turismo"}, c))
		rec := h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: "forged", ColumnID: "saude"}, c)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: drag.Token, ColumnID: "saude"}, c)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cancelled drag", func(t *testing.T) {
		drag := decode[board.Drag](t, h.do(t, http.MethodPost, "/api/board/drag-start",
			service.DragStartRequest{ItemID: "contract-1", FromColumnID: "obras-urbanas"}, c))
		rec := h.do(t, http.MethodPost, "/api/board/drag-cancel", map[string]string{"token": drag.Token}, c)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]bool{"cleared": true}, decode[map[string]bool](t, rec))

		rec = h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: drag.Token, ColumnID: "saude"}, c)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("expired drag", func(t *testing.T) {
		drag := decode[board.Drag](t, h.do(t, http.MethodPost, "/api/board/drag-start",
			service.DragStartRequest{ItemID: "contract-3", FromColumnID: "infraestrutura"}, c))
		h.clock.AddTime(2 * time.Minute)
		rec := h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: drag.Token, ColumnID: "saude"}, c)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "drag_expired", decode[errorBody](t, rec).Error)
	})
}

func TestBoardDrop_PersistFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	writer := mocks.NewMockAssignmentWriter(ctrl)
	writer.EXPECT().AssignDepartment(gomock.Any(), "contract-4", "turismo").Return(errors.New("db down"))

	h := newHarness(t, func(o *harnessOptions) { o.writer = writer })
	c := h.login(t, managerEmail, "gerente123")

	drag := decode[board.Drag](t, h.do(t, http.MethodPost, "/api/board/drag-start",
		service.DragStartRequest{ItemID: "contract-4", FromColumnID: "saude"}, c))
	rec := h.do(t, http.MethodPost, "/api/board/drop", service.DropRequest{Token: drag.Token, ColumnID: "turismo"}, c)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "persist_failed", body.Error)
	assert.NotContains(t, body.Message, "db down")

	v := decode[service.BoardView](t, h.do(t, http.MethodGet, "/api/board", nil, c))
	assert.Equal(t, 1, columnCount(v, "saude"))
	assert.Equal(t, 1, columnCount(v, "turismo"))
}

func TestBoardView_SnapshotErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		errCode string
	}{
		{
			name:    "timeout",
			err:     fmt.Errorf("load board snapshot: %w", apperrors.MapDBError(context.DeadlineExceeded)),
			code:    http.StatusGatewayTimeout,
			errCode: "board_timeout",
		},
		{
			name:    "canceled",
			err:     apperrors.MapDBError(context.Canceled),
			code:    http.StatusServiceUnavailable,
			errCode: "board_unavailable",
		},
		{
			name:    "internal",
			err:     errors.New("connection refused"),
			code:    http.StatusInternalServerError,
			errCode: "board_unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			source := mocks.NewMockWorkItemSource(ctrl)
			source.EXPECT().Snapshot(gomock.Any()).Return(nil, tt.err)

			h := newHarness(t, func(o *harnessOptions) { o.source = source })
			c := h.login(t, userEmail, "usuario123")

			rec := h.do(t, http.MethodGet, "/api/board", nil, c)
			assert.Equal(t, tt.code, rec.Code)
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.errCode, body.Error)
			assert.NotContains(t, body.Message, "connection refused")
		})
	}
}
