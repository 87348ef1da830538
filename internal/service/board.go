package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/convenios-ui/internal/data"
	"github.com/target/convenios-ui/internal/domain/board"
	"github.com/target/convenios-ui/internal/ports"
)

// ErrPersistFailed is returned by Drop when the assignment could not be written.
// The move has been undone by then.
var ErrPersistFailed = errors.New("persist move failed")

const (
	defaultUrgentDays = 30
	defaultDragTTL    = 2 * time.Minute
	lockStripes       = 64
)

//nolint:gochecknoglobals // fixed namespace for board state keys
var boardNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("convenios-ui/board-state"))

// StateKey derives the board state key for a session token. Tokens are never used as keys directly.
func StateKey(sessionToken string) string {
	return uuid.NewSHA1(boardNamespace, []byte(sessionToken)).String()
}

// BoardServiceOptions groups dependencies for BoardService.
type BoardServiceOptions struct {
	Source ports.WorkItemSource
	// Store keeps per-session state. Nil uses an in-process store.
	Store ports.BoardStore
	// Writer persists moves. Nil keeps moves session-local.
	Writer       ports.AssignmentWriter
	TimeProvider data.TimeProvider
	// DragTTL bounds how long a drag ticket is honored.
	DragTTL time.Duration
	// UrgentDays is the remaining-days threshold below which items are urgent.
	UrgentDays int
	Logger     *slog.Logger
}

// BoardService serves each session its own board and applies the drag protocol to it.
type BoardService struct {
	source       ports.WorkItemSource
	store        ports.BoardStore
	writer       ports.AssignmentWriter
	timeProvider data.TimeProvider
	dragTTL      time.Duration
	urgentDays   int
	logger       *slog.Logger

	locks [lockStripes]sync.Mutex
}

// NewBoardService constructs a BoardService.
func NewBoardService(opts BoardServiceOptions) *BoardService {
	if opts.Store == nil {
		opts.Store = NewMemoryBoardStore()
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.DragTTL <= 0 {
		opts.DragTTL = defaultDragTTL
	}
	if opts.UrgentDays <= 0 {
		opts.UrgentDays = defaultUrgentDays
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BoardService{
		source:       opts.Source,
		store:        opts.Store,
		writer:       opts.Writer,
		timeProvider: opts.TimeProvider,
		dragTTL:      opts.DragTTL,
		urgentDays:   opts.UrgentDays,
		logger:       opts.Logger,
	}
}

// ItemView is a work item decorated with values derived at render time.
type ItemView struct {
	board.WorkItem
	StatusLabel   string        `json:"status_label"`
	RemainingDays int           `json:"remaining_days"`
	Urgency       board.Urgency `json:"urgency"`
}

// ColumnView is one filtered column.
type ColumnView struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Count int        `json:"count"`
	Items []ItemView `json:"items"`
}

// BoardView is the filtered board a client renders.
type BoardView struct {
	AsOf        time.Time    `json:"as_of"`
	Columns     []ColumnView `json:"columns"`
	Departments []string     `json:"departments"`
	Total       int          `json:"total"`
	Pending     *board.Drag  `json:"pending,omitempty"`
}

// View returns the session's board projected through f.
func (s *BoardService) View(ctx context.Context, sessionToken string, f board.Filter) (BoardView, error) {
	key := StateKey(sessionToken)
	unlock := s.lock(key)
	defer unlock()

	st, err := s.loadOrInit(ctx, key)
	if err != nil {
		return BoardView{}, err
	}
	return s.render(st, f), nil
}

func (s *BoardService) render(st board.State, f board.Filter) BoardView {
	asOf := s.timeProvider.Now()
	filtered := st.Board.ApplyFilter(f)

	view := BoardView{
		AsOf:        asOf,
		Columns:     make([]ColumnView, 0, len(filtered.Columns)),
		Departments: st.Board.Departments(),
		Total:       filtered.Count(),
	}
	if st.Pending != nil {
		p := *st.Pending
		p.Token = ""
		view.Pending = &p
	}
	for _, c := range filtered.Columns {
		cv := ColumnView{ID: c.ID, Title: c.Title, Count: len(c.Items), Items: make([]ItemView, 0, len(c.Items))}
		for _, it := range c.Items {
			days := board.RemainingDays(it, asOf)
			cv.Items = append(cv.Items, ItemView{
				WorkItem:      it,
				StatusLabel:   it.Status.Label(),
				RemainingDays: days,
				Urgency:       board.Classify(days, s.urgentDays),
			})
		}
		view.Columns = append(view.Columns, cv)
	}
	return view
}

// DragStartRequest groups parameters for DragStart.
type DragStartRequest struct {
	ItemID       string `json:"item_id"`
	FromColumnID string `json:"from_column_id"`
}

// DragStart records transfer intent and returns the drag ticket the client must present on drop.
func (s *BoardService) DragStart(ctx context.Context, sessionToken string, req DragStartRequest) (board.Drag, error) {
	key := StateKey(sessionToken)
	unlock := s.lock(key)
	defer unlock()

	st, err := s.loadOrInit(ctx, key)
	if err != nil {
		return board.Drag{}, err
	}
	if err := st.DragStart(board.DragStartInput{
		Token:        uuid.NewString(),
		ItemID:       req.ItemID,
		FromColumnID: req.FromColumnID,
		Now:          s.timeProvider.Now(),
	}); err != nil {
		return board.Drag{}, fmt.Errorf("drag start: %w", err)
	}
	if err := s.store.Save(ctx, key, st); err != nil {
		return board.Drag{}, fmt.Errorf("save board state: %w", err)
	}
	return *st.Pending, nil
}

// DragOverRequest groups parameters for DragOver.
type DragOverRequest struct {
	Token    string `json:"token"`
	ColumnID string `json:"column_id"`
}

// DragOver returns a drop hint for a candidate column. State is never written.
func (s *BoardService) DragOver(ctx context.Context, sessionToken string, req DragOverRequest) (board.DropHint, error) {
	key := StateKey(sessionToken)
	unlock := s.lock(key)
	defer unlock()

	st, err := s.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrStateNotFound) {
			return board.DropHint{}, board.ErrNoActiveDrag
		}
		return board.DropHint{}, fmt.Errorf("load board state: %w", err)
	}
	return st.DragOver(req.Token, req.ColumnID)
}

// DropRequest groups parameters for Drop.
type DropRequest struct {
	Token    string `json:"token"`
	ColumnID string `json:"column_id"`
}

// Drop completes the pending drag. With an AssignmentWriter configured the move is
// applied, persisted, and undone when persistence fails.
func (s *BoardService) Drop(ctx context.Context, sessionToken string, req DropRequest) (board.MoveResult, error) {
	key := StateKey(sessionToken)
	unlock := s.lock(key)
	defer unlock()

	st, err := s.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrStateNotFound) {
			return board.MoveResult{}, board.ErrNoActiveDrag
		}
		return board.MoveResult{}, fmt.Errorf("load board state: %w", err)
	}

	hadTicket := st.Pending != nil && st.Pending.Token == req.Token && req.Token != ""
	res, dropErr := st.Drop(board.DropInput{
		Token:      req.Token,
		ToColumnID: req.ColumnID,
		Now:        s.timeProvider.Now(),
		TTL:        s.dragTTL,
	})
	if dropErr == nil && res.Moved && s.writer != nil {
		if err := s.writer.AssignDepartment(ctx, res.ItemID, res.ToColumnID); err != nil {
			if undoErr := st.Board.Undo(res); undoErr != nil {
				return board.MoveResult{}, errors.Join(fmt.Errorf("%w: %w", ErrPersistFailed, err), fmt.Errorf("undo move: %w", undoErr))
			}
			s.logger.WarnContext(ctx, "move rolled back", "item_id", res.ItemID, "to_column_id", res.ToColumnID, "error", err)
			dropErr = fmt.Errorf("%w: %w", ErrPersistFailed, err)
			res = board.MoveResult{ItemID: res.ItemID, FromColumnID: res.FromColumnID, ToColumnID: res.ToColumnID}
		}
	}

	// A rejected drop without a ticket changed nothing, so there is nothing to save.
	if hadTicket {
		if err := s.store.Save(ctx, key, st); err != nil {
			return board.MoveResult{}, errors.Join(dropErr, fmt.Errorf("save board state: %w", err))
		}
	}
	if dropErr != nil {
		return res, fmt.Errorf("drop: %w", dropErr)
	}
	if res.Moved {
		s.logger.InfoContext(ctx, "item moved",
			"item_id", res.ItemID, "from_column_id", res.FromColumnID, "to_column_id", res.ToColumnID)
	}
	return res, nil
}

// CancelDrag abandons the pending drag identified by token, as when a drag ends outside any column.
// It reports whether a ticket was discarded; an unknown token is not an error.
func (s *BoardService) CancelDrag(ctx context.Context, sessionToken, token string) (bool, error) {
	key := StateKey(sessionToken)
	unlock := s.lock(key)
	defer unlock()

	st, err := s.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrStateNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load board state: %w", err)
	}
	if !st.CancelDrag(token) {
		return false, nil
	}
	if err := s.store.Save(ctx, key, st); err != nil {
		return false, fmt.Errorf("save board state: %w", err)
	}
	return true, nil
}

// Reset rebuilds the session's board from the source.
func (s *BoardService) Reset(ctx context.Context, sessionToken string) (BoardView, error) {
	key := StateKey(sessionToken)
	unlock := s.lock(key)
	defer unlock()

	st, err := s.initState(ctx, key)
	if err != nil {
		return BoardView{}, err
	}
	return s.render(st, board.Filter{}), nil
}

// Discard drops the session's board state, if any.
func (s *BoardService) Discard(ctx context.Context, sessionToken string) error {
	key := StateKey(sessionToken)
	unlock := s.lock(key)
	defer unlock()

	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete board state: %w", err)
	}
	return nil
}

func (s *BoardService) loadOrInit(ctx context.Context, key string) (board.State, error) {
	st, err := s.store.Load(ctx, key)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ports.ErrStateNotFound) {
		return board.State{}, fmt.Errorf("load board state: %w", err)
	}
	return s.initState(ctx, key)
}

func (s *BoardService) initState(ctx context.Context, key string) (board.State, error) {
	cols, err := s.source.Snapshot(ctx)
	if err != nil {
		return board.State{}, fmt.Errorf("load board snapshot: %w", err)
	}
	b, err := board.New(cols)
	if err != nil {
		return board.State{}, fmt.Errorf("build board: %w", err)
	}
	st := board.State{Board: b}
	if err := s.store.Save(ctx, key, st); err != nil {
		return board.State{}, fmt.Errorf("save board state: %w", err)
	}
	return st, nil
}

// lock serializes operations on one state key and returns the unlock func.
func (s *BoardService) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// MemoryBoardStore keeps board state in process memory. State does not survive restarts
// and is not shared between replicas.
type MemoryBoardStore struct {
	mu     sync.Mutex
	states map[string]board.State
}

var _ ports.BoardStore = (*MemoryBoardStore)(nil)

// NewMemoryBoardStore creates an empty MemoryBoardStore.
func NewMemoryBoardStore() *MemoryBoardStore {
	return &MemoryBoardStore{states: make(map[string]board.State)}
}

func (m *MemoryBoardStore) Load(_ context.Context, key string) (board.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[key]
	if !ok {
		return board.State{}, ports.ErrStateNotFound
	}
	return cloneBoardState(st), nil
}

func (m *MemoryBoardStore) Save(_ context.Context, key string, st board.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = cloneBoardState(st)
	return nil
}

func (m *MemoryBoardStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func cloneBoardState(st board.State) board.State {
	out := board.State{Board: st.Board.Clone()}
	if st.Pending != nil {
		p := *st.Pending
		out.Pending = &p
	}
	return out
}
