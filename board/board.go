// Package board models the kanban board on top of a record store of cards.
package board

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stevemurr/mockdb/medium"
	"github.com/stevemurr/mockdb/recordstore"
)

// DefaultKey is the storage key cards are kept under.
const DefaultKey = "cards"

// Status is the column a card sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the columns in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

var ErrInvalidStatus = errors.New("invalid status")

// Title is the column heading shown on the board.
func (s Status) Title() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In progress"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Card is a single task on the board.
type Card struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c Card) RecordID() string { return c.ID }

// Column is one status with its cards in insertion order.
type Column struct {
	Status Status `json:"status"`
	Title  string `json:"title"`
	Count  int    `json:"count"`
	Cards  []Card `json:"cards"`
}

// Board manages cards.
type Board struct {
	cards *recordstore.Store[Card]
	now   func() time.Time
	log   *zap.Logger
}

// New returns a Board storing cards under DefaultKey in m. opts are passed
// to the underlying record store.
func New(m medium.Medium, log *zap.Logger, opts ...recordstore.Option) *Board {
	if log == nil {
		log = zap.NewNop()
	}
	storeOpts := append(append([]recordstore.Option{}, opts...), recordstore.WithLogger(log))
	return &Board{
		cards: recordstore.New[Card](m, DefaultKey, storeOpts...),
		now:   time.Now,
		log:   log,
	}
}

// AddCard creates a card in the To Do column.
func (b *Board) AddCard(title, description string) (Card, error) {
	c := Card{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      StatusTodo,
		CreatedAt:   b.now().UTC(),
	}
	created, err := b.cards.Create(c)
	if err != nil {
		return Card{}, fmt.Errorf("add card: %w", err)
	}
	b.log.Info("card added", zap.String("id", c.ID), zap.String("title", title))
	return created, nil
}

// Card returns the card with id, if any.
func (b *Board) Card(id string) (Card, bool, error) {
	return b.cards.Read(id)
}

// MoveCard changes the column of a card.
func (b *Board) MoveCard(id string, status Status) (Card, bool, error) {
	return b.EditCard(id, nil, &status)
}

func (b *Board) RenameCard(id, title string) (Card, bool, error) {
	return b.EditCard(id, &title, nil)
}

// EditCard sets the non-nil fields on a card in a single store round-trip.
func (b *Board) EditCard(id string, title *string, status *Status) (Card, bool, error) {
	if status != nil && !status.Valid() {
		return Card{}, false, fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
	}
	return b.cards.Modify(id, func(c *Card) {
		if title != nil {
			c.Title = *title
		}
		if status != nil {
			c.Status = *status
		}
	})
}

func (b *Board) RemoveCard(id string) (bool, error) {
	return b.cards.Delete(id)
}

// Columns returns every column in board order, including empty ones.
func (b *Board) Columns() ([]Column, error) {
	cards, err := b.cards.List()
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(Statuses))
	idx := make(map[Status]int, len(Statuses))
	for i, s := range Statuses {
		cols[i] = Column{Status: s, Title: s.Title(), Cards: []Card{}}
		idx[s] = i
	}
	for _, c := range cards {
		i, ok := idx[c.Status]
		if !ok {
			b.log.Warn("card with unknown status", zap.String("id", c.ID), zap.String("status", string(c.Status)))
			continue
		}
		cols[i].Cards = append(cols[i].Cards, c)
		cols[i].Count++
	}
	return cols, nil
}
