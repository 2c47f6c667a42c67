package question

import (
	"errors"
	"sort"
	"strings"
	"time"
)

type Type string

const (
	TypeMandatory   Type = "MANDATORY"
	TypeRecommended Type = "RECOMMENDED"
)

func (t Type) Valid() bool {
	return t == TypeMandatory || t == TypeRecommended
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

func (d Difficulty) Valid() bool {
	return d.rank() > 0
}

func (d Difficulty) rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 0
	}
}

var ErrNotFound = errors.New("question not found")

type Question struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Link       string     `json:"link"`
	Type       Type       `json:"type"`
	Difficulty Difficulty `json:"difficulty"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	Title      string     `json:"title" form:"title" binding:"required,min=2,max=200"`
	Link       string     `json:"link" form:"link" binding:"required,url,max=500"`
	Type       Type       `json:"type" form:"type" binding:"required,oneof=MANDATORY RECOMMENDED"`
	Difficulty Difficulty `json:"difficulty" form:"difficulty" binding:"required,oneof=EASY MEDIUM HARD"`
}

// UpdateRequest is a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Title      *string     `json:"title" binding:"omitempty,min=2,max=200"`
	Link       *string     `json:"link" binding:"omitempty,url,max=500"`
	Type       *Type       `json:"type" binding:"omitempty,oneof=MANDATORY RECOMMENDED"`
	Difficulty *Difficulty `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
	Active     *bool       `json:"active"`
}

func New(id string, req CreateRequest, now time.Time) Question {
	return Question{
		ID:         id,
		Title:      strings.TrimSpace(req.Title),
		Link:       strings.TrimSpace(req.Link),
		Type:       req.Type,
		Difficulty: req.Difficulty,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (q *Question) Apply(req UpdateRequest, now time.Time) {
	if req.Title != nil {
		q.Title = strings.TrimSpace(*req.Title)
	}
	if req.Link != nil {
		q.Link = strings.TrimSpace(*req.Link)
	}
	if req.Type != nil {
		q.Type = *req.Type
	}
	if req.Difficulty != nil {
		q.Difficulty = *req.Difficulty
	}
	if req.Active != nil {
		q.Active = *req.Active
	}
	q.UpdatedAt = now
}

// SortByDifficulty orders EASY before MEDIUM before HARD, oldest first within a level.
func SortByDifficulty(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Difficulty.rank() != qs[j].Difficulty.rank() {
			return qs[i].Difficulty.rank() < qs[j].Difficulty.rank()
		}
		return qs[i].CreatedAt.Before(qs[j].CreatedAt)
	})
}

// SortForCatalog groups mandatory questions first, then orders by difficulty.
func SortForCatalog(qs []Question) {
	SortByDifficulty(qs)
	sort.SliceStable(qs, func(i, j int) bool {
		return qs[i].Type == TypeMandatory && qs[j].Type != TypeMandatory
	})
}
