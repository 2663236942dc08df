// Package segments stores saved filter definitions. A segment narrows a
// query with extra filters; a cohort also carries an entry action and window.
package segments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no segment with the given id exists for the website.
var ErrNotFound = errors.New("segment not found")

type Type string

const (
	TypeSegment Type = "segment"
	TypeCohort  Type = "cohort"
)

// Filter is one {name, operator, value} condition. Value is a string or a
// list of strings.
type Filter struct {
	Name     string `json:"name"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value"`
}

// Action is the step a session must perform to enter a cohort.
type Action struct {
	Type  string `json:"type"` // "path" or "event"
	Value string `json:"value"`
}

type Parameters struct {
	Filters   []Filter   `json:"filters"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Action    *Action    `json:"action,omitempty"`
}

type Segment struct {
	ID         uuid.UUID  `gorm:"column:segment_id;type:uuid;primaryKey" json:"id"`
	WebsiteID  uuid.UUID  `gorm:"column:website_id;type:uuid;index;not null" json:"websiteId"`
	Type       Type       `gorm:"column:type;size:50;not null" json:"type"`
	Name       string     `gorm:"column:name;size:200;not null" json:"name"`
	Parameters Parameters `gorm:"column:parameters;serializer:json" json:"parameters"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Segment) TableName() string { return "segment" }

// Store reads segments from the relational database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the segment with id that belongs to websiteID.
func (s *Store) Get(ctx context.Context, websiteID, id uuid.UUID) (*Segment, error) {
	var segment Segment
	err := s.db.WithContext(ctx).
		Where("segment_id = ? AND website_id = ?", id, websiteID).
		First(&segment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching segment: %w", err)
	}
	return &segment, nil
}

// Create persists segment, assigning an id when it has none.
func (s *Store) Create(ctx context.Context, segment *Segment) error {
	if segment.ID == uuid.Nil {
		segment.ID = uuid.New()
	}
	if segment.Type == "" {
		segment.Type = TypeSegment
	}
	if err := s.db.WithContext(ctx).Create(segment).Error; err != nil {
		return fmt.Errorf("error creating segment: %w", err)
	}
	return nil
}
