// Package events declares the stored rows analytics queries read. The
// ingestion path writes them; nothing in this module mutates them.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType represents the type of event.
type EventType int

const (
	EventTypePageView    EventType = 1
	EventTypeCustomEvent EventType = 2
	// EventTypeOther is written by older trackers and treated like a custom event.
	EventTypeOther EventType = 3
)

// WebsiteEvent is one page view or custom event.
type WebsiteEvent struct {
	EventID        uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	WebsiteID      uuid.UUID `gorm:"column:website_id;type:uuid;index:idx_website_event_website_created;not null"`
	SessionID      uuid.UUID `gorm:"column:session_id;type:uuid;index;not null"`
	VisitID        uuid.UUID `gorm:"column:visit_id;type:uuid;index;not null"`
	EventType      EventType `gorm:"column:event_type;not null;default:1"`
	URLPath        string    `gorm:"column:url_path;size:500;not null"`
	URLQuery       string    `gorm:"column:url_query;size:500"`
	PageTitle      string    `gorm:"column:page_title;size:500"`
	ReferrerPath   string    `gorm:"column:referrer_path;size:500"`
	ReferrerQuery  string    `gorm:"column:referrer_query;size:500"`
	ReferrerDomain string    `gorm:"column:referrer_domain;size:500"`
	UTMSource      string    `gorm:"column:utm_source;size:255"`
	UTMMedium      string    `gorm:"column:utm_medium;size:255"`
	UTMCampaign    string    `gorm:"column:utm_campaign;size:255"`
	UTMContent     string    `gorm:"column:utm_content;size:255"`
	UTMTerm        string    `gorm:"column:utm_term;size:255"`
	Gclid          string    `gorm:"column:gclid;size:255"`
	Fbclid         string    `gorm:"column:fbclid;size:255"`
	Msclkid        string    `gorm:"column:msclkid;size:255"`
	Ttclid         string    `gorm:"column:ttclid;size:255"`
	LiFatID        string    `gorm:"column:li_fat_id;size:255"`
	Twclid         string    `gorm:"column:twclid;size:255"`
	Hostname       string    `gorm:"column:hostname;size:100"`
	Tag            string    `gorm:"column:tag;size:50"`
	EventName      string    `gorm:"column:event_name;size:50"`
	CreatedAt      time.Time `gorm:"column:created_at;index:idx_website_event_website_created;not null"`
}

func (WebsiteEvent) TableName() string { return "website_event" }

// Session is one visitor-device-site combination within a rotation window.
type Session struct {
	SessionID uuid.UUID `gorm:"column:session_id;type:uuid;primaryKey"`
	WebsiteID uuid.UUID `gorm:"column:website_id;type:uuid;index;not null"`
	Browser   string    `gorm:"column:browser;size:20"`
	OS        string    `gorm:"column:os;size:20"`
	Device    string    `gorm:"column:device;size:20"`
	Screen    string    `gorm:"column:screen;size:11"`
	Language  string    `gorm:"column:language;size:35"`
	Country   string    `gorm:"column:country;size:2"`
	Region    string    `gorm:"column:region;size:20"`
	City      string    `gorm:"column:city;size:50"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Session) TableName() string { return "session" }

// Revenue is one monetary event, tied to the WebsiteEvent that produced it.
type Revenue struct {
	RevenueID uuid.UUID       `gorm:"column:revenue_id;type:uuid;primaryKey"`
	WebsiteID uuid.UUID       `gorm:"column:website_id;type:uuid;index;not null"`
	SessionID uuid.UUID       `gorm:"column:session_id;type:uuid;not null"`
	EventID   uuid.UUID       `gorm:"column:event_id;type:uuid;not null"`
	EventName string          `gorm:"column:event_name;size:50;not null"`
	Currency  string          `gorm:"column:currency;size:10;not null"`
	Revenue   decimal.Decimal `gorm:"column:revenue;type:decimal(19,4)"`
	CreatedAt time.Time       `gorm:"column:created_at;not null"`
}

func (Revenue) TableName() string { return "revenue" }

// Models lists every entity, for migrations in tests and tooling.
func Models() []any {
	return []any{&WebsiteEvent{}, &Session{}, &Revenue{}}
}
