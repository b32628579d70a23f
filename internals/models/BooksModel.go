package models

import (
	"math"
	"time"
)

// LoanDuration is how long a copy may be kept once a request is placed.
const LoanDuration = 30 * 24 * time.Hour

// BookImage is one cover image of a book: the public URL served to clients
// and the object key it was uploaded under. Order of images is significant.
type BookImage struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// LoanRequest is a single user's claim to borrow a book. Requests live
// embedded inside their book and are never addressed independently.
type LoanRequest struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsAccepted bool      `json:"is_accepted"`
	Mailed     bool      `json:"mailed"`
	ReturnDate time.Time `json:"return_date"`

	// DaysLeft is derived from ReturnDate on every read, never trusted
	// from a stored copy.
	DaysLeft int `json:"days_left"`
}

// NewLoanRequest builds a request with every field populated explicitly.
func NewLoanRequest(name, email string, now time.Time) LoanRequest {
	return LoanRequest{
		Name:       name,
		Email:      email,
		IsAccepted: false,
		Mailed:     false,
		ReturnDate: now.Add(LoanDuration),
		DaysLeft:   int(LoanDuration / (24 * time.Hour)),
	}
}

// DaysUntilDue is the signed number of days until the request is due,
// rounded to the nearest day. Negative values mean overdue.
func (r LoanRequest) DaysUntilDue(now time.Time) int {
	return int(math.Round(r.ReturnDate.Sub(now).Hours() / 24))
}

// DueForNotice reports whether the request crosses the one-day-remaining
// threshold and has not been mailed yet.
func (r LoanRequest) DueForNotice(now time.Time) bool {
	return r.DaysUntilDue(now) == 1 && r.IsAccepted && !r.Mailed
}

type Book struct {
	Id          string        `gorm:"primaryKey;column:id;type:varchar(512)" json:"id"`
	Title       string        `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Author      string        `gorm:"column:author;type:varchar(255);not null" json:"author"`
	Contributor string        `gorm:"column:contributor;type:varchar(255)" json:"contributor"`
	Description string        `gorm:"column:description;type:text" json:"description"`
	Quantity    *int          `gorm:"column:quantity" json:"quantity"`
	EbookLink   *string       `gorm:"column:ebook_link;type:text" json:"ebook_link,omitempty"`
	Categories  []string      `gorm:"column:categories;type:jsonb;serializer:json" json:"categories"`
	PageCount   int           `gorm:"column:page_count" json:"page_count"`
	Year        int           `gorm:"column:year" json:"year"`
	Images      []BookImage   `gorm:"column:images;type:jsonb;serializer:json" json:"images"`
	Requests    []LoanRequest `gorm:"column:requests;type:jsonb;serializer:json" json:"requests"`
	CreatedAt   time.Time     `gorm:"autoCreateTime;column:created_at" json:"-"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime;column:updated_at" json:"-"`
}

// BookId derives the identifier a book is stored under.
func BookId(author, title string) string {
	return author + "-" + title
}

// AvailableQuantity treats a nil quantity (e-book only) as zero physical copies.
func (b *Book) AvailableQuantity() int {
	if b.Quantity == nil {
		return 0
	}
	return *b.Quantity
}

// FindRequest returns the index of the named requester's outstanding request,
// or -1. A user holds at most one request per book.
func (b *Book) FindRequest(name string) int {
	for i, r := range b.Requests {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// RemoveRequest deletes the request at index i, preserving the relative
// order of the remaining requests.
func (b *Book) RemoveRequest(i int) {
	b.Requests = append(b.Requests[:i], b.Requests[i+1:]...)
}

// MarkMailed sets the notified flag on the named requester's request.
func (b *Book) MarkMailed(name string) {
	if i := b.FindRequest(name); i >= 0 {
		b.Requests[i].Mailed = true
	}
}

// RefreshDaysLeft recomputes the derived DaysLeft field on every request.
func (b *Book) RefreshDaysLeft(now time.Time) {
	for i := range b.Requests {
		b.Requests[i].DaysLeft = b.Requests[i].DaysUntilDue(now)
	}
}

// PruneExpired removes every request whose due date has passed and returns
// the copies to the available pool. Survivors keep their relative order.
func (b *Book) PruneExpired(now time.Time) int {
	kept := b.Requests[:0]
	removed := 0
	for _, r := range b.Requests {
		if r.DaysUntilDue(now) <= 0 {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	b.Requests = kept
	if removed > 0 && b.Quantity != nil {
		*b.Quantity += removed
	}
	return removed
}
