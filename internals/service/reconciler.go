package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
)

// DefaultSendTimeout bounds each notification send so a stalled SMTP
// connection cannot block the rest of a pass indefinitely.
const DefaultSendTimeout = 10 * time.Second

// Reconciler is the scheduled engine that walks every book holding loan
// requests, mails requesters whose return date is one day out, and expires
// requests whose return date has passed.
type Reconciler struct {
	store       BookStore
	notifier    Notifier
	clock       Clock
	log         *logrus.Logger
	sendTimeout time.Duration
}

func NewReconciler(store BookStore, notifier Notifier, clock Clock, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:       store,
		notifier:    notifier,
		clock:       clock,
		log:         log,
		sendTimeout: DefaultSendTimeout,
	}
}

// RunPass executes one reconciliation pass. A failure on one book is logged
// and the pass carries on with the remaining books.
func (r *Reconciler) RunPass(ctx context.Context) {
	r.log.Info("reconciler: updating return days and checking due dates")

	books, err := r.store.BooksWithRequests(ctx)
	if err != nil {
		r.log.WithError(err).Error("reconciler: loading books with requests failed")
		return
	}

	for i := range books {
		r.reconcileBook(ctx, &books[i])
	}
	r.log.WithField("books", len(books)).Info("reconciler: pass done")
}

func (r *Reconciler) reconcileBook(ctx context.Context, book *models.Book) {
	now := r.clock.Now()

	// Send first, persist after: a crash between the two may repeat one
	// notice on the next pass. Known at-least-once gap.
	var mailed []string
	for _, req := range book.Requests {
		if !req.DueForNotice(now) {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := r.notifier.Send(sendCtx, req.Email, book.Title)
		cancel()
		if err != nil {
			// Flag stays false so the notice is retried next pass.
			r.log.WithError(err).WithFields(logrus.Fields{
				"book":      book.Id,
				"recipient": req.Email,
			}).Error("reconciler: sending due notice failed")
			continue
		}
		mailed = append(mailed, req.Name)
	}

	err := r.store.UpdateBookLocked(ctx, book.Id, func(fresh *models.Book) error {
		for _, name := range mailed {
			fresh.MarkMailed(name)
		}
		if removed := fresh.PruneExpired(now); removed > 0 {
			r.log.WithFields(logrus.Fields{
				"book":    fresh.Id,
				"expired": removed,
			}).Info("reconciler: expired overdue requests")
		}
		fresh.RefreshDaysLeft(now)
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("book", book.Id).Error("reconciler: updating book failed")
	}
}
