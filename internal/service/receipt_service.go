package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"atm_ledger/internal/domain"
	"atm_ledger/pkg/money"
)

var ErrReceiptsClosed = errors.New("receipt service is shut down")

// Receipt describes one successful mutation from the point of view of AccountID.
type Receipt struct {
	Type         domain.TransactionType
	AccountID    int64
	Name         string
	Amount       int64
	Counterparty string
	Balance      int64
	CreatedAt    time.Time
}

// Sender delivers a rendered receipt. It is called from worker goroutines.
type Sender interface {
	SendReceipt(accountID int64, subject, body string) error
}

// ReceiptService renders receipts and hands them to a Sender from a small worker pool,
// keeping delivery off the ledger's critical path.
type ReceiptService struct {
	sender       Sender
	symbol       string
	queue        chan Receipt
	workers      int
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	// mu orders Send against Shutdown so nothing is enqueued after workers drain.
	mu     sync.RWMutex
	closed bool
	wg           sync.WaitGroup
	logger       *slog.Logger
}

func NewReceiptService(sender Sender, symbol string, workers, queueSize int, logger *slog.Logger) *ReceiptService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}

	service := &ReceiptService{
		sender:       sender,
		symbol:       symbol,
		queue:        make(chan Receipt, queueSize),
		workers:      workers,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}

	service.startWorkers()

	return service
}

func (s *ReceiptService) Send(ctx context.Context, r Receipt) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrReceiptsClosed
	}

	select {
	case s.queue <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Render builds the subject and body shown to the account holder.
func (s *ReceiptService) Render(r Receipt) (string, string) {
	amount := money.FormatWithSymbol(s.symbol, r.Amount)
	balance := money.FormatWithSymbol(s.symbol, r.Balance)

	var subject, body string
	switch r.Type {
	case domain.TypeWithdraw:
		subject = "Withdraw Successful"
		body = fmt.Sprintf("Your account has been debited with %s.", amount)
	case domain.TypeDeposit:
		subject = "Deposit Successful"
		body = fmt.Sprintf("Your account has been credited with %s.", amount)
	case domain.TypeTransferOut:
		subject = "Transfer Successful"
		body = fmt.Sprintf("You have made a funds transfer of %s to %s.", amount, r.Counterparty)
	case domain.TypeTransferIn:
		subject = "Transfer Received"
		body = fmt.Sprintf("You have received %s from %s.", amount, r.Counterparty)
	default:
		subject = "Account Update"
		body = fmt.Sprintf("A %s of %s was applied.", r.Type, amount)
	}

	return subject, fmt.Sprintf("Dear %s, %s Current balance: %s", r.Name, body, balance)
}

func (s *ReceiptService) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *ReceiptService) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case r := <-s.queue:
			s.deliver(r, id)
		case <-s.shutdownChan:
			s.drain(id)
			return
		}
	}
}

func (s *ReceiptService) drain(workerID int) {
	for {
		select {
		case r := <-s.queue:
			s.deliver(r, workerID)
		default:
			return
		}
	}
}

func (s *ReceiptService) deliver(r Receipt, workerID int) {
	subject, body := s.Render(r)
	if err := s.sender.SendReceipt(r.AccountID, subject, body); err != nil {
		s.logger.Error("Failed to send receipt",
			slog.Int64("account_id", r.AccountID),
			slog.String("type", string(r.Type)),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID))
	}
}

func (s *ReceiptService) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.shutdownChan)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Receipt service shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender writes receipts to the structured log.
type LogSender struct {
	Logger *slog.Logger
}

func (l *LogSender) SendReceipt(accountID int64, subject, body string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Receipt",
		slog.Int64("account_id", accountID),
		slog.String("subject", subject),
		slog.String("body", body))
	return nil
}
