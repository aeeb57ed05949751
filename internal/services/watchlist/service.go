package watchlist

import (
	"context"
	"regexp"

	"github.com/adminlove520/daily-stock-analysis/internal/domain/watchlist"
	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// codePattern matches a 6-digit A-share stock code
var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Service is a thin validation layer over the watchlist store. The store
// owns consistency; this side only rejects malformed codes before they
// reach it.
type Service struct {
	repo          watchlist.Repository
	fallbackCodes []string
	log           *logger.Logger
}

// NewService creates a watchlist service. fallbackCodes is the static
// config list shown when the store is empty.
func NewService(repo watchlist.Repository, fallbackCodes []string, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		fallbackCodes: fallbackCodes,
		log:           log.With("component", "watchlist_service"),
	}
}

// ValidateCode rejects anything that is not exactly 6 ASCII digits
func (s *Service) ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return errors.NewValidationError("code", "股票代码格式错误，请输入 6 位数字代码", code)
	}
	return nil
}

// List returns all watched entries
func (s *Service) List(ctx context.Context) ([]*watchlist.Entry, error) {
	return s.repo.GetAll(ctx)
}

// FallbackCodes returns the static config list
func (s *Service) FallbackCodes() []string {
	return s.fallbackCodes
}

// Add validates the code and inserts the entry. The store is not touched
// when validation fails.
func (s *Service) Add(ctx context.Context, code, name, comment string) error {
	if err := s.ValidateCode(code); err != nil {
		return err
	}

	entry := &watchlist.Entry{
		Code:    code,
		Name:    name,
		Comment: comment,
	}

	if err := s.repo.Add(ctx, entry); err != nil {
		s.log.Warnw("Watchlist add failed", "code", code, "error", err)
		return err
	}

	s.log.Infow("Watchlist entry added", "code", code, "name", name)
	return nil
}

// Remove deletes an entry by code
func (s *Service) Remove(ctx context.Context, code string) error {
	if err := s.repo.Remove(ctx, code); err != nil {
		s.log.Warnw("Watchlist remove failed", "code", code, "error", err)
		return err
	}

	s.log.Infow("Watchlist entry removed", "code", code)
	return nil
}
