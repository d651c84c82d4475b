package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
	"roomchat/pkg/utils"

	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

const (
	viewOnceAlphabet    = "0123456789abcdef"
	viewOnceTokenLength = 32
)

// ViewOnceStore hands out files through single-use tokens.
type ViewOnceStore struct {
	repo     ports.ViewOnceRepository
	newToken func() string
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewViewOnceStore(repo ports.ViewOnceRepository, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) (*ViewOnceStore, error) {
	gen, err := nanoid.CustomASCII(viewOnceAlphabet, viewOnceTokenLength)
	if err != nil {
		return nil, fmt.Errorf("token generator: %w", err)
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ViewOnceStore{
		repo:     repo,
		newToken: gen,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Issue records filePath under a new unguessable token.
func (s *ViewOnceStore) Issue(ctx context.Context, filePath string) (string, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	token := &domain.ViewOnceToken{
		Token:     s.newToken(),
		Path:      abs,
		CreatedAt: s.now(),
	}
	if err := s.repo.Save(ctx, token); err != nil {
		return "", fmt.Errorf("save view-once token: %w", err)
	}

	s.metrics.ViewOnceIssued()
	s.logger.Debugw("view-once token issued", "token", utils.MaskSensitive(token.Token, 4), "path", abs)
	return token.Token, nil
}

// Redeem consumes token. The token is gone once Redeem returns, whatever the
// outcome, so at most one caller ever succeeds. The caller must Close the
// redemption after delivering the file; Close deletes it.
func (s *ViewOnceStore) Redeem(ctx context.Context, token string) (*Redemption, error) {
	t, err := s.repo.Take(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			s.metrics.ViewOnceRedeemed(false)
		}
		return nil, err
	}

	info, err := os.Stat(t.Path)
	if err != nil || info.IsDir() {
		s.metrics.ViewOnceRedeemed(false)
		s.logger.Warnw("view-once file missing", "path", t.Path, "error", err)
		return nil, domain.ErrFileMissing
	}

	s.metrics.ViewOnceRedeemed(true)
	return &Redemption{Path: t.Path, logger: s.logger}, nil
}

// Redemption is a successfully redeemed file awaiting delivery.
type Redemption struct {
	Path string

	logger *zap.SugaredLogger
	once   sync.Once
	err    error
}

// Close deletes the file. Safe to call more than once.
func (r *Redemption) Close() error {
	r.once.Do(func() {
		if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
			r.err = err
			r.logger.Warnw("failed to delete view-once file", "path", r.Path, "error", err)
		}
	})
	return r.err
}
