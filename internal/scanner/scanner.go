// Package scanner implements the background sensitivity scan pipeline:
// enumerate candidate files, delta-filter by content hash, classify via the
// LLM collaborator and quarantine on a positive verdict, recording each
// quarantine as a new memory.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/easeaico/sentinel-agent/internal/guard"
	"github.com/easeaico/sentinel-agent/internal/llm"
	"github.com/easeaico/sentinel-agent/internal/memory"
)

const (
	// SensitivityThreshold is the classifier score at and above which a file
	// is quarantined.
	SensitivityThreshold = 80

	// quarantineRiskCost is the budget cost charged per quarantine action.
	quarantineRiskCost = 100

	maxFileSize    = 10 << 20 // files larger than 10 MiB are skipped
	excerptSize    = 4000     // bytes of content sent to the classifier
	defaultWorkers = 4
)

// monitoredExtensions are the document-like file types worth classifying.
var monitoredExtensions = map[string]bool{
	".txt": true, ".md": true, ".log": true, ".pdf": true, ".docx": true,
	".doc": true, ".json": true, ".csv": true, ".env": true, ".pem": true,
	".key": true, ".yaml": true, ".yml": true, ".xml": true, ".ini": true,
	".conf": true,
}

// skipDirs are noisy directories excluded from discovery.
var skipDirs = []string{"Windows", "Program Files", "AppData", ".git", "node_modules"}

// verdict is the tagged result of a classification attempt. A reply that
// cannot be parsed yields Parsed=false, which the pipeline treats as score 0
// (fail open: a malfunctioning classifier must not trigger runaway
// quarantining).
type verdict struct {
	Score  int
	Parsed bool
}

// Scanner drives the sweep loop. It is designed to run indefinitely as a
// background goroutine and stops only through context cancellation; a single
// file's error never terminates the loop.
type Scanner struct {
	store     memory.Store
	completer llm.Completer
	embedder  memory.Embedder
	guard     *guard.Constitution
	vault     *Vault
	logger    *zap.Logger

	roots    []string
	interval time.Duration
	workers  int
}

// New creates a scanner over the given collaborators. The embedder may be
// nil; quarantine memories are then stored without an embedding.
func New(store memory.Store, completer llm.Completer, embedder memory.Embedder,
	g *guard.Constitution, vault *Vault, logger *zap.Logger,
	roots []string, interval time.Duration) *Scanner {
	return &Scanner{
		store:     store,
		completer: completer,
		embedder:  embedder,
		guard:     g,
		vault:     vault,
		logger:    logger,
		roots:     roots,
		interval:  interval,
		workers:   defaultWorkers,
	}
}

// Run sweeps all roots, sleeps for the configured interval and repeats until
// the context is canceled.
func (s *Scanner) Run(ctx context.Context) {
	s.logger.Info("sensitivity scanner started",
		zap.Strings("roots", s.roots), zap.Duration("interval", s.interval))

	for {
		s.Sweep(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("sensitivity scanner stopped")
			return
		case <-time.After(s.interval):
		}
	}
}

// Sweep walks every root once, processing eligible files with bounded
// parallelism. Per-file failures are logged and skipped.
func (s *Scanner) Sweep(ctx context.Context) {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for _, root := range s.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err != nil {
				// permission denied and vanished paths are expected noise
				return nil
			}
			if d.IsDir() {
				if s.skipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !s.Eligible(path) {
				return nil
			}
			group.Go(func() error {
				s.ProcessFile(gctx, path)
				return nil
			})
			return nil
		})
		if err != nil && err != context.Canceled {
			s.logger.Warn("sweep aborted for root", zap.String("root", root), zap.Error(err))
		}
	}

	_ = group.Wait()
}

// Eligible reports whether a path is a candidate for classification.
func (s *Scanner) Eligible(path string) bool {
	if s.vault.Contains(path) {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	if strings.Contains(strings.ToLower(path), "cache") {
		return false
	}
	return monitoredExtensions[strings.ToLower(filepath.Ext(path))]
}

func (s *Scanner) skipDir(path string) bool {
	if s.vault.Contains(path) {
		return true
	}
	base := filepath.Base(path)
	for _, dir := range skipDirs {
		if base == dir {
			return true
		}
	}
	return false
}

// ProcessFile runs one file through the pipeline:
// hash -> delta check -> classify -> quarantine or clear.
// Re-scanning an unchanged file writes nothing at all; that is the
// delta-sync contract, not an optimization, since a re-scan would otherwise
// produce duplicate audit memories.
func (s *Scanner) ProcessFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxFileSize {
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("unreadable file skipped", zap.String("path", path), zap.Error(err))
		return
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	prior, err := s.store.LookupFileHash(ctx, path)
	if err != nil {
		s.logger.Warn("hash lookup failed", zap.String("path", path), zap.Error(err))
		return
	}
	if prior == hash {
		return
	}

	v := s.classify(ctx, path, content)

	if v.Score < SensitivityThreshold {
		// Clearing a file is not itself noteworthy; just advance the cursor.
		if err := s.store.UpsertFileHash(ctx, path, hash); err != nil {
			s.logger.Warn("hash upsert failed", zap.String("path", path), zap.Error(err))
		}
		return
	}

	s.quarantine(ctx, path, hash, v.Score)
}

// classify sends a bounded excerpt to the classifier and extracts the first
// integer from the reply. Timeout and parse failure both fail open to 0.
func (s *Scanner) classify(ctx context.Context, path string, content []byte) verdict {
	excerpt := content
	if len(excerpt) > excerptSize {
		excerpt = excerpt[:excerptSize]
	}

	prompt := fmt.Sprintf(
		"Analyze if this file content is confidential. Score 0-100. Return ONLY the number.\nFile: %s\nContent: %s",
		filepath.Base(path), string(excerpt))

	reply, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Debug("classifier call failed, failing open",
			zap.String("path", path), zap.Error(err))
		return verdict{}
	}

	score, ok := llm.FirstInt(reply)
	if !ok || score < 0 || score > 100 {
		return verdict{}
	}
	return verdict{Score: score, Parsed: true}
}

func (s *Scanner) quarantine(ctx context.Context, path, hash string, score int) {
	base := filepath.Base(path)

	decision := s.guard.Consult(fmt.Sprintf("quarantine sensitive file %s", base), quarantineRiskCost)
	if !decision.Allowed {
		s.logger.Warn("quarantine blocked by guardrail",
			zap.String("path", path), zap.String("reason", decision.Reason))
		return
	}

	dest, err := s.vault.Quarantine(path)
	if err != nil {
		s.logger.Warn("quarantine failed", zap.String("path", path), zap.Error(err))
		return
	}

	rec := memory.NewRecord(
		fmt.Sprintf("SECURITY: moved %s to vault (sensitivity %d)", base, score),
		memory.SourceSecurityAction, memory.OutcomeSuccess, 1.0)
	if s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, rec.Content); err == nil {
			rec.Embedding = vec
		}
	}
	if _, err := s.store.Append(ctx, rec); err != nil {
		s.logger.Warn("failed to record quarantine memory", zap.String("path", path), zap.Error(err))
	}

	if err := s.store.UpsertFileHash(ctx, path, hash); err != nil {
		s.logger.Warn("hash upsert failed", zap.String("path", path), zap.Error(err))
	}

	s.logger.Info("secured sensitive file",
		zap.String("path", path), zap.String("vault", dest), zap.Int("score", score))
}
