package grievance

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// ErrIdentifierTaken is returned by storage when a grievance identifier already exists.
var ErrIdentifierTaken = errors.New("grievance identifier already taken")

const (
	DefaultIDPrefix    = "GRV"
	DefaultMaxAttempts = 5

	tickWidth   = 9
	suffixWidth = 3
	suffixSpace = 36 * 36 * 36
)

// Sequence yields strictly increasing ticks. Implementations must be safe for
// concurrent use.
type Sequence interface {
	Next(ctx context.Context) (uint64, error)
}

// ClockSequence derives ticks from the millisecond clock, bumping by one when
// two calls land in the same millisecond.
type ClockSequence struct {
	mu   sync.Mutex
	last uint64
	now  func() time.Time
}

// NewClockSequence returns a clock-backed sequence. A nil clock uses time.Now.
func NewClockSequence(now func() time.Time) *ClockSequence {
	if now == nil {
		now = time.Now
	}
	return &ClockSequence{now: now}
}

// Next implements Sequence.
func (s *ClockSequence) Next(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tick := uint64(s.now().UnixMilli())
	if tick <= s.last {
		tick = s.last + 1
	}
	s.last = tick
	return tick, nil
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithPrefix overrides the identifier prefix.
func WithPrefix(prefix string) GeneratorOption {
	return func(g *Generator) {
		if p := strings.TrimSpace(prefix); p != "" {
			g.prefix = strings.ToUpper(p)
		}
	}
}

// WithMaxAttempts bounds how many identifiers Assign tries before giving up.
func WithMaxAttempts(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandom overrides the entropy source for the identifier suffix.
func WithRandom(r io.Reader) GeneratorOption {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// WithBackOff overrides the backoff policy between collision retries.
func WithBackOff(factory func() backoff.BackOff) GeneratorOption {
	return func(g *Generator) {
		if factory != nil {
			g.newBackOff = factory
		}
	}
}

// WithCollisionHook registers a callback invoked for every collided identifier.
func WithCollisionHook(hook func(id string, attempt int)) GeneratorOption {
	return func(g *Generator) {
		g.onCollision = hook
	}
}

// Generator produces human-readable grievance identifiers such as
// GRV-00LX2K9QZ7Q4: a fixed-width base36 tick followed by a random suffix.
type Generator struct {
	seq         Sequence
	prefix      string
	maxAttempts int
	random      io.Reader
	randMu      sync.Mutex
	newBackOff  func() backoff.BackOff
	onCollision func(id string, attempt int)
}

// NewGenerator builds a Generator over seq. A nil seq uses a ClockSequence.
func NewGenerator(seq Sequence, opts ...GeneratorOption) *Generator {
	if seq == nil {
		seq = NewClockSequence(nil)
	}
	g := &Generator{
		seq:         seq,
		prefix:      DefaultIDPrefix,
		maxAttempts: DefaultMaxAttempts,
		random:      rand.Reader,
		newBackOff:  defaultBackOff,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second
	return bo
}

// Next returns a fresh identifier. It never returns the same value twice for
// the same sequence.
func (g *Generator) Next(ctx context.Context) (string, error) {
	tick, err := g.seq.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next grievance sequence: %w", err)
	}
	suffix, err := g.suffix()
	if err != nil {
		return "", fmt.Errorf("grievance id entropy: %w", err)
	}
	return g.prefix + "-" + encodeBase36(tick, tickWidth) + encodeBase36(suffix, suffixWidth), nil
}

// Assign generates an identifier and hands it to claim, typically the storage
// insert. When claim reports ErrIdentifierTaken a new identifier is tried,
// up to the configured attempt budget.
func (g *Generator) Assign(ctx context.Context, claim func(ctx context.Context, id string) error) (string, error) {
	var (
		assigned string
		attempt  int
	)
	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(g.maxAttempts-1)), ctx)
	err := backoff.Retry(func() error {
		attempt++
		id, err := g.Next(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := claim(ctx, id); err != nil {
			if errors.Is(err, ErrIdentifierTaken) {
				if g.onCollision != nil {
					g.onCollision(id, attempt)
				}
				return err
			}
			return backoff.Permanent(err)
		}
		assigned = id
		return nil
	}, policy)
	if err != nil {
		if errors.Is(err, ErrIdentifierTaken) {
			return "", appErrors.Wrap(err, appErrors.ErrIdentifierConflict.Code, appErrors.ErrIdentifierConflict.Status,
				fmt.Sprintf("could not assign a unique grievance identifier after %d attempts", attempt))
		}
		return "", err
	}
	return assigned, nil
}

func (g *Generator) suffix() (uint64, error) {
	var buf [4]byte
	g.randMu.Lock()
	_, err := io.ReadFull(g.random, buf[:])
	g.randMu.Unlock()
	if err != nil {
		return 0, err
	}
	return uint64(binary.BigEndian.Uint32(buf[:])) % suffixSpace, nil
}

// encodeBase36 renders n in upper-case base36, left-padded with zeros and
// truncated to the least significant width digits.
func encodeBase36(n uint64, width int) string {
	s := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	if len(s) > width {
		s = s[len(s)-width:]
	}
	return s
}
