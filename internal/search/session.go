package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"popcorn/internal/metrics"
	"popcorn/internal/utils"
)

// Disclaimer accompanies every visible result panel.
const Disclaimer = "Search powered by AI - results may not always be accurate."

var ErrSessionNotFound = errors.New("search session not found")

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseQuerying  Phase = "querying"
	PhaseParsing   Phase = "parsing"
	PhaseResolving Phase = "resolving"
	PhaseSettled   Phase = "settled"
)

// Completer returns the raw completion text for a query.
type Completer interface {
	Complete(ctx context.Context, query string) (string, error)
}

// CandidateResolver turns parsed candidates into resolved hits.
type CandidateResolver interface {
	Resolve(ctx context.Context, candidates ParsedCandidates) []ResolvedHit
}

// Snapshot is what the view layer renders. It is published on every
// transition.
type Snapshot struct {
	Generation     uint64        `json:"generation"`
	Phase          Phase         `json:"phase"`
	Query          string        `json:"query"`
	Loading        bool          `json:"loading"`
	Movies         []ResolvedHit `json:"movies"`
	People         []ResolvedHit `json:"people"`
	ResultsVisible bool          `json:"results_visible"`
	Disclaimer     string        `json:"disclaimer,omitempty"`
}

type SessionConfig struct {
	Debounce        time.Duration
	PipelineTimeout time.Duration
}

// Session owns the state of one search surface. All state changes happen
// under mu, and publish is called under mu so observers see transitions in
// order; publish must therefore not block or call back into the session.
//
// Asynchronous pipeline steps carry the generation they were started for and
// are dropped once a newer query, a clear or a close has moved the generation
// on. In-flight requests are not aborted by supersession; they finish and
// their results are discarded.
type Session struct {
	id        string
	completer Completer
	resolver  CandidateResolver
	publish   func(Snapshot)
	logger    *utils.Logger
	timeout   time.Duration
	debouncer *Debouncer
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	generation   uint64
	phase        Phase
	query        string
	completion   string
	candidates   ParsedCandidates
	results      ClassifiedResults
	loading      bool
	visible      bool
	closed       bool
	lastActivity time.Time
}

func NewSession(id string, cfg SessionConfig, completer Completer, resolver CandidateResolver, publish func(Snapshot), logger *utils.Logger) *Session {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.PipelineTimeout <= 0 {
		cfg.PipelineTimeout = time.Minute
	}
	if publish == nil {
		publish = func(Snapshot) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:           id,
		completer:    completer,
		resolver:     resolver,
		publish:      publish,
		logger:       logger,
		timeout:      cfg.PipelineTimeout,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		phase:        PhaseIdle,
		results:      emptyResults(),
		lastActivity: time.Now(),
	}
	s.debouncer = NewDebouncer(cfg.Debounce, s.accept)
	metrics.SearchSessionsActive.Inc()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// OnInput receives every keystroke. Blank input clears the session at once;
// anything else is applied after the debounce period.
func (s *Session) OnInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.lastActivity = s.now()

	if strings.TrimSpace(text) == "" {
		s.debouncer.Cancel()
		s.resetLocked()
		return
	}
	s.debouncer.Trigger(text)
}

// OnClear empties the search box.
func (s *Session) OnClear() {
	s.OnInput("")
}

// OnClose hides the search surface. The session stays usable.
func (s *Session) OnClose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.lastActivity = s.now()
	s.debouncer.Cancel()
	s.resetLocked()
}

// Shutdown ends the session for good and cancels outstanding requests.
func (s *Session) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.debouncer.Cancel()
	s.mu.Unlock()

	s.cancel()
	metrics.SearchSessionsActive.Dec()
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IdleSince is the time of the last input or close.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Completion returns the raw text and the candidates of the current generation.
func (s *Session) Completion() (string, ParsedCandidates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion, s.candidates
}

// accept is the debouncer callback.
func (s *Session) accept(seq uint64, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// input that arrived after the timer fired wins
	if s.closed || !s.debouncer.IsLatest(seq) {
		return
	}
	if query == s.query && s.phase != PhaseIdle {
		return
	}

	s.generation++
	gen := s.generation
	s.phase = PhaseQuerying
	s.query = query
	s.completion = ""
	s.candidates = ParsedCandidates{}
	s.results = emptyResults()
	s.loading = true
	s.visible = true
	s.publish(s.snapshotLocked())

	metrics.SearchGenerationsTotal.WithLabelValues("started").Inc()
	go s.run(gen, query)
}

func (s *Session) run(gen uint64, query string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	text, err := s.completer.Complete(ctx, query)
	if err != nil {
		s.logger.Error("Completion failed for query", query+":", err)
		s.settle(gen, emptyResults(), "failed")
		return
	}

	if !s.advance(gen, PhaseParsing, func() { s.completion = text }) {
		return
	}

	candidates := Parse(text)
	if candidates.Empty() {
		s.settle(gen, emptyResults(), "empty")
		return
	}

	if !s.advance(gen, PhaseResolving, func() { s.candidates = candidates }) {
		return
	}

	hits := s.resolver.Resolve(ctx, candidates)
	s.settle(gen, Classify(hits), "settled")
}

// advance moves generation gen to phase. It returns false when gen is stale.
func (s *Session) advance(gen uint64, phase Phase, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(gen) {
		return false
	}
	apply()
	s.phase = phase
	s.publish(s.snapshotLocked())
	return true
}

func (s *Session) settle(gen uint64, results ClassifiedResults, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(gen) {
		return
	}
	s.results = results
	s.loading = false
	s.phase = PhaseSettled
	s.publish(s.snapshotLocked())
	metrics.SearchGenerationsTotal.WithLabelValues(outcome).Inc()
}

func (s *Session) currentLocked(gen uint64) bool {
	if s.closed || gen != s.generation {
		metrics.SearchStaleDiscardsTotal.Inc()
		return false
	}
	return true
}

// resetLocked returns to idle and invalidates any in-flight generation.
func (s *Session) resetLocked() {
	s.generation++
	s.phase = PhaseIdle
	s.query = ""
	s.completion = ""
	s.candidates = ParsedCandidates{}
	s.results = emptyResults()
	s.loading = false
	s.visible = false
	s.publish(s.snapshotLocked())
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Generation:     s.generation,
		Phase:          s.phase,
		Query:          s.query,
		Loading:        s.loading,
		Movies:         append([]ResolvedHit{}, s.results.Movies...),
		People:         append([]ResolvedHit{}, s.results.People...),
		ResultsVisible: s.visible,
	}
	if s.visible {
		snap.Disclaimer = Disclaimer
	}
	return snap
}

func emptyResults() ClassifiedResults {
	return ClassifiedResults{Movies: []ResolvedHit{}, People: []ResolvedHit{}}
}
