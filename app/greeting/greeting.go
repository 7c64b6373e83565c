// Package greeting is a small application built on the container: a
// process-wide clock, a per-request visitor read from the HTTP request, a
// request-scoped audit trail and per-lookup greeters selected by language
// qualifier.
package greeting

import (
	"maps"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-dicontainer/framework/container"
	gohttp "github.com/km-arc/go-dicontainer/framework/http"
)

// Clock is the application's time source. Bound as a singleton.
type Clock struct {
	started time.Time
	now     func() time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{started: now(), now: now}
}

func (c *Clock) Now() time.Time { return c.now() }

func (c *Clock) Uptime() time.Duration { return c.now().Sub(c.started) }

// Visitor describes who is being greeted in the current request.
type Visitor struct {
	RequestID string
	Name      string
	Lang      string
}

// NewVisitor reads the visitor from the request: ?name= and Accept-Language.
func NewVisitor(r *http.Request) *Visitor {
	req := gohttp.NewRequest(r)
	return &Visitor{
		RequestID: req.RequestID(),
		Name:      req.Query("name", "world"),
		Lang:      req.Language("en"),
	}
}

// Greeting is what a Greeter produces.
type Greeting struct {
	Message string    `json:"message"`
	Lang    string    `json:"lang"`
	At      time.Time `json:"at"`
}

// Greeter greets in one language. Bindings are qualified by language code.
type Greeter interface {
	Lang() string
	Greet(name string) Greeting
}

type phrasebook struct {
	lang   string
	format func(name string) string
	clock  *Clock
}

func (p *phrasebook) Lang() string { return p.lang }

func (p *phrasebook) Greet(name string) Greeting {
	return Greeting{Message: p.format(name), Lang: p.lang, At: p.clock.Now()}
}

// Stats counts greetings per language for the life of the process.
type Stats struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewStats() *Stats { return &Stats{counts: make(map[string]int)} }

func (s *Stats) Add(lang string) {
	s.mu.Lock()
	s.counts[lang]++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.counts)
}

// Audit records the greetings served during one request and logs them when
// the request scope closes. Stats is only built once something is recorded.
type Audit struct {
	Visitor *Visitor               `inject:""`
	Log     *zap.Logger            `inject:""`
	Stats   container.Lazy[*Stats] `inject:""`

	langs []string
}

// Record notes that a greeting in lang was served.
func (a *Audit) Record(lang string) error {
	stats, err := a.Stats.Get()
	if err != nil {
		return err
	}
	stats.Add(lang)
	a.langs = append(a.langs, lang)
	return nil
}

// Langs returns the languages recorded so far.
func (a *Audit) Langs() []string { return a.langs }

// Dispose implements container.Disposer.
func (a *Audit) Dispose() error {
	if len(a.langs) == 0 {
		return nil
	}
	a.Log.Info("request audited",
		zap.String("request_id", a.Visitor.RequestID),
		zap.String("visitor", a.Visitor.Name),
		zap.Strings("langs", a.langs),
	)
	return nil
}
