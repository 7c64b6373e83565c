package greeting

import (
	"net/http"
	"slices"

	"github.com/km-arc/go-dicontainer/framework/app"
	"github.com/km-arc/go-dicontainer/framework/container"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

// Handlers serves the greeting routes. Every dependency is resolved from the
// request scope opened by routing.RequestScope.
type Handlers struct {
	app.Controller
}

// Greet handles GET /greet and GET /greet/{lang}. Without {lang} the
// visitor's Accept-Language picks the greeter.
//
//	GET /greet/fr?name=Ada  →  {"data": {"message": "Bonjour, Ada !", ...}}
func (h *Handlers) Greet(w http.ResponseWriter, r *http.Request) {
	req, res := h.Request(r), h.Response(w)

	visitor, err := routing.Resolve[*Visitor](r, "")
	if err != nil {
		res.Fail(err)
		return
	}
	lang := req.RouteParam("lang")
	if lang == "" {
		lang = visitor.Lang
	}

	greeter, err := routing.Resolve[Greeter](r, lang)
	if err != nil {
		res.Fail(err)
		return
	}
	audit, err := routing.Resolve[*Audit](r, "")
	if err != nil {
		res.Fail(err)
		return
	}
	if err := audit.Record(greeter.Lang()); err != nil {
		res.Fail(err)
		return
	}
	res.Success(greeter.Greet(visitor.Name))
}

// Languages handles GET /languages.
func (h *Handlers) Languages(w http.ResponseWriter, r *http.Request) {
	res := h.Response(w)

	scope, bridge, ok := routing.ScopeFrom(r.Context())
	if !ok {
		res.ServerError("no request scope")
		return
	}
	greeters, err := container.ResolveAll[Greeter](bridge, scope)
	if err != nil {
		res.Fail(err)
		return
	}
	langs := make([]string, 0, len(greeters))
	for _, g := range greeters {
		langs = append(langs, g.Lang())
	}
	slices.Sort(langs)
	res.Success(langs)
}

// Stats handles GET /stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	res := h.Response(w)

	stats, err := routing.Resolve[*Stats](r, "")
	if err != nil {
		res.Fail(err)
		return
	}
	clock, err := routing.Resolve[*Clock](r, "")
	if err != nil {
		res.Fail(err)
		return
	}
	res.Success(map[string]any{
		"greetings": stats.Snapshot(),
		"uptime":    clock.Uptime().String(),
	})
}
