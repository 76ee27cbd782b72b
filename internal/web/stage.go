package web

// Handler is the innermost unit of work, and the shape every composed
// chain has.
type Handler func(c *Context) error

// Stage is one step of the request pipeline. It may act before and after
// calling next, or short-circuit by not calling it.
type Stage interface {
	Handle(c *Context, next Handler) error
}

// StageFunc adapts a function to Stage.
type StageFunc func(c *Context, next Handler) error

func (f StageFunc) Handle(c *Context, next Handler) error { return f(c, next) }

// Compose nests stages around final so that the first stage is the
// outermost. Nil stages are skipped. The result is built once and reused
// for every request.
func Compose(final Handler, stages ...Stage) Handler {
	h := final
	for i := len(stages) - 1; i >= 0; i-- {
		s := stages[i]
		if s == nil {
			continue
		}
		next := h
		h = func(c *Context) error { return s.Handle(c, next) }
	}
	return h
}

// Controller exposes named actions to the dispatcher.
type Controller interface {
	Action(name string) (Handler, bool)
}

// Actions is a Controller backed by a plain map.
type Actions map[string]Handler

func (a Actions) Action(name string) (Handler, bool) {
	h, ok := a[name]
	return h, ok && h != nil
}
