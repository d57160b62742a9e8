package eval

import (
	"context"
	"io"
	"os"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/schema"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Resolver handles reference resolution beyond the contained array and
// the enclosing Bundle. Implementations must not be required: without
// one, resolve() still serves contained and Bundle references.
type Resolver interface {
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// Limits bounds an evaluation.
type Limits struct {
	// MaxDepth caps AST recursion; zero means DefaultMaxDepth.
	MaxDepth int
	// MaxCollectionSize caps intermediate collections; zero is
	// unlimited.
	MaxCollectionSize int
	// MaxRepeatIterations caps the repeat() fixed point; zero means
	// DefaultMaxRepeatIterations.
	MaxRepeatIterations int
}

// Default limit values applied when a limit is left zero.
const (
	DefaultMaxDepth            = 100
	DefaultMaxRepeatIterations = 1000
)

// scope is a node of the persistent variable chain. Pushing a lambda
// scope never mutates enclosing scopes.
type scope struct {
	name   string
	value  types.Collection
	parent *scope
}

func (s *scope) lookup(name string) (types.Collection, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.value, true
		}
	}
	return nil, false
}

// Context holds the evaluation state. Contexts are value-like: the
// With* methods return shallow copies sharing the immutable parts, so
// a lambda iteration never disturbs its caller.
type Context struct {
	root     types.Collection
	this     types.Collection
	index    int
	hasIndex bool
	total    types.Collection
	hasTotal bool

	vars   *scope
	limits Limits

	goCtx    context.Context
	resolver Resolver
	provider schema.Provider
	trace    io.Writer
}

// NewContext creates an evaluation context rooted at the given JSON
// resource. %resource and %context are preset to the root, matching
// the variables FHIR constraint expressions rely on.
func NewContext(resource []byte) *Context {
	root, _ := types.JSONToCollection(resource)
	return NewContextFromCollection(root)
}

// NewContextFromCollection creates a context over an existing
// collection, used when evaluating against intermediate results.
func NewContextFromCollection(root types.Collection) *Context {
	c := &Context{
		root:     root,
		this:     root,
		goCtx:    context.Background(),
		provider: schema.Base(),
		trace:    os.Stderr,
	}
	c.vars = &scope{name: "resource", value: root, parent: &scope{name: "context", value: root}}
	return c
}

// SetGoContext sets the Go context used for cancellation and deadline
// checks.
func (c *Context) SetGoContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.goCtx = ctx
}

// GoContext returns the Go context.
func (c *Context) GoContext() context.Context {
	if c.goCtx == nil {
		return context.Background()
	}
	return c.goCtx
}

// SetLimits replaces the evaluation limits.
func (c *Context) SetLimits(l Limits) {
	c.limits = l
}

// Limits returns the evaluation limits with defaults applied.
func (c *Context) Limits() Limits {
	l := c.limits
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxRepeatIterations <= 0 {
		l.MaxRepeatIterations = DefaultMaxRepeatIterations
	}
	return l
}

// SetResolver sets the external reference resolver.
func (c *Context) SetResolver(r Resolver) {
	c.resolver = r
}

// GetResolver returns the external reference resolver, if any.
func (c *Context) GetResolver() Resolver {
	return c.resolver
}

// SetSchemaProvider replaces the schema provider. A nil provider
// restores the embedded base provider.
func (c *Context) SetSchemaProvider(p schema.Provider) {
	if p == nil {
		p = schema.Base()
	}
	c.provider = p
}

// SchemaProvider returns the active schema provider.
func (c *Context) SchemaProvider() schema.Provider {
	return c.provider
}

// SetTraceWriter directs trace() output; nil silences it.
func (c *Context) SetTraceWriter(w io.Writer) {
	c.trace = w
}

// TraceWriter returns the trace() destination, which may be nil.
func (c *Context) TraceWriter() io.Writer {
	return c.trace
}

// CheckCancellation reports a Cancelled or Timeout error when the Go
// context is done. The evaluator calls this before every dispatch and
// at loop boundaries.
func (c *Context) CheckCancellation() error {
	if c.goCtx == nil {
		return nil
	}
	select {
	case <-c.goCtx.Done():
		if c.goCtx.Err() == context.DeadlineExceeded {
			return NewEvalError(ErrTimeout, "evaluation deadline exceeded")
		}
		return NewEvalError(ErrCancelled, "evaluation cancelled")
	default:
		return nil
	}
}

// CheckCollectionSize enforces the intermediate collection cap.
func (c *Context) CheckCollectionSize(col types.Collection) error {
	maxSize := c.limits.MaxCollectionSize
	if maxSize > 0 && len(col) > maxSize {
		return NewEvalError(ErrInvalidExpression,
			"collection size %d exceeds maximum allowed %d", len(col), maxSize)
	}
	return nil
}

// Root returns the evaluation root.
func (c *Context) Root() types.Collection {
	return c.root
}

// This returns the current focus ($this).
func (c *Context) This() types.Collection {
	return c.this
}

// Index returns $index and whether a lambda iteration is active.
func (c *Context) Index() (int, bool) {
	return c.index, c.hasIndex
}

// Total returns $total and whether an aggregate is active.
func (c *Context) Total() (types.Collection, bool) {
	return c.total, c.hasTotal
}

// WithThis returns a copy focused on the given collection.
func (c *Context) WithThis(this types.Collection) *Context {
	out := *c
	out.this = this
	return &out
}

// WithIteration returns a copy focused on one item of a lambda
// iteration, with $this and $index bound.
func (c *Context) WithIteration(item types.Value, index int) *Context {
	out := *c
	out.this = types.Collection{item}
	out.index = index
	out.hasIndex = true
	return &out
}

// WithTotal returns a copy with $total bound for aggregate().
func (c *Context) WithTotal(total types.Collection) *Context {
	out := *c
	out.total = total
	out.hasTotal = true
	return &out
}

// WithVariable returns a copy with an environment variable bound.
// The copy shares every enclosing scope.
func (c *Context) WithVariable(name string, value types.Collection) *Context {
	out := *c
	out.vars = &scope{name: name, value: value, parent: c.vars}
	return &out
}

// SetVariable binds an environment variable in place; used while
// seeding the root context.
func (c *Context) SetVariable(name string, value types.Collection) {
	c.vars = &scope{name: name, value: value, parent: c.vars}
}

// GetVariable resolves an environment variable (%name).
func (c *Context) GetVariable(name string) (types.Collection, bool) {
	return c.vars.lookup(name)
}
