package fhirpath

import (
	"context"
	"io"
	"time"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/schema"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// EvalOptions configures expression evaluation.
type EvalOptions struct {
	// Ctx carries cancellation; a Timeout below wraps it.
	Ctx context.Context

	// Timeout for the whole evaluation (0 means no timeout).
	Timeout time.Duration

	// MaxDepth limits AST recursion (0 means the default of 100).
	MaxDepth int

	// MaxCollectionSize limits intermediate collections (0 = no limit).
	MaxCollectionSize int

	// Variables are environment variables accessible via %name.
	Variables map[string]types.Collection

	// Resolver handles references resolve() cannot satisfy locally.
	Resolver ReferenceResolver

	// SchemaProvider answers type and property questions; nil uses
	// the embedded base provider.
	SchemaProvider schema.Provider

	// TraceWriter receives trace() output; nil silences it.
	TraceWriter io.Writer
}

// DefaultOptions returns evaluation options suitable for production.
func DefaultOptions() *EvalOptions {
	return &EvalOptions{
		Ctx:               context.Background(),
		Timeout:           5 * time.Second,
		MaxDepth:          eval.DefaultMaxDepth,
		MaxCollectionSize: 10000,
		Variables:         make(map[string]types.Collection),
	}
}

// EvalOption is a functional option for configuring evaluation.
type EvalOption func(*EvalOptions)

// WithContext sets the context for cancellation.
func WithContext(ctx context.Context) EvalOption {
	return func(o *EvalOptions) { o.Ctx = ctx }
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(d time.Duration) EvalOption {
	return func(o *EvalOptions) { o.Timeout = d }
}

// WithMaxDepth sets the maximum AST recursion depth.
func WithMaxDepth(depth int) EvalOption {
	return func(o *EvalOptions) { o.MaxDepth = depth }
}

// WithMaxCollectionSize caps intermediate collection sizes.
func WithMaxCollectionSize(size int) EvalOption {
	return func(o *EvalOptions) { o.MaxCollectionSize = size }
}

// WithVariable binds an environment variable (%name).
func WithVariable(name string, value types.Collection) EvalOption {
	return func(o *EvalOptions) {
		if o.Variables == nil {
			o.Variables = make(map[string]types.Collection)
		}
		o.Variables[name] = value
	}
}

// WithResolver sets the external reference resolver.
func WithResolver(r ReferenceResolver) EvalOption {
	return func(o *EvalOptions) { o.Resolver = r }
}

// WithSchemaProvider sets the schema provider consulted by
// navigation and type operators.
func WithSchemaProvider(p schema.Provider) EvalOption {
	return func(o *EvalOptions) { o.SchemaProvider = p }
}

// WithTrace directs trace() output to w.
func WithTrace(w io.Writer) EvalOption {
	return func(o *EvalOptions) { o.TraceWriter = w }
}

// ReferenceResolver resolves references that resolve() cannot satisfy
// from the contained array or the enclosing Bundle.
type ReferenceResolver interface {
	// Resolve takes a reference like "Patient/123" and returns the
	// resource JSON.
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// EvaluateWithOptions evaluates the expression with custom options.
func (e *Expression) EvaluateWithOptions(resource []byte, opts ...EvalOption) (types.Collection, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	goCtx := options.Ctx
	if goCtx == nil {
		goCtx = context.Background()
	}
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		goCtx, cancel = context.WithTimeout(goCtx, options.Timeout)
		defer cancel()
	}

	evalCtx := eval.NewContext(resource)
	evalCtx.SetGoContext(goCtx)
	evalCtx.SetLimits(eval.Limits{
		MaxDepth:          options.MaxDepth,
		MaxCollectionSize: options.MaxCollectionSize,
	})
	for name, value := range options.Variables {
		evalCtx.SetVariable(name, value)
	}
	if options.Resolver != nil {
		evalCtx.SetResolver(resolverAdapter{options.Resolver})
	}
	if options.SchemaProvider != nil {
		evalCtx.SetSchemaProvider(options.SchemaProvider)
	}
	if options.TraceWriter != nil {
		evalCtx.SetTraceWriter(options.TraceWriter)
	}

	return e.EvaluateWithContext(evalCtx)
}

// resolverAdapter bridges the public ReferenceResolver to the
// evaluator's Resolver.
type resolverAdapter struct {
	resolver ReferenceResolver
}

func (a resolverAdapter) Resolve(ctx context.Context, reference string) ([]byte, error) {
	return a.resolver.Resolve(ctx, reference)
}
