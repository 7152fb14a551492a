package transform

// Pipeline represents a sequence of rewriting stages.
type Pipeline struct {
	processors []Processor
}

type Processor interface {
	Process(ctx *Context) *Context
}

// Context carries one script through the stages.
type Context struct {
	Name      string
	Namespace string
	Mode      Mode
	Source    string
}

func NewPipeline(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Stages operate on disjoint spans, so their
// order is fixed by construction, not by data dependencies.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

type mangleStage struct{}

func (mangleStage) Process(ctx *Context) *Context {
	ctx.Source = Mangle(ctx.Source, ctx.Mode)
	return ctx
}

type callStage struct{}

func (callStage) Process(ctx *Context) *Context {
	ctx.Source = rewriteCalls(ctx.Source, ctx.Namespace)
	return ctx
}

type headerStage struct{}

func (headerStage) Process(ctx *Context) *Context {
	ctx.Source = Header + ctx.Source
	return ctx
}
