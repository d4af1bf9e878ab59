package g2p

// CompositeTransducer chains transducers, threading each stage's output
// into the next and composing their alignments.
type CompositeTransducer struct {
	transducers []*Transducer
}

// NewCompositeTransducer builds a composite over the given mappings, in
// order.
func NewCompositeTransducer(mappings []*Mapping) *CompositeTransducer {
	ts := make([]*Transducer, len(mappings))
	for i, m := range mappings {
		ts[i] = NewTransducer(m)
	}
	return &CompositeTransducer{transducers: ts}
}

// Transducers returns the chained transducers in application order.
func (c *CompositeTransducer) Transducers() []*Transducer { return c.transducers }

// InLang returns the input language of the first stage, or "" for an
// empty chain.
func (c *CompositeTransducer) InLang() string {
	if len(c.transducers) == 0 {
		return ""
	}
	return c.transducers[0].InLang()
}

// OutLang returns the output language of the last stage, or "" for an
// empty chain.
func (c *CompositeTransducer) OutLang() string {
	if len(c.transducers) == 0 {
		return ""
	}
	return c.transducers[len(c.transducers)-1].OutLang()
}

// CompositeTransduction is the result of a chained conversion: the final
// output, the end-to-end alignment and the per-stage results.
type CompositeTransduction struct {
	Input  string
	Output string
	Edges  Alignment
	Stages []*Transduction
}

// Apply runs input through every stage. An empty chain returns the input
// unchanged with identity alignment.
func (c *CompositeTransducer) Apply(input string) *CompositeTransduction {
	result := &CompositeTransduction{
		Input:  input,
		Output: input,
		Edges:  Identity(len([]rune(input))),
	}
	for _, t := range c.transducers {
		stage := t.Apply(result.Output)
		result.Stages = append(result.Stages, stage)
		result.Output = stage.Output
		result.Edges = result.Edges.Compose(stage.Edges).Normalize()
	}
	return result
}
