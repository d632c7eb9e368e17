package directive

// Scope holds the names visible to an expression: the model M, the
// repository R and one frame per active loop. A Scope belongs to a single
// render call.
type Scope struct {
	model  Value
	repo   Value
	frames []frame
}

type frame struct {
	name  string
	elem  Value
	index int
}

// NewScope returns a scope over model and repo. Nil values become Null.
func NewScope(model, repo Value) *Scope {
	if model == nil {
		model = Null{}
	}
	if repo == nil {
		repo = Null{}
	}
	return &Scope{model: model, repo: repo}
}

// Model returns the root data model bound to M.
func (s *Scope) Model() Value { return s.model }

// Repository returns the side-channel data bound to R.
func (s *Scope) Repository() Value { return s.repo }

// Depth returns the number of active loop frames.
func (s *Scope) Depth() int { return len(s.frames) }

// Push enters a loop iteration binding name to elem and index to i.
func (s *Scope) Push(name string, elem Value, i int) {
	s.frames = append(s.frames, frame{name: name, elem: elem, index: i})
}

// Pop leaves the innermost loop iteration.
func (s *Scope) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Lookup resolves a root name. Loop frames are searched innermost first,
// so an inner index shadows an outer one; then M and R; finally the name is
// looked up as a field of the model.
func (s *Scope) Lookup(name string) Value {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.name == name {
			return f.elem
		}
		if name == "index" {
			return Number(float64(f.index))
		}
	}
	switch name {
	case "M":
		return s.model
	case "R":
		return s.repo
	}
	if obj, ok := s.model.(Object); ok {
		if v, ok := obj[name]; ok {
			return v
		}
	}
	return Null{}
}
