package directive

// Node is any node of a parsed template.
type Node interface {
	node()
}

// Template is the root produced by Parse. It is never modified after
// parsing, so one Template may be rendered from many goroutines at once.
type Template struct {
	Nodes []Node
}

// TextNode represents literal text between directives.
type TextNode struct {
	Text string
}

func (*TextNode) node() {}

// InterpolationNode represents @{expr}.
type InterpolationNode struct {
	Expr Expr
	Pos  Pos
}

func (*InterpolationNode) node() {}

// Branch is one condition of a conditional with the body rendered when it
// is the first truthy one.
type Branch struct {
	Cond Expr
	Body []Node
}

// ConditionalNode represents @{if}...@{elif}...@{else}...@{fi}. Branches[0]
// is the if; later branches are the elifs in declared order. Else is nil
// when there is no else clause.
type ConditionalNode struct {
	Branches []Branch
	Else     []Node
	Pos      Pos
}

func (*ConditionalNode) node() {}

// LoopNode represents @{foreach Name in Collection}...@{end}.
type LoopNode struct {
	Name       string
	Collection Expr
	Body       []Node
	Pos        Pos
}

func (*LoopNode) node() {}

// LocalizationNode represents @(text). Text is the whitespace-normalised
// body, passed as is to the translator.
type LocalizationNode struct {
	Text string
	Pos  Pos
}

func (*LocalizationNode) node() {}

// Expr is any expression node.
type Expr interface {
	expr()
}

// Literal is a constant value.
type Literal struct {
	Value Value
}

func (*Literal) expr() {}

// Segment is one step of a property path: a field name or an array index.
type Segment struct {
	Field   string
	Index   int
	IsIndex bool
}

// Path is a dotted property path rooted at a bound name, e.g. M.banks.0.
type Path struct {
	Root     string
	Segments []Segment
	Pos      Pos
}

func (*Path) expr() {}

// Select applies path segments to an arbitrary expression, e.g. (a || b).name.
type Select struct {
	X        Expr
	Segments []Segment
}

func (*Select) expr() {}

// Length is the trailing .length pseudo-property.
type Length struct {
	X Expr
}

func (*Length) expr() {}

// Operator is a unary or binary operator.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpAnd          Operator = "&&"
	OpOr           Operator = "||"
	OpNot          Operator = "!"
	OpNeg          Operator = "-"
)

// Binary is a binary operation.
type Binary struct {
	Op    Operator
	Left  Expr
	Right Expr
}

func (*Binary) expr() {}

// Unary is a prefix operation.
type Unary struct {
	Op Operator
	X  Expr
}

func (*Unary) expr() {}

// Ternary is cond ? then : else.
type Ternary struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*Ternary) expr() {}

// ArrayLit is [a, b, c].
type ArrayLit struct {
	Elems []Expr
}

func (*ArrayLit) expr() {}

// ObjectLit is {key: value, "other key": value}. Later duplicate keys win.
type ObjectLit struct {
	Keys   []string
	Values []Expr
}

func (*ObjectLit) expr() {}

// Call is a function call, e.g. range(3).
type Call struct {
	Name string
	Args []Expr
	Pos  Pos
}

func (*Call) expr() {}
