package formcalc

import (
	_ "embed"
	"sort"
	"strconv"
	"strings"
)

// Fn is the function signature for functions called by the evaluator.
//
//	info - if info == true, then the function is not run but returns *FnReturn with Name, Calc, MinArgs
//	       and MaxArgs filled in.
//	ctx  - the evaluation context, positioned at the row being evaluated (required only if info=false).
//	args - the unevaluated arguments. A function evaluates them at the row, or down a column.
type Fn func(info bool, ctx *Context, args ...Node) *FnReturn

// FnReturn is the return type for evaluator functions
type FnReturn struct {
	Value *Value // return value of function

	Name string    // name of function, upper case
	Calc CalcTypes // family of the function

	MinArgs int
	MaxArgs int // -1 if the number of arguments is not limited

	Err error
}

// Fns maps upper-case function names to their implementation.
type Fns map[string]Fn

// Get returns the function called fnName, in any case. nil if there is none.
func (fs Fns) Get(fnName string) Fn {
	if fs == nil {
		return nil
	}

	return fs[strings.ToUpper(fnName)]
}

// Add registers fn under the name it reports.
func (fs Fns) Add(fn Fn) {
	fs[fn(true, nil).Name] = fn
}

// Names lists the registered functions, sorted.
func (fs Fns) Names() []string {
	var names []string
	for nm := range fs {
		names = append(names, nm)
	}

	sort.Strings(names)

	return names
}

// RunFn checks the number of arguments then runs fn.
func RunFn(fn Fn, ctx *Context, args ...Node) (*Value, error) {
	info := fn(true, nil)

	pos := -1
	if ctx.call != nil {
		pos = ctx.call.At
	}

	if len(args) < info.MinArgs {
		return nil, newEvalError(EKarity, pos, "need at least %d arguments to %s, got %d", info.MinArgs, info.Name, len(args))
	}

	if info.MaxArgs >= 0 && len(args) > info.MaxArgs {
		return nil, newEvalError(EKarity, pos, "got %d arguments to %s, expected at most %d", len(args), info.Name, info.MaxArgs)
	}

	var fnR *FnReturn
	if fnR = fn(false, ctx, args...); fnR.Err != nil {
		return nil, fnR.Err
	}

	return fnR.Value, nil
}

// *********

// FnSpec specifies a function that the evaluator will have access to.
type FnSpec struct {
	// Name is the name of the function as written in formulas, upper case.
	Name string

	// Calc is the family the function belongs to.
	Calc CalcTypes

	// MinArgs is the fewest arguments a call needs.
	MinArgs int

	// MinFields is the fewest quoted field references a formula of this function type needs.
	MinFields int

	// MaxArgs is the most arguments a call takes, -1 if unlimited.
	MaxArgs int
}

// Fmap maps the function name to its spec
type Fmap map[string]*FnSpec

//go:embed funcs/functions.txt
var functionsTxt string

// Functions is the closed function library.
var Functions = LoadFunctions(functionsTxt)

// LoadFunctions loads functions from a string which is an embedded file.
// LoadFunctions expects functions to be separated by "\n".
// Within each line there are 5 fields separated by colons. The fields are:
//
//	function name
//	calculation type (aggregate, rowwise, columnwise, grouping)
//	minimum number of arguments
//	minimum number of field references
//	maximum number of arguments (* = no limit).
//
// Lines that do not have 5 fields are skipped.
func LoadFunctions(fns string) Fmap {
	m := make(Fmap)

	for _, spec := range strings.Split(fns, "\n") {
		details := strings.Split(TrimBlank(spec), ":")
		if len(details) != 5 {
			continue
		}

		s := &FnSpec{
			Name:      strings.ToUpper(TrimBlank(details[0])),
			Calc:      CalcTypeFromString(details[1]),
			MinArgs:   atoi(details[2], 0),
			MinFields: atoi(details[3], 0),
			MaxArgs:   atoi(details[4], -1),
		}

		m[s.Name] = s
	}

	return m
}

func atoi(s string, deflt int) int {
	i, e := strconv.Atoi(TrimBlank(s))
	if e != nil {
		return deflt
	}

	return i
}

// Get returns the spec of fnName, in any case. nil if it is not in the library.
func (fm Fmap) Get(fnName string) *FnSpec {
	return fm[strings.ToUpper(TrimBlank(fnName))]
}

// MinFields returns the fewest field references a formula of function type fnName needs, 0 if the
// function is not known.
func (fm Fmap) MinFields(fnName string) int {
	if s := fm.Get(fnName); s != nil {
		return s.MinFields
	}

	return 0
}

// Names lists the functions in the library, sorted.
func (fm Fmap) Names() []string {
	var names []string
	for nm := range fm {
		names = append(names, nm)
	}

	sort.Strings(names)

	return names
}
