package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chazu/elbow/pkg/assembly"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: rotary-sleeve -> rotary_sleeve
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSection is returned by the section builtins so that `elbow` can
// check its children and printing shows what was set.
type sexpSection struct {
	slot   assembly.Slot
	fields []field
}

func (s *sexpSection) SexpString(ps *zygo.PrintState) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(s.slot.String())
	for _, f := range s.fields {
		fmt.Fprintf(&b, " :%s %g", f.kw, *f.dst)
	}
	b.WriteString(")")
	return b.String()
}
func (s *sexpSection) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// field binds a keyword to the parameter it sets.
type field struct {
	kw  string
	dst *float64
}

// builder collects the effect of section builtins on one Parameters value.
type builder struct {
	params   *assembly.Parameters
	seen     map[assembly.Slot]bool
	warnings []EvalWarning
}

// section returns the builtin for one assembly slot. Keywords it does not
// name are errors; keywords it omits keep their current value.
func (b *builder) section(slot assembly.Slot, fields []field) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("%s: unexpected positional argument %s", slot, pa.positional[0].SexpString(nil))
		}
		known := make(map[string]*float64, len(fields))
		for _, f := range fields {
			known[f.kw] = f.dst
		}
		keys := make([]string, 0, len(pa.kw))
		for k := range pa.kw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			dst, ok := known[k]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: unknown keyword :%s", slot, k)
			}
			f, err := toFloat64(pa.kw[k])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %s: %w", slot, k, err)
			}
			*dst = f
		}

		if b.seen[slot] {
			b.warnings = append(b.warnings, EvalWarning{Section: slot.String(), Message: "redefined; last definition wins"})
		}
		b.seen[slot] = true
		return &sexpSection{slot: slot, fields: fields}, nil
	}
}

// registerBuiltins installs the parameter builtins into a zygomys
// environment. Each section builtin writes into b.params as it runs.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	p := b.params
	if b.seen == nil {
		b.seen = make(map[assembly.Slot]bool)
	}

	// (tube :outer-radius 50 :inner-radius 40 :length 1000)
	env.AddFunction("tube", b.section(assembly.Tube, []field{
		{"outer-radius", &p.TubeOuterRadius},
		{"inner-radius", &p.TubeInnerRadius},
		{"length", &p.TubeLength},
	}))

	// (rotary-sleeve :thickness 10 :length 100 :position 200)
	//
	// Registered with underscores because zygomys does not support hyphens
	// in identifiers; preprocessSource rewrites the call site.
	env.AddFunction("rotary_sleeve", b.section(assembly.RotarySleeve, []field{
		{"thickness", &p.Rotary.Thickness},
		{"length", &p.Rotary.Length},
		{"position", &p.Rotary.Position},
	}))

	// (fixed-sleeve :thickness 10 :length 80 :position 400)
	env.AddFunction("fixed_sleeve", b.section(assembly.FixedSleeve, []field{
		{"thickness", &p.Fixed.Thickness},
		{"length", &p.Fixed.Length},
		{"position", &p.Fixed.Position},
	}))

	// (arc :radius 80 :thickness 15 :angle (degrees 90))
	env.AddFunction("arc", b.section(assembly.ArcSector, []field{
		{"radius", &p.Arc.Radius},
		{"thickness", &p.Arc.Thickness},
		{"angle", &p.Arc.Angle},
	}))

	// (degrees 90) -> radians
	env.AddFunction("degrees", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("degrees requires exactly 1 argument, got %d", len(args))
		}
		d, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("degrees: %w", err)
		}
		return &zygo.SexpFloat{Val: d * math.Pi / 180}, nil
	})

	// (elbow (tube ...) (arc ...) ...)
	//
	// Optional grouping form. Its children have already run; it only checks
	// that every argument is a section.
	env.AddFunction("elbow", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		for i, a := range args {
			if _, ok := a.(*sexpSection); !ok {
				return zygo.SexpNull, fmt.Errorf("elbow: child %d: expected section, got %T (%s)",
					i+1, a, a.SexpString(nil))
			}
		}
		return zygo.SexpNull, nil
	})
}
