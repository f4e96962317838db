package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/molprint/pkg/pins"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites session scripts before zygomys sees them:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot clash with user variables.
//
//  2. kebab-case identifiers become underscores (scale-bonds -> scale_bonds).
//     zygomys reads a hyphen inside a name as subtraction.
//
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
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
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// := is assignment
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen between identifier characters is part of a name.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
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

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
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

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments. A keyword
// with nothing after it is a flag holding SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword, a plain string or an integer, so
// (pins :split), (pins "split") and (pins 1) all work.
func toKeywordString(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *zygo.SexpStr:
		return strings.TrimPrefix(v.S, kwPrefix), nil
	case *zygo.SexpInt:
		return strconv.FormatInt(v.Val, 10), nil
	}
	return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toNames flattens string arguments and lists of strings into primitive
// names.
func toNames(args []zygo.Sexp) ([]string, error) {
	var out []string
	for _, a := range args {
		if s, err := toString(a); err == nil {
			out = append(out, s)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return nil, fmt.Errorf("expected name or list of names, got %T (%s)", a, a.SexpString(nil))
		}
		inner, err := toNames(items)
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Command values
// ---------------------------------------------------------------------------

// sexpCommand is what every builtin returns, so scripts can print or
// collect what they queued.
type sexpCommand struct {
	cmd Command
}

func (c *sexpCommand) SexpString(ps *zygo.PrintState) string { return c.cmd.String() }
func (c *sexpCommand) Type() *zygo.RegisteredType { return nil }

// classifiers maps accepted classifier names to the session's names.
var classifiers = map[string]string{
	"hbonds":     "hbonds",
	"hydrogen":   "hbonds",
	"phosphates": "phosphates",
	"glyco":      "glyco",
	"glycosidic": "glyco",
	"alpha":      "alpha",
	"amides":     "alpha",
}

var floorModes = map[string]bool{"auto": true, "multi": true}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(pa kwArgs) (Command, error)

// registerBuiltins installs the session commands into env. Each call
// appends one Command to p.
//
// Source must go through preprocessSource first so :keyword tokens are
// recognizable.
func registerBuiltins(env *zygo.Zlisp, p *Plan) {
	add := func(name string, fn builtin) {
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			cmd, err := fn(parseArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", strings.ReplaceAll(name, "_", "-"), err)
			}
			p.add(cmd)
			return &sexpCommand{cmd: cmd}, nil
		})
	}

	for _, op := range []Op{OpInteractions, OpGroup, OpClean, OpAssemble, OpCPK, OpClearSelect} {
		op := op
		add(identifier(op), func(pa kwArgs) (Command, error) {
			if len(pa.positional) > 0 || len(pa.kw) > 0 {
				return Command{}, fmt.Errorf("takes no arguments")
			}
			return Command{Op: op}, nil
		})
	}

	// (select "C1" "N3") or (select (list "C1" "N3"))
	for _, op := range []Op{OpSelect, OpDeselect, OpDouble} {
		op := op
		add(identifier(op), func(pa kwArgs) (Command, error) {
			names, err := toNames(pa.positional)
			if err != nil {
				return Command{}, err
			}
			if len(names) == 0 {
				return Command{}, fmt.Errorf("requires at least one primitive name")
			}
			return Command{Op: op, Names: names}, nil
		})
	}

	// (classify :hbonds)
	add(identifier(OpClassify), func(pa kwArgs) (Command, error) {
		if len(pa.positional) != 1 {
			return Command{}, fmt.Errorf("requires one classifier (:hbonds, :phosphates, :glyco, :alpha)")
		}
		name, err := toKeywordString(pa.positional[0])
		if err != nil {
			return Command{}, err
		}
		kind, ok := classifiers[name]
		if !ok {
			return Command{}, fmt.Errorf("unknown classifier %q", name)
		}
		return Command{Op: OpClassify, Kind: kind}, nil
	})

	// (pins :split), (pins :type 2) or (pins) for the configured default.
	add(identifier(OpPins), func(pa kwArgs) (Command, error) {
		var v zygo.Sexp
		switch {
		case len(pa.positional) > 0:
			v = pa.positional[0]
		case pa.kw["type"] != nil:
			v = pa.kw["type"]
		default:
			return Command{Op: OpPins}, nil
		}
		name, err := toKeywordString(v)
		if err != nil {
			return Command{}, fmt.Errorf("type: %w", err)
		}
		t, err := pins.ParseType(name)
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpPins, Kind: t.String()}, nil
	})

	// (strut "O1" "H7")
	add(identifier(OpStrut), func(pa kwArgs) (Command, error) {
		names, err := toNames(pa.positional)
		if err != nil {
			return Command{}, err
		}
		if len(names) != 2 {
			return Command{}, fmt.Errorf("requires exactly two sphere names, got %d", len(names))
		}
		return Command{Op: OpStrut, Names: names}, nil
	})

	// (scale-bonds 0.8)
	for _, op := range []Op{OpScaleBonds, OpScaleAtoms} {
		op := op
		add(identifier(op), func(pa kwArgs) (Command, error) {
			if len(pa.positional) != 1 {
				return Command{}, fmt.Errorf("requires one factor")
			}
			f, err := toFloat64(pa.positional[0])
			if err != nil {
				return Command{}, err
			}
			if f <= 0 {
				return Command{}, fmt.Errorf("factor must be positive, got %g", f)
			}
			return Command{Op: op, Value: f}, nil
		})
	}

	// (multicolor true), (auto-group false); no argument means true.
	for _, op := range []Op{OpMultiColor, OpAutoGroup} {
		op := op
		add(identifier(op), func(pa kwArgs) (Command, error) {
			if len(pa.positional) == 0 {
				return Command{Op: op, Flag: true}, nil
			}
			b, err := toBool(pa.positional[0])
			if err != nil {
				return Command{}, err
			}
			return Command{Op: op, Flag: b}, nil
		})
	}

	// (floor), (floor :multi) or (floor :auto "group0" "group2")
	add(identifier(OpFloor), func(pa kwArgs) (Command, error) {
		cmd := Command{Op: OpFloor, Kind: "auto"}
		for name, v := range pa.kw {
			if !floorModes[name] {
				return Command{}, fmt.Errorf("unknown mode %q", name)
			}
			cmd.Kind = name
			if v != zygo.SexpNull {
				pa.positional = append([]zygo.Sexp{v}, pa.positional...)
			}
		}
		names, err := toNames(pa.positional)
		if err != nil {
			return Command{}, err
		}
		cmd.Names = names
		return cmd, nil
	})

	// (floor-faces "group0" 0 3)
	add(identifier(OpFloorFaces), func(pa kwArgs) (Command, error) {
		if len(pa.positional) < 2 {
			return Command{}, fmt.Errorf("requires a body name and at least one face index")
		}
		body, err := toString(pa.positional[0])
		if err != nil {
			return Command{}, fmt.Errorf("body: %w", err)
		}
		cmd := Command{Op: OpFloorFaces, Names: []string{body}}
		for _, a := range pa.positional[1:] {
			f, err := toInt(a)
			if err != nil {
				return Command{}, fmt.Errorf("face: %w", err)
			}
			if f < 0 {
				return Command{}, fmt.Errorf("face index must not be negative, got %d", f)
			}
			cmd.Faces = append(cmd.Faces, f)
		}
		return cmd, nil
	})

	// (save "out/") and (load "out/")
	for _, op := range []Op{OpSave, OpLoad} {
		op := op
		add(identifier(op), func(pa kwArgs) (Command, error) {
			if len(pa.positional) != 1 {
				return Command{}, fmt.Errorf("requires one directory")
			}
			dir, err := toString(pa.positional[0])
			if err != nil {
				return Command{}, err
			}
			return Command{Op: op, Kind: dir}, nil
		})
	}
}

// identifier is the zygomys name of op after kebab-case conversion.
func identifier(op Op) string {
	return strings.ReplaceAll(string(op), "-", "_")
}
