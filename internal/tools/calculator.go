package tools

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

const arithmeticChars = "0123456789+-*/().<>="

// bareDecimal matches a decimal point with no integer part, as in ".5".
var bareDecimal = regexp.MustCompile(`(^|[^0-9])\.([0-9])`)

// Sanitize keeps digits, arithmetic and comparison operators, parentheses
// and decimal points, replacing everything else with single spaces. A bare
// decimal such as ".5" gains its leading zero. Dangling "=" at either end
// and sentence-ending periods are trimmed.
func Sanitize(input string) string {
	var b strings.Builder
	for _, r := range input {
		if strings.ContainsRune(arithmeticChars, r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	s := strings.Join(strings.Fields(b.String()), " ")
	s = bareDecimal.ReplaceAllString(s, "${1}0.${2}")
	s = strings.Trim(s, " =")
	for strings.HasSuffix(s, ".") {
		s = strings.TrimRight(strings.TrimSuffix(s, "."), " =")
	}
	for strings.HasPrefix(s, ".") {
		s = strings.TrimLeft(strings.TrimPrefix(s, "."), " =")
	}
	return s
}

// Evaluate computes an arithmetic expression exactly. Integral results
// render without a fractional part and comparisons render as true or
// false. Integer literals beyond int64 are rejected by the parser.
func Evaluate(expression string) (string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", expression, err)
	}
	out, err := evalNode(tree.Node)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return formatValue(out)
}

// maxExponent bounds "**" so a short expression cannot allocate without
// limit.
const maxExponent = 1024

// evalNode walks the parsed expression with exact rational arithmetic.
// It yields a *big.Rat or, for comparisons, a bool.
func evalNode(node ast.Node) (any, error) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return new(big.Rat).SetInt64(int64(n.Value)), nil
	case *ast.FloatNode:
		// Go through the shortest decimal form so 0.1 stays 1/10.
		r, ok := new(big.Rat).SetString(strconv.FormatFloat(n.Value, 'g', -1, 64))
		if !ok {
			return nil, fmt.Errorf("bad number %v: %w", n.Value, ErrNoResult)
		}
		return r, nil
	case *ast.UnaryNode:
		x, err := evalNumber(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return x.Neg(x), nil
		case "+":
			return x, nil
		}
		return nil, fmt.Errorf("unsupported operator %q: %w", n.Operator, ErrNoResult)
	case *ast.BinaryNode:
		return evalBinary(n)
	default:
		return nil, fmt.Errorf("unsupported expression %T: %w", node, ErrNoResult)
	}
}

func evalNumber(node ast.Node) (*big.Rat, error) {
	v, err := evalNode(node)
	if err != nil {
		return nil, err
	}
	r, ok := v.(*big.Rat)
	if !ok {
		return nil, fmt.Errorf("expected a number, got %T: %w", v, ErrNoResult)
	}
	return r, nil
}

func evalBinary(n *ast.BinaryNode) (any, error) {
	x, err := evalNumber(n.Left)
	if err != nil {
		return nil, err
	}
	y, err := evalNumber(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "+":
		return new(big.Rat).Add(x, y), nil
	case "-":
		return new(big.Rat).Sub(x, y), nil
	case "*":
		return new(big.Rat).Mul(x, y), nil
	case "/":
		if y.Sign() == 0 {
			return nil, fmt.Errorf("division by zero: %w", ErrNoResult)
		}
		return new(big.Rat).Quo(x, y), nil
	case "**", "^":
		return pow(x, y)
	case "<":
		return x.Cmp(y) < 0, nil
	case "<=":
		return x.Cmp(y) <= 0, nil
	case ">":
		return x.Cmp(y) > 0, nil
	case ">=":
		return x.Cmp(y) >= 0, nil
	case "==":
		return x.Cmp(y) == 0, nil
	case "!=":
		return x.Cmp(y) != 0, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q: %w", n.Operator, ErrNoResult)
	}
}

// pow raises x to a whole exponent.
func pow(x, y *big.Rat) (*big.Rat, error) {
	if !y.IsInt() || !y.Num().IsInt64() {
		return nil, fmt.Errorf("exponent %s is not a whole number: %w", y.RatString(), ErrNoResult)
	}
	e := y.Num().Int64()
	if e > maxExponent || e < -maxExponent {
		return nil, fmt.Errorf("exponent %d out of range: %w", e, ErrNoResult)
	}
	if e < 0 {
		if x.Sign() == 0 {
			return nil, fmt.Errorf("division by zero: %w", ErrNoResult)
		}
		x = new(big.Rat).Inv(x)
		e = -e
	}
	exp := big.NewInt(e)
	num := new(big.Int).Exp(x.Num(), exp, nil)
	den := new(big.Int).Exp(x.Denom(), exp, nil)
	return new(big.Rat).SetFrac(num, den), nil
}

// Calculator is the calculator stub. It sanitizes free text down to an
// arithmetic expression and evaluates it; when sanitizing leaves nothing
// the raw input is tried as-is.
func Calculator(_ context.Context, args string) (string, error) {
	expression := Sanitize(args)
	if expression == "" {
		expression = strings.TrimSpace(args)
	}
	if expression == "" {
		return "", ErrNoResult
	}
	return Evaluate(expression)
}

func formatValue(v any) (string, error) {
	switch n := v.(type) {
	case *big.Rat:
		if n.IsInt() {
			return n.Num().String(), nil
		}
		f, _ := n.Float64()
		if math.IsInf(f, 0) {
			return "", fmt.Errorf("result out of range: %w", ErrNoResult)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(n), nil
	default:
		return "", fmt.Errorf("unexpected result type %T: %w", v, ErrNoResult)
	}
}
