package tools

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/JovanVeljanoski/ateam/state"
)

// CalculatorArgs are the arguments of the calculator tool.
type CalculatorArgs struct {
	Op string  `json:"op" jsonschema:"enum=add,enum=sub,enum=mul,enum=div,enum=pow,enum=sqrt,description=Operation to apply" validate:"oneof=add sub mul div pow sqrt"`
	A  float64 `json:"a" jsonschema:"description=First operand"`
	B  float64 `json:"b" jsonschema:"description=Second operand (unused by sqrt)"`
}

// Calculator returns the calculator tool: add, sub, mul, div, pow, sqrt.
func Calculator() *Func[CalculatorArgs] {
	return MustFunc("calculator", "Perform basic arithmetic on two numbers (sqrt uses only a).", calculate)
}

func calculate(_ context.Context, _ *state.Shared, args CalculatorArgs) (any, error) {
	var res float64
	switch args.Op {
	case "add":
		res = args.A + args.B
	case "sub":
		res = args.A - args.B
	case "mul":
		res = args.A * args.B
	case "div":
		if args.B == 0 {
			return nil, errors.New("division by zero")
		}
		res = args.A / args.B
	case "pow":
		res = math.Pow(args.A, args.B)
	case "sqrt":
		if args.A < 0 {
			return nil, errors.New("sqrt of negative")
		}
		res = math.Sqrt(args.A)
	default:
		return nil, errors.New("unknown op")
	}
	return strconv.FormatFloat(res, 'f', -1, 64), nil
}
