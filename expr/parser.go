package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"sfc/utils"
)

// 内置函数表, 值为参数个数与实现
var builtins = map[string]struct {
	argc int
	fn   func(args []float64) float64
}{
	"sin":    {1, func(a []float64) float64 { return math.Sin(a[0]) }},
	"cos":    {1, func(a []float64) float64 { return math.Cos(a[0]) }},
	"tan":    {1, func(a []float64) float64 { return math.Tan(a[0]) }},
	"asin":   {1, func(a []float64) float64 { return math.Asin(a[0]) }},
	"acos":   {1, func(a []float64) float64 { return math.Acos(a[0]) }},
	"atan":   {1, func(a []float64) float64 { return math.Atan(a[0]) }},
	"abs":    {1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"exp":    {1, func(a []float64) float64 { return math.Exp(a[0]) }},
	"log":    {1, func(a []float64) float64 { return math.Log(a[0]) }},
	"sqrt":   {1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"floor":  {1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":   {1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	"step":   {1, func(a []float64) float64 { return boolVal(a[0] >= 0) }},
	"min":    {2, func(a []float64) float64 { return math.Min(a[0], a[1]) }},
	"max":    {2, func(a []float64) float64 { return math.Max(a[0], a[1]) }},
	"pow":    {2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"mod":    {2, func(a []float64) float64 { return math.Mod(a[0], a[1]) }},
	"pwr":    {2, func(a []float64) float64 { return math.Pow(math.Abs(a[0]), a[1]) }},
	"clamp":  {3, func(a []float64) float64 { return utils.Clamp(a[0], a[1], a[2]) }},
	"select": {3, func(a []float64) float64 {
		if a[0] > 0 {
			return a[2]
		}
		return a[1]
	}},
}

// Parser 方程文本解析器
type Parser struct {
	text string
	pos  int
}

// NewParser 初始化
func NewParser(text string) *Parser {
	return &Parser{text: text}
}

// Parse 编译方程文本
// 单元格方程与流量方程共用此语法
func Parse(text string) (*Expr, error) {
	return NewParser(text).ParseExpression()
}

// ParseExpression 解析完整表达式, 要求消耗全部输入
func (p *Parser) ParseExpression() (*Expr, error) {
	e, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.text) {
		return nil, fmt.Errorf("表达式第 %d 列存在多余内容: %q", p.pos+1, p.text[p.pos:])
	}
	return e, nil
}

func (p *Parser) parseCompare() (*Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		var op int
		switch {
		case p.match("<="):
			op = opLe
		case p.match(">="):
			op = opGe
		case p.match("=="):
			op = opEq
		case p.match("!="):
			op = opNe
		case p.match("<"):
			op = opLt
		case p.match(">"):
			op = opGt
		default:
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Expr{op: op, args: []*Expr{left, right}}
	}
}

func (p *Parser) parseAdditive() (*Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		var op int
		switch {
		case p.match("+"):
			op = opAdd
		case p.match("-"):
			op = opSub
		default:
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Expr{op: op, args: []*Expr{left, right}}
	}
}

func (p *Parser) parseTerm() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		var op int
		switch {
		case p.match("*"):
			op = opMul
		case p.match("/"):
			op = opDiv
		case p.match("%"):
			op = opMod
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Expr{op: op, args: []*Expr{left, right}}
	}
}

func (p *Parser) parseUnary() (*Expr, error) {
	p.skipSpace()
	if p.match("-") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{op: opNeg, args: []*Expr{inner}}, nil
	}
	if p.match("+") {
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (*Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.text) {
		return nil, fmt.Errorf("表达式在第 %d 列意外结束", p.pos+1)
	}
	c := p.text[p.pos]
	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.match(")") {
			return nil, fmt.Errorf("表达式第 %d 列缺少右括号", p.pos+1)
		}
		return inner, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case unicode.IsLetter(rune(c)) || c == '_' || c >= 0x80:
		return p.parseIdent()
	}
	return nil, fmt.Errorf("表达式第 %d 列存在非法字符 %q", p.pos+1, c)
}

func (p *Parser) parseNumber() (*Expr, error) {
	start := p.pos
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		if (c == '+' || c == '-') && p.pos > start &&
			(p.text[p.pos-1] == 'e' || p.text[p.pos-1] == 'E') {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.text[start:p.pos], 64)
	if err != nil {
		return nil, fmt.Errorf("表达式第 %d 列数字非法: %q", start+1, p.text[start:p.pos])
	}
	return &Expr{op: opValue, value: v}, nil
}

func (p *Parser) parseIdent() (*Expr, error) {
	start := p.pos
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		// 字节值超出 ASCII 的按标识符成分处理, 允许多字节名称
		if unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '_' || c >= 0x80 {
			p.pos++
			continue
		}
		break
	}
	name := p.text[start:p.pos]
	lower := strings.ToLower(name)
	p.skipSpace()
	if p.match("(") {
		b, ok := builtins[lower]
		if !ok {
			return nil, fmt.Errorf("未知函数: %s", name)
		}
		args := make([]*Expr, 0, b.argc)
		for i := 0; i < b.argc; i++ {
			if i > 0 {
				p.skipSpace()
				if !p.match(",") {
					return nil, fmt.Errorf("函数 %s 需要 %d 个参数", name, b.argc)
				}
			}
			a, err := p.parseCompare()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		p.skipSpace()
		if !p.match(")") {
			return nil, fmt.Errorf("函数 %s 缺少右括号", name)
		}
		return &Expr{op: opFunc, name: lower, fn: b.fn, args: args}, nil
	}
	switch lower {
	case "pi":
		return &Expr{op: opValue, value: math.Pi}, nil
	case "e":
		return &Expr{op: opValue, value: math.E}, nil
	case "t":
		return &Expr{op: opTime}, nil
	case "timestep", "dt":
		return &Expr{op: opTimeStep}, nil
	case "lastoutput":
		return &Expr{op: opLastOut}, nil
	}
	return &Expr{op: opName, name: name}, nil
}

func (p *Parser) match(s string) bool {
	if strings.HasPrefix(p.text[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *Parser) skipSpace() {
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}
