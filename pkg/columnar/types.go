package columnar

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ajitpratap0/csvfits/pkg/schema"
)

// Column is a homogeneous, append-only sequence of typed values
type Column interface {
	Type() schema.ValueType
	Len() int
	Get(i int) interface{}
	// Parse converts a text field according to the column type and appends it.
	Parse(text string) error
	// Append appends an already typed value.
	Append(value interface{}) error
	MemoryUsage() int64
}

// NewColumn creates an empty column for the given type
func NewColumn(t schema.ValueType, capacity int) Column {
	switch t {
	case schema.Int64:
		return &Int64Column{values: make([]int64, 0, capacity)}
	case schema.Bool:
		return &BoolColumn{values: make([]bool, 0, capacity)}
	case schema.Float64:
		return &Float64Column{values: make([]float64, 0, capacity)}
	default:
		return &Float32Column{values: make([]float32, 0, capacity)}
	}
}

// Int64Column stores signed 64-bit integers
type Int64Column struct {
	values []int64
}

func (c *Int64Column) Type() schema.ValueType { return schema.Int64 }
func (c *Int64Column) Len() int               { return len(c.values) }
func (c *Int64Column) Get(i int) interface{}  { return c.values[i] }
func (c *Int64Column) Values() []int64        { return c.values }
func (c *Int64Column) MemoryUsage() int64     { return int64(cap(c.values) * 8) }

// Parse appends a base-10 integer literal.
func (c *Int64Column) Parse(text string) error {
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return err
	}
	c.values = append(c.values, v)
	return nil
}

// Append appends a value that must be an int64.
func (c *Int64Column) Append(value interface{}) error {
	v, ok := value.(int64)
	if !ok {
		return fmt.Errorf("expected int64, got %T", value)
	}
	c.values = append(c.values, v)
	return nil
}

// BoolColumn stores logical values parsed from the literals 0 and 1
type BoolColumn struct {
	values []bool
}

func (c *BoolColumn) Type() schema.ValueType { return schema.Bool }
func (c *BoolColumn) Len() int               { return len(c.values) }
func (c *BoolColumn) Get(i int) interface{}  { return c.values[i] }
func (c *BoolColumn) Values() []bool         { return c.values }
func (c *BoolColumn) MemoryUsage() int64     { return int64(cap(c.values)) }

var errNotBoolLiteral = errors.New("expected literal 0 or 1")

// Parse appends false for "0" and true for "1".
func (c *BoolColumn) Parse(text string) error {
	switch text {
	case "0":
		c.values = append(c.values, false)
	case "1":
		c.values = append(c.values, true)
	default:
		return errNotBoolLiteral
	}
	return nil
}

// Append appends a value that must be a bool.
func (c *BoolColumn) Append(value interface{}) error {
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	c.values = append(c.values, v)
	return nil
}

// Float64Column stores double precision values
type Float64Column struct {
	values []float64
}

func (c *Float64Column) Type() schema.ValueType { return schema.Float64 }
func (c *Float64Column) Len() int               { return len(c.values) }
func (c *Float64Column) Get(i int) interface{}  { return c.values[i] }
func (c *Float64Column) Values() []float64      { return c.values }
func (c *Float64Column) MemoryUsage() int64     { return int64(cap(c.values) * 8) }

// Parse appends a decimal literal at double precision.
func (c *Float64Column) Parse(text string) error {
	v, err := parseFloat(text, 64)
	if err != nil {
		return err
	}
	c.values = append(c.values, v)
	return nil
}

// Append appends a value that must be a float64.
func (c *Float64Column) Append(value interface{}) error {
	v, ok := value.(float64)
	if !ok {
		return fmt.Errorf("expected float64, got %T", value)
	}
	c.values = append(c.values, v)
	return nil
}

// Float32Column stores single precision values
type Float32Column struct {
	values []float32
}

func (c *Float32Column) Type() schema.ValueType { return schema.Float32 }
func (c *Float32Column) Len() int               { return len(c.values) }
func (c *Float32Column) Get(i int) interface{}  { return c.values[i] }
func (c *Float32Column) Values() []float32      { return c.values }
func (c *Float32Column) MemoryUsage() int64     { return int64(cap(c.values) * 4) }

// Parse appends a decimal literal rounded to single precision.
func (c *Float32Column) Parse(text string) error {
	v, err := parseFloat(text, 32)
	if err != nil {
		return err
	}
	c.values = append(c.values, float32(v))
	return nil
}

// Append appends a value that must be a float32.
func (c *Float32Column) Append(value interface{}) error {
	v, ok := value.(float32)
	if !ok {
		return fmt.Errorf("expected float32, got %T", value)
	}
	c.values = append(c.values, v)
	return nil
}

// parseFloat accepts out-of-range literals as signed infinity, the way a
// numeric loader rounding to the column precision would.
func parseFloat(text string, bitSize int) (float64, error) {
	v, err := strconv.ParseFloat(text, bitSize)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, nil
		}
		return 0, err
	}
	return v, nil
}
