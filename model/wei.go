package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
)

// Wei 以十进制整数字符串落库的大整数金额（wei），不经过浮点
type Wei struct {
	i *big.Int
}

func NewWei(v *big.Int) Wei {
	if v == nil {
		return Wei{}
	}
	return Wei{i: new(big.Int).Set(v)}
}

func WeiFromInt64(v int64) Wei {
	return Wei{i: big.NewInt(v)}
}

// ParseWei parses a base-10 non-negative integer string.
func ParseWei(s string) (Wei, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Wei{}, fmt.Errorf("invalid integer amount %q", s)
	}
	if v.Sign() < 0 {
		return Wei{}, fmt.Errorf("negative amount %q", s)
	}
	return Wei{i: v}, nil
}

// Big returns a copy; the zero Wei is 0.
func (w Wei) Big() *big.Int {
	if w.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(w.i)
}

func (w Wei) String() string {
	if w.i == nil {
		return "0"
	}
	return w.i.String()
}

func (w Wei) Sign() int {
	if w.i == nil {
		return 0
	}
	return w.i.Sign()
}

func (w Wei) Cmp(o Wei) int {
	return w.Big().Cmp(o.Big())
}

func (w Wei) Add(o Wei) Wei {
	return Wei{i: new(big.Int).Add(w.Big(), o.Big())}
}

// Sub returns w-o clamped at zero.
func (w Wei) Sub(o Wei) Wei {
	d := new(big.Int).Sub(w.Big(), o.Big())
	if d.Sign() < 0 {
		d.SetInt64(0)
	}
	return Wei{i: d}
}

// Value stores the amount as a decimal string so numeric(78,0) never sees a float.
func (w Wei) Value() (driver.Value, error) {
	return w.String(), nil
}

func (w *Wei) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		w.i = new(big.Int)
	case int64:
		w.i = big.NewInt(v)
	case []byte:
		return w.setString(string(v))
	case string:
		return w.setString(v)
	case float64:
		// sqlite hands back REAL once a value leaves int64 range
		f := new(big.Float).SetFloat64(v)
		i, _ := f.Int(nil)
		w.i = i
	default:
		return fmt.Errorf("cannot scan %T into Wei", src)
	}
	return nil
}

func (w *Wei) setString(s string) error {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		// numeric columns may come back as "123.0" or "1e+21"
		f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Wei", s)
		}
		v, _ = f.Int(nil)
	}
	w.i = v
	return nil
}

func (w Wei) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}
